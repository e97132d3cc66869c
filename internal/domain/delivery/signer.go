package delivery

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
)

const defaultSignTTL = 15 * time.Minute

// Signer issues and verifies short-lived signed delivery URLs. Each provider
// signs with its own secret from the opaque settings bag; secrets never
// appear in logs or errors.
type Signer struct {
	ttl     time.Duration
	secrets map[string]string
}

func NewSigner(cfg config.DeliveryConfig) *Signer {
	ttl := cfg.SignTTL
	if ttl <= 0 {
		ttl = defaultSignTTL
	}

	secrets := make(map[string]string, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if secret, ok := p.Settings["secret_key"]; ok && secret != "" {
			secrets[p.Name] = secret
		}
	}
	return &Signer{ttl: ttl, secrets: secrets}
}

// SignURL appends a signed token to the asset URL for the given provider.
func (s *Signer) SignURL(provider, assetURL string) (string, error) {
	secret, ok := s.secrets[provider]
	if !ok {
		return "", platformerrors.New(platformerrors.KindDelivery, "sign",
			fmt.Sprintf("provider %q has no signing secret", provider))
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "pixelmill",
		"sub": assetURL,
		"prv": provider,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindDelivery, "sign", "sign token", err)
	}

	sep := "?"
	if u, err := url.Parse(assetURL); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return assetURL + sep + "token=" + signed, nil
}

// Verify checks a token for the given provider and returns the asset URL it
// was issued for.
func (s *Signer) Verify(provider, tokenString string) (string, error) {
	secret, ok := s.secrets[provider]
	if !ok {
		return "", platformerrors.New(platformerrors.KindDelivery, "verify",
			fmt.Sprintf("provider %q has no signing secret", provider))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindDelivery, "verify", "parse token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", platformerrors.New(platformerrors.KindDelivery, "verify", "invalid token")
	}
	sub, _ := claims["sub"].(string)
	if prv, _ := claims["prv"].(string); prv != provider {
		return "", platformerrors.New(platformerrors.KindDelivery, "verify", "token issued for another provider")
	}
	return sub, nil
}
