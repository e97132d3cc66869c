package delivery

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelmill-server-go/internal/platform/config"
)

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		FallbackProvider: "origin",
		Providers: []config.ProviderConfig{
			{Name: "cloudfront", Enabled: true, Settings: map[string]string{"secret_key": "cf-secret"}},
			{Name: "cloudflare", Enabled: false},
			{Name: "origin", Enabled: true},
		},
		Policies: map[string]config.PolicyConfig{
			"images": {
				TTLSeconds: 2592000,
				Headers:    map[string]string{"Cache-Control": "public, max-age=2592000, immutable"},
				Providers:  []string{"cloudflare", "cloudfront", "origin"},
			},
			"videos": {
				TTLSeconds: 604800,
				Providers:  []string{"cloudflare"},
			},
			"html_pages": {
				TTLSeconds: 300,
				Providers:  []string{"cloudflare", "origin"},
			},
			"api_responses": {
				TTLSeconds: 60,
				Providers:  []string{"origin"},
			},
			"static_assets": {
				TTLSeconds: 31536000,
				Providers:  []string{"cloudfront", "origin"},
			},
		},
	}
}

func TestPolicyForPriorityTable(t *testing.T) {
	sel := NewSelector(testDeliveryConfig(), nil)

	cases := []struct {
		contentType string
		want        string
	}{
		{"image/webp", "images"},
		{"image/avif", "images"},
		{"video/mp4", "videos"},
		{"text/html", "html_pages"},
		{"text/html; charset=utf-8", "html_pages"},
		{"application/json", "api_responses"},
		{"text/plain", "api_responses"},
		{"text/css", "static_assets"},
		{"application/javascript", "static_assets"},
		{"font/woff2", "static_assets"},
		{"image/svg+xml", "static_assets"}, // exact static set beats image/*
		{"application/octet-stream", "default"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sel.PolicyFor(tc.contentType).Name, tc.contentType)
	}
}

func TestPolicyForUnknownTypeGetsHourTTL(t *testing.T) {
	sel := NewSelector(testDeliveryConfig(), nil)

	policy := sel.PolicyFor("application/octet-stream")
	assert.Equal(t, 3600, policy.TTLSeconds)
	assert.Empty(t, policy.Providers)
}

func TestProviderForSkipsDisabledProviders(t *testing.T) {
	sel := NewSelector(testDeliveryConfig(), nil)

	// cloudflare is first eligible for images but disabled.
	assert.Equal(t, "cloudfront", sel.ProviderFor("image/webp"))
	// videos only list the disabled cloudflare: falls back.
	assert.Equal(t, "origin", sel.ProviderFor("video/mp4"))
}

func TestHeadersForNegotiableAndProduction(t *testing.T) {
	cfg := testDeliveryConfig()
	sel := NewSelector(cfg, nil)

	headers := sel.HeadersFor("image/webp")
	assert.Equal(t, "Accept", headers["Vary"])
	assert.Equal(t, "public, max-age=2592000, immutable", headers["Cache-Control"])
	assert.NotContains(t, headers, "X-Frame-Options")

	htmlHeaders := sel.HeadersFor("text/html")
	assert.NotContains(t, htmlHeaders, "Vary")
	assert.Equal(t, "public, max-age=300", htmlHeaders["Cache-Control"])

	cfg.Production = true
	prodSel := NewSelector(cfg, nil)
	prodHeaders := prodSel.HeadersFor("image/webp")
	assert.Equal(t, "nosniff", prodHeaders["X-Content-Type-Options"])
	assert.Equal(t, "DENY", prodHeaders["X-Frame-Options"])
}

func TestSignerRoundTrip(t *testing.T) {
	cfg := testDeliveryConfig()
	cfg.SignTTL = time.Minute
	signer := NewSigner(cfg)

	signed, err := signer.SignURL("cloudfront", "https://cdn.example.com/out/hero_640w.webp")
	require.NoError(t, err)
	require.Contains(t, signed, "?token=")
	assert.NotContains(t, signed, "cf-secret")

	token := signed[strings.Index(signed, "token=")+len("token="):]
	sub, err := signer.Verify("cloudfront", token)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/out/hero_640w.webp", sub)

	// Tokens do not transfer between providers.
	_, err = signer.Verify("origin", token)
	assert.Error(t, err)
}

func TestSignerRequiresSecret(t *testing.T) {
	signer := NewSigner(testDeliveryConfig())

	_, err := signer.SignURL("cloudflare", "https://cdn.example.com/x.webp")
	assert.Error(t, err)
}
