// Package delivery maps produced content types to cache policies, picks an
// enabled delivery provider, and signs delivery URLs.
package delivery

import (
	"fmt"
	"strings"

	"pixelmill-server-go/internal/platform/config"
	"pixelmill-server-go/internal/utils"
)

const defaultTTLSeconds = 3600

// staticAssetMIMEs are served with the static_assets policy ahead of the
// broader image/* and text/* classes.
var staticAssetMIMEs = map[string]bool{
	"text/css":                 true,
	"text/javascript":          true,
	"application/javascript":   true,
	"application/x-javascript": true,
	"font/woff":                true,
	"font/woff2":               true,
	"font/ttf":                 true,
	"font/otf":                 true,
	"application/font-woff":    true,
	"image/svg+xml":            true,
}

// negotiableMIMEPrefixes get a Vary: Accept header so intermediaries do not
// serve an AVIF body to a client that only asked for JPEG.
var negotiableMIMEPrefixes = []string{"image/", "video/"}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
}

// Policy is the resolved cache policy for one content type.
type Policy struct {
	Name       string            `json:"name"`
	TTLSeconds int               `json:"ttl_seconds"`
	Headers    map[string]string `json:"headers"`
	Providers  []string          `json:"providers"`
}

// Selector resolves content types to policies and providers from the static
// delivery configuration.
type Selector struct {
	cfg    config.DeliveryConfig
	logger *utils.Logger
}

func NewSelector(cfg config.DeliveryConfig, logger *utils.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger}
}

// policyName applies the fixed priority table. text/html and the exact
// static-asset MIMEs outrank the broad image/*, video/* and text/* classes.
func policyName(contentType string) string {
	ct := normalizeMIME(contentType)
	switch {
	case ct == "text/html":
		return "html_pages"
	case staticAssetMIMEs[ct]:
		return "static_assets"
	case strings.HasPrefix(ct, "image/"):
		return "images"
	case strings.HasPrefix(ct, "video/"):
		return "videos"
	case ct == "application/json" || strings.HasPrefix(ct, "text/"):
		return "api_responses"
	default:
		return "default"
	}
}

// PolicyFor resolves the policy for a content type. Unknown classes and
// unconfigured policy names fall back to a plain one-hour TTL.
func (s *Selector) PolicyFor(contentType string) Policy {
	name := policyName(contentType)
	cfg, ok := s.cfg.Policies[name]
	if !ok {
		return Policy{Name: "default", TTLSeconds: defaultTTLSeconds}
	}
	return Policy{
		Name:       name,
		TTLSeconds: cfg.TTLSeconds,
		Headers:    cfg.Headers,
		Providers:  cfg.Providers,
	}
}

// ProviderFor returns the first enabled provider eligible under the policy
// for the content type, or the configured fallback when none is enabled.
func (s *Selector) ProviderFor(contentType string) string {
	policy := s.PolicyFor(contentType)

	enabled := make(map[string]bool, len(s.cfg.Providers))
	for _, p := range s.cfg.Providers {
		enabled[p.Name] = p.Enabled
	}

	for _, name := range policy.Providers {
		if enabled[name] {
			return name
		}
	}

	fallback := s.cfg.FallbackProvider
	if fallback == "" {
		fallback = "origin"
	}
	if s.logger != nil {
		s.logger.DebugTag("DELIVERY", "no enabled provider for %s policy %s, using %s",
			contentType, policy.Name, fallback)
	}
	return fallback
}

// HeadersFor merges the policy's headers with a Vary header for negotiable
// content and, in production configuration, the fixed security header set.
func (s *Selector) HeadersFor(contentType string) map[string]string {
	policy := s.PolicyFor(contentType)

	headers := make(map[string]string, len(policy.Headers)+len(securityHeaders)+2)
	for k, v := range policy.Headers {
		headers[k] = v
	}
	if _, ok := headers["Cache-Control"]; !ok {
		headers["Cache-Control"] = fmt.Sprintf("public, max-age=%d", policy.TTLSeconds)
	}

	ct := normalizeMIME(contentType)
	for _, prefix := range negotiableMIMEPrefixes {
		if strings.HasPrefix(ct, prefix) {
			headers["Vary"] = "Accept"
			break
		}
	}

	if s.cfg.Production {
		for k, v := range securityHeaders {
			headers[k] = v
		}
	}
	return headers
}

func normalizeMIME(contentType string) string {
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
