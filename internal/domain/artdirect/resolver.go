package artdirect

import (
	"regexp"
	"strings"
	"sync"

	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

type compiledRule struct {
	pattern     string
	matcher     *regexp.Regexp
	breakpoints map[int]Spec
}

// Resolver holds art-direction rules in registration order. Patterns compile
// once at registration; lookups only run the precompiled matchers.
type Resolver struct {
	mu     sync.RWMutex
	rules  []compiledRule
	logger *utils.Logger
}

func NewResolver(logger *utils.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Register appends a rule. The pattern is a wildcard glob where `*` matches
// any substring.
func (r *Resolver) Register(pattern string, breakpoints map[int]Spec) error {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindArtDirection, "register", "compile pattern", err)
	}

	specs := make(map[int]Spec, len(breakpoints))
	for bp, spec := range breakpoints {
		specs[bp] = spec
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, compiledRule{
		pattern:     pattern,
		matcher:     matcher,
		breakpoints: specs,
	})
	return nil
}

// Clear removes all registered rules.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = nil
}

// Resolve returns the spec for the first rule whose pattern matches assetID,
// provided the rule defines the exact requested breakpoint. Otherwise the
// caller falls back to a default aspect-preserving resize.
func (r *Resolver) Resolve(assetID string, breakpoint int) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if !rule.matcher.MatchString(assetID) {
			continue
		}
		spec, ok := rule.breakpoints[breakpoint]
		if !ok && r.logger != nil {
			r.logger.DebugTag("ART", "rule %q matched %s but has no breakpoint %d",
				rule.pattern, assetID, breakpoint)
		}
		return spec, ok
	}
	return Spec{}, false
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}
