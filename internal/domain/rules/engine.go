// Package rules holds the composable optimization rule engine: an ordered
// list of named pure functions folded into one OptimizationConfig.
package rules

import (
	"fmt"
	"sync"

	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/utils"
)

// Partial is one rule's contribution. Nil or empty fields leave the
// accumulator untouched; set fields overwrite it (later rules win).
type Partial struct {
	Formats            []domainimage.Format
	BaseQuality        *int
	QualityMultiplier  *float64
	GenerateResponsive *bool
	Breakpoints        []int
}

// OptimizationConfig is the merged result, built fresh per image.
type OptimizationConfig struct {
	CandidateFormats   []domainimage.Format `json:"candidate_formats"`
	BaseQuality        int                  `json:"base_quality"`
	QualityMultiplier  float64              `json:"quality_multiplier"`
	GenerateResponsive bool                 `json:"generate_responsive"`
	Breakpoints        []int                `json:"breakpoints"`
}

// EvaluateFunc maps source metadata to a partial config.
type EvaluateFunc func(src *domainimage.SourceImage) (Partial, error)

// Rule is a named, registered evaluation function.
type Rule struct {
	Name     string
	Evaluate EvaluateFunc
}

// Engine keeps rules in registration order and folds them deterministically.
// Registration is process-wide and guarded; Apply is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	rules  []Rule
	logger *utils.Logger
}

func NewEngine(logger *utils.Logger) *Engine {
	return &Engine{logger: logger}
}

// Register appends a rule. A duplicate name replaces the existing rule in
// place, keeping its original position.
func (e *Engine) Register(rule Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule requires a name")
	}
	if rule.Evaluate == nil {
		return fmt.Errorf("rule %q requires an evaluate function", rule.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].Name == rule.Name {
			e.rules[i] = rule
			return nil
		}
	}
	e.rules = append(e.rules, rule)
	return nil
}

// Remove deletes a rule by name. Removing an absent rule is a no-op.
func (e *Engine) Remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return
		}
	}
}

// Names returns the registered rule names in order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Apply folds every registered rule over the default config in registration
// order. A rule that errors (or panics) is logged and skipped; the fold
// continues with the remaining rules.
func (e *Engine) Apply(src *domainimage.SourceImage) OptimizationConfig {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	cfg := OptimizationConfig{
		CandidateFormats:   []domainimage.Format{src.Format},
		BaseQuality:        80,
		QualityMultiplier:  1.0,
		GenerateResponsive: false,
	}

	for _, rule := range rules {
		partial, err := safeEvaluate(rule, src)
		if err != nil {
			if e.logger != nil {
				e.logger.WarnTag("RULES", "rule %q failed, skipping: %v", rule.Name, err)
			}
			continue
		}
		merge(&cfg, partial)
	}
	return cfg
}

func safeEvaluate(rule Rule, src *domainimage.SourceImage) (partial Partial, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %q panicked: %v", rule.Name, r)
		}
	}()
	return rule.Evaluate(src)
}

// merge shallow-merges a partial onto the accumulator; set fields win.
func merge(cfg *OptimizationConfig, p Partial) {
	if len(p.Formats) > 0 {
		cfg.CandidateFormats = p.Formats
	}
	if p.BaseQuality != nil {
		cfg.BaseQuality = *p.BaseQuality
	}
	if p.QualityMultiplier != nil {
		cfg.QualityMultiplier = *p.QualityMultiplier
	}
	if p.GenerateResponsive != nil {
		cfg.GenerateResponsive = *p.GenerateResponsive
	}
	if len(p.Breakpoints) > 0 {
		cfg.Breakpoints = p.Breakpoints
	}
}

// Helpers for building partials without local pointer boilerplate.

func IntPtr(v int) *int           { return &v }
func FloatPtr(v float64) *float64 { return &v }
func BoolPtr(v bool) *bool        { return &v }
