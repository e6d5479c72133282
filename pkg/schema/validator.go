package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
)

// ValidationResult represents the result of a configuration validation.
type ValidationResult struct {
	// Valid indicates whether the configuration satisfies every rule.
	Valid bool

	// Errors contains validation errors grouped by rule name.
	Errors map[string][]string
}

// ValidationRule checks one structural property of a configuration.
type ValidationRule interface {
	// Validate returns the violations found in cfg.
	Validate(cfg core.Configuration) []string

	// Name returns the human-readable name of the rule.
	Name() string
}

// NonEmptyPathRule rejects descriptors whose path is empty or contains an
// empty segment.
type NonEmptyPathRule struct{}

// Validate implements ValidationRule.
func (NonEmptyPathRule) Validate(cfg core.Configuration) []string {
	var errs []string
	for i, f := range cfg.Fields {
		if len(f.Path) == 0 {
			errs = append(errs, fmt.Sprintf("field %d has an empty path", i))
			continue
		}
		for _, seg := range f.Path {
			if seg == "" {
				errs = append(errs, fmt.Sprintf("field %q has an empty path segment", f.ID()))
				break
			}
		}
	}
	return errs
}

// Name implements ValidationRule.
func (NonEmptyPathRule) Name() string { return "NonEmptyPath" }

// UniqueFieldRule rejects configurations declaring the same field id twice.
type UniqueFieldRule struct{}

// Validate implements ValidationRule.
func (UniqueFieldRule) Validate(cfg core.Configuration) []string {
	var errs []string
	seen := make(map[string]int)
	for i, f := range cfg.Fields {
		id := f.ID()
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Sprintf("field %q declared at %d and %d", id, prev, i))
			continue
		}
		seen[id] = i
	}
	return errs
}

// Name implements ValidationRule.
func (UniqueFieldRule) Name() string { return "UniqueField" }

// Validator runs a list of rules against configurations.
type Validator struct {
	rules []ValidationRule
}

// NewValidator returns a validator carrying the structural invariants every
// configuration must meet.
func NewValidator() *Validator {
	return &Validator{rules: []ValidationRule{NonEmptyPathRule{}, UniqueFieldRule{}}}
}

// AddRule adds a validation rule to the validator.
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate checks cfg against every rule.
func (v *Validator) Validate(cfg core.Configuration) ValidationResult {
	result := ValidationResult{Valid: true, Errors: make(map[string][]string)}
	for _, rule := range v.rules {
		if errs := rule.Validate(cfg); len(errs) > 0 {
			result.Valid = false
			result.Errors[rule.Name()] = append(result.Errors[rule.Name()], errs...)
		}
	}
	return result
}

// Err converts an invalid result into a MalformedInput error.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return core.MalformedInput("invalid configuration: %s", r.String())
}

// String renders the errors in rule-name order.
func (r ValidationResult) String() string {
	if r.Valid {
		return "valid"
	}
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(r.Errors[name], ", "))
	}
	return sb.String()
}
