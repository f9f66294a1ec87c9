// Package validation provides centralized input validation for flowscope.
//
// Selection components (scenario, protocol, load) become path segments of
// fetched resource URLs, so the rules here are deliberately strict: no path
// separators, no dots, no control characters.
package validation

import (
	"fmt"
	"strings"

	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/series"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for identifier components.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowHyphens bool
	AllowUnders  bool
}

// SelectionRules returns the rules for selection components.
func SelectionRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    64,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates an identifier component according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("too short: minimum %d characters", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("too long: maximum %d characters", rules.MaxLength)
	}

	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' && rules.AllowHyphens:
		case r == '_' && rules.AllowUnders:
		default:
			return fmt.Errorf("illegal character %q at position %d", r, i)
		}
	}

	return nil
}

// =============================================================================
// Selection Validation
// =============================================================================

// ValidateSelection validates every component of a selection.
func ValidateSelection(sel series.Selection) error {
	rules := SelectionRules()

	for _, c := range []struct {
		field string
		value string
	}{
		{"scenario", sel.Scenario},
		{"protocol", sel.Protocol},
		{"load", sel.Load},
	} {
		if err := ValidateName(c.value, rules); err != nil {
			return errors.Wrapf(errors.ErrInvalidSelection, "%s %q: %v", c.field, c.value, err)
		}
	}

	return nil
}

// =============================================================================
// Scalar Kind Validation
// =============================================================================

// ValidateScalarKind checks that a scalar kind name is usable as a resource
// path component.
func ValidateScalarKind(kind series.ScalarKind) error {
	name := strings.TrimSpace(string(kind))
	if name == "" || name != string(kind) {
		return errors.Wrapf(errors.ErrInvalidManifest, "scalar kind %q", kind)
	}
	return ValidateName(name, SelectionRules())
}
