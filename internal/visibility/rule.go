// Package visibility computes the visible/enabled state of dependent form
// fields from the values of the driver fields they hang off.
//
// A RuleSet covers one section of a form. Evaluation is a pure function of
// the submitted Form: no state is kept between calls and the Form is never
// modified.
package visibility

import (
	"errors"
	"fmt"
)

// Effect is what a rule does to its dependent fields when its conditions
// hold. The opposite effect applies when they do not.
type Effect string

const (
	EffectShow    Effect = "show"
	EffectHide    Effect = "hide"
	EffectEnable  Effect = "enable"
	EffectDisable Effect = "disable"
)

// Opposite returns the effect applied on the else branch.
func (e Effect) Opposite() Effect {
	switch e {
	case EffectShow:
		return EffectHide
	case EffectHide:
		return EffectShow
	case EffectEnable:
		return EffectDisable
	case EffectDisable:
		return EffectEnable
	}
	return e
}

// Valid reports whether e is one of the known effects.
func (e Effect) Valid() bool {
	switch e {
	case EffectShow, EffectHide, EffectEnable, EffectDisable:
		return true
	}
	return false
}

func (e Effect) apply(d *Directive) {
	switch e {
	case EffectShow:
		d.Visible = true
	case EffectHide:
		d.Visible = false
	case EffectEnable:
		d.Enabled = true
	case EffectDisable:
		d.Enabled = false
	}
}

// Op is a predicate over a driver field value.
type Op string

const (
	OpEq        Op = "eq"
	OpNe        Op = "ne"
	OpIn        Op = "in"
	OpNotIn     Op = "not_in"
	OpChecked   Op = "checked"
	OpUnchecked Op = "unchecked"
)

func (o Op) numeric() bool {
	switch o {
	case OpEq, OpNe, OpIn, OpNotIn:
		return true
	}
	return false
}

// Condition tests one driver field.
type Condition struct {
	Field  string `json:"field"`
	Op     Op     `json:"op"`
	Values []int  `json:"values,omitempty"`
}

// Rule applies Effect to Fields when every condition in When holds, and
// the opposite effect otherwise.
type Rule struct {
	Name   string      `json:"name"`
	When   []Condition `json:"when"`
	Fields []string    `json:"fields"`
	Effect Effect      `json:"effect"`
}

// Drivers returns the fields the rule reads, in declaration order.
func (r Rule) Drivers() []string {
	seen := make(map[string]bool, len(r.When))
	var out []string
	for _, c := range r.When {
		if !seen[c.Field] {
			seen[c.Field] = true
			out = append(out, c.Field)
		}
	}
	return out
}

// RuleSet is the ordered rule list for one form section. Later rules
// override earlier ones on the same field attribute.
type RuleSet struct {
	Section  string   `json:"section"`
	Title    string   `json:"title,omitempty"`
	Rules    []Rule   `json:"rules"`
	Required []string `json:"required,omitempty"`
}

// Drivers returns every driver field of the set, deduplicated and ordered
// by first appearance.
func (rs RuleSet) Drivers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs.Rules {
		for _, f := range r.Drivers() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Dependents returns every dependent field of the set, deduplicated and
// ordered by first appearance.
func (rs RuleSet) Dependents() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs.Rules {
		for _, f := range r.Fields {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

var (
	ErrInvalidRule     = errors.New("invalid rule")
	ErrConflictingRule = errors.New("conflicting rule")
)

// Validate checks the set for unknown ops and effects, empty rules and
// rules that name a dependent field twice.
func (rs RuleSet) Validate() error {
	if rs.Section == "" {
		return fmt.Errorf("%w: rule set without a section name", ErrInvalidRule)
	}
	if len(rs.Rules) == 0 {
		return fmt.Errorf("%w: section %s has no rules", ErrInvalidRule, rs.Section)
	}
	deps := make(map[string]bool)
	for i, r := range rs.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if !r.Effect.Valid() {
			return fmt.Errorf("%w: %s/%s: unknown effect %q", ErrInvalidRule, rs.Section, name, r.Effect)
		}
		if len(r.When) == 0 {
			return fmt.Errorf("%w: %s/%s: no conditions", ErrInvalidRule, rs.Section, name)
		}
		if len(r.Fields) == 0 {
			return fmt.Errorf("%w: %s/%s: no dependent fields", ErrInvalidRule, rs.Section, name)
		}
		for _, c := range r.When {
			if c.Field == "" {
				return fmt.Errorf("%w: %s/%s: condition without a field", ErrInvalidRule, rs.Section, name)
			}
			switch {
			case c.Op.numeric():
				if len(c.Values) == 0 {
					return fmt.Errorf("%w: %s/%s: %s on %s needs values", ErrInvalidRule, rs.Section, name, c.Op, c.Field)
				}
				if (c.Op == OpEq || c.Op == OpNe) && len(c.Values) != 1 {
					return fmt.Errorf("%w: %s/%s: %s on %s takes one value", ErrInvalidRule, rs.Section, name, c.Op, c.Field)
				}
			case c.Op == OpChecked, c.Op == OpUnchecked:
			default:
				return fmt.Errorf("%w: %s/%s: unknown op %q", ErrInvalidRule, rs.Section, name, c.Op)
			}
		}
		seen := make(map[string]bool, len(r.Fields))
		for _, f := range r.Fields {
			if seen[f] {
				return fmt.Errorf("%w: %s/%s: field %s listed twice", ErrConflictingRule, rs.Section, name, f)
			}
			seen[f] = true
			deps[f] = true
		}
	}
	for _, f := range rs.Required {
		if !deps[f] {
			return fmt.Errorf("%w: %s: required field %s is not a dependent", ErrInvalidRule, rs.Section, f)
		}
	}
	return nil
}
