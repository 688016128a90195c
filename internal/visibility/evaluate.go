package visibility

import (
	"errors"
	"fmt"
	"slices"
)

// Directive is the UI state of one dependent field.
type Directive struct {
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}

// Active reports whether the field is both shown and editable.
func (d Directive) Active() bool {
	return d.Visible && d.Enabled
}

// State maps dependent field names to their directives.
type State map[string]Directive

// Equal reports whether both states hold the same directives.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		if w, ok := o[k]; !ok || w != v {
			return false
		}
	}
	return true
}

var (
	// ErrMissingField marks a rule skipped because a driver field is not in the form.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidValue marks a driver value outside the expected domain; the
	// condition reads as false.
	ErrInvalidValue = errors.New("invalid value")
)

// Diagnostic records why a rule was skipped or fell back to its else branch.
type Diagnostic struct {
	Section string `json:"section"`
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Kind    string `json:"kind"`
	Err     error  `json:"-"`
}

func (d Diagnostic) Error() string {
	if d.Value != "" {
		return fmt.Sprintf("%s/%s: %s %q: %v", d.Section, d.Rule, d.Field, d.Value, d.Err)
	}
	return fmt.Sprintf("%s/%s: %s: %v", d.Section, d.Rule, d.Field, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

func newDiagnostic(rs RuleSet, r Rule, field string, value FieldValue, err error) Diagnostic {
	kind := "invalid_value"
	if errors.Is(err, ErrMissingField) {
		kind = "missing_field"
	}
	return Diagnostic{
		Section: rs.Section,
		Rule:    r.Name,
		Field:   field,
		Value:   value.String(),
		Kind:    kind,
		Err:     err,
	}
}

// Evaluate computes the directives for every dependent field of rs.
func Evaluate(rs RuleSet, form Form) State {
	st, _ := Explain(rs, form)
	return st
}

// Explain is Evaluate plus the diagnostics gathered on the way. A rule
// whose driver is missing from form is skipped; its dependents keep
// whatever earlier rules set, or the default (visible, enabled).
func Explain(rs RuleSet, form Form) (State, []Diagnostic) {
	st, diags, _ := run(rs, form)
	return st, diags
}

// run also returns the dependents touched only by skipped rules.
func run(rs RuleSet, form Form) (State, []Diagnostic, map[string]bool) {
	st := make(State)
	decided := make(map[string]bool)
	for _, f := range rs.Dependents() {
		st[f] = Directive{Visible: true, Enabled: true}
	}
	var diags []Diagnostic

	for _, r := range rs.Rules {
		holds, skip, ds := check(rs, r, form)
		diags = append(diags, ds...)
		if skip {
			continue
		}
		for _, f := range r.Fields {
			decided[f] = true
		}
		effect := r.Effect
		if !holds {
			effect = effect.Opposite()
		}
		for _, f := range r.Fields {
			d := st[f]
			effect.apply(&d)
			st[f] = d
		}
	}

	undecided := make(map[string]bool)
	for f := range st {
		if !decided[f] {
			undecided[f] = true
		}
	}
	return st, diags, undecided
}

// check evaluates the conjunction r.When. Every driver must be present
// before any condition is read.
func check(rs RuleSet, r Rule, form Form) (holds, skip bool, diags []Diagnostic) {
	for _, c := range r.When {
		if _, ok := form[c.Field]; !ok {
			diags = append(diags, newDiagnostic(rs, r, c.Field, Null(), ErrMissingField))
			skip = true
		}
	}
	if skip {
		return false, true, diags
	}

	holds = true
	for _, c := range r.When {
		ok, err := c.eval(form[c.Field])
		if err != nil {
			diags = append(diags, newDiagnostic(rs, r, c.Field, form[c.Field], err))
		}
		if !ok {
			holds = false
		}
	}
	return holds, false, diags
}

func (c Condition) eval(v FieldValue) (bool, error) {
	switch c.Op {
	case OpChecked:
		return v.Checked(), nil
	case OpUnchecked:
		return !v.Checked(), nil
	}

	n, ok := v.Int()
	if !ok {
		return false, ErrInvalidValue
	}
	switch c.Op {
	case OpEq, OpIn:
		return slices.Contains(c.Values, n), nil
	case OpNe, OpNotIn:
		return !slices.Contains(c.Values, n), nil
	}
	return false, fmt.Errorf("%w: op %q", ErrInvalidValue, c.Op)
}

// EvaluateAll evaluates independent rule sets against the same form and
// merges the results.
func EvaluateAll(sets []RuleSet, form Form) State {
	out := make(State)
	for _, rs := range sets {
		for f, d := range Evaluate(rs, form) {
			out[f] = d
		}
	}
	return out
}
