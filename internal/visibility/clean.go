package visibility

import "sort"

// FieldError reports a submitted field that failed cleaning.
type FieldError struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Clean prepares a submitted form for storage. Dependents that the rule
// set leaves hidden or disabled are nulled so stale values never persist,
// and required dependents that are active must carry a value.
//
// A browser omits unchecked checkboxes from a submission, so a missing
// checked/unchecked driver reads as unchecked here. Fields decided only by
// rules whose select driver is missing (the section was not rendered) are
// left as submitted.
func Clean(rs RuleSet, form Form) (Form, []FieldError) {
	out := form.Clone()
	st, _, undecided := run(rs, submitted(rs, form))

	required := make(map[string]bool, len(rs.Required))
	for _, f := range rs.Required {
		required[f] = true
	}

	var errs []FieldError
	for _, f := range rs.Dependents() {
		if undecided[f] {
			continue
		}
		if !st[f].Active() {
			out[f] = Null()
			continue
		}
		if required[f] && out[f].IsEmpty() {
			errs = append(errs, FieldError{
				Section: rs.Section,
				Field:   f,
				Code:    "required",
				Message: "This field is required.",
			})
		}
	}
	return out, errs
}

// submitted fills in the checkbox drivers a browser leaves out.
func submitted(rs RuleSet, form Form) Form {
	var filled Form
	for _, r := range rs.Rules {
		for _, c := range r.When {
			if c.Op.numeric() {
				continue
			}
			if _, ok := form[c.Field]; ok {
				continue
			}
			if filled == nil {
				filled = form.Clone()
			}
			filled[c.Field] = Null()
		}
	}
	if filled == nil {
		return form
	}
	return filled
}

// CleanAll runs Clean for each set in turn. Errors are sorted by field.
func CleanAll(sets []RuleSet, form Form) (Form, []FieldError) {
	out := form
	var errs []FieldError
	for _, rs := range sets {
		var es []FieldError
		out, es = Clean(rs, out)
		errs = append(errs, es...)
	}
	if out == nil {
		out = Form{}
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return out, errs
}
