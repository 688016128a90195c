package visibility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mrlMain = []string{"min_h", "max_h", "min_v", "max_v", "max_clock", "gtf"}
	mrlGTF  = []string{"gtf_start", "gtf_c", "gtf_m", "gtf_k", "gtf_j"}
)

// syncSet mirrors the detailed timing sync-scheme group.
func syncSet() RuleSet {
	return RuleSet{
		Section: "sync",
		Rules: []Rule{
			{Name: "separate", When: []Condition{{Field: "scheme", Op: OpEq, Values: []int{3}}}, Fields: []string{"hpol", "vpol"}, Effect: EffectShow},
			{Name: "serrate", When: []Condition{{Field: "scheme", Op: OpNe, Values: []int{3}}}, Fields: []string{"serrate"}, Effect: EffectShow},
			{Name: "composite", When: []Condition{{Field: "scheme", Op: OpEq, Values: []int{2}}}, Fields: []string{"cpol"}, Effect: EffectShow},
			{Name: "rgb", When: []Condition{{Field: "scheme", Op: OpNotIn, Values: []int{2, 3}}}, Fields: []string{"rgb"}, Effect: EffectShow},
		},
	}
}

// mrlSet mirrors the two-level monitor range limits group.
func mrlSet() RuleSet {
	return RuleSet{
		Section: "mrl",
		Rules: []Rule{
			{
				Name:   "mrl",
				When:   []Condition{{Field: "mrl", Op: OpChecked}},
				Fields: append(append([]string{}, mrlMain...), mrlGTF...),
				Effect: EffectEnable,
			},
			{
				Name:   "gtf_detail",
				When:   []Condition{{Field: "mrl", Op: OpChecked}, {Field: "gtf", Op: OpChecked}},
				Fields: mrlGTF,
				Effect: EffectEnable,
			},
		},
		Required: append(append([]string{}, mrlMain[:5]...), mrlGTF...),
	}
}

func TestEvaluate_SyncScheme(t *testing.T) {
	tests := []struct {
		scheme                  int
		polarity, serrate, cpol bool
		rgb                     bool
	}{
		{scheme: 0, serrate: true, rgb: true},
		{scheme: 1, serrate: true, rgb: true},
		{scheme: 2, serrate: true, cpol: true},
		{scheme: 3, polarity: true},
	}
	for _, tt := range tests {
		st := Evaluate(syncSet(), Form{"scheme": Int(tt.scheme)})
		assert.Equal(t, tt.polarity, st["hpol"].Visible, "scheme %d hpol", tt.scheme)
		assert.Equal(t, tt.polarity, st["vpol"].Visible, "scheme %d vpol", tt.scheme)
		assert.Equal(t, tt.serrate, st["serrate"].Visible, "scheme %d serrate", tt.scheme)
		assert.NotEqual(t, st["hpol"].Visible, st["serrate"].Visible, "scheme %d polarity/serrate exclusive", tt.scheme)
		assert.Equal(t, tt.cpol, st["cpol"].Visible, "scheme %d cpol", tt.scheme)
		assert.Equal(t, tt.rgb, st["rgb"].Visible, "scheme %d rgb", tt.scheme)
		for f, d := range st {
			assert.True(t, d.Enabled, "show rules never disable %s", f)
		}
	}
}

func TestEvaluate_MRLNested(t *testing.T) {
	for _, mrl := range []bool{false, true} {
		for _, gtf := range []bool{false, true} {
			st := Evaluate(mrlSet(), Form{"mrl": Bool(mrl), "gtf": Bool(gtf)})
			for _, f := range mrlMain {
				assert.Equal(t, mrl, st[f].Enabled, "mrl=%v gtf=%v %s", mrl, gtf, f)
			}
			for _, f := range mrlGTF {
				assert.Equal(t, mrl && gtf, st[f].Enabled, "mrl=%v gtf=%v %s", mrl, gtf, f)
			}
		}
	}
}

func TestEvaluate_MissingDriverSkipsRule(t *testing.T) {
	st, diags := Explain(mrlSet(), Form{"mrl": Bool(true)})

	for _, f := range mrlGTF {
		assert.True(t, st[f].Enabled, "first rule still applies to %s", f)
	}
	require.Len(t, diags, 1)
	assert.Equal(t, "gtf_detail", diags[0].Rule)
	assert.Equal(t, "gtf", diags[0].Field)
	assert.Equal(t, "missing_field", diags[0].Kind)
	assert.True(t, errors.Is(diags[0], ErrMissingField))
}

func TestEvaluate_EmptyFormKeepsDefaults(t *testing.T) {
	st := Evaluate(syncSet(), Form{})
	require.Len(t, st, 5)
	for f, d := range st {
		assert.Equal(t, Directive{Visible: true, Enabled: true}, d, f)
	}
}

func TestEvaluate_InvalidValueTakesElseBranch(t *testing.T) {
	st, diags := Explain(syncSet(), Form{"scheme": String("digital")})

	assert.False(t, st["hpol"].Visible)
	assert.False(t, st["serrate"].Visible)
	assert.False(t, st["cpol"].Visible)
	assert.False(t, st["rgb"].Visible)
	require.Len(t, diags, 4)
	for _, d := range diags {
		assert.Equal(t, "invalid_value", d.Kind)
		assert.ErrorIs(t, d, ErrInvalidValue)
		assert.Equal(t, "digital", d.Value)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	form := Form{"mrl": Bool(true), "gtf": Bool(false)}
	first := Evaluate(mrlSet(), form)
	second := Evaluate(mrlSet(), form)
	assert.True(t, first.Equal(second))
	assert.Equal(t, Form{"mrl": Bool(true), "gtf": Bool(false)}, form, "form is not modified")
}

func TestEvaluateAll_MergesIndependentSets(t *testing.T) {
	st := EvaluateAll([]RuleSet{syncSet(), mrlSet()}, Form{"scheme": Int(2), "mrl": Bool(false), "gtf": Bool(true)})
	assert.Len(t, st, 16)
	assert.True(t, st["cpol"].Visible)
	assert.False(t, st["gtf_j"].Enabled)
}

func TestRuleSet_DriversAndDependents(t *testing.T) {
	rs := mrlSet()
	assert.Equal(t, []string{"mrl", "gtf"}, rs.Drivers())
	assert.Equal(t, append(append([]string{}, mrlMain...), mrlGTF...), rs.Dependents())
}

func TestRuleSet_Validate(t *testing.T) {
	require.NoError(t, syncSet().Validate())
	require.NoError(t, mrlSet().Validate())

	bad := syncSet()
	bad.Rules[0].Effect = "toggle"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRule)

	bad = syncSet()
	bad.Rules[1].When[0].Op = "gt"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRule)

	bad = syncSet()
	bad.Rules[0].Fields = []string{"hpol", "hpol"}
	assert.ErrorIs(t, bad.Validate(), ErrConflictingRule)

	bad = syncSet()
	bad.Rules[0].When[0].Values = []int{2, 3}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRule)

	bad = mrlSet()
	bad.Required = append(bad.Required, "mrl")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRule)
}

func TestEffect_Opposite(t *testing.T) {
	assert.Equal(t, EffectHide, EffectShow.Opposite())
	assert.Equal(t, EffectShow, EffectHide.Opposite())
	assert.Equal(t, EffectDisable, EffectEnable.Opposite())
	assert.Equal(t, EffectEnable, EffectDisable.Opposite())
}
