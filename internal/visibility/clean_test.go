package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_NullsInactiveFields(t *testing.T) {
	form := Form{
		"mrl": Bool(false), "gtf": Bool(true),
		"min_h": Int(30), "gtf_c": Int(40),
	}
	out, errs := Clean(mrlSet(), form)

	assert.Empty(t, errs)
	assert.True(t, out["min_h"].IsNull())
	assert.True(t, out["gtf_c"].IsNull())
	assert.True(t, out["gtf"].IsNull(), "disabled checkbox is nulled on submit")
	assert.Equal(t, "30", form["min_h"].String(), "input form is not modified")
}

func TestClean_RequiresActiveFields(t *testing.T) {
	form := Form{
		"mrl": Bool(true), "gtf": Bool(false),
		"min_h": Int(30), "max_h": Int(80), "min_v": Int(56), "max_v": String(""),
		"gtf_c": Int(40),
	}
	out, errs := Clean(mrlSet(), form)

	var fields []string
	for _, e := range errs {
		assert.Equal(t, "required", e.Code)
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"max_v", "max_clock"}, fields)
	assert.True(t, out["gtf_c"].IsNull())
	assert.Equal(t, "30", out["min_h"].String())
}

func TestClean_SkipsUnrenderedSection(t *testing.T) {
	out, errs := Clean(syncSet(), Form{"mrl": Bool(true)})
	assert.Empty(t, errs)
	assert.Equal(t, Form{"mrl": Bool(true)}, out)
}

func TestClean_OmittedCheckboxIsUnchecked(t *testing.T) {
	form := Form{
		"mrl":   String("on"),
		"min_h": Int(30), "max_h": Int(80), "min_v": Int(56), "max_v": Int(76), "max_clock": Int(170),
		"gtf_c": Int(40),
	}
	out, errs := Clean(mrlSet(), form)

	assert.Empty(t, errs)
	assert.Equal(t, "30", out["min_h"].String())
	for _, f := range mrlGTF {
		assert.True(t, out[f].IsNull(), f)
	}
	_, present := form["gtf"]
	assert.False(t, present, "input form is not modified")

	// Evaluation still skips rules whose checkbox is missing.
	st, diags := Explain(mrlSet(), form)
	assert.True(t, st["gtf_c"].Enabled)
	assert.Len(t, diags, 1)
}

func TestClean_OmittedSectionCheckboxNullsStaleValues(t *testing.T) {
	out, errs := Clean(mrlSet(), Form{"min_h": Int(30), "gtf_c": Int(40)})

	assert.Empty(t, errs)
	assert.True(t, out["min_h"].IsNull())
	assert.True(t, out["gtf_c"].IsNull())
	assert.True(t, out["gtf"].IsNull())
}

func TestCleanAll_SortsErrors(t *testing.T) {
	form := Form{"scheme": Int(3), "serrate": Bool(true), "mrl": Bool(true), "gtf": Bool(true)}
	out, errs := CleanAll([]RuleSet{syncSet(), mrlSet()}, form)

	require.Len(t, errs, 10)
	for i := 1; i < len(errs); i++ {
		assert.LessOrEqual(t, errs[i-1].Field, errs[i].Field)
	}
	assert.True(t, out["serrate"].IsNull())
	assert.True(t, out["cpol"].IsNull())
}
