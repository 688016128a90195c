package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/visibility"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PORT", "")
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSections(t *testing.T) {
	out, err := run(t, "", "sections")
	require.NoError(t, err)
	assert.Contains(t, out, "detailed_timing")
	assert.Contains(t, out, "sync_scheme")
	assert.Contains(t, out, "monitor_range_limits,mrl_secondary_gtf_curve_support")
}

func TestEval_Ready(t *testing.T) {
	out, err := run(t, `{"flags_sync_scheme": "3"}`, "eval", "--form", "detailed_timing")
	require.NoError(t, err)

	var res binding.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	st := res["sync_scheme"]
	assert.True(t, st["flags_vertical_polarity"].Visible)
	assert.True(t, st["flags_horizontal_polarity"].Visible)
	assert.False(t, st["flags_serrate"].Visible)
}

func TestEval_ChangeFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bdp_video_input: 1\nmonitor_range_limits: on\n"), 0o644))

	out, err := run(t, "", "eval", "-f", "edid_update", "--field", "bdp_video_input", path)
	require.NoError(t, err)

	var res binding.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.True(t, res["video_input"]["bdp_video_input_dfp_1"].Visible)
	assert.False(t, res["video_input"]["bdp_separate_syncs"].Visible)
}

func TestEval_Merged(t *testing.T) {
	out, err := run(t, `{"bdp_video_input": "0", "monitor_range_limits": "on", "mrl_secondary_gtf_curve_support": "off"}`,
		"eval", "--form", "edid_update", "--merged")
	require.NoError(t, err)

	var st visibility.State
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Len(t, st, 18)
	assert.True(t, st["bdp_separate_syncs"].Visible)
	assert.False(t, st["bdp_video_input_dfp_1"].Visible)
	assert.True(t, st["mrl_max_pixel_clock"].Enabled)
	assert.False(t, st["mrl_secondary_gtf_j"].Enabled)

	_, err = run(t, `{}`, "eval", "--form", "edid_update", "--merged", "--field", "bdp_video_input")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestEval_Errors(t *testing.T) {
	_, err := run(t, `{}`, "eval")
	assert.Error(t, err)

	_, err = run(t, `{}`, "eval", "--form", "nope")
	assert.ErrorContains(t, err, "unknown form")

	_, err = run(t, `{}`, "eval", "--form", "detailed_timing", "--field", "flags_serrate")
	assert.ErrorContains(t, err, "does not drive")

	_, err = run(t, `[1, 2]`, "eval", "--form", "detailed_timing")
	assert.ErrorContains(t, err, "decoding form")
}

func TestClean(t *testing.T) {
	out, err := run(t, `{"flags_sync_scheme": "2", "flags_sync_on_rgb": "on"}`,
		"clean", "--form", "detailed_timing", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "flags_sync_on_rgb: null")
	assert.NotContains(t, out, "errors:")

	out, err = run(t, `{"bdp_video_input": "0"}`, "clean", "--form", "edid_update")
	assert.ErrorContains(t, err, "1 field(s) failed")
	assert.Contains(t, out, "bdp_signal_level_standard")
}

func TestRulesFileFromConfig(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "extra.cue")
	require.NoError(t, os.WriteFile(rules, []byte(`
sections: extra: rules: [{
	name: "toggle"
	when: [{field: "extra_toggle", op: "checked"}]
	fields: ["extra_detail"]
	effect: "show"
}]
forms: extra_form: sections: ["extra"]
`), 0o644))
	t.Setenv("EDIDFORM_RULES_FILE", rules)

	out, err := run(t, `{"extra_toggle": "on"}`, "eval", "--form", "extra_form")
	require.NoError(t, err)
	assert.Contains(t, out, "extra_detail")
}
