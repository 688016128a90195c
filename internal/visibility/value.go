package visibility

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldValue is the submitted value of one form field. Selects and text
// inputs carry their string value, checkboxes and radios carry their
// submitted value ("on", "1", "0", ...). A null value is distinct from
// the empty string.
type FieldValue struct {
	raw   string
	valid bool
}

// String returns a non-null FieldValue.
func String(s string) FieldValue {
	return FieldValue{raw: s, valid: true}
}

// Int returns a FieldValue holding the decimal form of n.
func Int(n int) FieldValue {
	return String(strconv.Itoa(n))
}

// Bool returns a FieldValue for a checkbox state.
func Bool(b bool) FieldValue {
	return String(strconv.FormatBool(b))
}

// Null returns the null FieldValue.
func Null() FieldValue {
	return FieldValue{}
}

// String returns the raw value; null yields "".
func (v FieldValue) String() string {
	return v.raw
}

// IsNull reports whether the value is null.
func (v FieldValue) IsNull() bool {
	return !v.valid
}

// IsEmpty reports whether the value is null or blank.
func (v FieldValue) IsEmpty() bool {
	return !v.valid || strings.TrimSpace(v.raw) == ""
}

// Int parses the value as a select/radio choice.
func (v FieldValue) Int() (int, bool) {
	if !v.valid {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// falsy lists the submitted values a checkbox or 0/nonzero radio treats as off.
var falsy = map[string]bool{
	"":      true,
	"0":     true,
	"false": true,
	"off":   true,
	"no":    true,
	"none":  true,
}

// Checked reports the boolean reading of a checkbox or a 0/nonzero radio.
func (v FieldValue) Checked() bool {
	if !v.valid {
		return false
	}
	return !falsy[strings.ToLower(strings.TrimSpace(v.raw))]
}

// MarshalJSON encodes null as JSON null and everything else as a string.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{', '[':
		return fmt.Errorf("field value must be a scalar, got %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = String(n.String())
	}
	return nil
}

// MarshalYAML writes null or the raw string.
func (v FieldValue) MarshalYAML() (interface{}, error) {
	if !v.valid {
		return nil, nil
	}
	return v.raw, nil
}

// UnmarshalYAML accepts any scalar node; "~" and null decode to Null.
func (v *FieldValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: field value must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*v = Null()
		return nil
	}
	*v = String(node.Value)
	return nil
}

// Form is the state of a rendered form, keyed by field name. A field
// missing from the map has not been rendered.
type Form map[string]FieldValue

// Clone returns a shallow copy of f.
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
