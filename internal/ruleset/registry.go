// Package ruleset declares the field rules of the EDID editor's forms in
// CUE and keeps them in a registry keyed by section and form.
//
// The rules ship embedded (rules.cue) and are unified with schema.cue
// before decoding, so an unknown op or effect is rejected at load time.
// Extra CUE sources are unified on top: repeating a section with the same
// content is a no-op, redefining it with different content is a conflict.
package ruleset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/edidform/internal/visibility"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed rules.cue
var rulesSource []byte

var (
	ErrDuplicateSection = errors.New("duplicate section")
	ErrDuplicateForm    = errors.New("duplicate form")
	ErrUnknownSection   = errors.New("unknown section")
	ErrUnknownForm      = errors.New("unknown form")
	ErrSharedDependent  = errors.New("dependent field shared between sections")
)

// Form is a rendered page made of independent sections.
type Form struct {
	Name     string   `json:"name"`
	Title    string   `json:"title,omitempty"`
	Sections []string `json:"sections"`
}

// Source is a named CUE document.
type Source struct {
	Name string
	Data []byte
}

// ReadSource reads a CUE document from disk.
func ReadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("reading rules %s: %w", path, err)
	}
	return Source{Name: filepath.Base(path), Data: data}, nil
}

// Registry holds validated rule sets and the forms that use them. It is
// read-only once loaded and safe for concurrent readers.
type Registry struct {
	sections     map[string]visibility.RuleSet
	sectionOrder []string
	forms        map[string]Form
	formOrder    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sections: make(map[string]visibility.RuleSet),
		forms:    make(map[string]Form),
	}
}

// Register adds a rule set. Each section is registered once.
func (r *Registry) Register(rs visibility.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	if _, ok := r.sections[rs.Section]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSection, rs.Section)
	}
	r.sections[rs.Section] = rs
	r.sectionOrder = append(r.sectionOrder, rs.Section)
	return nil
}

// RegisterForm adds a form. Its sections must be registered already and
// must not control the same dependent field.
func (r *Registry) RegisterForm(f Form) error {
	if f.Name == "" {
		return fmt.Errorf("%w: form without a name", visibility.ErrInvalidRule)
	}
	if _, ok := r.forms[f.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateForm, f.Name)
	}
	owner := make(map[string]string)
	seen := make(map[string]bool)
	for _, name := range f.Sections {
		if seen[name] {
			return fmt.Errorf("%w: form %s lists %s twice", ErrDuplicateSection, f.Name, name)
		}
		seen[name] = true
		rs, ok := r.sections[name]
		if !ok {
			return fmt.Errorf("%w: form %s uses %s", ErrUnknownSection, f.Name, name)
		}
		for _, dep := range rs.Dependents() {
			if prev, ok := owner[dep]; ok {
				return fmt.Errorf("%w: %s in %s and %s", ErrSharedDependent, dep, prev, name)
			}
			owner[dep] = name
		}
	}
	r.forms[f.Name] = f
	r.formOrder = append(r.formOrder, f.Name)
	return nil
}

// Section returns the rule set of a section.
func (r *Registry) Section(name string) (visibility.RuleSet, bool) {
	rs, ok := r.sections[name]
	return rs, ok
}

// Sections returns all rule sets in registration order.
func (r *Registry) Sections() []visibility.RuleSet {
	out := make([]visibility.RuleSet, 0, len(r.sectionOrder))
	for _, name := range r.sectionOrder {
		out = append(out, r.sections[name])
	}
	return out
}

// Form returns a form by name.
func (r *Registry) Form(name string) (Form, bool) {
	f, ok := r.forms[name]
	return f, ok
}

// Forms returns all forms in registration order.
func (r *Registry) Forms() []Form {
	out := make([]Form, 0, len(r.formOrder))
	for _, name := range r.formOrder {
		out = append(out, r.forms[name])
	}
	return out
}

// FormSections returns the rule sets of a form in page order.
func (r *Registry) FormSections(name string) ([]visibility.RuleSet, bool) {
	f, ok := r.forms[name]
	if !ok {
		return nil, false
	}
	out := make([]visibility.RuleSet, 0, len(f.Sections))
	for _, s := range f.Sections {
		out = append(out, r.sections[s])
	}
	return out, true
}

// Drivers returns the driver fields of a section.
func (r *Registry) Drivers(section string) []string {
	return r.sections[section].Drivers()
}

// document is the decoded shape of the CUE rules.
type document struct {
	Sections map[string]visibility.RuleSet `json:"sections"`
	Forms    map[string]Form               `json:"forms"`
}

// Load builds a registry from the embedded rules plus any extra sources.
func Load(extra ...Source) (*Registry, error) {
	ctx := cuecontext.New()

	val := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling rule schema: %w", err)
	}
	sources := append([]Source{{Name: "rules.cue", Data: rulesSource}}, extra...)
	for _, src := range sources {
		v := ctx.CompileBytes(src.Data, cue.Filename(src.Name))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("compiling %s: %w", src.Name, err)
		}
		val = val.Unify(v)
	}

	doc, err := decode(val)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

func decode(val cue.Value) (document, error) {
	var doc document
	for _, part := range []struct {
		path string
		dst  any
	}{
		{"sections", &doc.Sections},
		{"forms", &doc.Forms},
	} {
		v := val.LookupPath(cue.ParsePath(part.path))
		if !v.Exists() {
			continue
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return document{}, fmt.Errorf("validating %s: %w", part.path, err)
		}
		if err := v.Decode(part.dst); err != nil {
			return document{}, fmt.Errorf("decoding %s: %w", part.path, err)
		}
	}
	return doc, nil
}

func build(doc document) (*Registry, error) {
	reg := NewRegistry()
	for _, name := range sortedKeys(doc.Sections) {
		if err := reg.Register(doc.Sections[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(doc.Forms) {
		if err := reg.RegisterForm(doc.Forms[name]); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
