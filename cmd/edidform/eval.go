package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/ruleset"
	"github.com/matthewbaird/edidform/internal/visibility"
)

type formOptions struct {
	form   string
	field  string
	output string
	merged bool
}

func newEvalCmd(opts *rootOptions) *cobra.Command {
	fo := &formOptions{}

	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a saved form state",
		Long: `Evaluate reads a form state (a JSON or YAML map of field name to value)
from file, or stdin when file is "-" or absent, and prints the directives
of every section of the form. With --field, only the sections driven by
that field are evaluated, as on a change event. With --merged, the
directives of all sections are printed as one field map.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := formSections(opts, fo.form)
			if err != nil {
				return err
			}
			state, err := readForm(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			if fo.merged {
				if fo.field != "" {
					return fmt.Errorf("--merged and --field are mutually exclusive")
				}
				return write(cmd.OutOrStdout(), fo.output, visibility.EvaluateAll(sets, state))
			}

			b := binding.New(sets)
			var res binding.Result
			if fo.field != "" {
				if !b.IsDriver(fo.field) {
					return fmt.Errorf("%s does not drive any section of form %s", fo.field, fo.form)
				}
				res = b.Change(cmd.Context(), fo.field, state)
			} else {
				res = b.Ready(cmd.Context(), state)
			}
			return write(cmd.OutOrStdout(), fo.output, res)
		},
	}
	addFormFlags(cmd, fo)
	cmd.Flags().StringVar(&fo.field, "field", "", "driver field that changed")
	cmd.Flags().BoolVar(&fo.merged, "merged", false, "print one field map across all sections")
	return cmd
}

type cleanOutput struct {
	Form   visibility.Form         `json:"form" yaml:"form"`
	Errors []visibility.FieldError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newCleanCmd(opts *rootOptions) *cobra.Command {
	fo := &formOptions{}

	cmd := &cobra.Command{
		Use:   "clean [file]",
		Short: "Clean a form state for submission",
		Long: `Clean nulls the fields that the rules hide or disable and reports
required fields left empty. It exits non-zero when any field fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := formSections(opts, fo.form)
			if err != nil {
				return err
			}
			state, err := readForm(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			cleaned, errs := visibility.CleanAll(sets, state)
			if err := write(cmd.OutOrStdout(), fo.output, cleanOutput{Form: cleaned, Errors: errs}); err != nil {
				return err
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d field(s) failed validation", len(errs))
			}
			return nil
		},
	}
	addFormFlags(cmd, fo)
	return cmd
}

func addFormFlags(cmd *cobra.Command, fo *formOptions) {
	cmd.Flags().StringVarP(&fo.form, "form", "f", "", "form name (see 'edidform sections')")
	cmd.Flags().StringVarP(&fo.output, "output", "o", "json", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("form")
}

func formSections(opts *rootOptions, form string) ([]visibility.RuleSet, error) {
	reg, err := opts.registry()
	if err != nil {
		return nil, err
	}
	sets, ok := reg.FormSections(form)
	if !ok {
		return nil, fmt.Errorf("%w: form %s", ruleset.ErrUnknownForm, form)
	}
	return sets, nil
}

// readForm decodes a form state. YAML is a superset of JSON, so one decoder
// serves both.
func readForm(stdin io.Reader, args []string) (visibility.Form, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("reading form: %w", err)
	}

	var form visibility.Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("decoding form: %w", err)
	}
	if form == nil {
		form = visibility.Form{}
	}
	return form, nil
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
