package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSectionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List forms, their sections and driver fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FORM\tSECTION\tDRIVERS\tDEPENDENTS")
			for _, f := range reg.Forms() {
				sets, _ := reg.FormSections(f.Name)
				for _, rs := range sets {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
						f.Name, rs.Section, strings.Join(rs.Drivers(), ","), len(rs.Dependents()))
				}
			}
			return tw.Flush()
		},
	}
}
