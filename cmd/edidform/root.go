package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/edidform/internal/config"
	"github.com/matthewbaird/edidform/internal/logging"
	"github.com/matthewbaird/edidform/internal/ruleset"
)

type rootOptions struct {
	configFile string
	verbosity  int

	cfg *config.Config
}

// NewRootCmd builds the edidform command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "edidform",
		Short: "Conditional field visibility for EDID editing forms",
		Long: `edidform evaluates the show/hide and enable/disable rules of the EDID
editing forms. It serves them to form pages over HTTP and WebSocket, and
evaluates or cleans saved form state from the command line.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := cfg.Log.Level
			if opts.verbosity > 0 {
				level = logging.LevelForVerbosity(opts.verbosity)
			}
			logging.SetupWriter(cmd.ErrOrStderr(), level, cfg.Log.Pretty)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (TOML)")
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))
	cmd.AddCommand(newCleanCmd(opts))
	cmd.AddCommand(newSectionsCmd(opts))

	return cmd
}

// registry loads the built-in rules plus rules.file when configured.
func (o *rootOptions) registry() (*ruleset.Registry, error) {
	if o.cfg == nil || o.cfg.Rules.File == "" {
		return ruleset.Load()
	}
	src, err := ruleset.ReadSource(o.cfg.Rules.File)
	if err != nil {
		return nil, err
	}
	return ruleset.Load(src)
}

// Execute runs the root command and prints any error to stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "edidform:", err)
		return 1
	}
	return 0
}
