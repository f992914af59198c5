package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/pipetree/internal/config"
	"github.com/roach88/pipetree/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string

	// Settings is filled in before any subcommand runs.
	Settings config.Settings
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pipetree CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Settings: config.Default()}

	cmd := &cobra.Command{
		Use:   "pipetree",
		Short: "pipetree - composable pipeline trees",
		Long:  "Run, inspect and validate pipelines built from composable nodes, with a hierarchical trace of every call.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "settings file (.yaml, .yml or .cue)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads settings and installs the default logger. Logs go to the
// command's stderr; --verbose forces debug level.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.Config != "" {
		s, err := config.Load(o.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load settings", err)
		}
		o.Settings = s
	}

	level, err := logging.ParseLevel(o.Settings.Log.Level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, o.Settings.Log.Format, cmd.ErrOrStderr())
	return nil
}
