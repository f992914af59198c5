package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pipetree/internal/cache"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Backend string
	Path    string
}

// ClearResult reports how many cached outputs were dropped.
type ClearResult struct {
	Backend string `json:"backend"`
	Removed int64  `json:"removed"`
}

// Text prints the count.
func (r ClearResult) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "removed %d cached outputs from %s\n", r.Removed, r.Backend)
	return err
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the caching middleware store",
	}
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "cache backend (memory|sqlite|badger); defaults to settings")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "cache location; defaults to settings")

	clearCmd := &cobra.Command{
		Use:           "clear",
		Short:         "Drop every cached output",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, cmd)
		},
	}
	cmd.AddCommand(clearCmd)
	return cmd
}

func runCacheClear(opts *CacheOptions, cmd *cobra.Command) error {
	cfg := opts.Settings.CacheConfig()
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Path != "" {
		cfg.Path = opts.Path
	}

	st, closer, err := cache.Open(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	defer closer.Close()

	clearer, ok := st.(cache.Clearer)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("cache backend %q cannot be cleared", cfg.Backend))
	}
	n, err := clearer.Clear(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to clear cache", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return formatter.Success(ClearResult{Backend: cfg.Backend, Removed: n})
}
