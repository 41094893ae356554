package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/cache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or invalidate the result cache",
		Long: `Inspect or invalidate the result cache. Only the badger backend
persists between invocations; the memory backend starts empty.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "stats",
		Short:         "Print cache counters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(rootOpts, cmd, func(c *cache.Cache, f *OutputFormatter) error {
				s := c.Stats()
				text := fmt.Sprintf("backend=%s enabled=%v entries=%d hits=%d misses=%d hitRate=%.2f stores=%d invalidations=%d",
					s.Backend, s.Enabled, s.Entries, s.Hits, s.Misses, s.HitRate(), s.Stores, s.Invalidations)
				return f.Success(s, text)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "invalidate <collection>...",
		Short:         "Drop the named collections",
		Long:          "Drop the named collections. Known collections: " + strings.Join(cache.AllCollections(), ", "),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			known := cache.AllCollections()
			for _, name := range args {
				if !slices.Contains(known, name) {
					return NewExitError(ExitCommandError,
						fmt.Sprintf("unknown collection %q: must be one of %v", name, known))
				}
			}
			return withCache(rootOpts, cmd, func(c *cache.Cache, f *OutputFormatter) error {
				if err := c.Invalidate(args...); err != nil {
					return WrapExitError(ExitFailure, "invalidation failed", err)
				}
				return f.Success(map[string]any{"invalidated": args}, "✓ invalidated "+strings.Join(args, ", "))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "invalidate-all",
		Short:         "Drop every collection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(rootOpts, cmd, func(c *cache.Cache, f *OutputFormatter) error {
				if err := c.InvalidateAll(); err != nil {
					return WrapExitError(ExitFailure, "invalidation failed", err)
				}
				return f.Success(map[string]any{"invalidated": cache.AllCollections()}, "✓ invalidated all collections")
			})
		},
	})

	return cmd
}

func withCache(opts *RootOptions, cmd *cobra.Command, fn func(*cache.Cache, *OutputFormatter) error) error {
	rt, err := openRuntime(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt.Cache, newFormatter(opts, cmd))
}
