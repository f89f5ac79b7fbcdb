package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/templategen/cache"
)

// staleTempAge is how old a leftover temporary file must be before prune
// removes it.
const staleTempAge = time.Hour

func newPruneCommand(opts *rootOptions) *cobra.Command {
	var (
		maxAge     time.Duration
		maxEntries int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict old archives from the artifact store",
		Long: `prune deletes archives older than store.max_age, and the oldest archives
beyond store.max_entries. Archives whose build lock is held are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			policy := cache.RetentionPolicy{MaxAge: cfg.Store.MaxAge, MaxEntries: cfg.Store.MaxEntries}
			if cmd.Flags().Changed("max-age") {
				policy.MaxAge = maxAge
			}
			if cmd.Flags().Changed("max-entries") {
				policy.MaxEntries = maxEntries
			}
			if !policy.Bounded() {
				return fmt.Errorf("retention is unbounded: set store.max_age, store.max_entries or a flag")
			}

			out := cmd.OutOrStdout()
			if dryRun {
				store, err := cache.NewFileStore(cfg.Store.Dir)
				if err != nil {
					return err
				}
				entries, err := store.Entries()
				if err != nil {
					return err
				}
				for _, key := range policy.Evict(entries, time.Now()) {
					fmt.Fprintln(out, "would evict", key)
				}
				return nil
			}

			quietObserverConfig(cfg)
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(ctx) }()

			evicted, err := a.coord.Prune(ctx, policy, staleTempAge)
			for _, key := range evicted {
				fmt.Fprintln(out, "evicted", key)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "evict archives older than this (overrides store.max_age)")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "keep at most this many archives (overrides store.max_entries)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be evicted")
	return cmd
}
