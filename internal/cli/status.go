package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/templategen/cache"
)

type statusReport struct {
	Key      string `json:"key"`
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var (
		flags   requestFlags
		byKey   bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "status GENERATOR|KEY",
		Short: "Report whether a request's archive is cached",
		Long: `status looks up the archive for a request, or for a cache key with --key.
Builds running in other processes are reported as absent until published.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := cache.NewFileStore(cfg.Store.Dir)
			if err != nil {
				return err
			}

			key := cache.Key(args[0])
			if byKey {
				if err := cache.ValidateKey(key); err != nil {
					return err
				}
			} else {
				req, err := flags.request(args[0])
				if err != nil {
					return err
				}
				if key, err = cache.BuildKey(req); err != nil {
					return err
				}
			}

			report := statusReport{Key: key.String(), Status: "absent"}
			if loc, ok := store.Locate(key); ok {
				report.Status = "present"
				report.Location = loc
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if report.Location != "" {
				_, err = fmt.Fprintf(out, "%s %s %s\n", report.Key, report.Status, report.Location)
			} else {
				_, err = fmt.Fprintf(out, "%s %s\n", report.Key, report.Status)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&byKey, "key", false, "treat the argument as a cache key")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the status as JSON")
	return cmd
}
