package cli

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/templategen/config"
)

type rootOptions struct {
	version    string
	configPath string
}

// NewRootCommand returns the templategen command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	cmd := &cobra.Command{
		Use:   "templategen",
		Short: "Generate and cache project templates",
		Long: `templategen runs Yeoman generators non-interactively, packages the output
as a zip archive and caches it by request, so identical requests are built once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./templategen.yaml)")

	cmd.AddCommand(
		newServeCommand(opts),
		newGenerateCommand(opts),
		newKeyCommand(),
		newStatusCommand(opts),
		newPruneCommand(opts),
		newVersionCommand(opts),
	)
	return cmd
}

// Execute runs the command line.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
