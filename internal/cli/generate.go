package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var (
		flags   requestFlags
		output  string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "generate GENERATOR",
		Short: "Build (or reuse) a template archive",
		Long: `generate produces the zip archive for a request, running the generator
only when no archive for the same request is cached. It prints the archive
path, or copies the archive to --output.`,
		Example: `  templategen generate generator-node:app -a name=demo -o skip-git=true
  templategen generate generator-node --output demo.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			quietObserverConfig(cfg)

			req, err := flags.request(args[0])
			if err != nil {
				return err
			}

			var genOutput io.Writer
			if verbose {
				genOutput = cmd.ErrOrStderr()
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, genOutput)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.WithoutCancel(ctx)) }()

			loc, err := a.coord.GenerateSync(ctx, req)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), loc)
				return err
			}
			return copyFile(loc, output)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&output, "output", "", "copy the archive to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show generator and npm output")
	return cmd
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
