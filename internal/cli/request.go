package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/templategen/cache"
)

// requestFlags collect a generation request from the command line.
// Values are taken whole, so they may contain commas.
type requestFlags struct {
	options []string
	answers []string
	args    []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil, "generator option as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.answers, "answer", "a", nil, "prompt answer as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, "positional generator argument (repeatable)")
}

func (f *requestFlags) request(generatorID string) (cache.Request, error) {
	options, err := parsePairs("option", f.options)
	if err != nil {
		return cache.Request{}, err
	}
	answers, err := parsePairs("answer", f.answers)
	if err != nil {
		return cache.Request{}, err
	}
	return cache.NewRequest(generatorID, options, answers, f.args), nil
}

// parsePairs splits each value at its first "=". A later pair for the
// same name wins.
func parsePairs(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--%s %q: want name=value", flag, v)
		}
		out[name] = value
	}
	return out, nil
}

func newKeyCommand() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "key GENERATOR",
		Short: "Print the cache key of a request",
		Example: `  templategen key generator-node:app -o skip-install=true -a name=demo
  templategen key @acme/generator-api@^2.0.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0])
			if err != nil {
				return err
			}
			key, err := cache.BuildKey(req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
