package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, the config file, NBACK_*
environment variables and flags have been applied.

Example:
  NBACK_GAME_N=3 nback config --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, cfg, func(w io.Writer) error {
				if used := opts.v.ConfigFileUsed(); used != "" {
					fmt.Fprintf(w, "# %s\n", used)
				}
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
	addGameFlags(cmd)
	return cmd
}
