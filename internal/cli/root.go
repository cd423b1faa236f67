package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MJE43/nback-trainer/internal/config"
	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/version"
)

// rootOptions is shared by every subcommand of one command tree
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	output  string
}

// NewRootCmd builds the nback command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "nback",
		Short: "nback - dual N-back cue generation and scoring",
		Long: `nback generates dual N-back cue streams, scores answers and adapts
the back-distance between sessions.

Sessions can be simulated headlessly, replayed from seeds, or scanned
for seeds whose cue streams have a given number of matches.

Example:
  nback simulate --n 2 --sessions 5 --accuracy 0.9
  nback replay --server-seed s --client-seed c --nonce 7`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd.ErrOrStderr())
		},
	}

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is .nback.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = opts.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(
		newSimulateCmd(opts),
		newReplayCmd(opts),
		newScanCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command. Cancelling ctx stops a running scan.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *rootOptions) initConfig(stderr io.Writer) error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting working directory: %w", err)
		}

		o.v.AddConfigPath(cwd)
		o.v.SetConfigType("yaml")
		o.v.SetConfigName(".nback")
	}

	o.v.SetEnvPrefix("NBACK")
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else if o.v.GetBool("verbose") {
		fmt.Fprintln(stderr, "Using config file:", o.v.ConfigFileUsed())
	}

	switch o.output {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (must be text, json or yaml)", o.output)
}

// logger returns a prefixed logger on stderr when --verbose is set
func (o *rootOptions) logger(cmd *cobra.Command, prefix string) *log.Logger {
	if !o.v.GetBool("verbose") {
		return nil
	}
	return log.New(cmd.ErrOrStderr(), prefix, log.LstdFlags)
}

// addGameFlags registers the session flags shared by simulate, replay and scan
func addGameFlags(cmd *cobra.Command) {
	cmd.Flags().Int("n", 0, "back-distance (default from config: 2)")
	cmd.Flags().Int("rounds", 0, "rounds per session (default from config: 24)")
	cmd.Flags().Float64("round-time", 0, "seconds per round")
	cmd.Flags().Float64("lure-rate", 0, "probability of forcing a match")
	cmd.Flags().String("modalities", "", "comma separated modalities: position,color,sound")
}

var gameFlagKeys = map[string]string{
	"n":          "game.n",
	"rounds":     "game.rounds",
	"round-time": "game.round_time",
	"lure-rate":  "game.lure_rate",
}

// loadConfig binds the command's game flags and loads the effective config.
// Flags are bound per invocation so sibling commands do not steal each
// other's bindings.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	for name, key := range gameFlagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := o.v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if f := cmd.Flags().Lookup("modalities"); f != nil && f.Changed {
		mods, err := cue.ParseModalities(f.Value.String())
		if err != nil {
			return nil, err
		}
		set := map[cue.Modality]bool{}
		for _, m := range mods {
			set[m] = true
		}
		o.v.Set("game.position", set[cue.ModalityPosition])
		o.v.Set("game.color", set[cue.ModalityColor])
		o.v.Set("game.sound", set[cue.ModalitySound])
	}

	cfg, err := config.Load(o.v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
