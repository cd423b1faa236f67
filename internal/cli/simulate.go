package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/scripting"
	"github.com/MJE43/nback-trainer/internal/session"
	"github.com/MJE43/nback-trainer/internal/store"
)

type simulateReport struct {
	Sessions []store.GameScore `json:"sessions"`
	Summary  store.Summary     `json:"summary"`
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play sessions with a simulated player",
		Long: `Play back-to-back sessions headlessly. A simulated player answers each
modality correctly with the given accuracy, and the difficulty policy picks
N for the next session.

With --server-seed and --client-seed the cue stream and the player are
seeded, so the same flags always produce the same report.

Examples:
  nback simulate --sessions 10 --accuracy 0.95
  nback simulate --n 3 --modalities position,color,sound --policy policy.js
  nback simulate --server-seed s --client-seed c --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	addGameFlags(cmd)
	cmd.Flags().Int("sessions", 1, "number of sessions to play")
	cmd.Flags().Float64("accuracy", 0.9, "probability the simulated player answers a modality correctly")
	cmd.Flags().String("server-seed", "", "server seed for a replayable run")
	cmd.Flags().String("client-seed", "", "client seed for a replayable run")
	cmd.Flags().Uint64("nonce", 0, "session nonce for a replayable run")
	cmd.Flags().String("policy", "", "JavaScript difficulty policy (overrides difficulty.script)")
	cmd.Flags().Bool("fixed", false, "keep N fixed between sessions")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	engineCfg, err := cfg.Game.ToEngineConfig()
	if err != nil {
		return err
	}

	sessions, _ := cmd.Flags().GetInt("sessions")
	accuracy, _ := cmd.Flags().GetFloat64("accuracy")
	if sessions < 1 {
		return fmt.Errorf("--sessions must be at least 1")
	}
	if accuracy < 0 || accuracy > 1 {
		return fmt.Errorf("--accuracy must be within [0, 1]")
	}

	cueSrc, playerSrc, err := seededSources(cmd)
	if err != nil {
		return err
	}

	policy, err := loadPolicy(cmd, cfg.Difficulty.Script)
	if err != nil {
		return err
	}
	if policy == nil {
		policy = cfg.Difficulty.Staircase()
	}
	if fixed, _ := cmd.Flags().GetBool("fixed"); fixed {
		policy = nil
	}

	scores, err := session.Simulate(engineCfg, cueSrc, session.NewSimulatedPlayer(accuracy, playerSrc), policy, sessions)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteDB(store.MemoryDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetLogger(opts.logger(cmd, "[STORE] "))
	if err := db.Migrate(); err != nil {
		return err
	}
	for i := range scores {
		if err := db.SaveScore(&scores[i]); err != nil {
			return err
		}
	}

	history, err := db.Latest(0)
	if err != nil {
		return err
	}
	report := simulateReport{Sessions: scores, Summary: store.Summarize(history)}

	return render(cmd.OutOrStdout(), opts.output, report, func(w io.Writer) error {
		return writeSimulateText(w, report)
	})
}

func writeSimulateText(w io.Writer, r simulateReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tN\tROUNDS\tCORRECT\tWRONG\tF1")
	for i, s := range r.Sessions {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d%%\n", i+1, s.N, s.TotalRounds, s.Correct, s.Wrong, nback.Percent(s.F1))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := r.Summary
	_, err := fmt.Fprintf(w, "\n%d sessions, mean F1 %s, best F1 %s, highest N %d\n",
		sum.Sessions, sum.MeanF1.String(), sum.BestF1.String(), sum.HighestN)
	return err
}

// seededSources returns nil sources (entropy) unless both seeds are set
func seededSources(cmd *cobra.Command) (cueSrc, playerSrc engine.Source, err error) {
	seeds, ok, err := seedFlags(cmd)
	if err != nil || !ok {
		return nil, nil, err
	}
	nonce, _ := cmd.Flags().GetUint64("nonce")

	player := engine.Seeds{Server: seeds.Server, Client: seeds.Client + ":player"}
	return engine.NewSeededSource(seeds, nonce), engine.NewSeededSource(player, nonce), nil
}

func seedFlags(cmd *cobra.Command) (engine.Seeds, bool, error) {
	server, _ := cmd.Flags().GetString("server-seed")
	client, _ := cmd.Flags().GetString("client-seed")
	switch {
	case server == "" && client == "":
		return engine.Seeds{}, false, nil
	case server == "" || client == "":
		return engine.Seeds{}, false, fmt.Errorf("--server-seed and --client-seed must be set together")
	}
	return engine.Seeds{Server: server, Client: client}, true, nil
}

func loadPolicy(cmd *cobra.Command, configured string) (nback.Policy, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		path = configured
	}
	if path == "" {
		return nil, nil
	}

	p, err := scripting.LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}
