package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
)

// gridCell locates a position cue: row 1 is the top, column -1 the left
type gridCell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

type replayRound struct {
	Round   int            `json:"round"`
	Cue     nback.Cue      `json:"cue"`
	Cell    *gridCell      `json:"cell,omitempty"`
	NBack   nback.Cue      `json:"n_back"`
	Matches []cue.Modality `json:"matches"`
	// Draws are the generator floats this round consumed: one per lure,
	// two per uniform pick.
	Draws []float64 `json:"draws"`
}

type replayReport struct {
	Seeds   engine.Seeds  `json:"seeds"`
	Nonce   uint64        `json:"nonce"`
	Config  nback.Config  `json:"config"`
	Rounds  []replayRound `json:"rounds"`
	Matches int           `json:"matches"`
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the cue stream of a seeded session",
		Long: `Regenerate every cue of the session identified by a seed pair and nonce,
with the modalities that match N back in each round.

Example:
  nback replay --server-seed s --client-seed c --nonce 7 --n 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts)
		},
	}

	addGameFlags(cmd)
	cmd.Flags().String("server-seed", "", "server seed")
	cmd.Flags().String("client-seed", "", "client seed")
	cmd.Flags().Uint64("nonce", 0, "session nonce")
	_ = cmd.MarkFlagRequired("server-seed")
	_ = cmd.MarkFlagRequired("client-seed")
	return cmd
}

func runReplay(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	engineCfg, err := cfg.Game.ToEngineConfig()
	if err != nil {
		return err
	}
	seeds, ok, err := seedFlags(cmd)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("--server-seed and --client-seed are required")
	}
	nonce, _ := cmd.Flags().GetUint64("nonce")

	report, err := replay(seeds, nonce, engineCfg)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), opts.output, report, func(w io.Writer) error {
		return writeReplayText(w, report)
	})
}

// replay walks the session the same way the scanner counts it
func replay(seeds engine.Seeds, nonce uint64, cfg nback.Config) (*replayReport, error) {
	src := engine.NewSeededSource(seeds, nonce)
	eng, err := nback.New(cfg, src)
	if err != nil {
		return nil, err
	}

	report := &replayReport{Seeds: seeds, Nonce: nonce, Config: eng.Config()}
	for !eng.IsFinished() {
		start := src.Cursor()
		c := eng.ResolveRound()
		used := int((src.Cursor() - start) / 4)

		r := replayRound{
			Round:   eng.Round(),
			Cue:     c,
			NBack:   eng.NBack(),
			Matches: []cue.Modality{},
			Draws:   engine.Floats(seeds.Server, seeds.Client, nonce, start, used),
		}
		if cfg.Has(cue.ModalityPosition) {
			r.Cell = &gridCell{Row: c.Position.Row(), Column: c.Position.Column()}
		}
		for _, m := range eng.Modalities() {
			if eng.IsMatch(m) {
				r.Matches = append(r.Matches, m)
			}
		}
		report.Matches += len(r.Matches)
		report.Rounds = append(report.Rounds, r)
	}
	return report, nil
}

func writeReplayText(w io.Writer, r *replayReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"ROUND"}
	for _, m := range r.Config.Modalities {
		header = append(header, strings.ToUpper(m.String()))
	}
	header = append(header, "MATCHES", "DRAWS")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, round := range r.Rounds {
		cols := []string{fmt.Sprint(round.Round)}
		for _, m := range r.Config.Modalities {
			cols = append(cols, cueValue(round.Cue, m))
		}
		names := make([]string, len(round.Matches))
		for i, m := range round.Matches {
			names[i] = m.String()
		}
		if len(names) == 0 {
			names = []string{"-"}
		}
		cols = append(cols, strings.Join(names, ","), fmt.Sprint(len(round.Draws)))
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d matches over %d rounds at N=%d\n", r.Matches, len(r.Rounds), r.Config.BackDistance)
	return err
}

func cueValue(c nback.Cue, m cue.Modality) string {
	switch m {
	case cue.ModalityPosition:
		return c.Position.String()
	case cue.ModalityColor:
		return c.Color.String()
	case cue.ModalitySound:
		return c.Sound.String()
	}
	return ""
}
