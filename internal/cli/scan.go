package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/nback-trainer/internal/scan"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find nonces whose cue stream has a given match count",
		Long: `Scan a nonce range of a seed pair in parallel and report the sessions
whose number of N-back matches satisfies the target.

Operators: eq, gt, ge, lt, le, between, outside (symbols such as >= work too).

Examples:
  nback scan --server-seed s --client-seed c --end 10000 --op ge --val 12
  nback scan --server-seed s --client-seed c --modality sound --op between --val 2 --val2 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	addGameFlags(cmd)
	cmd.Flags().String("server-seed", "", "server seed")
	cmd.Flags().String("client-seed", "", "client seed")
	cmd.Flags().Uint64("start", 0, "first nonce")
	cmd.Flags().Uint64("end", 1000, "last nonce (inclusive)")
	cmd.Flags().String("op", "ge", "target operator")
	cmd.Flags().Float64("val", 0, "target value")
	cmd.Flags().Float64("val2", 0, "upper bound for between and outside")
	cmd.Flags().String("modality", "", "count matches on one modality only")
	cmd.Flags().Int("limit", 100, "maximum hits to return (0 for all)")
	cmd.Flags().Duration("timeout", 0, "stop scanning after this long")
	_ = cmd.MarkFlagRequired("server-seed")
	_ = cmd.MarkFlagRequired("client-seed")
	return cmd
}

func runScan(cmd *cobra.Command, opts *rootOptions) error {
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

	flags := cmd.Flags()
	opName, _ := flags.GetString("op")
	op, err := scan.ParseTargetOp(opName)
	if err != nil {
		return err
	}
	start, _ := flags.GetUint64("start")
	end, _ := flags.GetUint64("end")
	val, _ := flags.GetFloat64("val")
	val2, _ := flags.GetFloat64("val2")
	modality, _ := flags.GetString("modality")
	limit, _ := flags.GetInt("limit")
	timeout, _ := flags.GetDuration("timeout")

	req := scan.ScanRequest{
		Seeds:      seeds,
		NonceStart: start,
		NonceEnd:   end,
		Config:     engineCfg,
		Modality:   modality,
		TargetOp:   op,
		TargetVal:  val,
		TargetVal2: val2,
		Limit:      limit,
		TimeoutMs:  int(timeout / time.Millisecond),
	}

	scanner := scan.NewScanner()
	scanner.SetLogger(opts.logger(cmd, "[SCAN] "))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := scanner.Scan(ctx, req)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v after %d nonces\n", err, result.Summary.TotalEvaluated)
	}

	return render(cmd.OutOrStdout(), opts.output, result, func(w io.Writer) error {
		return writeScanText(w, result)
	})
}

func writeScanText(w io.Writer, r *scan.ScanResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NONCE\tMATCHES")
	for _, h := range r.Hits {
		fmt.Fprintf(tw, "%d\t%g\n", h.Nonce, h.Metric)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := r.Summary
	_, err := fmt.Fprintf(w, "\n%d hits in %d nonces (min %g, max %g, mean %.2f)\n",
		s.HitsFound, s.TotalEvaluated, s.MinMetric, s.MaxMetric, s.MeanMetric)
	return err
}
