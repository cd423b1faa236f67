package scan

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/version"
)

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// ParseTargetOp accepts the op names and their symbolic forms
func ParseTargetOp(s string) (TargetOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "=", "==":
		return OpEqual, nil
	case "gt", ">":
		return OpGreater, nil
	case "ge", ">=":
		return OpGreaterEqual, nil
	case "lt", "<":
		return OpLess, nil
	case "le", "<=":
		return OpLessEqual, nil
	case "between":
		return OpBetween, nil
	case "outside":
		return OpOutside, nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrInvalidTarget, s)
}

// ScanRequest asks which session nonces of a seed pair produce a cue
// stream whose match count satisfies the target.
type ScanRequest struct {
	Seeds      engine.Seeds `json:"seeds"`
	NonceStart uint64       `json:"nonce_start"`
	NonceEnd   uint64       `json:"nonce_end"`
	Config     nback.Config `json:"config"`
	// Modality restricts the metric to one channel; empty counts every enabled one.
	Modality   string   `json:"modality,omitempty"`
	TargetOp   TargetOp `json:"target_op"`
	TargetVal  float64  `json:"target_val"`
	TargetVal2 float64  `json:"target_val2,omitempty"` // for "between" and "outside"
	Limit      int      `json:"limit,omitempty"`
	TimeoutMs  int      `json:"timeout_ms,omitempty"`
}

// Hit represents a single matching nonce
type Hit struct {
	Nonce  uint64  `json:"nonce"`
	Metric float64 `json:"metric"`
}

// Summary contains aggregate statistics over every hit, not just the returned ones
type Summary struct {
	TotalEvaluated uint64  `json:"total_evaluated"`
	HitsFound      int     `json:"hits_found"`
	MinMetric      float64 `json:"min_metric"`
	MaxMetric      float64 `json:"max_metric"`
	MeanMetric     float64 `json:"mean_metric"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// ScanResult contains the complete scan results
type ScanResult struct {
	Hits          []Hit       `json:"hits"`
	Summary       Summary     `json:"summary"`
	EngineVersion string      `json:"engine_version"`
	Echo          ScanRequest `json:"echo"`
}

// Err returns ErrTimeout when the scan stopped before covering its range
func (r *ScanResult) Err() error {
	if r.Summary.TimedOut {
		return ErrTimeout
	}
	return nil
}

// ScanJob represents a batch of nonces to process
type ScanJob struct {
	NonceStart uint64
	NonceEnd   uint64
}

// ScanWorker processes scan jobs and sends hits to the result channel
type ScanWorker struct {
	id         int
	jobs       <-chan ScanJob
	hits       chan<- Hit
	seeds      engine.Seeds
	cfg        nback.Config
	modalities []cue.Modality
	evaluator  *TargetEvaluator
	evaluated  *uint64 // atomic counter
}

// Scanner performs parallel scanning across nonce ranges
type Scanner struct {
	workerCount int
	batchSize   uint64
	logger      *log.Logger
}

// TargetEvaluator handles target condition evaluation with tolerance
type TargetEvaluator struct {
	op        TargetOp
	val1      float64
	val2      float64 // for "between" and "outside"
	tolerance float64
}

// NewTargetEvaluator creates a new target evaluator
func NewTargetEvaluator(op TargetOp, val1, val2, tolerance float64) *TargetEvaluator {
	return &TargetEvaluator{
		op:        op,
		val1:      val1,
		val2:      val2,
		tolerance: tolerance,
	}
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric float64) bool {
	switch te.op {
	case OpEqual:
		return abs(metric-te.val1) <= te.tolerance
	case OpGreater:
		return metric > te.val1+te.tolerance
	case OpGreaterEqual:
		return metric >= te.val1-te.tolerance
	case OpLess:
		return metric < te.val1-te.tolerance
	case OpLessEqual:
		return metric <= te.val1+te.tolerance
	case OpBetween:
		return metric >= te.val1-te.tolerance && metric <= te.val2+te.tolerance
	case OpOutside:
		return metric < te.val1-te.tolerance || metric > te.val2+te.tolerance
	default:
		return false
	}
}

// Match counts are integers; the tolerance only absorbs float noise in targets.
const defaultTolerance = 1e-9

const defaultBatchSize = 256

// NewScanner creates a scanner with one worker per GOMAXPROCS
func NewScanner() *Scanner {
	return &Scanner{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   defaultBatchSize,
		logger:      log.New(io.Discard, "[SCAN] ", log.LstdFlags),
	}
}

// SetLogger enables scan progress logging
func (s *Scanner) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Metric counts the rounds of the session at nonce whose cue matches N back
// on the given modalities. No answers are recorded.
func Metric(seeds engine.Seeds, nonce uint64, cfg nback.Config, modalities []cue.Modality) (float64, error) {
	eng, err := nback.New(cfg, engine.NewSeededSource(seeds, nonce))
	if err != nil {
		return 0, err
	}

	matches := 0
	for !eng.IsFinished() {
		eng.ResolveRound()
		for _, m := range modalities {
			if eng.IsMatch(m) {
				matches++
			}
		}
	}
	return float64(matches), nil
}

func (req ScanRequest) validate() ([]cue.Modality, error) {
	if req.NonceEnd < req.NonceStart {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, req.NonceEnd, req.NonceStart)
	}
	if err := req.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch req.TargetOp {
	case OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
	case OpBetween, OpOutside:
		if req.TargetVal2 < req.TargetVal {
			return nil, fmt.Errorf("%w: %s needs target_val2 >= target_val", ErrInvalidTarget, req.TargetOp)
		}
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidTarget, req.TargetOp)
	}

	if req.Modality == "" || req.Modality == "all" {
		return append([]cue.Modality(nil), req.Config.Modalities...), nil
	}
	m, err := cue.ParseModality(req.Modality)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !req.Config.Has(m) {
		return nil, fmt.Errorf("%w: modality %s is not enabled", ErrInvalidConfig, m)
	}
	return []cue.Modality{m}, nil
}

// Scan performs a parallel scan across the specified nonce range. Hits are
// returned in nonce order, capped at Limit. A timeout is reported in the
// summary rather than as an error.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	modalities, err := req.validate()
	if err != nil {
		return nil, err
	}

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	evaluator := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2, defaultTolerance)

	jobs := make(chan ScanJob, s.workerCount*2)
	hits := make(chan Hit, 1000)

	var totalEvaluated uint64
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		worker := &ScanWorker{
			id:         i,
			jobs:       jobs,
			hits:       hits,
			seeds:      req.Seeds,
			cfg:        req.Config,
			modalities: modalities,
			evaluator:  evaluator,
			evaluated:  &totalEvaluated,
		}

		wg.Add(1)
		go worker.Run(ctx, &wg)
	}

	go s.generateJobs(ctx, jobs, req.NonceStart, req.NonceEnd)
	go func() {
		wg.Wait()
		close(hits)
	}()

	collector := &ResultCollector{
		hits:      hits,
		limit:     req.Limit,
		evaluated: &totalEvaluated,
	}
	result := collector.Collect(ctx)
	result.EngineVersion = version.Short()
	result.Echo = req

	s.logger.Printf("scanned %d nonces [%d, %d]: %d hits (timed out: %v)",
		result.Summary.TotalEvaluated, req.NonceStart, req.NonceEnd, result.Summary.HitsFound, result.Summary.TimedOut)
	return result, nil
}

// Run starts the worker processing jobs
func (sw *ScanWorker) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-sw.jobs:
			if !ok {
				return
			}
			if !sw.processJob(ctx, job) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// processJob evaluates one batch. It returns false once ctx is done.
func (sw *ScanWorker) processJob(ctx context.Context, job ScanJob) bool {
	for nonce := job.NonceStart; ; nonce++ {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		metric, err := Metric(sw.seeds, nonce, sw.cfg, sw.modalities)
		if err == nil {
			atomic.AddUint64(sw.evaluated, 1)

			if sw.evaluator.Matches(metric) {
				select {
				case sw.hits <- Hit{Nonce: nonce, Metric: metric}:
				case <-ctx.Done():
					return false
				}
			}
		}

		// guard against wrap-around when NonceEnd is the max uint64
		if nonce == job.NonceEnd {
			return true
		}
	}
}

// generateJobs splits [start, end] into batches
func (s *Scanner) generateJobs(ctx context.Context, jobs chan<- ScanJob, start, end uint64) {
	defer close(jobs)

	for current := start; ; {
		batchEnd := current + s.batchSize - 1
		if batchEnd > end || batchEnd < current {
			batchEnd = end
		}

		select {
		case jobs <- ScanJob{NonceStart: current, NonceEnd: batchEnd}:
		case <-ctx.Done():
			return
		}

		if batchEnd == end {
			return
		}
		current = batchEnd + 1
	}
}

// ResultCollector aggregates scan results and computes summary statistics
type ResultCollector struct {
	hits      <-chan Hit
	limit     int
	evaluated *uint64
}

// Collect gathers hits until the workers finish or ctx is done
func (rc *ResultCollector) Collect(ctx context.Context) *ScanResult {
	var collected []Hit
	timedOut := false

collecting:
	for {
		select {
		case hit, ok := <-rc.hits:
			if !ok {
				break collecting
			}
			collected = append(collected, hit)
		case <-ctx.Done():
			timedOut = true
			break collecting
		}
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].Nonce < collected[j].Nonce })
	summary := rc.calculateSummary(collected, atomic.LoadUint64(rc.evaluated), timedOut)

	if rc.limit > 0 && len(collected) > rc.limit {
		collected = collected[:rc.limit]
	}
	if collected == nil {
		collected = []Hit{}
	}

	return &ScanResult{
		Hits:    collected,
		Summary: summary,
	}
}

// calculateSummary computes aggregate statistics
func (rc *ResultCollector) calculateSummary(hits []Hit, totalEvaluated uint64, timedOut bool) Summary {
	summary := Summary{
		TotalEvaluated: totalEvaluated,
		HitsFound:      len(hits),
		TimedOut:       timedOut,
	}

	if len(hits) == 0 {
		return summary
	}

	min := hits[0].Metric
	max := hits[0].Metric
	sum := 0.0

	for _, h := range hits {
		if h.Metric < min {
			min = h.Metric
		}
		if h.Metric > max {
			max = h.Metric
		}
		sum += h.Metric
	}

	summary.MinMetric = min
	summary.MaxMetric = max
	summary.MeanMetric = sum / float64(len(hits))

	return summary
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
