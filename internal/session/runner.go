package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/store"
)

// State represents the session lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
)

var (
	ErrAlreadyRunning = errors.New("session is already running")
	ErrNotPlaying     = errors.New("session is not playing")
	ErrNotPaused      = errors.New("session is not paused")
	ErrNotRunning     = errors.New("session is not running")
)

// Emitter receives a snapshot after every state change and resolved round.
type Emitter interface {
	EmitSession(snap Snapshot)
}

// Recorder persists the score of a finished session. store.DB satisfies it.
type Recorder interface {
	SaveScore(score *store.GameScore) error
}

// Snapshot is a serializable view of a running session
type Snapshot struct {
	ID           string               `json:"id"`
	State        State                `json:"state"`
	Error        string               `json:"error,omitempty"`
	N            int                  `json:"n"`
	Round        int                  `json:"round"`
	TotalRounds  int                  `json:"total_rounds"`
	Cue          nback.Cue            `json:"cue"`
	Answer       nback.Answer         `json:"answer"`
	Score        nback.ScoreSnapshot  `json:"score"`
	LastOutcomes []nback.RoundOutcome `json:"last_outcomes,omitempty"`
	Result       *store.GameScore     `json:"result,omitempty"`
}

// Option configures a Runner
type Option func(*Runner)

func WithEmitter(e Emitter) Option     { return func(r *Runner) { r.emitter = e } }
func WithRecorder(rec Recorder) Option { return func(r *Runner) { r.recorder = rec } }
func WithPlayer(p Player) Option       { return func(r *Runner) { r.player = p } }
func WithClock(c Clock) Option         { return func(r *Runner) { r.clock = c } }

// WithLogger routes session logs to l
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner drives an engine on a round timer. It owns the engine: every
// engine call happens under the runner mutex.
type Runner struct {
	mu     sync.Mutex
	id     string
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}
	result *store.GameScore

	eng *nback.Engine

	emitter  Emitter
	recorder Recorder
	player   Player
	clock    Clock
	logger   *log.Logger
}

// NewRunner creates an idle runner over eng
func NewRunner(eng *nback.Engine, opts ...Option) *Runner {
	r := &Runner{
		id:     uuid.New().String(),
		state:  StateIdle,
		eng:    eng,
		clock:  RealClock,
		logger: log.New(io.Discard, "[SESSION] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the round loop. Each tick resolves one round. The engine
// must carry a positive round duration.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StatePlaying || r.state == StatePaused {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if d := r.eng.RoundDuration(); d <= 0 {
		r.mu.Unlock()
		return fmt.Errorf("start: %w (got %v)", nback.ErrInvalidRoundDuration, d)
	}
	if r.state != StateIdle {
		r.eng.Restart()
		r.id = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.state = StatePlaying
	r.err = nil
	r.result = nil
	ticker := r.clock(r.eng.RoundDuration())
	r.logger.Printf("session %s started: n=%d rounds=%d", r.id, r.eng.BackDistance(), r.eng.TotalRounds())
	r.mu.Unlock()

	r.emit()
	go r.loop(ctx, ticker, r.done)
	return nil
}

func (r *Runner) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.state == StatePlaying || r.state == StatePaused {
				r.state = StateStopped
				r.logger.Printf("session %s stopped at round %d", r.id, r.eng.Round())
			}
			r.mu.Unlock()
			r.emit()
			return
		case <-ticker.C():
			if r.tick() {
				return
			}
		}
	}
}

// tick resolves one round and reports whether the session finished.
func (r *Runner) tick() bool {
	r.mu.Lock()
	if r.state != StatePlaying {
		r.mu.Unlock()
		return false
	}

	r.eng.ResolveRound()
	if r.player != nil {
		for _, m := range r.player.Respond(r.eng) {
			r.eng.RecordAnswer(m)
		}
	}

	if !r.eng.IsFinished() {
		r.mu.Unlock()
		r.emit()
		return false
	}

	r.state = StateFinished
	score := store.FromResult(r.eng.Result())
	recorder := r.recorder
	cancel := r.cancel
	r.logger.Printf("session %s finished: correct=%d wrong=%d f1=%.3f", r.id, score.Correct, score.Wrong, score.F1)
	r.mu.Unlock()

	var err error
	if recorder != nil {
		if err = recorder.SaveScore(score); err != nil {
			r.logger.Printf("session %s: record score: %v", r.id, err)
		}
	}

	r.mu.Lock()
	r.result = score
	if err != nil {
		r.err = fmt.Errorf("record score: %w", err)
	}
	r.mu.Unlock()

	r.emit()
	cancel()
	return true
}

// Press records an answer for the cue on display
func (r *Runner) Press(m cue.Modality) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePlaying {
		return ErrNotPlaying
	}
	r.eng.RecordAnswer(m)
	return nil
}

// Pause freezes the round timer; ticks are ignored until Resume.
func (r *Runner) Pause() error {
	r.mu.Lock()
	if r.state != StatePlaying {
		r.mu.Unlock()
		return ErrNotPlaying
	}
	r.state = StatePaused
	r.mu.Unlock()
	r.emit()
	return nil
}

// Resume continues a paused session
func (r *Runner) Resume() error {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return ErrNotPaused
	}
	r.state = StatePlaying
	r.mu.Unlock()
	r.emit()
	return nil
}

// Stop cancels a playing or paused session and waits for the loop to exit.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.state != StatePlaying && r.state != StatePaused {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Restart stops any running loop and resets the engine to back-distance n.
// A non-positive n keeps the current back-distance. The runner is left idle.
func (r *Runner) Restart(n int) error {
	if err := r.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}

	r.mu.Lock()
	if n <= 0 {
		r.eng.Restart()
	} else if err := r.eng.RestartWith(n); err != nil {
		r.mu.Unlock()
		return err
	}
	r.id = uuid.New().String()
	r.state = StateIdle
	r.err = nil
	r.result = nil
	r.mu.Unlock()

	r.emit()
	return nil
}

// Wait blocks until the round loop exits and returns any recording error.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// State returns the lifecycle state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the score of the last finished session, or nil.
func (r *Runner) Result() *store.GameScore {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Score returns the live score of the current session
func (r *Runner) Score() nback.Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.Score()
}

// BackDistance returns the current N
func (r *Runner) BackDistance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.BackDistance()
}

// Snapshot returns the current session view
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Runner) snapshot() Snapshot {
	snap := Snapshot{
		ID:           r.id,
		State:        r.state,
		N:            r.eng.BackDistance(),
		Round:        r.eng.Round(),
		TotalRounds:  r.eng.TotalRounds(),
		Cue:          r.eng.Current(),
		Answer:       r.eng.Answer(),
		Score:        r.eng.Score().Snapshot(),
		LastOutcomes: r.eng.LastOutcomes(),
	}
	if r.err != nil {
		snap.Error = r.err.Error()
	}
	if r.result != nil {
		res := *r.result
		snap.Result = &res
	}
	return snap
}

func (r *Runner) emit() {
	if r.emitter == nil {
		return
	}
	r.mu.Lock()
	snap := r.snapshot()
	r.mu.Unlock()
	r.emitter.EmitSession(snap)
}
