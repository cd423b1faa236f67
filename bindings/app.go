package bindings

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/MJE43/nback-trainer/internal/config"
	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/session"
	"github.com/MJE43/nback-trainer/internal/store"
)

// ErrNoGame is returned by game controls before NewGame has been called
var ErrNoGame = errors.New("no game in progress")

// GameInfo describes the game a host has just started
type GameInfo struct {
	ID          string             `json:"id"`
	N           int                `json:"n"`
	TotalRounds int                `json:"totalRounds"`
	RoundTime   float64            `json:"roundTime"` // seconds
	Modalities  []cue.ModalitySpec `json:"modalities"`
}

// App is the in-process facade a UI layer binds to. It owns at most one
// running session and the score history it records into.
type App struct {
	ctx context.Context

	mu       sync.Mutex
	db       store.DB
	runner   *session.Runner
	settings config.GameSettings

	policy  nback.Policy
	emitter session.Emitter
	clock   session.Clock
	logger  *log.Logger
}

// Option configures an App
type Option func(*App)

// WithPolicy sets the difficulty policy behind SuggestNextN
func WithPolicy(p nback.Policy) Option { return func(a *App) { a.policy = p } }

// WithEmitter receives every session snapshot
func WithEmitter(e session.Emitter) Option { return func(a *App) { a.emitter = e } }

// WithClock replaces the round timer
func WithClock(c session.Clock) Option { return func(a *App) { a.clock = c } }

// WithLogger routes session and engine logs to l
func WithLogger(l *log.Logger) Option { return func(a *App) { a.logger = l } }

// New creates an App recording into db. A nil db keeps history in memory.
func New(db store.DB, opts ...Option) *App {
	if db == nil {
		db = store.NewMemoryDB()
	}
	a := &App{
		ctx:      context.Background(),
		db:       db,
		settings: config.DefaultGameSettings(),
		policy:   nback.DefaultStaircase(),
		clock:    session.RealClock,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup sets the context sessions run under
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
}

// Shutdown stops any running session and closes the history
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	runner := a.runner
	a.mu.Unlock()

	if runner != nil {
		_ = runner.Stop()
	}
	if err := a.db.Close(); err != nil && a.logger != nil {
		a.logger.Printf("close history: %v", err)
	}
}

// NewGame stops any current session and starts a new one with settings
func (a *App) NewGame(settings config.GameSettings) (GameInfo, error) {
	cfg, err := settings.ToEngineConfig()
	if err != nil {
		return GameInfo{}, err
	}
	eng, err := nback.New(cfg, nil)
	if err != nil {
		return GameInfo{}, err
	}
	if a.logger != nil {
		eng.SetLogger(a.logger)
	}

	a.mu.Lock()
	prev, ctx := a.runner, a.ctx
	a.mu.Unlock()
	if prev != nil {
		_ = prev.Stop()
	}

	opts := []session.Option{
		session.WithRecorder(a.db),
		session.WithClock(a.clock),
		session.WithLogger(a.logger),
	}
	if a.emitter != nil {
		opts = append(opts, session.WithEmitter(a.emitter))
	}
	runner := session.NewRunner(eng, opts...)
	if err := runner.Start(ctx); err != nil {
		return GameInfo{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.runner = runner
	a.settings = settings
	return a.info(), nil
}

// info describes the current runner; a.mu must be held
func (a *App) info() GameInfo {
	snap := a.runner.Snapshot()
	info := GameInfo{
		ID:          snap.ID,
		N:           snap.N,
		TotalRounds: snap.TotalRounds,
		RoundTime:   a.settings.RoundTime,
	}
	for _, m := range a.settings.Modalities() {
		info.Modalities = append(info.Modalities, m.Spec())
	}
	return info
}

func (a *App) current() (*session.Runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runner == nil {
		return nil, ErrNoGame
	}
	return a.runner, nil
}

// Press answers "match" for a modality by id, such as "position"
func (a *App) Press(modality string) error {
	m, err := cue.ParseModality(modality)
	if err != nil {
		return err
	}
	r, err := a.current()
	if err != nil {
		return err
	}
	return r.Press(m)
}

func (a *App) Pause() error {
	r, err := a.current()
	if err != nil {
		return err
	}
	return r.Pause()
}

func (a *App) Resume() error {
	r, err := a.current()
	if err != nil {
		return err
	}
	return r.Resume()
}

func (a *App) Stop() error {
	r, err := a.current()
	if err != nil {
		return err
	}
	return r.Stop()
}

// Restart plays the current game again at back-distance n. A non-positive
// n keeps the current N.
func (a *App) Restart(n int) (GameInfo, error) {
	a.mu.Lock()
	runner, ctx := a.runner, a.ctx
	a.mu.Unlock()
	if runner == nil {
		return GameInfo{}, ErrNoGame
	}

	if err := runner.Restart(n); err != nil {
		return GameInfo{}, err
	}
	if err := runner.Start(ctx); err != nil {
		return GameInfo{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings.N = runner.BackDistance()
	return a.info(), nil
}

// State returns the current session snapshot. Before the first game it
// reports an idle session.
func (a *App) State() session.Snapshot {
	r, err := a.current()
	if err != nil {
		return session.Snapshot{State: session.StateIdle}
	}
	return r.Snapshot()
}

// History returns up to limit finished sessions, newest first
func (a *App) History(limit int) ([]store.GameScore, error) {
	return a.db.Latest(limit)
}

// Summary aggregates the whole history
func (a *App) Summary() (store.Summary, error) {
	scores, err := a.db.Latest(0)
	if err != nil {
		return store.Summary{}, err
	}
	return store.Summarize(scores), nil
}

// Modalities lists every modality a host can offer
func (a *App) Modalities() []cue.ModalitySpec {
	specs := make([]cue.ModalitySpec, 0, len(cue.AllModalities))
	for _, m := range cue.AllModalities {
		specs = append(specs, m.Spec())
	}
	return specs
}

// SuggestNextN asks the difficulty policy for the next back-distance given
// the current session's score. Without a game it returns the configured N.
func (a *App) SuggestNextN() (int, error) {
	a.mu.Lock()
	runner, policy, n := a.runner, a.policy, a.settings.N
	a.mu.Unlock()

	if runner == nil {
		return n, nil
	}
	if policy == nil {
		return runner.BackDistance(), nil
	}
	return policy.Next(runner.BackDistance(), runner.Score())
}
