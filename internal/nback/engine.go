package nback

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/engine"
)

// Cue is the stimulus tuple for one round. Disabled modalities stay None.
type Cue struct {
	Position cue.Position `json:"position"`
	Color    cue.Color    `json:"color"`
	Sound    cue.Sound    `json:"sound"`
}

// RoundOutcome is how one modality was scored in a resolved round
type RoundOutcome struct {
	Modality cue.Modality `json:"modality"`
	Answered bool         `json:"answered"`
	Match    bool         `json:"match"`
	Outcome  Outcome      `json:"outcome"`
}

// Result summarizes a session for the score history
type Result struct {
	BackDistance  int           `json:"n"`
	TotalRounds   int           `json:"total_rounds"`
	RoundDuration time.Duration `json:"round_duration"`
	Correct       int           `json:"correct"`
	Wrong         int           `json:"wrong"`
	F1            float32       `json:"f1"`
}

// Engine advances one channel per enabled modality in lock-step and scores
// each round. It is not safe for concurrent use.
type Engine struct {
	cfg    Config
	src    engine.Source
	logger *log.Logger

	round  int
	answer Answer
	score  Score
	last   []RoundOutcome

	positions *cue.Channel[cue.Position]
	colors    *cue.Channel[cue.Color]
	sounds    *cue.Channel[cue.Sound]
}

// New validates cfg and builds fresh channels. A nil src uses entropy.
func New(cfg Config, src engine.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = engine.NewEntropySource()
	}

	cfg.Modalities = append([]cue.Modality(nil), cfg.Modalities...)
	e := &Engine{
		cfg:    cfg,
		src:    src,
		logger: log.New(io.Discard, "[ENGINE] ", log.LstdFlags),
	}
	e.buildChannels()
	return e, nil
}

// SetLogger routes per-round outcome logs to l. A nil logger silences them.
func (e *Engine) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	e.logger = l
}

func (e *Engine) buildChannels() {
	n := e.cfg.BackDistance
	rate := e.cfg.LureRate

	e.positions, e.colors, e.sounds = nil, nil, nil
	for _, m := range cue.AllModalities {
		if !e.cfg.Has(m) {
			continue
		}
		switch m {
		case cue.ModalityPosition:
			e.positions = cue.NewPositions(n, e.src)
			e.positions.SetLureRate(rate)
		case cue.ModalityColor:
			e.colors = cue.NewColors(n, e.src)
			e.colors.SetLureRate(rate)
		case cue.ModalitySound:
			e.sounds = cue.NewSounds(n, e.src)
			e.sounds.SetLureRate(rate)
		}
	}
}

// IsMatch reports the match state of m for the cue currently shown.
// Disabled modalities never match.
func (e *Engine) IsMatch(m cue.Modality) bool {
	switch m {
	case cue.ModalityPosition:
		return e.positions != nil && e.positions.IsMatch()
	case cue.ModalityColor:
		return e.colors != nil && e.colors.IsMatch()
	case cue.ModalitySound:
		return e.sounds != nil && e.sounds.IsMatch()
	}
	return false
}

// RecordAnswer claims that the current cue of m matches N back.
// First press wins; answers for disabled modalities are ignored.
func (e *Engine) RecordAnswer(m cue.Modality) {
	if !e.cfg.Has(m) {
		return
	}
	e.answer.Set(m)
}

// ResolveRound scores the elapsed round, clears the answer and generates
// the next cue. Scoring must read every channel before any of them advances.
func (e *Engine) ResolveRound() Cue {
	last := make([]RoundOutcome, 0, len(e.cfg.Modalities))
	for _, m := range cue.AllModalities {
		if !e.cfg.Has(m) {
			continue
		}
		answered := e.answer.Get(m)
		match := e.IsMatch(m)
		o := Classify(answered, match)
		e.score.Record(o)
		last = append(last, RoundOutcome{Modality: m, Answered: answered, Match: match, Outcome: o})
		e.logger.Printf("round %d %s: %s", e.round+1, m, o)
	}
	e.last = last

	e.answer.Reset()
	next := e.advance()
	e.round++
	return next
}

func (e *Engine) advance() Cue {
	var c Cue
	if e.positions != nil {
		c.Position = e.positions.Generate()
	}
	if e.colors != nil {
		c.Color = e.colors.Generate()
	}
	if e.sounds != nil {
		c.Sound = e.sounds.Generate()
	}
	return c
}

// IsFinished reports whether the round budget is spent
func (e *Engine) IsFinished() bool {
	return e.round >= e.cfg.TotalRounds
}

// Restart zeroes the round index and score and reseeds every channel with
// sentinels, keeping the current back-distance.
func (e *Engine) Restart() {
	e.round = 0
	e.score.Reset()
	e.answer.Reset()
	e.last = nil
	e.buildChannels()
}

// RestartWith restarts with a new back-distance
func (e *Engine) RestartWith(n int) error {
	if n < 1 {
		return fmt.Errorf("restart: %w (got %d)", ErrInvalidBackDistance, n)
	}
	e.cfg.BackDistance = n
	e.Restart()
	return nil
}

// Current returns the cue on display
func (e *Engine) Current() Cue {
	var c Cue
	if e.positions != nil {
		c.Position = e.positions.Current()
	}
	if e.colors != nil {
		c.Color = e.colors.Current()
	}
	if e.sounds != nil {
		c.Sound = e.sounds.Current()
	}
	return c
}

// NBack returns the cue each enabled channel compares the current one to.
// It is all None until N+1 cues have been generated.
func (e *Engine) NBack() Cue {
	var c Cue
	if e.positions != nil {
		c.Position = e.positions.Oldest()
	}
	if e.colors != nil {
		c.Color = e.colors.Oldest()
	}
	if e.sounds != nil {
		c.Sound = e.sounds.Oldest()
	}
	return c
}

func (e *Engine) BackDistance() int            { return e.cfg.BackDistance }
func (e *Engine) Round() int                   { return e.round }
func (e *Engine) TotalRounds() int             { return e.cfg.TotalRounds }
func (e *Engine) RoundDuration() time.Duration { return e.cfg.RoundDuration }
func (e *Engine) Answer() Answer               { return e.answer }
func (e *Engine) Score() Score                 { return e.score }
func (e *Engine) Config() Config               { return e.cfg }
func (e *Engine) Modalities() []cue.Modality   { return append([]cue.Modality(nil), e.cfg.Modalities...) }
func (e *Engine) LastOutcomes() []RoundOutcome { return append([]RoundOutcome(nil), e.last...) }

// Result summarizes the session so far
func (e *Engine) Result() Result {
	return Result{
		BackDistance:  e.cfg.BackDistance,
		TotalRounds:   e.cfg.TotalRounds,
		RoundDuration: e.cfg.RoundDuration,
		Correct:       e.score.Correct(),
		Wrong:         e.score.Wrong(),
		F1:            e.score.F1(),
	}
}
