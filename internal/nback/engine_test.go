package nback

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/engine"
)

// pick returns the draws that make a channel generate values[i] without a lure.
func pick(i, size int) []float64 {
	return []float64{0.99, (float64(i) + 0.5) / float64(size)}
}

func draws(groups ...[]float64) *engine.Sequence {
	var all []float64
	for _, g := range groups {
		all = append(all, g...)
	}
	return engine.NewSequence(all...)
}

func soundConfig(n, rounds int) Config {
	return Config{
		BackDistance: n,
		TotalRounds:  rounds,
		Modalities:   []cue.Modality{cue.ModalitySound},
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero back-distance", Config{BackDistance: 0, TotalRounds: 5, Modalities: cue.AllModalities}, ErrInvalidBackDistance},
		{"zero rounds", Config{BackDistance: 2, TotalRounds: 0, Modalities: cue.AllModalities}, ErrInvalidRounds},
		{"no modalities", Config{BackDistance: 2, TotalRounds: 5}, ErrNoModalities},
		{"bad lure rate", Config{BackDistance: 2, TotalRounds: 5, Modalities: cue.AllModalities, LureRate: 1.5}, ErrInvalidLureRate},
		{"unknown modality", Config{BackDistance: 2, TotalRounds: 5, Modalities: []cue.Modality{7}}, cue.ErrUnknownModality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New(DefaultConfig(), nil); err != nil {
		t.Errorf("DefaultConfig rejected: %v", err)
	}
}

func TestNewEngineState(t *testing.T) {
	e, err := New(DefaultConfig(), engine.NewSequence())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if e.Round() != 0 {
		t.Errorf("Round() = %d, want 0", e.Round())
	}
	if e.Answer() != (Answer{}) {
		t.Errorf("Answer() = %+v, want all false", e.Answer())
	}
	if s := e.Score(); s.Correct()+s.Wrong() != 0 {
		t.Errorf("fresh score has %d events", s.Correct()+s.Wrong())
	}
	for _, m := range cue.AllModalities {
		if e.IsMatch(m) {
			t.Errorf("%v matches before any cue", m)
		}
	}
	if e.Current() != (Cue{}) {
		t.Errorf("Current() = %+v, want all none", e.Current())
	}
}

func TestResolveRoundABAScenario(t *testing.T) {
	size := len(cue.Sounds)
	e, err := New(soundConfig(2, 10), draws(pick(0, size), pick(1, size), pick(0, size)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var shown []cue.Sound
	for i := 0; i < 3; i++ {
		shown = append(shown, e.ResolveRound().Sound)
	}
	if shown[0] != cue.SoundC || shown[1] != cue.SoundH || shown[2] != cue.SoundC {
		t.Fatalf("shown = %v, want [c h c]", shown)
	}
	if !e.IsMatch(cue.ModalitySound) {
		t.Fatal("expected a match on the third cue")
	}
	if nb := e.NBack(); nb.Sound != cue.SoundC || nb.Position != cue.PositionNone {
		t.Errorf("NBack() = %+v, want sound c", nb)
	}

	before := e.Score()
	if before.TruePositives() != 0 {
		t.Fatalf("tp before answering = %d", before.TruePositives())
	}

	e.RecordAnswer(cue.ModalitySound)
	e.ResolveRound()

	after := e.Score()
	if after.TruePositives() != 1 {
		t.Errorf("TruePositives() = %d, want 1", after.TruePositives())
	}
	if after.Correct() != before.Correct()+1 {
		t.Errorf("Correct() = %d, want %d", after.Correct(), before.Correct()+1)
	}
	if after.FalsePositives() != 0 {
		t.Errorf("FalsePositives() = %d, want 0 (scored after advancing?)", after.FalsePositives())
	}
	if e.IsMatch(cue.ModalitySound) {
		t.Error("fourth cue should not match")
	}
}

func TestFreshTrackerScoresSingleMatch(t *testing.T) {
	size := len(cue.Sounds)
	ch := cue.NewSounds(2, draws(pick(0, size), pick(1, size), pick(0, size)))
	for i := 0; i < 3; i++ {
		ch.Generate()
	}

	var s Score
	s.Record(Classify(true, ch.IsMatch()))
	if s.TruePositives() != 1 || s.Correct() != 1 {
		t.Errorf("score = %+v, want one true positive", s.Snapshot())
	}
}

func TestResolveRoundClassifiesEveryModality(t *testing.T) {
	cfg := Config{BackDistance: 1, TotalRounds: 3, Modalities: cue.AllModalities}
	// every channel draws the first value on every generation
	e, err := New(cfg, engine.NewSequence(0.99, 0.0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.ResolveRound() // warm-up, no matches possible
	e.ResolveRound() // second cue equals the first everywhere

	for _, m := range cue.AllModalities {
		if !e.IsMatch(m) {
			t.Fatalf("%v should match", m)
		}
	}

	e.RecordAnswer(cue.ModalityPosition)
	e.RecordAnswer(cue.ModalityColor)
	e.ResolveRound()

	last := e.LastOutcomes()
	if len(last) != 3 {
		t.Fatalf("LastOutcomes() has %d entries, want 3", len(last))
	}
	want := []Outcome{TruePositive, TruePositive, FalseNegative}
	for i, o := range last {
		if o.Modality != cue.AllModalities[i] {
			t.Errorf("outcome %d modality = %v, want %v", i, o.Modality, cue.AllModalities[i])
		}
		if o.Outcome != want[i] {
			t.Errorf("%v outcome = %v, want %v", o.Modality, o.Outcome, want[i])
		}
	}

	s := e.Score()
	if s.Correct()+s.Wrong() != 9 {
		t.Errorf("recorded %d outcomes, want 9", s.Correct()+s.Wrong())
	}
	if e.Answer() != (Answer{}) {
		t.Errorf("answer not cleared: %+v", e.Answer())
	}
}

func TestDisabledModalities(t *testing.T) {
	e, err := New(soundConfig(2, 5), engine.NewSequence(0.99, 0.3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.RecordAnswer(cue.ModalityPosition)
	if e.Answer().Position {
		t.Error("answer recorded for a disabled modality")
	}

	c := e.ResolveRound()
	if c.Position != cue.PositionNone || c.Color != cue.ColorNone {
		t.Errorf("disabled modalities produced cues: %+v", c)
	}
	if c.Sound == cue.SoundNone {
		t.Error("sound channel produced no cue")
	}
	if got := e.Score().Correct() + e.Score().Wrong(); got != 1 {
		t.Errorf("recorded %d outcomes, want 1", got)
	}
}

func TestRecordAnswerIsIdempotent(t *testing.T) {
	e, _ := New(DefaultConfig(), nil)

	e.RecordAnswer(cue.ModalitySound)
	e.RecordAnswer(cue.ModalitySound)

	a := e.Answer()
	if !a.Sound || a.Position || a.Color {
		t.Errorf("Answer() = %+v, want only sound", a)
	}
}

func TestIsFinishedAfterBudget(t *testing.T) {
	e, err := New(soundConfig(2, 1), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.IsFinished() {
		t.Fatal("finished before the first round")
	}

	e.ResolveRound()

	if !e.IsFinished() {
		t.Error("IsFinished() = false after one round of a one-round session")
	}
	if e.Round() != 1 {
		t.Errorf("Round() = %d, want 1", e.Round())
	}
}

func TestRestart(t *testing.T) {
	e, err := New(Config{BackDistance: 1, TotalRounds: 4, Modalities: cue.AllModalities}, engine.NewSequence(0.99, 0.0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 4; i++ {
		e.RecordAnswer(cue.ModalityColor)
		e.ResolveRound()
	}
	e.RecordAnswer(cue.ModalitySound)

	e.Restart()

	if s := e.Score(); s.Correct()+s.Wrong() != 0 {
		t.Errorf("score not reset: %+v", s.Snapshot())
	}
	if e.Round() != 0 {
		t.Errorf("Round() = %d, want 0", e.Round())
	}
	if e.Answer() != (Answer{}) {
		t.Errorf("answer not reset: %+v", e.Answer())
	}
	if e.Current() != (Cue{}) {
		t.Errorf("channels not reseeded: %+v", e.Current())
	}
	if e.IsFinished() {
		t.Error("finished right after restart")
	}
	if len(e.LastOutcomes()) != 0 {
		t.Error("outcomes survived restart")
	}
}

func TestRestartWith(t *testing.T) {
	e, _ := New(DefaultConfig(), nil)
	e.ResolveRound()

	if err := e.RestartWith(4); err != nil {
		t.Fatalf("RestartWith: %v", err)
	}
	if e.BackDistance() != 4 {
		t.Errorf("BackDistance() = %d, want 4", e.BackDistance())
	}
	if e.Round() != 0 {
		t.Errorf("Round() = %d, want 0", e.Round())
	}

	if err := e.RestartWith(0); !errors.Is(err, ErrInvalidBackDistance) {
		t.Errorf("RestartWith(0) error = %v, want %v", err, ErrInvalidBackDistance)
	}
	if e.BackDistance() != 4 {
		t.Errorf("failed restart changed back-distance to %d", e.BackDistance())
	}
}

func TestResult(t *testing.T) {
	cfg := DefaultConfig()
	e, _ := New(cfg, nil)
	for !e.IsFinished() {
		e.ResolveRound()
	}

	r := e.Result()
	if r.BackDistance != cfg.BackDistance || r.TotalRounds != cfg.TotalRounds || r.RoundDuration != cfg.RoundDuration {
		t.Errorf("Result() = %+v", r)
	}
	if r.Correct+r.Wrong != cfg.TotalRounds*len(cfg.Modalities) {
		t.Errorf("Result() counted %d outcomes, want %d", r.Correct+r.Wrong, cfg.TotalRounds*len(cfg.Modalities))
	}
}

func TestEngineLogsOutcomes(t *testing.T) {
	var buf bytes.Buffer
	e, _ := New(soundConfig(2, 3), nil)
	e.SetLogger(log.New(&buf, "[ENGINE] ", 0))

	e.ResolveRound()

	if !strings.Contains(buf.String(), "round 1 sound: true_negative") {
		t.Errorf("log = %q", buf.String())
	}

	e.SetLogger(nil)
	e.ResolveRound()
}

func TestSeededEnginesAreReplayable(t *testing.T) {
	seeds := engine.Seeds{Server: "server", Client: "client"}
	cfg := Config{BackDistance: 2, TotalRounds: 30, Modalities: cue.AllModalities}

	a, _ := New(cfg, engine.NewSeededSource(seeds, 5))
	b, _ := New(cfg, engine.NewSeededSource(seeds, 5))

	for !a.IsFinished() {
		ca, cb := a.ResolveRound(), b.ResolveRound()
		if ca != cb {
			t.Fatalf("round %d: %+v != %+v", a.Round(), ca, cb)
		}
	}
}
