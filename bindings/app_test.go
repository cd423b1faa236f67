package bindings

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MJE43/nback-trainer/internal/config"
	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/session"
	"github.com/MJE43/nback-trainer/internal/store"
)

type manualTicker struct{ c chan time.Time }

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

// manualClock hands out tickers that only fire when the test ticks them
type manualClock struct {
	mu     sync.Mutex
	ticker *manualTicker
}

func (mc *manualClock) clock(time.Duration) session.Ticker {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.ticker = &manualTicker{c: make(chan time.Time)}
	return mc.ticker
}

func (mc *manualClock) tick(t *testing.T) {
	t.Helper()
	mc.mu.Lock()
	tk := mc.ticker
	mc.mu.Unlock()
	select {
	case tk.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("round loop did not accept tick")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fixedPolicy int

func (p fixedPolicy) Next(int, nback.Score) (int, error) { return int(p), nil }

func newTestApp(t *testing.T, opts ...Option) (*App, *manualClock) {
	t.Helper()
	mc := &manualClock{}
	a := New(nil, append([]Option{WithClock(mc.clock)}, opts...)...)
	t.Cleanup(func() { _ = a.Stop() })
	return a, mc
}

func settings(rounds int) config.GameSettings {
	s := config.DefaultGameSettings()
	s.Rounds = rounds
	return s
}

func TestControlsWithoutGame(t *testing.T) {
	a, _ := newTestApp(t)

	for name, fn := range map[string]func() error{
		"press":  func() error { return a.Press("position") },
		"pause":  a.Pause,
		"resume": a.Resume,
		"stop":   a.Stop,
	} {
		if err := fn(); !errors.Is(err, ErrNoGame) {
			t.Errorf("%s: got %v, want ErrNoGame", name, err)
		}
	}
	if _, err := a.Restart(0); !errors.Is(err, ErrNoGame) {
		t.Errorf("restart: got %v, want ErrNoGame", err)
	}
	if got := a.State().State; got != session.StateIdle {
		t.Errorf("State = %s, want idle", got)
	}
	n, err := a.SuggestNextN()
	if err != nil || n != config.DefaultGameSettings().N {
		t.Errorf("SuggestNextN = %d, %v", n, err)
	}
}

func TestNewGame(t *testing.T) {
	a, _ := newTestApp(t)

	s := settings(5)
	s.N = 3
	s.Color = true
	info, err := a.NewGame(s)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if info.ID == "" || info.N != 3 || info.TotalRounds != 5 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Modalities) != 3 {
		t.Errorf("got %d modalities, want 3", len(info.Modalities))
	}
	if got := a.State().State; got != session.StatePlaying {
		t.Errorf("State = %s, want playing", got)
	}

	s.N = 0
	if _, err := a.NewGame(s); !errors.Is(err, nback.ErrInvalidBackDistance) {
		t.Errorf("got %v, want ErrInvalidBackDistance", err)
	}
}

func TestNewGameRejectsZeroRoundTime(t *testing.T) {
	s := config.DefaultGameSettings()
	s.RoundTime = 0

	a := New(nil)
	if _, err := a.NewGame(s); !errors.Is(err, nback.ErrInvalidRoundDuration) {
		t.Fatalf("NewGame() error = %v, want ErrInvalidRoundDuration", err)
	}
	if got := a.State().State; got != session.StateIdle {
		t.Errorf("State = %s, want idle", got)
	}
}

func TestFinishedGameIsRecorded(t *testing.T) {
	a, mc := newTestApp(t)
	if _, err := a.NewGame(settings(3)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		mc.tick(t)
	}
	eventually(t, func() bool { return a.State().State == session.StateFinished })

	history, err := a.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].N != 2 || history[0].TotalRounds != 3 {
		t.Fatalf("history = %+v", history)
	}

	sum, err := a.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Sessions != 1 || sum.HighestN != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestPressPauseResume(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := a.NewGame(settings(10)); err != nil {
		t.Fatal(err)
	}

	if err := a.Press("smell"); !errors.Is(err, cue.ErrUnknownModality) {
		t.Errorf("unknown modality: got %v", err)
	}
	if err := a.Press("position"); err != nil {
		t.Errorf("Press: %v", err)
	}
	if !a.State().Answer.Get(cue.ModalityPosition) {
		t.Error("position press was not recorded")
	}

	if err := a.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := a.Press("sound"); !errors.Is(err, session.ErrNotPlaying) {
		t.Errorf("press while paused: got %v", err)
	}
	if err := a.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := a.State().State; got != session.StateStopped {
		t.Errorf("State = %s, want stopped", got)
	}
}

func TestRestart(t *testing.T) {
	a, mc := newTestApp(t)
	first, err := a.NewGame(settings(4))
	if err != nil {
		t.Fatal(err)
	}
	mc.tick(t)
	eventually(t, func() bool { return a.State().Round == 1 })

	info, err := a.Restart(4)
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if info.N != 4 || info.ID == first.ID {
		t.Errorf("info = %+v", info)
	}
	snap := a.State()
	if snap.State != session.StatePlaying || snap.Round != 0 {
		t.Errorf("after restart: state %s round %d", snap.State, snap.Round)
	}

	info, err = a.Restart(0)
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if info.N != 4 {
		t.Errorf("Restart(0) changed N to %d", info.N)
	}
}

func TestSuggestNextN(t *testing.T) {
	a, _ := newTestApp(t, WithPolicy(fixedPolicy(5)))
	if _, err := a.NewGame(settings(4)); err != nil {
		t.Fatal(err)
	}
	n, err := a.SuggestNextN()
	if err != nil || n != 5 {
		t.Errorf("SuggestNextN = %d, %v; want 5", n, err)
	}
}

func TestModalities(t *testing.T) {
	a := New(store.NewMemoryDB())
	specs := a.Modalities()
	want := []string{"position", "color", "sound"}
	if len(specs) != len(want) {
		t.Fatalf("got %d modalities", len(specs))
	}
	for i, id := range want {
		if specs[i].ID != id {
			t.Errorf("specs[%d] = %s, want %s", i, specs[i].ID, id)
		}
	}
}
