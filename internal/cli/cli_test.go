package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MJE43/nback-trainer/internal/config"
	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/scan"
	"github.com/MJE43/nback-trainer/internal/version"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info version.Info
	decode(t, out, &info)
	if info.Version != version.Version {
		t.Errorf("Version = %q, want %q", info.Version, version.Version)
	}

	out, err = runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "nback ") {
		t.Errorf("text output = %q", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	if _, err := runCommand(t, "version", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestSimulateIsReplayable(t *testing.T) {
	args := []string{"simulate", "--sessions", "3", "--server-seed", "server", "--client-seed", "client", "--nonce", "4", "-o", "json"}

	var reports [2]simulateReport
	for i := range reports {
		out, err := runCommand(t, args...)
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		decode(t, out, &reports[i])
	}

	a, b := reports[0], reports[1]
	if len(a.Sessions) != 3 || len(b.Sessions) != 3 {
		t.Fatalf("got %d and %d sessions, want 3", len(a.Sessions), len(b.Sessions))
	}
	for i := range a.Sessions {
		x, y := a.Sessions[i], b.Sessions[i]
		if x.N != y.N || x.Correct != y.Correct || x.Wrong != y.Wrong {
			t.Errorf("session %d differs: %+v vs %+v", i, x, y)
		}
		if x.ID == "" {
			t.Errorf("session %d was not assigned an id", i)
		}
	}
	if a.Summary.Sessions != 3 {
		t.Errorf("Summary.Sessions = %d, want 3", a.Summary.Sessions)
	}
}

func TestSimulateFixedHoldsN(t *testing.T) {
	out, err := runCommand(t, "simulate", "--sessions", "3", "--accuracy", "1", "--fixed", "--n", "3", "-o", "json")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var report simulateReport
	decode(t, out, &report)
	for i, s := range report.Sessions {
		if s.N != 3 {
			t.Errorf("session %d played N=%d, want 3", i, s.N)
		}
	}
}

func TestSimulateRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unpaired seed", []string{"simulate", "--server-seed", "s"}},
		{"zero sessions", []string{"simulate", "--sessions", "0"}},
		{"accuracy above one", []string{"simulate", "--accuracy", "1.5"}},
		{"zero back-distance", []string{"simulate", "--n", "0"}},
		{"unknown modality", []string{"simulate", "--modalities", "smell"}},
		{"missing policy", []string{"simulate", "--policy", filepath.Join(t.TempDir(), "none.js")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCommand(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSimulateWithPolicyScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.js")
	if err := os.WriteFile(path, []byte("function nextn(n, f1) { return n + 1; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "simulate", "--sessions", "3", "--policy", path, "-o", "json")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var report simulateReport
	decode(t, out, &report)
	for i, s := range report.Sessions {
		if s.N != 2+i {
			t.Errorf("session %d played N=%d, want %d", i, s.N, 2+i)
		}
	}
}

func TestReplayAgreesWithScanMetric(t *testing.T) {
	out, err := runCommand(t, "replay", "--server-seed", "server", "--client-seed", "client", "--nonce", "9", "-o", "json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var report replayReport
	decode(t, out, &report)

	cfg, err := config.DefaultGameSettings().ToEngineConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Rounds) != cfg.TotalRounds {
		t.Fatalf("got %d rounds, want %d", len(report.Rounds), cfg.TotalRounds)
	}

	want, err := scan.Metric(engine.Seeds{Server: "server", Client: "client"}, 9, cfg, cfg.Modalities)
	if err != nil {
		t.Fatal(err)
	}
	if float64(report.Matches) != want {
		t.Errorf("replay counted %d matches, scan metric is %v", report.Matches, want)
	}

	n := cfg.BackDistance
	for i, r := range report.Rounds {
		var prev nback.Cue
		if i >= n {
			prev = report.Rounds[i-n].Cue
		}
		if r.NBack != prev {
			t.Errorf("round %d: n_back = %+v, want %+v", r.Round, r.NBack, prev)
		}
		if got := len(r.Draws); got < len(cfg.Modalities) || got > 2*len(cfg.Modalities) {
			t.Errorf("round %d consumed %d draws", r.Round, got)
		}
		if r.Cell == nil || r.Cell.Row != r.Cue.Position.Row() || r.Cell.Column != r.Cue.Position.Column() {
			t.Errorf("round %d: cell %+v does not locate %v", r.Round, r.Cell, r.Cue.Position)
		}
	}
}

func TestReplayRequiresSeeds(t *testing.T) {
	if _, err := runCommand(t, "replay", "--server-seed", "s"); err == nil {
		t.Fatal("expected error without --client-seed")
	}
}

func TestReplayText(t *testing.T) {
	out, err := runCommand(t, "replay", "--server-seed", "s", "--client-seed", "c", "--rounds", "5", "--modalities", "color")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "COLOR") || strings.Contains(out, "POSITION") {
		t.Errorf("header does not follow modalities:\n%s", out)
	}
	if !strings.Contains(out, "over 5 rounds at N=2") {
		t.Errorf("missing footer:\n%s", out)
	}
}

func TestScanCommand(t *testing.T) {
	out, err := runCommand(t, "scan", "--server-seed", "s", "--client-seed", "c", "--end", "20", "--op", ">=", "--val", "0", "--limit", "0", "-o", "json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var result scan.ScanResult
	decode(t, out, &result)
	if result.Summary.TotalEvaluated != 21 || len(result.Hits) != 21 {
		t.Fatalf("evaluated %d, hits %d, want 21 each", result.Summary.TotalEvaluated, len(result.Hits))
	}
	for i, h := range result.Hits {
		if h.Nonce != uint64(i) {
			t.Fatalf("hit %d has nonce %d", i, h.Nonce)
		}
	}

	if _, err := runCommand(t, "scan", "--server-seed", "s", "--client-seed", "c", "--op", "near"); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestConfigCommandAppliesFlags(t *testing.T) {
	out, err := runCommand(t, "config", "--n", "4", "--modalities", "color", "-o", "json")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var cfg config.Config
	decode(t, out, &cfg)
	if cfg.Game.N != 4 {
		t.Errorf("N = %d, want 4", cfg.Game.N)
	}
	if cfg.Game.Position || !cfg.Game.Color || cfg.Game.Sound {
		t.Errorf("modalities = %+v, want color only", cfg.Game)
	}
	if cfg.Game.Rounds != config.DefaultGameSettings().Rounds {
		t.Errorf("unchanged flag overrode rounds: %d", cfg.Game.Rounds)
	}
}

func TestConfigCommandReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nback.yaml")
	data := "game:\n  n: 5\n  rounds: 30\ndifficulty:\n  raise: 0.9\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "config", "--config", path, "--rounds", "12", "-o", "yaml")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"n: 5", "rounds: 12", "raise: 0.9"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := runCommand(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestRenderYAMLFollowsJSONKeys(t *testing.T) {
	v := struct {
		TotalRounds int      `json:"total_rounds"`
		Names       []string `json:"names"`
	}{3, []string{"a", "b"}}

	var buf bytes.Buffer
	if err := render(&buf, "yaml", v, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "total_rounds: 3\nnames:\n  - a\n  - b\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
