package session

import (
	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
)

// Peeker is the read-only view of an engine a Player responds to
type Peeker interface {
	Current() nback.Cue
	IsMatch(m cue.Modality) bool
	Modalities() []cue.Modality
}

// Player answers a freshly shown cue. It returns the modalities it claims match.
type Player interface {
	Respond(p Peeker) []cue.Modality
}

// SimulatedPlayer answers each modality correctly with probability Accuracy.
// A wrong answer presses on a non-match or stays silent on a match.
type SimulatedPlayer struct {
	Accuracy float64
	Source   engine.Source
}

// NewSimulatedPlayer creates a player drawing from src, or entropy when src is nil.
func NewSimulatedPlayer(accuracy float64, src engine.Source) *SimulatedPlayer {
	if src == nil {
		src = engine.NewEntropySource()
	}
	return &SimulatedPlayer{Accuracy: accuracy, Source: src}
}

func (sp *SimulatedPlayer) Respond(p Peeker) []cue.Modality {
	var pressed []cue.Modality
	for _, m := range p.Modalities() {
		match := p.IsMatch(m)
		correct := sp.Source.Float64() < sp.Accuracy
		if match == correct {
			pressed = append(pressed, m)
		}
	}
	return pressed
}
