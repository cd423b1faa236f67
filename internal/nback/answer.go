package nback

import "github.com/MJE43/nback-trainer/internal/cue"

// Answer holds the player's "same as N back" claims for the current round
type Answer struct {
	Position bool `json:"position"`
	Color    bool `json:"color"`
	Sound    bool `json:"sound"`
}

// Set marks m as answered. Setting twice is a no-op.
func (a *Answer) Set(m cue.Modality) {
	switch m {
	case cue.ModalityPosition:
		a.Position = true
	case cue.ModalityColor:
		a.Color = true
	case cue.ModalitySound:
		a.Sound = true
	}
}

// Get reports whether m was answered
func (a Answer) Get(m cue.Modality) bool {
	switch m {
	case cue.ModalityPosition:
		return a.Position
	case cue.ModalityColor:
		return a.Color
	case cue.ModalitySound:
		return a.Sound
	}
	return false
}

// Reset clears every claim
func (a *Answer) Reset() {
	*a = Answer{}
}
