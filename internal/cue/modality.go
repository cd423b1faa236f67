package cue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModality is returned when a modality name cannot be parsed
var ErrUnknownModality = errors.New("unknown modality")

// Modality identifies one stimulus channel
type Modality int

const (
	ModalityPosition Modality = iota
	ModalityColor
	ModalitySound
)

// AllModalities lists every modality in resolution order
var AllModalities = []Modality{ModalityPosition, ModalityColor, ModalitySound}

// ModalitySpec describes a modality for hosts that build input controls
type ModalitySpec struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Shortcut string `json:"shortcut"`
	Values   int    `json:"values"`
}

// Spec returns metadata about the modality
func (m Modality) Spec() ModalitySpec {
	switch m {
	case ModalityPosition:
		return ModalitySpec{ID: "position", Name: "Position", Shortcut: "A", Values: len(Positions)}
	case ModalityColor:
		return ModalitySpec{ID: "color", Name: "Color", Shortcut: "D", Values: len(Colors)}
	case ModalitySound:
		return ModalitySpec{ID: "sound", Name: "Sound", Shortcut: "S", Values: len(Sounds)}
	default:
		panic(fmt.Sprintf("cue: invalid modality %d", int(m)))
	}
}

func (m Modality) String() string {
	return m.Spec().ID
}

func (m Modality) MarshalText() ([]byte, error) {
	if m < ModalityPosition || m > ModalitySound {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModality, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Modality) UnmarshalText(text []byte) error {
	parsed, err := ParseModality(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseModality maps "position", "color" or "sound" (case-insensitive) to a Modality
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position", "pos", "p":
		return ModalityPosition, nil
	case "color", "colour", "c":
		return ModalityColor, nil
	case "sound", "audio", "s":
		return ModalitySound, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModality, s)
	}
}

// ParseModalities parses a comma separated list, ignoring duplicates and
// blank entries. The result keeps resolution order.
func ParseModalities(s string) ([]Modality, error) {
	seen := make(map[Modality]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseModality(part)
		if err != nil {
			return nil, err
		}
		seen[m] = true
	}

	out := make([]Modality, 0, len(seen))
	for _, m := range AllModalities {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out, nil
}
