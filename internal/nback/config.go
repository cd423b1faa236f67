package nback

import (
	"errors"
	"fmt"
	"time"

	"github.com/MJE43/nback-trainer/internal/cue"
)

var (
	ErrInvalidBackDistance  = errors.New("back-distance must be at least 1")
	ErrInvalidRounds        = errors.New("total rounds must be at least 1")
	ErrNoModalities         = errors.New("at least one modality must be enabled")
	ErrInvalidLureRate      = errors.New("lure rate must be within [0, 1]")
	ErrInvalidRoundDuration = errors.New("round duration must be positive")
)

// Defaults used by DefaultConfig
const (
	DefaultBackDistance  = 2
	DefaultTotalRounds   = 24
	DefaultRoundDuration = 3 * time.Second
)

// Config describes one training session
type Config struct {
	BackDistance int `json:"n"`
	TotalRounds  int `json:"total_rounds"`
	// RoundDuration is owned by the timer; the engine only reports it.
	// Zero suits untimed play such as simulation and scans.
	RoundDuration time.Duration  `json:"round_duration"`
	Modalities    []cue.Modality `json:"modalities"`
	// LureRate is the forced-match probability; zero turns lures off.
	LureRate float64 `json:"lure_rate"`
}

// DefaultConfig returns a 2-back session over position and sound
func DefaultConfig() Config {
	return Config{
		BackDistance:  DefaultBackDistance,
		TotalRounds:   DefaultTotalRounds,
		RoundDuration: DefaultRoundDuration,
		Modalities:    []cue.Modality{cue.ModalityPosition, cue.ModalitySound},
		LureRate:      cue.DefaultLureRate,
	}
}

// Validate checks the configuration and returns a wrapped sentinel error.
func (c Config) Validate() error {
	if c.BackDistance < 1 {
		return fmt.Errorf("invalid config: %w (got %d)", ErrInvalidBackDistance, c.BackDistance)
	}
	if c.TotalRounds < 1 {
		return fmt.Errorf("invalid config: %w (got %d)", ErrInvalidRounds, c.TotalRounds)
	}
	if len(c.Modalities) == 0 {
		return fmt.Errorf("invalid config: %w", ErrNoModalities)
	}
	for _, m := range c.Modalities {
		if m < cue.ModalityPosition || m > cue.ModalitySound {
			return fmt.Errorf("invalid config: %w: %d", cue.ErrUnknownModality, int(m))
		}
	}
	if c.RoundDuration < 0 {
		return fmt.Errorf("invalid config: %w (got %v)", ErrInvalidRoundDuration, c.RoundDuration)
	}
	if c.LureRate < 0 || c.LureRate > 1 {
		return fmt.Errorf("invalid config: %w (got %v)", ErrInvalidLureRate, c.LureRate)
	}
	return nil
}

// Has reports whether m is enabled
func (c Config) Has(m cue.Modality) bool {
	for _, x := range c.Modalities {
		if x == m {
			return true
		}
	}
	return false
}
