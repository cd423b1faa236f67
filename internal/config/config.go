package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/MJE43/nback-trainer/internal/cue"
	"github.com/MJE43/nback-trainer/internal/nback"
)

// Config represents the full nback configuration
type Config struct {
	Game       GameSettings       `mapstructure:"game" yaml:"game" json:"game"`
	Difficulty DifficultySettings `mapstructure:"difficulty" yaml:"difficulty" json:"difficulty"`
	Verbose    bool               `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
}

// GameSettings describes one session. RoundTime is in seconds.
type GameSettings struct {
	N         int     `mapstructure:"n" yaml:"n" json:"n"`
	Rounds    int     `mapstructure:"rounds" yaml:"rounds" json:"rounds"`
	RoundTime float64 `mapstructure:"round_time" yaml:"round_time" json:"round_time"`
	Position  bool    `mapstructure:"position" yaml:"position" json:"position"`
	Color     bool    `mapstructure:"color" yaml:"color" json:"color"`
	Sound     bool    `mapstructure:"sound" yaml:"sound" json:"sound"`
	LureRate  float64 `mapstructure:"lure_rate" yaml:"lure_rate" json:"lure_rate"`
}

// DifficultySettings configures how N changes between sessions. A non-empty
// Script points at a JavaScript policy that replaces the staircase.
type DifficultySettings struct {
	Raise  float64 `mapstructure:"raise" yaml:"raise" json:"raise"`
	Lower  float64 `mapstructure:"lower" yaml:"lower" json:"lower"`
	Min    int     `mapstructure:"min" yaml:"min" json:"min"`
	Max    int     `mapstructure:"max" yaml:"max" json:"max"`
	Script string  `mapstructure:"script" yaml:"script" json:"script"`
}

// DefaultGameSettings returns a 2-back, 24 round, 3 second session over position and sound
func DefaultGameSettings() GameSettings {
	return GameSettings{
		N:         nback.DefaultBackDistance,
		Rounds:    nback.DefaultTotalRounds,
		RoundTime: nback.DefaultRoundDuration.Seconds(),
		Position:  true,
		Color:     false,
		Sound:     true,
		LureRate:  cue.DefaultLureRate,
	}
}

// DefaultDifficultySettings returns the 0.80 / 0.50 staircase
func DefaultDifficultySettings() DifficultySettings {
	return DifficultySettings{
		Raise: nback.DefaultRaiseThreshold,
		Lower: nback.DefaultLowerThreshold,
		Min:   nback.MinBackDistance,
	}
}

// SetDefaults registers every key with its default on v
func SetDefaults(v *viper.Viper) {
	g := DefaultGameSettings()
	v.SetDefault("game.n", g.N)
	v.SetDefault("game.rounds", g.Rounds)
	v.SetDefault("game.round_time", g.RoundTime)
	v.SetDefault("game.position", g.Position)
	v.SetDefault("game.color", g.Color)
	v.SetDefault("game.sound", g.Sound)
	v.SetDefault("game.lure_rate", g.LureRate)

	d := DefaultDifficultySettings()
	v.SetDefault("difficulty.raise", d.Raise)
	v.SetDefault("difficulty.lower", d.Lower)
	v.SetDefault("difficulty.min", d.Min)
	v.SetDefault("difficulty.max", d.Max)
	v.SetDefault("difficulty.script", d.Script)

	v.SetDefault("verbose", false)
}

// Load reads configuration from v, falling back to defaults. A nil v uses
// the global viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.Game.ToEngineConfig(); err != nil {
		return err
	}
	d := c.Difficulty
	if d.Raise < 0 || d.Raise > 1 || d.Lower < 0 || d.Lower > 1 {
		return fmt.Errorf("difficulty thresholds must be within [0, 1]")
	}
	if d.Lower > d.Raise {
		return fmt.Errorf("difficulty.lower (%v) must not exceed difficulty.raise (%v)", d.Lower, d.Raise)
	}
	if d.Max > 0 && d.Max < d.Min {
		return fmt.Errorf("difficulty.max (%d) must not be below difficulty.min (%d)", d.Max, d.Min)
	}
	return nil
}

// Modalities lists the enabled modalities in resolution order
func (g GameSettings) Modalities() []cue.Modality {
	var mods []cue.Modality
	if g.Position {
		mods = append(mods, cue.ModalityPosition)
	}
	if g.Color {
		mods = append(mods, cue.ModalityColor)
	}
	if g.Sound {
		mods = append(mods, cue.ModalitySound)
	}
	return mods
}

// ToEngineConfig converts the settings and validates the result
func (g GameSettings) ToEngineConfig() (nback.Config, error) {
	// a round shorter than a nanosecond would give the timer a zero interval
	if math.IsNaN(g.RoundTime) || time.Duration(g.RoundTime*float64(time.Second)) <= 0 {
		return nback.Config{}, fmt.Errorf("invalid config: %w (round_time %v)", nback.ErrInvalidRoundDuration, g.RoundTime)
	}

	cfg := nback.Config{
		BackDistance:  g.N,
		TotalRounds:   g.Rounds,
		RoundDuration: time.Duration(g.RoundTime * float64(time.Second)),
		Modalities:    g.Modalities(),
		LureRate:      g.LureRate,
	}
	if err := cfg.Validate(); err != nil {
		return nback.Config{}, err
	}
	return cfg, nil
}

// Staircase builds the built-in policy from the settings
func (d DifficultySettings) Staircase() nback.Staircase {
	return nback.Staircase{
		Raise: float32(d.Raise),
		Lower: float32(d.Lower),
		Min:   d.Min,
		Max:   d.Max,
	}
}
