package cue

import (
	"fmt"
	"math"

	"github.com/MJE43/nback-trainer/internal/engine"
)

// DefaultLureRate is the probability of forcing a repeat of the value N
// steps back. Tunable; 0.25 keeps compatibility with recorded sessions.
const DefaultLureRate = 0.25

// Channel is the short-term memory for one modality. It holds exactly the
// last n+1 values, oldest first, seeded with the zero value of V which must
// be the modality's None sentinel.
type Channel[V comparable] struct {
	memory   []V
	head     int // index of the oldest value
	values   []V
	lureRate float64
	src      engine.Source
}

// New creates a channel with back-distance n over the given value set.
// A nil src falls back to an entropy source.
func New[V comparable](n int, values []V, src engine.Source) *Channel[V] {
	if n < 0 {
		panic(fmt.Sprintf("cue: negative back-distance %d", n))
	}
	if len(values) == 0 {
		panic("cue: empty value set")
	}
	if src == nil {
		src = engine.NewEntropySource()
	}

	return &Channel[V]{
		memory:   make([]V, n+1),
		values:   values,
		lureRate: DefaultLureRate,
		src:      src,
	}
}

// NewPositions creates a position channel
func NewPositions(n int, src engine.Source) *Channel[Position] {
	return New(n, Positions, src)
}

// NewColors creates a color channel
func NewColors(n int, src engine.Source) *Channel[Color] {
	return New(n, Colors, src)
}

// NewSounds creates a sound channel
func NewSounds(n int, src engine.Source) *Channel[Sound] {
	return New(n, Sounds, src)
}

// SetLureRate overrides the forced-repeat probability, clamped to [0, 1].
func (c *Channel[V]) SetLureRate(rate float64) {
	c.lureRate = math.Max(0, math.Min(1, rate))
}

// LureRate returns the forced-repeat probability
func (c *Channel[V]) LureRate() float64 {
	return c.lureRate
}

// BackDistance returns n
func (c *Channel[V]) BackDistance() int {
	return len(c.memory) - 1
}

// Generate draws the next value, pushes it and drops the oldest.
//
// The first draw decides the lure: below the lure rate, and once Lure holds
// a real value, that value is repeated so the new cue matches. Otherwise a
// second draw picks uniformly from the value set, which may still match.
func (c *Channel[V]) Generate() V {
	var none V
	target := c.Lure()

	var next V
	if y := c.src.Float64(); y < c.lureRate && target != none {
		next = target
	} else {
		next = c.values[c.index(c.src.Float64())]
	}

	c.memory[c.head] = next
	c.head = (c.head + 1) % len(c.memory)

	return next
}

// index maps a float in [0, 1) onto the value set: floor(f * len)
func (c *Channel[V]) index(f float64) int {
	i := int(math.Floor(f * float64(len(c.values))))
	if i >= len(c.values) {
		i = len(c.values) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// IsMatch reports whether the newest value equals the value n steps back.
// It is false while the oldest slot still holds the sentinel.
func (c *Channel[V]) IsMatch() bool {
	var none V
	oldest := c.Oldest()
	if oldest == none {
		return false
	}
	return c.Current() == oldest
}

// Current returns the newest value, or None before the first Generate.
func (c *Channel[V]) Current() V {
	return c.memory[(c.head+len(c.memory)-1)%len(c.memory)]
}

// Oldest returns the value n steps behind Current.
func (c *Channel[V]) Oldest() V {
	return c.memory[c.head]
}

// Lure returns the value a forced repeat would copy: the one that will sit
// n steps behind the next generated cue.
func (c *Channel[V]) Lure() V {
	return c.memory[(c.head+1)%len(c.memory)]
}
