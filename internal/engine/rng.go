package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Source yields uniform floats in [0, 1). Cue channels draw every random
// decision from a Source so a session can be replayed from its seeds.
type Source interface {
	Float64() float64
}

// Seeds identifies a replayable cue stream.
type Seeds struct {
	Server string `json:"server"` // ASCII; do NOT hex-decode
	Client string `json:"client"`
}

// ByteGenerator generates deterministic bytes using HMAC-SHA256 over
// "client:nonce:round", 32 bytes per round
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a new byte generator with the given parameters
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}

	bg.generateRound()

	return bg
}

// NewSeededSource returns the replayable source for one session nonce.
func NewSeededSource(seeds Seeds, nonce uint64) *ByteGenerator {
	return NewByteGenerator(seeds.Server, seeds.Client, nonce, 0)
}

// Next returns the next byte from the generator
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// Float64 consumes exactly 4 bytes. It makes ByteGenerator a Source.
func (bg *ByteGenerator) Float64() float64 {
	b0 := bg.Next()
	b1 := bg.Next()
	b2 := bg.Next()
	b3 := bg.Next()

	return bytesToFloat([4]byte{b0, b1, b2, b3})
}

// Cursor reports how many bytes have been consumed since round 0.
func (bg *ByteGenerator) Cursor() uint64 {
	return bg.currentRound*32 + uint64(bg.currentPos)
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat converts exactly 4 bytes to a float in [0, 1):
// b0/256 + b1/256^2 + b2/256^3 + b3/256^4
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		divider := math.Pow(256, float64(i+1))
		result += float64(b) / divider
	}
	return result
}

// Floats generates the specified number of floats starting from the given cursor
func Floats(serverSeed, clientSeed string, nonce uint64, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(serverSeed, clientSeed, nonce, cursor)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = bg.Float64()
	}

	return floats
}

// EntropySource draws from crypto/rand. Sessions built on it cannot be replayed.
type EntropySource struct {
	mu  sync.Mutex
	buf [8]byte
}

// NewEntropySource creates a non-reproducible source.
func NewEntropySource() *EntropySource {
	return &EntropySource{}
}

// Float64 returns 53 random bits scaled into [0, 1).
func (s *EntropySource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := rand.Read(s.buf[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("entropy source: %v", err))
	}
	return float64(binary.BigEndian.Uint64(s.buf[:])>>11) / (1 << 53)
}

// Sequence replays a fixed list of floats, wrapping around at the end.
// Useful for fixtures where a specific branch must be taken.
type Sequence struct {
	values []float64
	pos    int
}

// NewSequence creates a Sequence over values. An empty list always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value in the sequence
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// Consumed reports how many values have been drawn.
func (s *Sequence) Consumed() int {
	return s.pos
}
