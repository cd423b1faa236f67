package cue

// The zero value of every cue type is its None sentinel. None only seeds
// channel history and is never generated.

// Position is a cell of the 3x3 grid
type Position uint8

const (
	PositionNone Position = iota
	TopLeft
	TopCenter
	TopRight
	CenterLeft
	Center
	CenterRight
	BottomLeft
	BottomCenter
	BottomRight
)

// Positions is the closed set of generated positions
var Positions = []Position{
	TopLeft, TopCenter, TopRight,
	CenterLeft, Center, CenterRight,
	BottomLeft, BottomCenter, BottomRight,
}

var positionNames = [...]string{
	"none",
	"top-left", "top-center", "top-right",
	"center-left", "center", "center-right",
	"bottom-left", "bottom-center", "bottom-right",
}

func (p Position) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return "invalid"
}

// Row returns 1 for the top row, 0 for the middle and -1 for the bottom.
func (p Position) Row() int {
	if p == PositionNone {
		return 0
	}
	return 1 - int(p-1)/3
}

// Column returns -1 for the left column, 0 for the center and 1 for the right.
func (p Position) Column() int {
	if p == PositionNone {
		return 0
	}
	return int(p-1)%3 - 1
}

// Color is one of five tile colors
type Color uint8

const (
	ColorNone Color = iota
	ColorA
	ColorB
	ColorC
	ColorD
	ColorE
)

// Colors is the closed set of generated colors
var Colors = []Color{ColorA, ColorB, ColorC, ColorD, ColorE}

var colorNames = [...]string{"none", "a", "b", "c", "d", "e"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "invalid"
}

// Sound is one of eight spoken letters
type Sound uint8

const (
	SoundNone Sound = iota
	SoundC
	SoundH
	SoundK
	SoundL
	SoundQ
	SoundR
	SoundS
	SoundT
)

// Sounds is the closed set of generated sounds
var Sounds = []Sound{SoundC, SoundH, SoundK, SoundL, SoundQ, SoundR, SoundS, SoundT}

var soundNames = [...]string{"none", "c", "h", "k", "l", "q", "r", "s", "t"}

func (s Sound) String() string {
	if int(s) < len(soundNames) {
		return soundNames[s]
	}
	return "invalid"
}

// MarshalText renders cues by name in JSON and YAML output.
func (p Position) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (c Color) MarshalText() ([]byte, error)    { return []byte(c.String()), nil }
func (s Sound) MarshalText() ([]byte, error)    { return []byte(s.String()), nil }
