package nback

// Difficulty thresholds on the session F1. Tunable.
const (
	DefaultRaiseThreshold = 0.80
	DefaultLowerThreshold = 0.50
	MinBackDistance       = 1
)

// Policy picks the back-distance for the next session
type Policy interface {
	Next(n int, s Score) (int, error)
}

// Staircase raises N after a strong session and lowers it after a weak one
type Staircase struct {
	Raise float32
	Lower float32
	Min   int
	// Max of zero leaves N unbounded.
	Max int
}

// DefaultStaircase returns the 0.80 / 0.50 staircase
func DefaultStaircase() Staircase {
	return Staircase{
		Raise: DefaultRaiseThreshold,
		Lower: DefaultLowerThreshold,
		Min:   MinBackDistance,
	}
}

// Next applies the staircase to the score of the session just played
func (st Staircase) Next(n int, s Score) (int, error) {
	minN := st.Min
	if minN < MinBackDistance {
		minN = MinBackDistance
	}

	f1 := s.F1()
	switch {
	case f1 >= st.Raise:
		n++
	case f1 <= st.Lower:
		n--
	}

	if n < minN {
		n = minN
	}
	if st.Max > 0 && n > st.Max {
		n = st.Max
	}
	return n, nil
}
