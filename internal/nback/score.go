package nback

import "fmt"

// Outcome classifies one modality in one round
type Outcome int

const (
	TruePositive Outcome = iota
	FalsePositive
	FalseNegative
	TrueNegative
)

func (o Outcome) String() string {
	switch o {
	case TruePositive:
		return "true_positive"
	case FalsePositive:
		return "false_positive"
	case FalseNegative:
		return "false_negative"
	case TrueNegative:
		return "true_negative"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps (answered, match) onto the confusion matrix
func Classify(answered, match bool) Outcome {
	switch {
	case answered && match:
		return TruePositive
	case answered:
		return FalsePositive
	case match:
		return FalseNegative
	default:
		return TrueNegative
	}
}

// Score is a confusion-matrix accumulator. Counters only grow until Reset.
type Score struct {
	truePos  int
	falsePos int
	falseNeg int
	trueNeg  int
}

// ScoreFrom builds a Score from raw counts, e.g. when replaying history.
func ScoreFrom(tp, fp, fn, tn int) Score {
	return Score{truePos: tp, falsePos: fp, falseNeg: fn, trueNeg: tn}
}

// Record increments the counter for o
func (s *Score) Record(o Outcome) {
	switch o {
	case TruePositive:
		s.truePos++
	case FalsePositive:
		s.falsePos++
	case FalseNegative:
		s.falseNeg++
	case TrueNegative:
		s.trueNeg++
	default:
		panic(fmt.Sprintf("nback: cannot record %v", o))
	}
}

func (s Score) TruePositives() int  { return s.truePos }
func (s Score) FalsePositives() int { return s.falsePos }
func (s Score) FalseNegatives() int { return s.falseNeg }
func (s Score) TrueNegatives() int  { return s.trueNeg }

// Correct is tp + tn
func (s Score) Correct() int {
	return s.truePos + s.trueNeg
}

// Wrong is fp + fn
func (s Score) Wrong() int {
	return s.falsePos + s.falseNeg
}

// F1 returns tp / (tp + (fp+fn)/2). With no positive ground truth yet
// (tp+fn == 0) there was nothing to miss, so the score is 1.
func (s Score) F1() float32 {
	if s.truePos+s.falseNeg == 0 {
		return 1.0
	}
	return float32(s.truePos) / (float32(s.truePos) + 0.5*(float32(s.falsePos)+float32(s.falseNeg)))
}

// F1Percent truncates F1 to a whole percentage
func (s Score) F1Percent() int {
	return Percent(s.F1())
}

// Percent truncates an F1 value, such as a recorded GameScore.F1, to a
// whole percentage
func Percent(f1 float32) int {
	return int(f1 * 100)
}

// Reset zeroes every counter
func (s *Score) Reset() {
	*s = Score{}
}

// ScoreSnapshot is the serializable view of a Score
type ScoreSnapshot struct {
	TruePositives  int     `json:"tp"`
	FalsePositives int     `json:"fp"`
	FalseNegatives int     `json:"fn"`
	TrueNegatives  int     `json:"tn"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	F1             float32 `json:"f1"`
}

// Snapshot copies the counters and derived values
func (s Score) Snapshot() ScoreSnapshot {
	return ScoreSnapshot{
		TruePositives:  s.truePos,
		FalsePositives: s.falsePos,
		FalseNegatives: s.falseNeg,
		TrueNegatives:  s.trueNeg,
		Correct:        s.Correct(),
		Wrong:          s.Wrong(),
		F1:             s.F1(),
	}
}
