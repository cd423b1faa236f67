package store

import (
	"github.com/shopspring/decimal"
)

// Summary aggregates a score history
type Summary struct {
	Sessions int             `json:"sessions"`
	Correct  int             `json:"correct"`
	Wrong    int             `json:"wrong"`
	MeanF1   decimal.Decimal `json:"mean_f1"`
	BestF1   decimal.Decimal `json:"best_f1"`
	HighestN int             `json:"highest_n"`
}

const summaryPlaces = 4

// Summarize folds scores into a Summary. F1 values are rounded to four places.
func Summarize(scores []GameScore) Summary {
	var sum Summary
	if len(scores) == 0 {
		return sum
	}

	total := decimal.Zero
	best := decimal.NewFromFloat32(scores[0].F1)
	for _, s := range scores {
		f1 := decimal.NewFromFloat32(s.F1)
		total = total.Add(f1)
		if f1.GreaterThan(best) {
			best = f1
		}
		if s.N > sum.HighestN {
			sum.HighestN = s.N
		}
		sum.Correct += s.Correct
		sum.Wrong += s.Wrong
	}

	sum.Sessions = len(scores)
	sum.MeanF1 = total.Div(decimal.NewFromInt(int64(len(scores)))).Round(summaryPlaces)
	sum.BestF1 = best.Round(summaryPlaces)
	return sum
}
