package store

import (
	"errors"
	"time"

	"github.com/MJE43/nback-trainer/internal/nback"
)

// ErrNotFound is returned when a score id is unknown
var ErrNotFound = errors.New("store: score not found")

// DB is the score history of finished sessions
type DB interface {
	Close() error
	Migrate() error
	SaveScore(score *GameScore) error
	GetScore(id string) (*GameScore, error)
	ListScores(query ScoresQuery) (*ScoresList, error)
	Latest(limit int) ([]GameScore, error)
	Clear() error
}

// GameScore is the record kept for one finished session
type GameScore struct {
	ID            string        `json:"id" db:"id"`
	N             int           `json:"n" db:"n"`
	TotalRounds   int           `json:"total_rounds" db:"total_rounds"`
	RoundDuration time.Duration `json:"round_duration" db:"round_duration_ms"`
	Correct       int           `json:"correct" db:"correct"`
	Wrong         int           `json:"wrong" db:"wrong"`
	F1            float32       `json:"f1" db:"f1"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// FromResult builds an unsaved GameScore from an engine result
func FromResult(r nback.Result) *GameScore {
	return &GameScore{
		N:             r.BackDistance,
		TotalRounds:   r.TotalRounds,
		RoundDuration: r.RoundDuration,
		Correct:       r.Correct,
		Wrong:         r.Wrong,
		F1:            r.F1,
	}
}

// ScoresQuery represents query parameters for listing scores
type ScoresQuery struct {
	N       int `json:"n,omitempty"` // 0 lists every back-distance
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// ScoresList represents a paginated scores response, newest first
type ScoresList struct {
	Scores     []GameScore `json:"scores"`
	TotalCount int         `json:"totalCount"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
}

const defaultPerPage = 50

func (q ScoresQuery) normalize() ScoresQuery {
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

func totalPages(count, perPage int) int {
	return (count + perPage - 1) / perPage
}
