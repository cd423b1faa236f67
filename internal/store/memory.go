package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDB is a DB over an in-process slice, oldest first
type MemoryDB struct {
	mu     sync.RWMutex
	scores []GameScore
	now    func() time.Time
}

// NewMemoryDB creates an empty history
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{now: time.Now}
}

func (m *MemoryDB) Close() error   { return nil }
func (m *MemoryDB) Migrate() error { return nil }

func (m *MemoryDB) SaveScore(score *GameScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if score.ID == "" {
		score.ID = uuid.New().String()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = m.now()
	}
	for _, s := range m.scores {
		if s.ID == score.ID {
			return fmt.Errorf("store: failed to save score: duplicate id %s", score.ID)
		}
	}

	m.scores = append(m.scores, *score)
	return nil
}

func (m *MemoryDB) GetScore(id string) (*GameScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.scores {
		if s.ID == id {
			score := s
			return &score, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *MemoryDB) ListScores(query ScoresQuery) (*ScoresList, error) {
	query = query.normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []GameScore
	for i := len(m.scores) - 1; i >= 0; i-- {
		if query.N > 0 && m.scores[i].N != query.N {
			continue
		}
		filtered = append(filtered, m.scores[i])
	}

	offset := (query.Page - 1) * query.PerPage
	page := []GameScore{}
	if offset < len(filtered) {
		end := offset + query.PerPage
		if end > len(filtered) {
			end = len(filtered)
		}
		page = append(page, filtered[offset:end]...)
	}

	return &ScoresList{
		Scores:     page,
		TotalCount: len(filtered),
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages(len(filtered), query.PerPage),
	}, nil
}

func (m *MemoryDB) Latest(limit int) ([]GameScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.scores) {
		limit = len(m.scores)
	}
	out := make([]GameScore, 0, limit)
	for i := len(m.scores) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.scores[i])
	}
	return out, nil
}

func (m *MemoryDB) Clear() error {
	m.mu.Lock()
	m.scores = nil
	m.mu.Unlock()
	return nil
}
