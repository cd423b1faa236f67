package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MemoryDSN keeps the history in process memory; nothing survives exit.
const MemoryDSN = ":memory:"

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// NewSQLiteDB opens a SQLite database. An empty dsn selects MemoryDSN.
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// every pooled connection to :memory: would see its own empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{
		db:     db,
		logger: log.New(io.Discard, "[STORE] ", log.LstdFlags),
		now:    time.Now,
	}, nil
}

// SetLogger enables store logging
func (s *SQLiteDB) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. It is safe to run repeatedly.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			n INTEGER NOT NULL,
			total_rounds INTEGER NOT NULL,
			round_duration_ms INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			wrong INTEGER NOT NULL,
			f1 REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_n ON scores(n, seq DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("store: migration failed: %w", err)
		}
	}

	return nil
}

// SaveScore inserts a score, assigning ID and CreatedAt when unset
func (s *SQLiteDB) SaveScore(score *GameScore) error {
	if score.ID == "" {
		score.ID = uuid.New().String()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = s.now()
	}

	_, err := s.db.Exec(`INSERT INTO scores (
		id, n, total_rounds, round_duration_ms, correct, wrong, f1, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		score.ID, score.N, score.TotalRounds, score.RoundDuration.Milliseconds(),
		score.Correct, score.Wrong, float64(score.F1), score.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: failed to save score: %w", err)
	}

	s.logger.Printf("saved score %s (n=%d f1=%.3f)", score.ID, score.N, score.F1)
	return nil
}

const scoreColumns = `id, n, total_rounds, round_duration_ms, correct, wrong, f1, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (GameScore, error) {
	var (
		score      GameScore
		durationMs int64
		f1         float64
		createdAt  int64
	)
	err := row.Scan(&score.ID, &score.N, &score.TotalRounds, &durationMs,
		&score.Correct, &score.Wrong, &f1, &createdAt)
	if err != nil {
		return GameScore{}, err
	}

	score.RoundDuration = time.Duration(durationMs) * time.Millisecond
	score.F1 = float32(f1)
	score.CreatedAt = time.Unix(0, createdAt)
	return score, nil
}

// GetScore retrieves a score by ID
func (s *SQLiteDB) GetScore(id string) (*GameScore, error) {
	row := s.db.QueryRow(`SELECT `+scoreColumns+` FROM scores WHERE id = ?`, id)

	score, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to get score: %w", err)
	}
	return &score, nil
}

// ListScores retrieves scores with pagination and filtering, newest first
func (s *SQLiteDB) ListScores(query ScoresQuery) (*ScoresList, error) {
	query = query.normalize()

	whereClause := ""
	args := []interface{}{}
	if query.N > 0 {
		whereClause = "WHERE n = ?"
		args = append(args, query.N)
	}

	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scores "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("store: failed to get total count: %w", err)
	}

	offset := (query.Page - 1) * query.PerPage
	args = append(args, query.PerPage, offset)

	scores, err := s.query(`SELECT `+scoreColumns+` FROM scores `+whereClause+`
		ORDER BY seq DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}

	return &ScoresList{
		Scores:     scores,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages(totalCount, query.PerPage),
	}, nil
}

// Latest returns up to limit scores, newest first. A limit <= 0 returns all.
func (s *SQLiteDB) Latest(limit int) ([]GameScore, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(`SELECT `+scoreColumns+` FROM scores ORDER BY seq DESC LIMIT ?`, limit)
}

func (s *SQLiteDB) query(q string, args ...interface{}) ([]GameScore, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := []GameScore{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan score: %w", err)
		}
		scores = append(scores, score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating scores: %w", err)
	}
	return scores, nil
}

// Clear deletes every stored score
func (s *SQLiteDB) Clear() error {
	res, err := s.db.Exec(`DELETE FROM scores`)
	if err != nil {
		return fmt.Errorf("store: failed to clear scores: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Printf("cleared %d scores", n)
	}
	return nil
}
