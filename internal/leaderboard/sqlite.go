package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pigbots/pigbots/internal/pig"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS completions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	player       TEXT    NOT NULL,
	total_score  INTEGER NOT NULL,
	rounds       INTEGER NOT NULL,
	turns        INTEGER NOT NULL,
	completed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completions_player ON completions (player);
`

// SQLite is a leaderboard persisted in a local SQLite database. Only
// completed games reach the store; in-flight game records never do.
type SQLite struct {
	db        *sql.DB
	threshold int
}

// Entry is one row of the top-scores listing.
type Entry struct {
	Player     string `json:"player"`
	TotalScore int    `json:"totalScore"`
	Rounds     int    `json:"rounds"`
	Turns      int    `json:"turns"`
}

// NewSQLite opens (creating if needed) a SQLite-backed leaderboard at
// path. The caller is responsible for calling Close.
func NewSQLite(ctx context.Context, path string, threshold int) (*SQLite, error) {
	if threshold <= 0 {
		threshold = DefaultWinThreshold
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leaderboard database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create leaderboard schema: %w", err)
	}

	return &SQLite{db: db, threshold: threshold}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) WinThreshold() int {
	return s.threshold
}

func (s *SQLite) ReportCompletion(ctx context.Context, player string, c pig.Completion) error {
	if c.TotalScore < s.threshold {
		return fmt.Errorf("%w: score %d below threshold %d", ErrRejected, c.TotalScore, s.threshold)
	}

	q := `INSERT INTO completions (player, total_score, rounds, turns, completed_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, player, c.TotalScore, c.Rounds, c.Turns, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

func (s *SQLite) CompletedGamesFor(ctx context.Context, player string) (int, bool, error) {
	var count int
	q := `SELECT COUNT(*) FROM completions WHERE player = ?`
	if err := s.db.QueryRowContext(ctx, q, player).Scan(&count); err != nil {
		return 0, false, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, count > 0, nil
}

// TopScores returns up to limit completions ordered best-first: highest
// score, then fewest rounds.
func (s *SQLite) TopScores(ctx context.Context, limit int) ([]Entry, error) {
	q := `
	SELECT player, total_score, rounds, turns FROM completions
	ORDER BY total_score DESC, rounds ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Player, &e.TotalScore, &e.Rounds, &e.Turns); err != nil {
			return nil, fmt.Errorf("failed to scan top score row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
