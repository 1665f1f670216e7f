package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// PatternStore persists tab co-occurrence patterns in the patterns table.
type PatternStore struct {
	db *sql.DB
}

// NewPatternStore returns a PatternStore backed by db.
func NewPatternStore(db *sql.DB) *PatternStore {
	return &PatternStore{db: db}
}

// Increment bumps the occurrence count for key, inserting it on first sight,
// and returns the new count.
func (s *PatternStore) Increment(ctx context.Context, key string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO patterns (key, occurrences) VALUES (?, 1)
		 ON CONFLICT(key) DO UPDATE SET occurrences = occurrences + 1, last_seen = CURRENT_TIMESTAMP
		 RETURNING occurrences`,
		key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment pattern %q: %w", key, err)
	}
	return count, nil
}

// All returns every recorded pattern with its occurrence count.
func (s *PatternStore) All(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, occurrences FROM patterns")
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		result[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patterns: %w", err)
	}
	return result, nil
}
