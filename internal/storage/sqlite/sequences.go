package sqlite

import (
	"context"
	"fmt"
)

// NextSequence increments the named counter in a single UPSERT statement.
// A missing counter is inserted with value 1.
func (s *SQLiteStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`,
		name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %q: %w", name, err)
	}
	return value, nil
}
