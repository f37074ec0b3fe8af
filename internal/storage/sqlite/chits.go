package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const chitColumns = `id, name, total_amount, tenure, installment_amount, start_date, end_date,
	balance_amount, slots, version, created_at`

// CreateChit persists a new chit to the database.
func (s *SQLiteStore) CreateChit(ctx context.Context, chit *models.Chit) error {
	if chit.CreatedAt == 0 {
		chit.CreatedAt = time.Now().Unix()
	}

	slots, err := json.Marshal(chit.Slots)
	if err != nil {
		return fmt.Errorf("failed to encode slots: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chits (`+chitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		chit.ID, chit.Name, chit.TotalAmount, chit.Tenure, chit.InstallmentAmount,
		chit.StartDate, chit.EndDate, chit.BalanceAmount, string(slots), chit.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("chit %q: %w", chit.Name, storage.ErrDuplicate)
	}
	if isPrimaryKeyViolation(err) {
		return fmt.Errorf("chit id %d: %w", chit.ID, storage.ErrIDConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert chit: %w", err)
	}

	chit.Version = 1
	return nil
}

// GetChitByName retrieves a chit by name.
func (s *SQLiteStore) GetChitByName(ctx context.Context, name string) (*models.Chit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chitColumns+` FROM chits WHERE name = ?`, name)
	chit, err := scanChit(row)
	if err == sql.ErrNoRows {
		return nil, nil // Chit not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chit by name: %w", err)
	}
	return chit, nil
}

// GetChitByID retrieves a chit by ID.
func (s *SQLiteStore) GetChitByID(ctx context.Context, id int64) (*models.Chit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chitColumns+` FROM chits WHERE id = ?`, id)
	chit, err := scanChit(row)
	if err == sql.ErrNoRows {
		return nil, nil // Chit not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chit by ID: %w", err)
	}
	return chit, nil
}

// ListChits retrieves all chits ordered by ID.
func (s *SQLiteStore) ListChits(ctx context.Context) ([]*models.Chit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chitColumns+` FROM chits ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chits: %w", err)
	}
	defer rows.Close()

	var chits []*models.Chit
	for rows.Next() {
		chit, err := scanChit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chit: %w", err)
		}
		chits = append(chits, chit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chits: %w", err)
	}

	return chits, nil
}

// CountChits returns the number of chits.
func (s *SQLiteStore) CountChits(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chits`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chits: %w", err)
	}
	return count, nil
}

// MaxChitID returns the highest chit ID, or 0 when there are no chits.
func (s *SQLiteStore) MaxChitID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM chits`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read max chit id: %w", err)
	}
	return id, nil
}

// SaveChit writes the chit's balance and slots if its version is current.
func (s *SQLiteStore) SaveChit(ctx context.Context, chit *models.Chit) error {
	slots, err := json.Marshal(chit.Slots)
	if err != nil {
		return fmt.Errorf("failed to encode slots: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE chits SET balance_amount = ?, slots = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		chit.BalanceAmount, string(slots), chit.ID, chit.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update chit: %w", err)
	}

	if err := affectedOrNotFound(res); err != nil {
		if err != storage.ErrNotFound {
			return err
		}
		existing, getErr := s.GetChitByID(ctx, chit.ID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("chit %d: %w", chit.ID, storage.ErrNotFound)
		}
		return fmt.Errorf("chit %d at version %d: %w", chit.ID, chit.Version, storage.ErrVersionConflict)
	}

	chit.Version++
	return nil
}

// DeleteChitByName removes a chit by name.
func (s *SQLiteStore) DeleteChitByName(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chits WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete chit: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return fmt.Errorf("chit %q: %w", name, err)
	}
	return nil
}

// DeleteAllChits removes every chit.
func (s *SQLiteStore) DeleteAllChits(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chits`); err != nil {
		return fmt.Errorf("failed to delete chits: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChit(row rowScanner) (*models.Chit, error) {
	chit := &models.Chit{}
	var slots string
	err := row.Scan(
		&chit.ID,
		&chit.Name,
		&chit.TotalAmount,
		&chit.Tenure,
		&chit.InstallmentAmount,
		&chit.StartDate,
		&chit.EndDate,
		&chit.BalanceAmount,
		&slots,
		&chit.Version,
		&chit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(slots), &chit.Slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots of chit %d: %w", chit.ID, err)
	}
	return chit, nil
}
