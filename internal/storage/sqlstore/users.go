package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"doe-studio/internal/storage"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetCredits returns the user's remaining optimization credits. Users
// without a row have storage.DefaultCredits.
func (s *Storage) GetCredits(ctx context.Context, userID string) (int, error) {
	const op = "storage.sqlstore.GetCredits"

	n, err := credits(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.DefaultCredits, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// SetCredits overwrites the balance, creating the user row if needed.
func (s *Storage) SetCredits(ctx context.Context, userID string, value int) error {
	const op = "storage.sqlstore.SetCredits"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := s.ensureUser(ctx, tx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET optimization_credits = ?, updated_at = ? WHERE id = ?`,
		value, s.unixNow(), userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func credits(ctx context.Context, q execer, userID string) (int, error) {
	var c int
	err := q.QueryRowContext(ctx, `SELECT optimization_credits FROM users WHERE id = ?`, userID).Scan(&c)
	return c, err
}

// ensureUser creates the users row with the default balance.
func (s *Storage) ensureUser(ctx context.Context, q execer, userID string) error {
	_, err := credits(ctx, q, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := s.unixNow()
	_, err = q.ExecContext(ctx, `
		INSERT INTO users (id, role, optimization_credits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, "user", storage.DefaultCredits, now, now)
	if err != nil && !isDuplicate(err) {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// consumeCredit decrements the balance if it is positive.
func (s *Storage) consumeCredit(ctx context.Context, q execer, userID string) error {
	if err := s.ensureUser(ctx, q, userID); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE users SET optimization_credits = optimization_credits - 1, updated_at = ?
		WHERE id = ? AND optimization_credits > 0`,
		s.unixNow(), userID)
	if err != nil {
		return fmt.Errorf("consume credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume credit: %w", err)
	}
	if n == 0 {
		return storage.ErrNoCredits
	}
	return nil
}
