package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"doe-studio/internal/storage"
)

const designColumns = `id, user_id, name, mode, status, parameters, preview_data,
	optimization_result, phase_map_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDesign(row rowScanner) (*storage.Design, error) {
	var (
		d                       storage.Design
		params, preview, result sql.NullString
		phaseMapURL             sql.NullString
		createdAt, updatedAt    int64
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Mode, &d.Status,
		&params, &preview, &result, &phaseMapURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.Parameters = rawJSON(params)
	d.PreviewData = rawJSON(preview)
	d.OptimizationResult = rawJSON(result)
	if phaseMapURL.Valid {
		d.PhaseMapURL = &phaseMapURL.String
	}
	d.CreatedAt = fromUnix(createdAt)
	d.UpdatedAt = fromUnix(updatedAt)
	return &d, nil
}

// ListDesigns returns the user's designs, most recently updated first.
func (s *Storage) ListDesigns(ctx context.Context, userID string) ([]storage.Design, error) {
	const op = "storage.sqlstore.ListDesigns"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+designColumns+` FROM doe_designs WHERE user_id = ? ORDER BY updated_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	designs := []storage.Design{}
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		designs = append(designs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return designs, nil
}

func (s *Storage) GetDesign(ctx context.Context, id int64, userID string) (*storage.Design, error) {
	const op = "storage.sqlstore.GetDesign"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+designColumns+` FROM doe_designs WHERE id = ? AND user_id = ?`, id, userID)
	d, err := scanDesign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: design %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

func (s *Storage) CreateDesign(ctx context.Context, d storage.Design) (int64, error) {
	const op = "storage.sqlstore.CreateDesign"

	if d.Status == "" {
		d.Status = storage.StatusDraft
	}
	now := s.unixNow()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO doe_designs (user_id, name, mode, status, parameters, preview_data,
			optimization_result, phase_map_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Name, d.Mode, d.Status,
		nullJSON(d.Parameters), nullJSON(d.PreviewData), nullJSON(d.OptimizationResult),
		nullString(d.PhaseMapURL), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return id, nil
}

func (s *Storage) UpdateDesign(ctx context.Context, id int64, userID string, p storage.DesignPatch) error {
	const op = "storage.sqlstore.UpdateDesign"

	var set setClause
	if p.Name != nil {
		set.add("name", *p.Name)
	}
	if p.Mode != nil {
		set.add("mode", *p.Mode)
	}
	if p.Status != nil {
		set.add("status", *p.Status)
	}
	if p.Parameters != nil {
		set.add("parameters", nullJSON(p.Parameters))
	}
	if p.PreviewData != nil {
		set.add("preview_data", nullJSON(p.PreviewData))
	}
	if p.OptimizationResult != nil {
		set.add("optimization_result", nullJSON(p.OptimizationResult))
	}
	if p.PhaseMapURL != nil {
		set.add("phase_map_url", *p.PhaseMapURL)
	}
	set.add("updated_at", s.unixNow())

	args := append(set.args, id, userID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE doe_designs SET `+set.String()+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res, id)
}

func (s *Storage) DeleteDesign(ctx context.Context, id int64, userID string) error {
	const op = "storage.sqlstore.DeleteDesign"

	res, err := s.db.ExecContext(ctx, `DELETE FROM doe_designs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res, id)
}

// CompleteOptimization stores a finished optimization and charges one
// credit in a single transaction. The result and status are replaced in
// one UPDATE, so readers see either the previous or the new result.
// Without credits nothing is written and storage.ErrNoCredits is returned.
func (s *Storage) CompleteOptimization(ctx context.Context, id int64, userID string, result json.RawMessage) error {
	const op = "storage.sqlstore.CompleteOptimization"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := s.consumeCredit(ctx, tx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE doe_designs
		SET optimization_result = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullJSON(result), storage.StatusOptimized, s.unixNow(), id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := expectRow(op, res, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func expectRow(op string, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: id %d: %w", op, id, storage.ErrNotFound)
	}
	return nil
}
