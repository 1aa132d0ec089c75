package sqlstore

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
)

// Встроенные шаблоны, которые получает пустая база.
//
//go:embed seed/templates.json
var seedTemplates []byte

type seedTemplate struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        string          `json:"mode"`
	Category    string          `json:"category"`
	Parameters  json.RawMessage `json:"parameters"`
}

// SeedTemplates fills an empty doe_templates table with the built-in
// templates and returns how many were added. A table with any row, active
// or not, is left alone.
func (s *Storage) SeedTemplates(ctx context.Context) (int, error) {
	const op = "storage.sqlstore.SeedTemplates"

	var items []seedTemplate
	if err := json.Unmarshal(seedTemplates, &items); err != nil {
		return 0, fmt.Errorf("%s: decode seed: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM doe_templates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: count: %w", op, err)
	}
	if count > 0 {
		return 0, nil
	}

	now := s.unixNow()
	for i, it := range items {
		var params bytes.Buffer
		if err := json.Compact(&params, it.Parameters); err != nil {
			return 0, fmt.Errorf("%s: %s: %w", op, it.Name, err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO doe_templates (name, description, mode, category, parameters, thumbnail_url,
				is_active, display_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, ?)`,
			it.Name, it.Description, it.Mode, it.Category, params.String(), true, i, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("%s: insert %q: %w", op, it.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return len(items), nil
}
