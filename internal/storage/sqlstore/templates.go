package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"doe-studio/internal/storage"
)

const templateColumns = `id, name, description, mode, category, parameters, thumbnail_url,
	is_active, display_order, created_at, updated_at`

func scanTemplate(row rowScanner) (*storage.Template, error) {
	var (
		t                            storage.Template
		description, category, thumb sql.NullString
		params                       sql.NullString
		createdAt, updatedAt         int64
	)
	err := row.Scan(&t.ID, &t.Name, &description, &t.Mode, &category, &params, &thumb,
		&t.IsActive, &t.DisplayOrder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if category.Valid {
		t.Category = &category.String
	}
	if thumb.Valid {
		t.ThumbnailURL = &thumb.String
	}
	t.Parameters = rawJSON(params)
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return &t, nil
}

// ListTemplates returns templates in display order. Inactive templates are
// included only when all is set.
func (s *Storage) ListTemplates(ctx context.Context, all bool) ([]storage.Template, error) {
	const op = "storage.sqlstore.ListTemplates"

	query := `SELECT ` + templateColumns + ` FROM doe_templates`
	if !all {
		query += ` WHERE is_active = ?`
	}
	query += ` ORDER BY display_order, id`

	var args []any
	if !all {
		args = append(args, true)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	templates := []storage.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return templates, nil
}

func (s *Storage) GetTemplate(ctx context.Context, id int64) (*storage.Template, error) {
	const op = "storage.sqlstore.GetTemplate"

	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM doe_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: template %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *Storage) CreateTemplate(ctx context.Context, t storage.Template) (int64, error) {
	const op = "storage.sqlstore.CreateTemplate"

	now := s.unixNow()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO doe_templates (name, description, mode, category, parameters, thumbnail_url,
			is_active, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, nullString(t.Description), t.Mode, nullString(t.Category), string(t.Parameters),
		nullString(t.ThumbnailURL), t.IsActive, t.DisplayOrder, now, now,
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

func (s *Storage) UpdateTemplate(ctx context.Context, id int64, p storage.TemplatePatch) error {
	const op = "storage.sqlstore.UpdateTemplate"

	var set setClause
	if p.Name != nil {
		set.add("name", *p.Name)
	}
	if p.Description != nil {
		set.add("description", *p.Description)
	}
	if p.Mode != nil {
		set.add("mode", *p.Mode)
	}
	if p.Category != nil {
		set.add("category", *p.Category)
	}
	if p.Parameters != nil {
		set.add("parameters", string(p.Parameters))
	}
	if p.ThumbnailURL != nil {
		set.add("thumbnail_url", *p.ThumbnailURL)
	}
	if p.IsActive != nil {
		set.add("is_active", *p.IsActive)
	}
	if p.DisplayOrder != nil {
		set.add("display_order", *p.DisplayOrder)
	}
	set.add("updated_at", s.unixNow())

	args := append(set.args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE doe_templates SET `+set.String()+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res, id)
}

func (s *Storage) DeleteTemplate(ctx context.Context, id int64) error {
	const op = "storage.sqlstore.DeleteTemplate"

	res, err := s.db.ExecContext(ctx, `DELETE FROM doe_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res, id)
}
