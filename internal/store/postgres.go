package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const valColumns = `id, name, plan_name, plan_year_begin, plan_year_end, status, attributes_json::text, updated_by_name, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVal(row rowScanner) (Val, error) {
	var (
		item       Val
		begin, end sql.NullTime
		attributes string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.PlanName, &begin, &end, &item.Status, &attributes, &item.UpdatedBy, &item.UpdatedAt); err != nil {
		return Val{}, err
	}
	if begin.Valid {
		t := begin.Time
		item.PlanYearBegin = &t
	}
	if end.Valid {
		t := end.Time
		item.PlanYearEnd = &t
	}
	item.Attributes = map[string]any{}
	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &item.Attributes); err != nil {
			return Val{}, fmt.Errorf("decode val attributes: %w", err)
		}
	}
	return item, nil
}

func (s *PostgresStore) ListVals(ctx context.Context) ([]Val, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+valColumns+` FROM vals ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vals: %w", err)
	}
	defer rows.Close()

	items := make([]Val, 0)
	for rows.Next() {
		item, err := scanVal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan val: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vals: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetVal(ctx context.Context, valID string) (Val, error) {
	item, err := scanVal(s.db.QueryRowContext(ctx, `SELECT `+valColumns+` FROM vals WHERE id=$1`, valID))
	if errors.Is(err, sql.ErrNoRows) {
		return Val{}, fmt.Errorf("val %s: %w", valID, ErrNotFound)
	}
	if err != nil {
		return Val{}, fmt.Errorf("get val: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertVal(ctx context.Context, item Val) error {
	status := item.Status
	if status == "" {
		status = "DRAFT"
	}
	attributes := item.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("encode val attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vals (id, name, plan_name, plan_year_begin, plan_year_end, status, attributes_json, updated_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
	`, item.ID, item.Name, item.PlanName, nullTime(item.PlanYearBegin), nullTime(item.PlanYearEnd), status, string(raw), item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert val: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSections(ctx context.Context) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, display_order FROM val_sections ORDER BY display_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	items := make([]Section, 0)
	for rows.Next() {
		var item Section
		if err := rows.Scan(&item.ID, &item.Title, &item.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return items, nil
}

// ListDetails returns every detail of a VAL ordered by section then display order.
func (s *PostgresStore) ListDetails(ctx context.Context, valID string) ([]detail.ContentBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.val_id, d.section_id, d.content, d.display_order, d.bold, d.bullet, d.center, d.tight_line_height, d.indent, d.blank_line_after
		FROM val_details d
		JOIN val_sections s ON s.id = d.section_id
		WHERE d.val_id=$1
		ORDER BY s.display_order ASC, d.section_id ASC, d.display_order ASC
	`, valID)
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}
	defer rows.Close()

	items := make([]detail.ContentBlock, 0)
	for rows.Next() {
		var (
			item                   detail.ContentBlock
			indent, blankLineAfter sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID,
			&item.ValID,
			&item.SectionID,
			&item.Content,
			&item.DisplayOrder,
			&item.Bold,
			&item.Bullet,
			&item.Center,
			&item.TightLineHeight,
			&indent,
			&blankLineAfter,
		); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		item.Indent = intPtr(indent)
		item.BlankLineAfter = intPtr(blankLineAfter)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate details: %w", err)
	}
	return items, nil
}

// ApplyChanges persists a change set in one transaction. Creates use the
// client generated identifier carried in the payload; updates and deletes are
// scoped to the VAL. An update that matches no row aborts the whole set.
func (s *PostgresStore) ApplyChanges(ctx context.Context, valID, updatedBy string, records []changes.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply changes: %w", err)
	}

	for i, record := range records {
		if err := applyRecord(ctx, tx, valID, record); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply change %d (%s): %w", i, record.Action, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE vals SET updated_at=NOW(), updated_by_name=$2 WHERE id=$1`, valID, updatedBy); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("touch val: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply changes: %w", err)
	}
	return nil
}

func applyRecord(ctx context.Context, tx *sql.Tx, valID string, record changes.Record) error {
	switch record.Action {
	case changes.ActionDelete:
		_, err := tx.ExecContext(ctx, `DELETE FROM val_details WHERE id=$1 AND val_id=$2`, record.DetailID, valID)
		return err
	case changes.ActionCreate:
		p := record.Payload
		if p == nil || p.ID == "" {
			return errors.New("create without payload id")
		}
		sectionID := p.SectionID
		if sectionID == "" {
			sectionID = record.SectionID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO val_details (id, val_id, section_id, content, display_order, bold, bullet, center, tight_line_height, indent, blank_line_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, p.ID, valID, sectionID, p.Content, p.DisplayOrder, p.Bold, p.Bullet, p.Center, p.TightLineHeight, nullInt(p.Indent), nullInt(p.BlankLineAfter))
		return err
	case changes.ActionUpdate:
		p := record.Payload
		if p == nil {
			return errors.New("update without payload")
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE val_details
			SET content=$3, display_order=$4, bold=$5, bullet=$6, center=$7, tight_line_height=$8, indent=$9, blank_line_after=$10, updated_at=NOW()
			WHERE id=$1 AND val_id=$2
		`, record.DetailID, valID, p.Content, p.DisplayOrder, p.Bold, p.Bullet, p.Center, p.TightLineHeight, nullInt(p.Indent), nullInt(p.BlankLineAfter))
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("detail %s: %w", record.DetailID, ErrNotFound)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", record.Action)
	}
}

func (s *PostgresStore) ListTemplates(ctx context.Context, sectionID string) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section_id, title, content, display_order, bold, bullet, center, tight_line_height, indent, blank_line_after
		FROM section_templates
		WHERE ($1 = '' OR section_id = $1)
		ORDER BY section_id ASC, display_order ASC, id ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		item, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	item, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT id, section_id, title, content, display_order, bold, bullet, center, tight_line_height, indent, blank_line_after
		FROM section_templates
		WHERE id=$1
	`, templateID))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("template %s: %w", templateID, ErrNotFound)
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertTemplate(ctx context.Context, item Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO section_templates (id, section_id, title, content, display_order, bold, bullet, center, tight_line_height, indent, blank_line_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.SectionID, item.Title, item.Content, item.DisplayOrder, item.Bold, item.Bullet, item.Center, item.TightLineHeight, nullInt(item.Indent), nullInt(item.BlankLineAfter))
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func scanTemplate(row rowScanner) (Template, error) {
	var (
		item                   Template
		indent, blankLineAfter sql.NullInt64
	)
	if err := row.Scan(
		&item.ID,
		&item.SectionID,
		&item.Title,
		&item.Content,
		&item.DisplayOrder,
		&item.Bold,
		&item.Bullet,
		&item.Center,
		&item.TightLineHeight,
		&indent,
		&blankLineAfter,
	); err != nil {
		return Template{}, err
	}
	item.Indent = intPtr(indent)
	item.BlankLineAfter = intPtr(blankLineAfter)
	return item, nil
}

func (s *PostgresStore) ListBracketMappings(ctx context.Context) ([]bracket.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag_name, is_system_tag, object_path FROM bracket_mappings ORDER BY tag_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bracket mappings: %w", err)
	}
	defer rows.Close()

	items := make([]bracket.Mapping, 0)
	for rows.Next() {
		var item bracket.Mapping
		if err := rows.Scan(&item.TagName, &item.IsSystemTag, &item.ObjectPath); err != nil {
			return nil, fmt.Errorf("scan bracket mapping: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bracket mappings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertBracketMapping(ctx context.Context, item bracket.Mapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bracket_mappings (tag_name, is_system_tag, object_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (tag_name) DO UPDATE SET is_system_tag=EXCLUDED.is_system_tag, object_path=EXCLUDED.object_path
	`, item.TagName, item.IsSystemTag, item.ObjectPath)
	if err != nil {
		return fmt.Errorf("upsert bracket mapping: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
