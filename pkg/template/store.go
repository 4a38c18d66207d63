package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/db"
)

// Store is raw-SQL CRUD against the tenant schema's templates and
// template_versions tables. Every call expects the caller to have already
// bound and acquired a schema-scoped connection (C1).
type Store struct {
	db db.DBTX
}

// NewStore wraps conn with the template store's queries.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const templateColumns = `id, customer_id, name, code, description, current_version, metadata, created_at, updated_at`

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.CustomerID, &t.Name, &t.Code, &t.Description, &t.CurrentVersion, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, fmt.Errorf("template: %w", apperr.ErrNotFound)
		}
		return Template{}, fmt.Errorf("scanning template: %w", err)
	}
	return t, nil
}

const versionColumns = `id, template_id, version, html_content, field_schema, css_styles, settings, status, created_by, created_at`

func scanVersion(row pgx.Row) (TemplateVersion, error) {
	var v TemplateVersion
	err := row.Scan(&v.ID, &v.TemplateID, &v.Version, &v.HTMLContent, &v.FieldSchema, &v.CSSStyles, &v.Settings, &v.Status, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TemplateVersion{}, fmt.Errorf("template version: %w", apperr.ErrNotFound)
		}
		return TemplateVersion{}, fmt.Errorf("scanning template version: %w", err)
	}
	return v, nil
}

// CreateTemplate inserts a new template with currentVersion = 0.
func (s *Store) CreateTemplate(ctx context.Context, p CreateTemplateParams) (Template, error) {
	if p.Metadata == nil {
		p.Metadata = []byte(`{}`)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO templates (customer_id, name, code, description, current_version, metadata)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING `+templateColumns,
		p.CustomerID, p.Name, p.Code, p.Description, p.Metadata,
	)
	return scanTemplate(row)
}

// GetTemplate fetches a template by id.
func (s *Store) GetTemplate(ctx context.Context, id int64) (Template, error) {
	row := s.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	return scanTemplate(row)
}

// GetTemplateByCode fetches a template by its unique-within-tenant code.
func (s *Store) GetTemplateByCode(ctx context.Context, code string) (Template, error) {
	row := s.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE code = $1`, code)
	return scanTemplate(row)
}

// ListTemplates returns every template for the tenant, ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.Query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template; its versions cascade via FK.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	return nil
}

// CreateVersion assigns version server-side as 1+max(existing) and inserts
// a DRAFT version row.
func (s *Store) CreateVersion(ctx context.Context, p CreateVersionParams) (TemplateVersion, error) {
	if err := Validate(p); err != nil {
		return TemplateVersion{}, err
	}
	if p.Settings == nil {
		p.Settings = []byte(`{}`)
	}

	var next int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM template_versions WHERE template_id = $1`,
		p.TemplateID,
	).Scan(&next)
	if err != nil {
		return TemplateVersion{}, fmt.Errorf("computing next version: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO template_versions (id, template_id, version, html_content, field_schema, css_styles, settings, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+versionColumns,
		uuid.New(), p.TemplateID, next, p.HTMLContent, p.FieldSchema, p.CSSStyles, p.Settings, StatusDraft, p.CreatedBy,
	)
	return scanVersion(row)
}

// ListVersions returns every version of a template, newest first.
func (s *Store) ListVersions(ctx context.Context, templateID int64) ([]TemplateVersion, error) {
	rows, err := s.db.Query(ctx, `SELECT `+versionColumns+` FROM template_versions WHERE template_id = $1 ORDER BY version DESC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var out []TemplateVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindVersion fetches a version by its UUID.
func (s *Store) FindVersion(ctx context.Context, id uuid.UUID) (TemplateVersion, error) {
	row := s.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM template_versions WHERE id = $1`, id)
	return scanVersion(row)
}

// FindPublishedVersion fetches a version only if it is currently PUBLISHED —
// the only status new certificates may reference.
func (s *Store) FindPublishedVersion(ctx context.Context, id uuid.UUID) (TemplateVersion, error) {
	v, err := s.FindVersion(ctx, id)
	if err != nil {
		return TemplateVersion{}, err
	}
	if v.Status != StatusPublished {
		return TemplateVersion{}, fmt.Errorf("template version %s is %s, not PUBLISHED: %w", id, v.Status, apperr.ErrValidation)
	}
	return v, nil
}

// referencedByCertificate reports whether any certificate references versionID.
func (s *Store) referencedByCertificate(ctx context.Context, versionID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM certificates WHERE template_version_id = $1)`, versionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking version references: %w", err)
	}
	return exists, nil
}

// Publish transitions a DRAFT version to PUBLISHED and atomically sets the
// owning template's currentVersion, inside one transaction.
func (s *Store) Publish(ctx context.Context, tx pgx.Tx, versionID uuid.UUID) (TemplateVersion, error) {
	var v TemplateVersion
	row := tx.QueryRow(ctx, `SELECT `+versionColumns+` FROM template_versions WHERE id = $1 FOR UPDATE`, versionID)
	v, err := scanVersion(row)
	if err != nil {
		return TemplateVersion{}, err
	}
	if v.Status != StatusDraft {
		return TemplateVersion{}, fmt.Errorf("cannot publish version in status %s: %w", v.Status, apperr.ErrIllegalTransition)
	}

	row = tx.QueryRow(ctx, `UPDATE template_versions SET status = $1 WHERE id = $2 RETURNING `+versionColumns, StatusPublished, versionID)
	v, err = scanVersion(row)
	if err != nil {
		return TemplateVersion{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE templates SET current_version = $1, updated_at = now() WHERE id = $2`, v.Version, v.TemplateID); err != nil {
		return TemplateVersion{}, fmt.Errorf("updating template current_version: %w", err)
	}

	return v, nil
}

// Archive transitions a DRAFT or PUBLISHED version to ARCHIVED.
// ARCHIVED is terminal: re-archiving is a no-op error, not silently accepted.
func (s *Store) Archive(ctx context.Context, versionID uuid.UUID) (TemplateVersion, error) {
	v, err := s.FindVersion(ctx, versionID)
	if err != nil {
		return TemplateVersion{}, err
	}
	if v.Status == StatusArchived {
		return TemplateVersion{}, fmt.Errorf("version already ARCHIVED: %w", apperr.ErrIllegalTransition)
	}

	row := s.db.QueryRow(ctx, `UPDATE template_versions SET status = $1 WHERE id = $2 RETURNING `+versionColumns, StatusArchived, versionID)
	return scanVersion(row)
}

// MarkDraft transitions PUBLISHED back to DRAFT. Forbidden if the version
// has ever been ARCHIVED (ARCHIVED→DRAFT) or if any certificate already
// references it (PUBLISHED→DRAFT once referenced).
func (s *Store) MarkDraft(ctx context.Context, versionID uuid.UUID) (TemplateVersion, error) {
	v, err := s.FindVersion(ctx, versionID)
	if err != nil {
		return TemplateVersion{}, err
	}
	if v.Status == StatusArchived {
		return TemplateVersion{}, fmt.Errorf("cannot move ARCHIVED version back to DRAFT: %w", apperr.ErrIllegalTransition)
	}
	if v.Status != StatusPublished {
		return TemplateVersion{}, fmt.Errorf("cannot mark %s version as DRAFT: %w", v.Status, apperr.ErrIllegalTransition)
	}

	referenced, err := s.referencedByCertificate(ctx, versionID)
	if err != nil {
		return TemplateVersion{}, err
	}
	if referenced {
		return TemplateVersion{}, fmt.Errorf("version is referenced by a certificate: %w", apperr.ErrIllegalTransition)
	}

	row := s.db.QueryRow(ctx, `UPDATE template_versions SET status = $1 WHERE id = $2 RETURNING `+versionColumns, StatusDraft, versionID)
	return scanVersion(row)
}
