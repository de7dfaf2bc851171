package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const uniqueViolation = "23505"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS templates (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	fields      JSONB NOT NULL,
	destination JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	file_name   TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	mappings    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS uploads_template_created_idx ON uploads (template_id, created_at DESC);
`

const templateColumns = `id, slug, name, description, user_id, fields, destination, created_at, updated_at`

// Postgres stores templates and upload history in PostgreSQL.
type Postgres struct {
	db DBTX
}

var (
	_ core.TemplateStore  = (*Postgres)(nil)
	_ core.UploadRecorder = (*Postgres)(nil)
)

// NewPostgres wraps a pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a pool with the given limits and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns, minConns int32, maxLifetime, maxIdle time.Duration) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxLifetime
	poolConfig.MaxConnIdleTime = maxIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Get returns the template whose ID or slug equals ref.
func (p *Postgres) Get(ctx context.Context, ref string) (*core.Template, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1 OR slug = $1 ORDER BY (id = $1) DESC LIMIT 1`,
		ref)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// Save upserts a template by ID.
func (p *Postgres) Save(ctx context.Context, t *core.Template) error {
	fieldsJSON, err := json.Marshal(t.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	var destJSON []byte
	if t.Destination != nil {
		if destJSON, err = json.Marshal(t.Destination); err != nil {
			return fmt.Errorf("marshal destination: %w", err)
		}
	}

	err = p.db.QueryRow(ctx, `
		INSERT INTO templates (id, slug, name, description, user_id, fields, destination)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			user_id = EXCLUDED.user_id,
			fields = EXCLUDED.fields,
			destination = EXCLUDED.destination,
			updated_at = now()
		RETURNING created_at, updated_at`,
		t.ID, t.Slug, t.Name, t.Description, t.UserID, fieldsJSON, destJSON,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.ErrSlugConflict
		}
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// Delete removes a template. Its uploads cascade.
func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrTemplateNotFound
	}
	return nil
}

// List returns every template sorted by name.
func (p *Postgres) List(ctx context.Context) ([]core.Template, error) {
	rows, err := p.db.Query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]core.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// RecordUpload inserts an upload record.
func (p *Postgres) RecordUpload(ctx context.Context, rec core.UploadRecord) error {
	mappingsJSON, err := json.Marshal(rec.Mappings)
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO uploads (id, template_id, file_name, row_count, error_count, mappings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.TemplateID, rec.FileName, rec.RowCount, rec.ErrorCount, mappingsJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// ListUploads returns a template's uploads, newest first.
func (p *Postgres) ListUploads(ctx context.Context, templateID string) ([]core.UploadRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, template_id, file_name, row_count, error_count, mappings, created_at
		FROM uploads WHERE template_id = $1
		ORDER BY created_at DESC, id DESC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	records := make([]core.UploadRecord, 0)
	for rows.Next() {
		var (
			rec          core.UploadRecord
			mappingsJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.FileName, &rec.RowCount, &rec.ErrorCount, &mappingsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		if err := json.Unmarshal(mappingsJSON, &rec.Mappings); err != nil {
			return nil, fmt.Errorf("unmarshal mappings: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return records, nil
}

func scanTemplate(row pgx.Row) (*core.Template, error) {
	var (
		t          core.Template
		fieldsJSON []byte
		destJSON   []byte
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.UserID, &fieldsJSON, &destJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &t.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if len(destJSON) > 0 {
		var d core.SheetConnection
		if err := json.Unmarshal(destJSON, &d); err != nil {
			return nil, fmt.Errorf("unmarshal destination: %w", err)
		}
		t.Destination = &d
	}
	return &t, nil
}
