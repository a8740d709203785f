package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// DocumentRepository is the processing journal: one row per document run,
// updated as the run moves through the pipeline stages.
type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Several watchers may share one database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025061701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_runs (
	id TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL,
	category TEXT,
	result JSONB,
	destination_path TEXT,
	sidecar_path TEXT,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_runs_status ON document_runs(status);
CREATE INDEX IF NOT EXISTS idx_document_runs_created_at ON document_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_runs (
	id, source_path, filename, status, stage, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		doc.ID, doc.SourcePath, doc.Filename, string(doc.Status), string(doc.Stage), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document run: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, stage domain.Stage, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE document_runs
SET status = $2, stage = $3, error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(status), string(stage), errMessage, r.now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return expectOneRow(res, "update document status", id)
}

func (r *DocumentRepository) SaveResult(ctx context.Context, id string, result domain.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE document_runs
SET category = $2, result = $3, updated_at = $4
WHERE id = $1
`, id, string(result.Classification.Category), payload, r.now().UTC())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return expectOneRow(res, "save result", id)
}

func (r *DocumentRepository) SaveDestination(ctx context.Context, id, documentPath, sidecarPath string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE document_runs
SET destination_path = $2, sidecar_path = $3, updated_at = $4
WHERE id = $1
`, id, documentPath, sidecarPath, r.now().UTC())
	if err != nil {
		return fmt.Errorf("save destination: %w", err)
	}
	return expectOneRow(res, "save destination", id)
}

func (r *DocumentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source_path, filename, status, stage, category, destination_path, sidecar_path, error_message, created_at, updated_at
FROM document_runs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list document runs: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var (
			doc                     domain.Document
			status, stage           string
			category, dest, sidecar sql.NullString
		)
		if err := rows.Scan(
			&doc.ID, &doc.SourcePath, &doc.Filename, &status, &stage, &category,
			&dest, &sidecar, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document run: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		doc.Stage = domain.Stage(stage)
		doc.Category = domain.Category(category.String)
		doc.DestinationPath = dest.String
		doc.SidecarPath = sidecar.String
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document runs: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) GetResult(ctx context.Context, id string) (*domain.Result, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT result FROM document_runs WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get result", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if payload == nil {
		return nil, nil
	}
	var result domain.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func expectOneRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
