package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ScanRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	category TEXT,
	grade TEXT,
	appraisal JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_category ON scans(category);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ScanRepository) Create(ctx context.Context, scan *domain.Scan) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO scans (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		scan.ID, scan.Filename, scan.MimeType, scan.StoragePath, string(scan.Status), scan.Error,
		scan.CreatedAt, scan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *ScanRepository) GetByID(ctx context.Context, id string) (*domain.Scan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, appraisal, error_message, created_at, updated_at
FROM scans
WHERE id = $1
`, id)

	var (
		scan         domain.Scan
		status       string
		appraisalRaw []byte
	)
	err := row.Scan(
		&scan.ID, &scan.Filename, &scan.MimeType, &scan.StoragePath, &status,
		&appraisalRaw, &scan.Error, &scan.CreatedAt, &scan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrScanNotFound, "get scan by id", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	if len(appraisalRaw) > 0 {
		var record domain.AppraisalRecord
		if err := json.Unmarshal(appraisalRaw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal appraisal: %w", err)
		}
		scan.Appraisal = &record
	}
	scan.Status = domain.ScanStatus(status)
	return &scan, nil
}

func (r *ScanRepository) UpdateStatus(ctx context.Context, id string, status domain.ScanStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE scans
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	return requireAffected(res, "update scan status", id)
}

// SaveAppraisal stores the record and moves the scan to appraised in one statement.
func (r *ScanRepository) SaveAppraisal(ctx context.Context, id string, record domain.AppraisalRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal appraisal: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE scans
SET status = $2, category = $3, grade = $4, appraisal = $5, error_message = '', updated_at = $6
WHERE id = $1
`, id, string(domain.ScanStatusAppraised), string(record.Category), record.Condition.Grade, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save appraisal: %w", err)
	}
	return requireAffected(res, "save appraisal", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrScanNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
