package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

const auditColumns = `id, created_at, updated_at, zip_code, primary_hazard, answers, completed, completed_at, payment_ref`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// EnsureSchema creates the audits table if it does not exist.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS audits (
  id             BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  created_at     DATETIME(6)  NOT NULL,
  updated_at     DATETIME(6)  NOT NULL,
  zip_code       VARCHAR(10)  NOT NULL,
  primary_hazard VARCHAR(32)  NOT NULL,
  answers        JSON         NOT NULL,
  completed      BOOLEAN      NOT NULL DEFAULT FALSE,
  completed_at   DATETIME(6)  NULL,
  payment_ref    VARCHAR(128) NOT NULL DEFAULT '',
  INDEX idx_audits_created (created_at),
  INDEX idx_audits_incomplete (completed, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create audits table: %w", err)
	}
	return nil
}

// Create inserts a and sets a.ID.
func (r *AuditRepository) Create(ctx context.Context, a *audit.Audit) error {
	const q = `
INSERT INTO audits (created_at, updated_at, zip_code, primary_hazard, answers, completed, completed_at, payment_ref)
VALUES (?,?,?,?,?,?,?,?);`
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q,
		a.CreatedAt, a.UpdatedAt, a.ZIPCode, string(a.PrimaryHazard), answers,
		a.Completed, a.CompletedAt, a.PaymentRef,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = audit.ID(id)
	return nil
}

func (r *AuditRepository) Get(ctx context.Context, id audit.ID) (*audit.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM audits WHERE id=? LIMIT 1;`
	a, err := scanAudit(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNotFound
	}
	return a, err
}

// Update overwrites the mutable columns.
func (r *AuditRepository) Update(ctx context.Context, a *audit.Audit) error {
	const q = `
UPDATE audits SET updated_at=?, zip_code=?, primary_hazard=?, answers=?, payment_ref=?
WHERE id=?;`
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, a.UpdatedAt, a.ZIPCode, string(a.PrimaryHazard), answers, a.PaymentRef, a.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *AuditRepository) MarkCompleted(ctx context.Context, id audit.ID, at time.Time) error {
	const q = `UPDATE audits SET completed=TRUE, completed_at=?, updated_at=? WHERE id=?;`
	res, err := r.db.ExecContext(ctx, q, at, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Recent lists the newest audits first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*audit.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + auditColumns + ` FROM audits ORDER BY created_at DESC, id DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*audit.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AuditRepository) DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM audits WHERE completed=FALSE AND created_at < ?;`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (*audit.Audit, error) {
	var (
		a           audit.Audit
		hazard      string
		answers     []byte
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.ZIPCode, &hazard, &answers,
		&a.Completed, &completedAt, &a.PaymentRef,
	); err != nil {
		return nil, err
	}
	a.PrimaryHazard = audit.Hazard(hazard)
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	var err error
	if a.Answers, err = unmarshalAnswers(answers); err != nil {
		return nil, fmt.Errorf("audit %d: %w", a.ID, err)
	}
	return &a, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return audit.ErrNotFound
	}
	return nil
}

// Ping is used by the health endpoint.
func (r *AuditRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
