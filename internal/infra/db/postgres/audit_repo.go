package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

const auditColumns = `id, created_at, updated_at, zip_code, primary_hazard, answers, completed, completed_at, payment_ref`

type AuditRepository struct{ db *sql.DB }

func NewAuditRepository(db *sql.DB) *AuditRepository { return &AuditRepository{db: db} }

// EnsureSchema creates the audits table and its indexes if they do not exist.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS audits (
  id             BIGSERIAL    PRIMARY KEY,
  created_at     TIMESTAMPTZ  NOT NULL,
  updated_at     TIMESTAMPTZ  NOT NULL,
  zip_code       VARCHAR(10)  NOT NULL,
  primary_hazard VARCHAR(32)  NOT NULL,
  answers        JSONB        NOT NULL DEFAULT '{}'::jsonb,
  completed      BOOLEAN      NOT NULL DEFAULT FALSE,
  completed_at   TIMESTAMPTZ,
  payment_ref    VARCHAR(128) NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audits_created    ON audits (created_at);
CREATE INDEX IF NOT EXISTS idx_audits_incomplete ON audits (created_at) WHERE NOT completed;`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create audits table: %w", err)
	}
	return nil
}

func (r *AuditRepository) Create(ctx context.Context, a *audit.Audit) error {
	const q = `
INSERT INTO audits (created_at, updated_at, zip_code, primary_hazard, answers, completed, completed_at, payment_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, q,
		a.CreatedAt, a.UpdatedAt, a.ZIPCode, string(a.PrimaryHazard), answers,
		a.Completed, a.CompletedAt, a.PaymentRef,
	).Scan(&id); err != nil {
		return err
	}
	a.ID = audit.ID(id)
	return nil
}

func (r *AuditRepository) Get(ctx context.Context, id audit.ID) (*audit.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM audits WHERE id=$1;`
	a, err := scanAudit(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNotFound
	}
	return a, err
}

func (r *AuditRepository) Update(ctx context.Context, a *audit.Audit) error {
	const q = `
UPDATE audits SET updated_at=$1, zip_code=$2, primary_hazard=$3, answers=$4, payment_ref=$5
WHERE id=$6;`
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
	const q = `UPDATE audits SET completed=TRUE, completed_at=$1, updated_at=$1 WHERE id=$2;`
	res, err := r.db.ExecContext(ctx, q, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*audit.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + auditColumns + ` FROM audits ORDER BY created_at DESC, id DESC LIMIT $1;`
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
	const q = `DELETE FROM audits WHERE NOT completed AND created_at < $1;`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *AuditRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

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
		t := completedAt.Time.UTC()
		a.CompletedAt = &t
	}
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
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
