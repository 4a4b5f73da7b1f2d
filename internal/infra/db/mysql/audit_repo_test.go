package mysql

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

var auditCols = []string{"id", "created_at", "updated_at", "zip_code", "primary_hazard", "answers", "completed", "completed_at", "payment_ref"}

func newMock(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewAuditRepository(db), mock
}

func TestCreateSetsID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &audit.Audit{
		CreatedAt: now, UpdatedAt: now, ZIPCode: "94110", PrimaryHazard: audit.HazardEarthquake,
		Answers: audit.Answers{"waterHeaterSecurity": audit.Text("secured")},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audits")).
		WithArgs(now, now, "94110", "earthquake", []byte(`{"waterHeaterSecurity":"secured"}`), false, nil, "").
		WillReturnResult(sqlmock.NewResult(17, 1))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, audit.ID(17), a.ID)
}

func TestGetDecodesRow(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows(auditCols).
		AddRow(5, now, now, "70112", "flood", []byte(`{"emergencyKit":["water","radio"],"yearBuilt":"1960"}`), true, now, "pay_1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM audits WHERE id=?")).WithArgs(audit.ID(5)).WillReturnRows(rows)

	a, err := repo.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, audit.HazardFlood, a.PrimaryHazard)
	assert.Equal(t, []string{"water", "radio"}, a.Answers["emergencyKit"].Values)
	assert.Equal(t, "1960", a.Answers.Value("yearBuilt"))
	require.NotNil(t, a.CompletedAt)
	assert.True(t, a.Completed)
	assert.Equal(t, "pay_1", a.PaymentRef)
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audits WHERE id=?")).WithArgs(audit.ID(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audits SET updated_at=?")).
		WithArgs(sqlmock.AnyArg(), "94110", "wind", []byte(`{}`), "", audit.ID(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &audit.Audit{ID: 3, ZIPCode: "94110", PrimaryHazard: audit.HazardWind})
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestMarkCompleted(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audits SET completed=TRUE")).
		WithArgs(at, at, audit.ID(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkCompleted(context.Background(), 4, at))
}

func TestRecentAndCleanup(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT ?")).WithArgs(20).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow(2, now, now, "1", "wind", []byte(`{}`), false, nil, "").
			AddRow(1, now, now, "2", "flood", []byte(`null`), false, nil, ""))
	cutoff := now.Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audits WHERE completed=FALSE")).WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	got, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, audit.ID(2), got[0].ID)
	assert.NotNil(t, got[1].Answers)
	assert.Nil(t, got[1].CompletedAt)

	n, err := repo.DeleteIncompleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS audits")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, repo.EnsureSchema(context.Background()))
}
