package postgres

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

func TestCreateReturnsID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &audit.Audit{CreatedAt: now, UpdatedAt: now, ZIPCode: "80302", PrimaryHazard: audit.HazardWildfire}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audits")).
		WithArgs(now, now, "80302", "wildfire", []byte(`{}`), false, nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, audit.ID(31), a.ID)
}

func TestGet(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audits WHERE id=$1")).WithArgs(audit.ID(8)).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow(int64(8), now, now, "33101", "wind", []byte(`{"roofAge":"over_20"}`), false, nil, ""))

	a, err := repo.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, audit.HazardWind, a.PrimaryHazard)
	assert.Equal(t, "over_20", a.Answers.Value("roofAge"))
	assert.Nil(t, a.CompletedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audits WHERE id=$1")).WithArgs(audit.ID(9)).WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestGetRejectsCorruptAnswers(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audits WHERE id=$1")).WithArgs(audit.ID(2)).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow(int64(2), now, now, "1", "flood", []byte(`{"x":{"nested":true}}`), false, nil, ""))

	_, err := repo.Get(context.Background(), 2)
	assert.ErrorContains(t, err, "decode answers")
}

func TestUpdateAndMarkCompleted(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audits SET updated_at=$1")).
		WithArgs(at, "94110", "earthquake", []byte(`{"gasShutoff":"automatic"}`), "pay_9", audit.ID(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audits SET completed=TRUE")).
		WithArgs(at, audit.ID(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), &audit.Audit{
		ID: 4, UpdatedAt: at, ZIPCode: "94110", PrimaryHazard: audit.HazardEarthquake,
		Answers: audit.Answers{"gasShutoff": audit.Text("automatic")}, PaymentRef: "pay_9",
	}))
	assert.ErrorIs(t, repo.MarkCompleted(context.Background(), 4, at), audit.ErrNotFound)
}

func TestDeleteIncompleteBefore(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audits WHERE NOT completed")).WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteIncompleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}
