package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func timetableRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "org_id", "academic_year", "term", "status", "created_at", "updated_at"})
}

func TestTimetableRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, org_id, academic_year, term, status, created_at, updated_at FROM timetables WHERE id = $1")).
		WithArgs("tt-1").
		WillReturnRows(timetableRows().AddRow("tt-1", "org-1", "2026/2027", "1", "draft", time.Now(), time.Now()))

	timetable, err := repo.FindByID(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusDraft, timetable.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindDraftNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("SELECT id, org_id, academic_year, term, status").
		WithArgs("org-1", "2026/2027", "1", models.TimetableStatusDraft).
		WillReturnError(sql.ErrNoRows)

	timetable, err := repo.FindDraft(context.Background(), "org-1", "2026/2027", "1")
	require.NoError(t, err)
	assert.Nil(t, timetable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetables").
		WithArgs(sqlmock.AnyArg(), "org-1", "2026/2027", "1", "draft", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	timetable := &models.Timetable{OrgID: "org-1", AcademicYear: "2026/2027", Term: "1"}
	require.NoError(t, repo.Create(context.Background(), timetable))
	assert.NotEmpty(t, timetable.ID)
	assert.Equal(t, models.TimetableStatusDraft, timetable.Status)
	assert.False(t, timetable.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	// The partial unique draft index rejects a second draft for the tuple.
	mock.ExpectExec("INSERT INTO timetables").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "timetables_one_draft_per_tuple"})

	err := repo.Create(context.Background(), &models.Timetable{OrgID: "org-1", AcademicYear: "2026/2027", Term: "1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConcurrency.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("UPDATE timetables SET status").
		WithArgs(models.TimetableStatusPublished, sqlmock.AnyArg(), "tt-1", models.TimetableStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "tt-1", models.TimetableStatusDraft, models.TimetableStatusPublished)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateStatusRaceLost(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	// Zero rows affected: the timetable was not in the expected state.
	mock.ExpectExec("UPDATE timetables SET status").
		WithArgs(models.TimetableStatusPublished, sqlmock.AnyArg(), "tt-1", models.TimetableStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "tt-1", models.TimetableStatusDraft, models.TimetableStatusPublished)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, org_id, academic_year, term, status, created_at, updated_at FROM timetables WHERE 1=1 AND org_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("org-1").
		WillReturnRows(timetableRows().AddRow("tt-1", "org-1", "2026/2027", "1", "published", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetables WHERE 1=1 AND org_id = $1")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	timetables, total, err := repo.List(context.Background(), models.TimetableFilter{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, timetables, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
