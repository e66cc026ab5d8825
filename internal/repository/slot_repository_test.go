package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "timetable_id", "teacher_id", "class_id", "subject_name", "room",
		"day_of_week", "period_number", "start_time", "end_time", "created_at", "updated_at",
	})
}

func TestSlotRepositoryListByTimetable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_of_week ASC, period_number ASC, id ASC")).
		WithArgs("tt-1").
		WillReturnRows(slotRows().
			AddRow("s1", "tt-1", "teacher-1", "class-1", "Mathematics", "R101", 1, 1, "08:00", "09:00", time.Now(), time.Now()).
			AddRow("s2", "tt-1", "teacher-2", "class-2", "Physics", "", 1, 2, "09:00", "10:00", time.Now(), time.Now()))

	slots, err := repo.ListByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "teacher-1", slots[0].TeacherID)
	assert.Equal(t, 2, slots[1].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots WHERE timetable_id = $1 AND teacher_id = $2")).
		WithArgs("tt-1", "teacher-1").
		WillReturnRows(slotRows().
			AddRow("s1", "tt-1", "teacher-1", "class-1", "Mathematics", "R101", 1, 1, "08:00", "09:00", time.Now(), time.Now()))

	slots, err := repo.ListByTeacher(context.Background(), "tt-1", "teacher-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TimetableSlot{
		TimetableID: "tt-1", TeacherID: "teacher-1", ClassID: "class-1",
		SubjectName: "Mathematics", DayOfWeek: 1, Period: 1, StartTime: "08:00", EndTime: "09:00",
	}
	require.NoError(t, repo.Insert(context.Background(), db, slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryInsertUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_slot_teacher_cell"})

	slot := &models.TimetableSlot{TimetableID: "tt-1", TeacherID: "teacher-1", ClassID: "class-1", DayOfWeek: 1, Period: 1}
	err := repo.Insert(context.Background(), db, slot)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConcurrency.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("UPDATE timetable_slots SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	slot := &models.TimetableSlot{ID: "missing", TimetableID: "tt-1"}
	err := repo.Update(context.Background(), db, slot)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), db, "s1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), db, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCountByTimetable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_slots WHERE timetable_id = $1")).
		WithArgs("tt-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
