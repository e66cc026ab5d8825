package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

// SlotRepository provides persistence for timetable slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = "id, timetable_id, teacher_id, class_id, subject_name, room, day_of_week, period_number, start_time, end_time, created_at, updated_at"

// BeginTxx starts a transaction for validate-then-commit mutations.
func (r *SlotRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// ListByTimetable returns the full committed slot set of a timetable ordered
// by day then period.
func (r *SlotRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_of_week ASC, period_number ASC, id ASC", slotColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list slots by timetable: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns a teacher's slots within one timetable.
func (r *SlotRepository) ListByTeacher(ctx context.Context, timetableID, teacherID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE timetable_id = $1 AND teacher_id = $2 ORDER BY day_of_week ASC, period_number ASC", slotColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID, teacherID); err != nil {
		return nil, fmt.Errorf("list slots by teacher: %w", err)
	}
	return slots, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE id = $1", slotColumns)
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Insert stores a new slot using the provided executor (transaction or db).
func (r *SlotRepository) Insert(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO timetable_slots (id, timetable_id, teacher_id, class_id, subject_name, room, day_of_week, period_number, start_time, end_time, created_at, updated_at) VALUES (:id, :timetable_id, :teacher_id, :class_id, :subject_name, :room, :day_of_week, :period_number, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return wrapSlotWriteError("insert slot", err)
	}
	return nil
}

// Update rewrites a slot's mutable fields.
func (r *SlotRepository) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_slots SET teacher_id = :teacher_id, class_id = :class_id, subject_name = :subject_name, room = :room, day_of_week = :day_of_week, period_number = :period_number, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exec, query, slot)
	if err != nil {
		return wrapSlotWriteError("update slot", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot by id.
func (r *SlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	res, err := exec.ExecContext(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByTimetable returns the number of slots in a timetable.
func (r *SlotRepository) CountByTimetable(ctx context.Context, timetableID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM timetable_slots WHERE timetable_id = $1`, timetableID); err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return count, nil
}

// wrapSlotWriteError maps unique-index violations to the concurrency error.
// The unique indexes on (timetable, teacher, day, period),
// (timetable, class, day, period) and the partial index on non-empty rooms
// back the service-level critical section: a racing writer that slipped past
// validation surfaces here instead of committing a double-booking.
func wrapSlotWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return appErrors.Wrap(err, appErrors.ErrConcurrency.Code, appErrors.ErrConcurrency.Status, op+": concurrent writer committed a colliding slot")
	}
	return fmt.Errorf("%s: %w", op, err)
}
