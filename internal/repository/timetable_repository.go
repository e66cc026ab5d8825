package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

// TimetableRepository provides persistence for timetable versions.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = "id, org_id, academic_year, term, status, created_at, updated_at"

// FindByID loads a timetable by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1", timetableColumns)
	var t models.Timetable
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindDraft returns the active draft for an (org, year, term) tuple, or nil
// when none exists.
func (r *TimetableRepository) FindDraft(ctx context.Context, orgID, academicYear, term string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE org_id = $1 AND academic_year = $2 AND term = $3 AND status = $4", timetableColumns)
	var t models.Timetable
	err := r.db.GetContext(ctx, &t, query, orgID, academicYear, term, models.TimetableStatusDraft)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find draft timetable: %w", err)
	}
	return &t, nil
}

// Create stores a new timetable version. The partial unique index on
// (org_id, academic_year, term) WHERE status = 'draft' enforces one active
// draft per tuple; losing that race surfaces as the concurrency error so
// the caller can re-read the winning draft.
func (r *TimetableRepository) Create(ctx context.Context, t *models.Timetable) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.TimetableStatusDraft
	}

	const query = `INSERT INTO timetables (id, org_id, academic_year, term, status, created_at, updated_at) VALUES (:id, :org_id, :academic_year, :term, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Wrap(err, appErrors.ErrConcurrency.Code, appErrors.ErrConcurrency.Status, "create timetable: concurrent writer created the draft")
		}
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// UpdateStatus transitions a timetable's lifecycle state. The expected
// current status guards against a concurrent transition: zero rows affected
// means the timetable was not in the expected state.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id string, from, to models.TimetableStatus) error {
	const query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns timetables matching the filter with pagination.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.OrgID != "" {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", len(args)+1))
		args = append(args, filter.OrgID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	return timetables, total, nil
}
