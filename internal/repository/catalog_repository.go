package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
)

// CatalogRepository reads the roster-owned teacher/class/subject snapshots.
// The scheduling subsystem never writes these tables.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetActiveTeachers returns active teachers for an organization.
func (r *CatalogRepository) GetActiveTeachers(ctx context.Context, orgID string) ([]models.Teacher, error) {
	const query = `SELECT id, org_id, full_name, active, created_at, updated_at FROM teachers WHERE org_id = $1 AND active = TRUE ORDER BY full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, orgID); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// FindTeacherByID loads a single teacher.
func (r *CatalogRepository) FindTeacherByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, org_id, full_name, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// GetActiveClasses returns classes for an organization.
func (r *CatalogRepository) GetActiveClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error) {
	const query = `SELECT id, org_id, grade, section, default_room, created_at, updated_at FROM school_classes WHERE org_id = $1 ORDER BY grade ASC, section ASC`
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, orgID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindClassByID loads a single class.
func (r *CatalogRepository) FindClassByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	const query = `SELECT id, org_id, grade, section, default_room, created_at, updated_at FROM school_classes WHERE id = $1`
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// GetSubjects returns subjects for an organization.
func (r *CatalogRepository) GetSubjects(ctx context.Context, orgID string) ([]models.Subject, error) {
	const query = `SELECT id, org_id, name, created_at, updated_at FROM subjects WHERE org_id = $1 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, orgID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
