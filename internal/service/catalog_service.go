package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

// CatalogService exposes the read-only reference data the allocation UI
// needs: active teachers, active classes, and the subject list.
type CatalogService struct {
	repo   catalogReader
	logger *zap.Logger
}

// NewCatalogService constructs a catalog service.
func NewCatalogService(repo catalogReader, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// ListTeachers returns the active teachers for an organization.
func (s *CatalogService) ListTeachers(ctx context.Context, orgID string) ([]models.Teacher, error) {
	teachers, err := s.repo.GetActiveTeachers(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// GetTeacher returns a single teacher by id.
func (s *CatalogService) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindTeacherByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// ListClasses returns the active classes for an organization.
func (s *CatalogService) ListClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error) {
	classes, err := s.repo.GetActiveClasses(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListSubjects returns the subjects for an organization.
func (s *CatalogService) ListSubjects(ctx context.Context, orgID string) ([]models.Subject, error) {
	subjects, err := s.repo.GetSubjects(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}
