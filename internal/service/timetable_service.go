package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/dto"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

type timetableRepository interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindDraft(ctx context.Context, orgID, academicYear, term string) (*models.Timetable, error)
	Create(ctx context.Context, t *models.Timetable) error
	UpdateStatus(ctx context.Context, id string, from, to models.TimetableStatus) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
}

type slotSetReader interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

type classSetReader interface {
	GetActiveClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error)
}

// CreateTimetableRequest describes payload for creating a draft timetable.
type CreateTimetableRequest struct {
	OrgID        string `json:"org_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Term         string `json:"term" validate:"required"`
}

// TimetableService owns the draft → published lifecycle. It shares the
// LockRegistry with AllocationService so a publish and a slot mutation on
// the same timetable never interleave.
type TimetableService struct {
	repo      timetableRepository
	slots     slotSetReader
	classes   classSetReader
	engine    *ConflictEngine
	locks     *LockRegistry
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(repo timetableRepository, slots slotSetReader, classes classSetReader, engine *ConflictEngine, locks *LockRegistry, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if locks == nil {
		locks = NewLockRegistry()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, slots: slots, classes: classes, engine: engine, locks: locks, validator: validate, logger: logger}
}

// CreateDraft returns the active draft for the (org, year, term) tuple,
// creating one if none exists. Calling it twice for the same tuple returns
// the same timetable, keeping creation idempotent.
func (s *TimetableService) CreateDraft(ctx context.Context, req CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	// Serialize per tuple: two concurrent callers must not both observe no
	// draft and both insert.
	lock := s.locks.get(draftLockKey(req.OrgID, req.AcademicYear, req.Term))
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.FindDraft(ctx, req.OrgID, req.AcademicYear, req.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up draft timetable")
	}
	if existing != nil {
		return existing, nil
	}

	t := &models.Timetable{
		OrgID:        req.OrgID,
		AcademicYear: req.AcademicYear,
		Term:         req.Term,
		Status:       models.TimetableStatusDraft,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		if appErrors.Is(err, appErrors.ErrConcurrency) {
			// A writer on another instance won the insert; the partial
			// unique draft index rejected ours. Hand back the winner.
			winner, findErr := s.repo.FindDraft(ctx, req.OrgID, req.AcademicYear, req.Term)
			if findErr != nil {
				return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up draft timetable")
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	s.logger.Info("draft timetable created",
		zap.String("timetable_id", t.ID),
		zap.String("org_id", t.OrgID),
		zap.String("academic_year", t.AcademicYear),
		zap.String("term", t.Term),
	)
	return t, nil
}

// Get loads a timetable by id.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return t, nil
}

// List returns timetables with pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, *models.Pagination, error) {
	timetables, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return timetables, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Publish transitions a draft timetable to published. The transition is
// terminal: the version can never return to draft and its slots become
// immutable. Outstanding conflicts do not block publishing; they are
// returned alongside the ack as a last-chance warning so the caller can
// surface them before committing to the version.
//
// The transition runs inside the timetable's critical section: an in-flight
// slot mutation finishes (or is rejected) before the status flips, so a
// committed slot can never land in a published timetable.
func (s *TimetableService) Publish(ctx context.Context, id string) (*dto.PublishResult, error) {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Editable() {
		return nil, appErrors.Clone(appErrors.ErrImmutable, "timetable is already published")
	}

	outstanding, err := s.outstandingConflicts(ctx, t)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, models.TimetableStatusDraft, models.TimetableStatusPublished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race against another publisher.
			return nil, appErrors.Clone(appErrors.ErrImmutable, "timetable is already published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}

	t.Status = models.TimetableStatusPublished
	if len(outstanding) > 0 {
		s.logger.Warn("timetable published with outstanding conflicts",
			zap.String("timetable_id", id),
			zap.Int("conflicted_slots", len(outstanding)),
		)
	}
	return &dto.PublishResult{Timetable: t, OutstandingConflicts: outstanding}, nil
}

func (s *TimetableService) outstandingConflicts(ctx context.Context, t *models.Timetable) (map[string][]models.Conflict, error) {
	if s.engine == nil || s.slots == nil {
		return nil, nil
	}
	slots, err := s.slots.ListByTimetable(ctx, t.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	classesByID, err := classIndex(ctx, s.classes, t.OrgID)
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluateAll(slots, classesByID, false), nil
}

func draftLockKey(orgID, academicYear, term string) string {
	return fmt.Sprintf("draft:%s:%s:%s", orgID, academicYear, term)
}

func classIndex(ctx context.Context, reader classSetReader, orgID string) (map[string]*models.SchoolClass, error) {
	if reader == nil {
		return nil, nil
	}
	classes, err := reader.GetActiveClasses(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	index := make(map[string]*models.SchoolClass, len(classes))
	for i := range classes {
		index[classes[i].ID] = &classes[i]
	}
	return index, nil
}
