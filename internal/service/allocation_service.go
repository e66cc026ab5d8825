package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/dto"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/config"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

type allocationSlotRepository interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	ListByTeacher(ctx context.Context, timetableID, teacherID string) ([]models.TimetableSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimetableSlot, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error
	Update(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type allocationTimetableReader interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
}

type catalogReader interface {
	GetActiveTeachers(ctx context.Context, orgID string) ([]models.Teacher, error)
	FindTeacherByID(ctx context.Context, id string) (*models.Teacher, error)
	GetActiveClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error)
	FindClassByID(ctx context.Context, id string) (*models.SchoolClass, error)
	GetSubjects(ctx context.Context, orgID string) ([]models.Subject, error)
}

// AddSlotRequest describes payload for placing a new slot.
type AddSlotRequest struct {
	TimetableID string `json:"timetable_id" validate:"required"`
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassID     string `json:"class_id" validate:"required"`
	SubjectName string `json:"subject_name" validate:"required"`
	Room        string `json:"room"`
	DayOfWeek   int    `json:"day_of_week" validate:"required,min=1"`
	Period      int    `json:"period_number" validate:"required,min=1"`
	Strict      bool   `json:"strict"`
}

// UpdateSlotRequest patches an existing slot.
type UpdateSlotRequest struct {
	Patch  models.SlotPatch `json:"patch"`
	Strict bool             `json:"strict"`
}

// MoveSlotRequest relocates a slot to a new (day, period) coordinate; used
// by drag-and-drop.
type MoveSlotRequest struct {
	DayOfWeek int  `json:"day_of_week" validate:"required,min=1"`
	Period    int  `json:"period_number" validate:"required,min=1"`
	Strict    bool `json:"strict"`
}

// GenerateRequest seeds the auto-generation pass.
type GenerateRequest struct {
	Seed int64 `json:"seed"`
}

// LockRegistry hands out one mutex per key. Slot mutations and lifecycle
// transitions for the same timetable must share a registry: within one
// timetable the read-validate-write sequence runs under a single mutex so
// two editors can never both observe a conflict-free state and both commit,
// and a publish can never slip between another mutation's draft check and
// its commit. Different timetables proceed fully in parallel.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (l *LockRegistry) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// AllocationService is the public mutation API for timetable slots. Every
// mutation runs as an atomic validate-then-commit unit inside the owning
// timetable's critical section.
type AllocationService struct {
	slots      allocationSlotRepository
	timetables allocationTimetableReader
	catalog    catalogReader
	engine     *ConflictEngine
	workload   *WorkloadCalculator
	strategy   GenerationStrategy
	cache      *CacheService
	metrics    *MetricsService
	cfg        config.TimetableConfig
	cacheCfg   config.CacheConfig
	locks      *LockRegistry
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAllocationService wires the allocation dependencies.
func NewAllocationService(
	slots allocationSlotRepository,
	timetables allocationTimetableReader,
	catalog catalogReader,
	engine *ConflictEngine,
	workload *WorkloadCalculator,
	strategy GenerationStrategy,
	cache *CacheService,
	metrics *MetricsService,
	cfg config.TimetableConfig,
	cacheCfg config.CacheConfig,
	locks *LockRegistry,
	validate *validator.Validate,
	logger *zap.Logger,
) *AllocationService {
	if locks == nil {
		locks = NewLockRegistry()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if workload == nil {
		workload = NewWorkloadCalculator(cfg)
	}
	if engine == nil {
		engine = NewConflictEngine(cfg, workload)
	}
	if strategy == nil {
		strategy = NewRoundRobinStrategy()
	}
	if cfg.CommitRetries < 1 {
		cfg.CommitRetries = 1
	}
	return &AllocationService{
		slots:      slots,
		timetables: timetables,
		catalog:    catalog,
		engine:     engine,
		workload:   workload,
		strategy:   strategy,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg,
		cacheCfg:   cacheCfg,
		locks:      locks,
		validator:  validate,
		logger:     logger,
	}
}

// AddSlot validates and commits a new slot. When error-severity conflicts
// are found nothing is committed and the result carries the conflict list;
// warnings never block the commit.
func (s *AllocationService) AddSlot(ctx context.Context, req AddSlotRequest) (*dto.SlotResult, error) {
	start := time.Now()
	defer s.observe("add_slot", start)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if err := s.checkCoordinates(req.DayOfWeek, req.Period); err != nil {
		return nil, err
	}

	lock := s.locks.get(req.TimetableID)
	lock.Lock()
	defer lock.Unlock()

	var result *dto.SlotResult
	err := s.withCommitRetries(func() error {
		var tryErr error
		result, tryErr = s.tryAdd(ctx, req)
		return tryErr
	})
	if err != nil {
		s.recordMutation("add", "failed")
		return nil, err
	}
	s.recordMutationResult("add", result)
	s.invalidateCaches(ctx, req.TimetableID)
	return result, nil
}

func (s *AllocationService) tryAdd(ctx context.Context, req AddSlotRequest) (*dto.SlotResult, error) {
	if _, err := s.editableTimetable(ctx, req.TimetableID); err != nil {
		return nil, err
	}

	if _, err := s.catalog.FindTeacherByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	class, err := s.catalog.FindClassByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	window, err := models.PeriodTimes(req.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period")
	}

	candidate := models.TimetableSlot{
		TimetableID: req.TimetableID,
		TeacherID:   req.TeacherID,
		ClassID:     req.ClassID,
		SubjectName: req.SubjectName,
		Room:        req.Room,
		DayOfWeek:   req.DayOfWeek,
		Period:      req.Period,
		StartTime:   window.Start,
		EndTime:     window.End,
	}

	existing, err := s.slots.ListByTimetable(ctx, req.TimetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	conflicts := s.engine.Evaluate(existing, candidate, class, req.Strict)
	s.recordConflicts(conflicts)
	if models.HasErrors(conflicts) {
		return &dto.SlotResult{Conflicts: conflicts, Committed: false}, nil
	}

	if err := s.commitSlot(ctx, func(tx *sqlx.Tx) error {
		return s.slots.Insert(ctx, tx, &candidate)
	}); err != nil {
		return nil, err
	}

	return &dto.SlotResult{Slot: &candidate, Conflicts: conflicts, Committed: true}, nil
}

// UpdateSlot re-validates the slot set with the target's previous version
// excluded and its patched version substituted, then commits.
func (s *AllocationService) UpdateSlot(ctx context.Context, slotID string, req UpdateSlotRequest) (*dto.SlotResult, error) {
	start := time.Now()
	defer s.observe("update_slot", start)

	existing, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(existing.TimetableID)
	lock.Lock()
	defer lock.Unlock()

	var result *dto.SlotResult
	err = s.withCommitRetries(func() error {
		var tryErr error
		result, tryErr = s.tryUpdate(ctx, slotID, req)
		return tryErr
	})
	if err != nil {
		s.recordMutation("update", "failed")
		return nil, err
	}
	s.recordMutationResult("update", result)
	s.invalidateCaches(ctx, existing.TimetableID)
	return result, nil
}

func (s *AllocationService) tryUpdate(ctx context.Context, slotID string, req UpdateSlotRequest) (*dto.SlotResult, error) {
	// Re-read inside the critical section so the patch applies to the
	// freshest committed version.
	prior, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableTimetable(ctx, prior.TimetableID); err != nil {
		return nil, err
	}

	updated := req.Patch.Apply(*prior)
	if err := s.checkCoordinates(updated.DayOfWeek, updated.Period); err != nil {
		return nil, err
	}
	window, err := models.PeriodTimes(updated.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period")
	}
	updated.StartTime = window.Start
	updated.EndTime = window.End

	var class *models.SchoolClass
	if c, err := s.catalog.FindClassByID(ctx, updated.ClassID); err == nil {
		class = c
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	} else {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	slotSet, err := s.slots.ListByTimetable(ctx, prior.TimetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	// Exclude the slot's previous version; Evaluate substitutes the new one.
	others := slotSet[:0:0]
	for _, slot := range slotSet {
		if slot.ID != slotID {
			others = append(others, slot)
		}
	}

	conflicts := s.engine.Evaluate(others, updated, class, req.Strict)
	s.recordConflicts(conflicts)
	if models.HasErrors(conflicts) {
		return &dto.SlotResult{Conflicts: conflicts, Committed: false}, nil
	}

	if err := s.commitSlot(ctx, func(tx *sqlx.Tx) error {
		return s.slots.Update(ctx, tx, &updated)
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, err
	}

	return &dto.SlotResult{Slot: &updated, Conflicts: conflicts, Committed: true}, nil
}

// MoveSlot changes only the (day, period) coordinate and the derived times.
func (s *AllocationService) MoveSlot(ctx context.Context, slotID string, req MoveSlotRequest) (*dto.SlotResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	day := req.DayOfWeek
	period := req.Period
	return s.UpdateSlot(ctx, slotID, UpdateSlotRequest{
		Patch:  models.SlotPatch{DayOfWeek: &day, Period: &period},
		Strict: req.Strict,
	})
}

// DeleteSlot removes a slot. Removal can only reduce conflicts, so no
// validation pass runs; the draft check still applies.
func (s *AllocationService) DeleteSlot(ctx context.Context, slotID string) error {
	start := time.Now()
	defer s.observe("delete_slot", start)

	slot, err := s.findSlot(ctx, slotID)
	if err != nil {
		return err
	}

	lock := s.locks.get(slot.TimetableID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.editableTimetable(ctx, slot.TimetableID); err != nil {
		return err
	}

	if err := s.commitSlot(ctx, func(tx *sqlx.Tx) error {
		return s.slots.Delete(ctx, tx, slotID)
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		s.recordMutation("delete", "failed")
		return err
	}

	s.recordMutation("delete", "committed")
	s.invalidateCaches(ctx, slot.TimetableID)
	return nil
}

// AutoGenerate bulk-creates slots for all active teachers using the
// configured strategy. Each planned slot passes through the same validation
// as an interactive mutation, sequentially inside the timetable's critical
// section; unplaceable slots are reported, never silently dropped.
func (s *AllocationService) AutoGenerate(ctx context.Context, timetableID string, req GenerateRequest) (*dto.GenerationReport, error) {
	start := time.Now()
	defer s.observe("auto_generate", start)

	lock := s.locks.get(timetableID)
	lock.Lock()
	defer lock.Unlock()

	var report *dto.GenerationReport
	err := s.withCommitRetries(func() error {
		var tryErr error
		report, tryErr = s.tryGenerate(ctx, timetableID, req.Seed)
		return tryErr
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx, timetableID)
	return report, nil
}

func (s *AllocationService) tryGenerate(ctx context.Context, timetableID string, seed int64) (*dto.GenerationReport, error) {
	timetable, err := s.editableTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	teachers, err := s.catalog.GetActiveTeachers(ctx, timetable.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.catalog.GetActiveClasses(ctx, timetable.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	subjects, err := s.catalog.GetSubjects(ctx, timetable.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	classesByID := make(map[string]*models.SchoolClass, len(classes))
	for i := range classes {
		classesByID[classes[i].ID] = &classes[i]
	}

	committed, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	planned := s.strategy.Plan(teachers, classes, subjects, s.cfg, seed)

	tx, err := s.slots.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	report := &dto.GenerationReport{
		Placed:  make([]models.TimetableSlot, 0, len(planned)),
		Skipped: make([]dto.SkippedSlot, 0),
	}

	working := committed
	for _, plan := range planned {
		window, windowErr := models.PeriodTimes(plan.Period)
		if windowErr != nil {
			report.Skipped = append(report.Skipped, dto.SkippedSlot{
				TeacherID: plan.TeacherID,
				ClassID:   plan.ClassID,
				DayOfWeek: plan.DayOfWeek,
				Period:    plan.Period,
				Reason:    windowErr.Error(),
			})
			continue
		}
		candidate := models.TimetableSlot{
			TimetableID: timetableID,
			TeacherID:   plan.TeacherID,
			ClassID:     plan.ClassID,
			SubjectName: plan.SubjectName,
			Room:        plan.Room,
			DayOfWeek:   plan.DayOfWeek,
			Period:      plan.Period,
			StartTime:   window.Start,
			EndTime:     window.End,
		}

		conflicts := s.engine.Evaluate(working, candidate, classesByID[plan.ClassID], false)
		if models.HasErrors(conflicts) {
			report.Skipped = append(report.Skipped, dto.SkippedSlot{
				TeacherID: plan.TeacherID,
				ClassID:   plan.ClassID,
				DayOfWeek: plan.DayOfWeek,
				Period:    plan.Period,
				Conflicts: conflicts,
			})
			continue
		}

		if err = s.slots.Insert(ctx, tx, &candidate); err != nil {
			return nil, err
		}
		working = append(working, candidate)
		report.Placed = append(report.Placed, candidate)
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generated slots")
		return nil, err
	}

	s.logger.Info("timetable auto-generation finished",
		zap.String("timetable_id", timetableID),
		zap.Int64("seed", seed),
		zap.Int("placed", len(report.Placed)),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// ListConflicts re-evaluates the whole slot set pairwise and returns the
// conflicts grouped by slot id.
func (s *AllocationService) ListConflicts(ctx context.Context, timetableID string) (map[string][]models.Conflict, error) {
	cacheKey := conflictsCacheKey(timetableID)
	var cached map[string][]models.Conflict
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	classes, err := s.catalog.GetActiveClasses(ctx, timetable.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	classesByID := make(map[string]*models.SchoolClass, len(classes))
	for i := range classes {
		classesByID[classes[i].ID] = &classes[i]
	}

	result := s.engine.EvaluateAll(slots, classesByID, false)
	_ = s.cache.Set(ctx, cacheKey, result, s.cacheCfg.ConflictsTTL)
	return result, nil
}

// GetWorkload computes the workload summary for one teacher in a timetable.
func (s *AllocationService) GetWorkload(ctx context.Context, timetableID, teacherID string) (*models.WorkloadSummary, error) {
	cacheKey := workloadCacheKey(timetableID, teacherID)
	var cached models.WorkloadSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	slots, err := s.slots.ListByTeacher(ctx, timetableID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}
	summary := s.workload.Summarize(slots, teacherID)
	_ = s.cache.Set(ctx, cacheKey, summary, s.cacheCfg.WorkloadTTL)
	return &summary, nil
}

// GetTeacherSchedule returns the per-teacher grid: slots ordered by day and
// period plus the derived workload summary.
func (s *AllocationService) GetTeacherSchedule(ctx context.Context, timetableID, teacherID string) (*dto.TeacherScheduleView, error) {
	slots, err := s.slots.ListByTeacher(ctx, timetableID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}
	return &dto.TeacherScheduleView{
		Slots:    slots,
		Workload: s.workload.Summarize(slots, teacherID),
	}, nil
}

// --- helpers ---

func (s *AllocationService) findSlot(ctx context.Context, slotID string) (*models.TimetableSlot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	return slot, nil
}

func (s *AllocationService) editableTimetable(ctx context.Context, timetableID string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if !timetable.Editable() {
		return nil, appErrors.Clone(appErrors.ErrImmutable, "")
	}
	return timetable, nil
}

func (s *AllocationService) checkCoordinates(day, period int) error {
	if day < 1 || day > s.cfg.DaysPerWeek {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day_of_week must be between 1 and %d", s.cfg.DaysPerWeek))
	}
	if period < 1 || period > s.cfg.PeriodsPerDay {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period_number must be between 1 and %d", s.cfg.PeriodsPerDay))
	}
	return nil
}

// commitSlot wraps a single write in its own transaction.
func (s *AllocationService) commitSlot(ctx context.Context, write func(tx *sqlx.Tx) error) error {
	tx, err := s.slots.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := write(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot mutation")
	}
	return nil
}

// withCommitRetries re-runs the validate-then-commit unit when the storage
// layer reports a concurrent writer. The retry re-validates against fresh
// state, so it is naturally idempotent for the caller's intent. Repeated
// failures are surfaced; given per-timetable serialization they indicate a
// locking bug rather than normal contention.
func (s *AllocationService) withCommitRetries(attempt func() error) error {
	var err error
	for i := 0; i < s.cfg.CommitRetries; i++ {
		err = attempt()
		if err == nil || !appErrors.Is(err, appErrors.ErrConcurrency) {
			return err
		}
		s.logger.Warn("retrying after concurrent modification", zap.Int("attempt", i+1), zap.Error(err))
	}
	return appErrors.Clone(appErrors.ErrConcurrency, "concurrent modification persisted across retries, please retry")
}

func (s *AllocationService) invalidateCaches(ctx context.Context, timetableID string) {
	_ = s.cache.Invalidate(ctx, workloadCachePattern(timetableID))
	_ = s.cache.Invalidate(ctx, conflictsCacheKey(timetableID))
}

func (s *AllocationService) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAllocation(op, time.Since(start))
	}
}

func (s *AllocationService) recordMutation(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSlotMutation(op, outcome)
	}
}

func (s *AllocationService) recordMutationResult(op string, result *dto.SlotResult) {
	if result == nil {
		return
	}
	if result.Committed {
		s.recordMutation(op, "committed")
	} else {
		s.recordMutation(op, "rejected")
	}
}

func (s *AllocationService) recordConflicts(conflicts []models.Conflict) {
	if s.metrics == nil {
		return
	}
	for _, c := range conflicts {
		s.metrics.RecordConflict(string(c.Type), string(c.Severity))
	}
}

func workloadCacheKey(timetableID, teacherID string) string {
	return fmt.Sprintf("tt:workload:%s:%s", timetableID, teacherID)
}

func workloadCachePattern(timetableID string) string {
	return fmt.Sprintf("tt:workload:%s:*", timetableID)
}

func conflictsCacheKey(timetableID string) string {
	return fmt.Sprintf("tt:conflicts:%s", timetableID)
}
