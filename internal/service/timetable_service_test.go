package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
)

type timetableRepoStub struct {
	mu             sync.Mutex
	byID           map[string]*models.Timetable
	draft          *models.Timetable
	draftOnRetry   *models.Timetable
	findDraftCalls int
	created        []*models.Timetable
	createErr      error
	createGate     func()
	statusFrom     models.TimetableStatus
	statusTo       models.TimetableStatus
	statusCalls    int
	statusErr      error
	listResult     []models.Timetable
	listTotal      int
	listErr        error
	findDraftErr   error
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) FindDraft(ctx context.Context, orgID, academicYear, term string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findDraftCalls++
	if s.findDraftCalls > 1 && s.draftOnRetry != nil {
		return s.draftOnRetry, nil
	}
	return s.draft, s.findDraftErr
}

func (s *timetableRepoStub) Create(ctx context.Context, t *models.Timetable) error {
	if s.createGate != nil {
		s.createGate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	t.ID = "tt-created"
	s.created = append(s.created, t)
	s.draft = t
	return nil
}

func (s *timetableRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.TimetableStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	s.statusFrom = from
	s.statusTo = to
	if s.statusErr != nil {
		return s.statusErr
	}
	if t, ok := s.byID[id]; ok && t.Status == from {
		t.Status = to
	}
	return nil
}

func (s *timetableRepoStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	return s.listResult, s.listTotal, s.listErr
}

type slotReaderStub struct {
	slots []models.TimetableSlot
	err   error
}

func (s slotReaderStub) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	return s.slots, s.err
}

type classReaderStub struct {
	classes []models.SchoolClass
	err     error
}

func (s classReaderStub) GetActiveClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error) {
	return s.classes, s.err
}

func TestTimetableServiceCreateDraft(t *testing.T) {
	repo := &timetableRepoStub{}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	created, err := svc.CreateDraft(context.Background(), CreateTimetableRequest{
		OrgID: "org-1", AcademicYear: "2026/2027", Term: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tt-created", created.ID)
	assert.Equal(t, models.TimetableStatusDraft, created.Status)
	require.Len(t, repo.created, 1)
}

func TestTimetableServiceCreateDraftIdempotent(t *testing.T) {
	existing := &models.Timetable{ID: "tt-1", OrgID: "org-1", AcademicYear: "2026/2027", Term: "1", Status: models.TimetableStatusDraft}
	repo := &timetableRepoStub{draft: existing}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	got, err := svc.CreateDraft(context.Background(), CreateTimetableRequest{
		OrgID: "org-1", AcademicYear: "2026/2027", Term: "1",
	})
	require.NoError(t, err)
	assert.Same(t, existing, got)
	assert.Empty(t, repo.created)
}

func TestTimetableServiceCreateDraftConcurrent(t *testing.T) {
	repo := &timetableRepoStub{}
	entered := make(chan struct{})
	release := make(chan struct{})
	repo.createGate = func() {
		close(entered)
		<-release
	}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	req := CreateTimetableRequest{OrgID: "org-1", AcademicYear: "2026/2027", Term: "1"}
	results := make([]*models.Timetable, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateDraft(context.Background(), req)
		}(i)
	}
	// The first caller sits inside Create; the second must queue behind the
	// tuple lock rather than insert a second draft.
	<-entered
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID)
	require.Len(t, repo.created, 1)
}

func TestTimetableServiceCreateDraftLostInsertRace(t *testing.T) {
	winner := &models.Timetable{ID: "tt-winner", OrgID: "org-1", AcademicYear: "2026/2027", Term: "1", Status: models.TimetableStatusDraft}
	repo := &timetableRepoStub{
		createErr:    appErrors.Clone(appErrors.ErrConcurrency, "duplicate key"),
		draftOnRetry: winner,
	}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	// Another instance inserted the draft first; the unique index rejected
	// ours and the winner is handed back.
	got, err := svc.CreateDraft(context.Background(), CreateTimetableRequest{
		OrgID: "org-1", AcademicYear: "2026/2027", Term: "1",
	})
	require.NoError(t, err)
	assert.Same(t, winner, got)
	assert.Empty(t, repo.created)
}

func TestTimetableServiceCreateDraftValidation(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	_, err := svc.CreateDraft(context.Background(), CreateTimetableRequest{OrgID: "org-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetNotFound(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServicePublish(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{
		"tt-1": {ID: "tt-1", OrgID: "org-1", Status: models.TimetableStatusDraft},
	}}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	result, err := svc.Publish(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, result.Timetable.Status)
	assert.Empty(t, result.OutstandingConflicts)
	assert.Equal(t, 1, repo.statusCalls)
	assert.Equal(t, models.TimetableStatusDraft, repo.statusFrom)
	assert.Equal(t, models.TimetableStatusPublished, repo.statusTo)
}

func TestTimetableServicePublishReportsOutstandingConflicts(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{
		"tt-1": {ID: "tt-1", OrgID: "org-1", Status: models.TimetableStatusDraft},
	}}
	slots := slotReaderStub{slots: []models.TimetableSlot{
		slot("s1", "teacher-1", "class-1", "", 1, 1),
		slot("s2", "teacher-1", "class-2", "", 1, 1),
	}}
	svc := NewTimetableService(repo, slots, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	result, err := svc.Publish(context.Background(), "tt-1")
	require.NoError(t, err)
	// Conflicts warn but never block publishing.
	assert.Equal(t, models.TimetableStatusPublished, result.Timetable.Status)
	require.Len(t, result.OutstandingConflicts, 2)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, result.OutstandingConflicts["s1"][0].Type)
}

func TestTimetableServicePublishAlreadyPublished(t *testing.T) {
	repo := &timetableRepoStub{byID: map[string]*models.Timetable{
		"tt-1": {ID: "tt-1", Status: models.TimetableStatusPublished},
	}}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	_, err := svc.Publish(context.Background(), "tt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrImmutable.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.statusCalls)
}

func TestTimetableServicePublishLostRace(t *testing.T) {
	repo := &timetableRepoStub{
		byID: map[string]*models.Timetable{
			"tt-1": {ID: "tt-1", Status: models.TimetableStatusDraft},
		},
		statusErr: sql.ErrNoRows,
	}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	_, err := svc.Publish(context.Background(), "tt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrImmutable.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceListPagination(t *testing.T) {
	repo := &timetableRepoStub{
		listResult: []models.Timetable{{ID: "tt-1"}, {ID: "tt-2"}},
		listTotal:  7,
	}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	timetables, pagination, err := svc.List(context.Background(), models.TimetableFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, timetables, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 7, pagination.TotalCount)
}

func TestTimetableServiceListError(t *testing.T) {
	repo := &timetableRepoStub{listErr: errors.New("boom")}
	svc := NewTimetableService(repo, slotReaderStub{}, classReaderStub{}, newTestEngine(), nil, nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), models.TimetableFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
