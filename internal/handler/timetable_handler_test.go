package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/service"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/response"
)

type timetableRepoMock struct {
	byID    map[string]*models.Timetable
	draft   *models.Timetable
	created []*models.Timetable
}

func (m *timetableRepoMock) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *timetableRepoMock) FindDraft(ctx context.Context, orgID, academicYear, term string) (*models.Timetable, error) {
	return m.draft, nil
}

func (m *timetableRepoMock) Create(ctx context.Context, t *models.Timetable) error {
	t.ID = "tt-created"
	m.created = append(m.created, t)
	return nil
}

func (m *timetableRepoMock) UpdateStatus(ctx context.Context, id string, from, to models.TimetableStatus) error {
	return nil
}

func (m *timetableRepoMock) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	return nil, 0, nil
}

type slotReaderMock struct{}

func (slotReaderMock) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	return nil, nil
}

type classReaderMock struct{}

func (classReaderMock) GetActiveClasses(ctx context.Context, orgID string) ([]models.SchoolClass, error) {
	return nil, nil
}

func newTimetableHandler(repo *timetableRepoMock) *TimetableHandler {
	svc := service.NewTimetableService(repo, slotReaderMock{}, classReaderMock{}, nil, nil, nil, zap.NewNop())
	return NewTimetableHandler(svc)
}

func TestTimetableHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoMock{}
	handler := newTimetableHandler(repo)

	body, _ := json.Marshal(map[string]string{
		"org_id": "org-1", "academic_year": "2026/2027", "term": "1",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/timetables", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tt-created", data["id"])
	assert.Equal(t, "draft", data["status"])
}

func TestTimetableHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/timetables", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/timetables/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestTimetableHandlerPublishAlreadyPublished(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoMock{byID: map[string]*models.Timetable{
		"tt-1": {ID: "tt-1", Status: models.TimetableStatusPublished},
	}}
	handler := newTimetableHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/timetables/tt-1/publish", nil)
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.Publish(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "TIMETABLE_IMMUTABLE", envelope.Error.Code)
}
