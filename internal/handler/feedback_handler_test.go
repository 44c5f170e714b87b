package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/middleware"
	"github.com/labtrack/labtrack-api/internal/models"
	"github.com/labtrack/labtrack-api/internal/service"
)

type fakeFeedbackRepo struct {
	reports map[string]*models.EquipmentReport
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, report *models.EquipmentReport) error {
	if f.reports == nil {
		f.reports = make(map[string]*models.EquipmentReport)
	}
	if report.ID == "" {
		report.ID = "rep-1"
	}
	f.reports[report.ID] = report
	return nil
}

func (f *fakeFeedbackRepo) FindByID(ctx context.Context, id string) (*models.EquipmentReport, error) {
	if r, ok := f.reports[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFeedbackRepo) ListPending(ctx context.Context) ([]models.EquipmentReport, error) {
	var out []models.EquipmentReport
	for _, r := range f.reports {
		if r.Status == models.ReportPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeFeedbackRepo) Forward(ctx context.Context, id, actorID string, notes *string, forwardedAt time.Time) (bool, error) {
	report, ok := f.reports[id]
	if !ok || report.Status != models.ReportPending {
		return false, nil
	}
	report.Status = models.ReportForwarded
	report.ForwardedBy = &actorID
	report.ForwardedAt = &forwardedAt
	report.ForwardingNotes = notes
	return true, nil
}

type fakeUserReader struct {
	users map[string]*models.User
}

func (f *fakeUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newFeedbackTestHandler(repo *fakeFeedbackRepo) *FeedbackHandler {
	users := &fakeUserReader{users: map[string]*models.User{
		"s1": {ID: "s1", Code: "2021-001", Role: models.RoleStudent, Active: true},
	}}
	svc := service.NewFeedbackService(repo, users, nil, zap.NewNop(), nil)
	return NewFeedbackHandler(svc)
}

func postJSON(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestFeedbackHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newFeedbackTestHandler(&fakeFeedbackRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = postJSON(t, map[string]interface{}{
		"student_id":     "s1",
		"workstation_id": "ws-07",
		"equipment":      "Good",
		"monitor":        "Good",
		"keyboard":       "Minor Issue",
		"mouse":          "Good",
	})

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Pending"`)
}

func TestFeedbackHandlerSubmitInvalidRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newFeedbackTestHandler(&fakeFeedbackRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = postJSON(t, map[string]interface{}{
		"student_id":     "s1",
		"workstation_id": "ws-07",
		"equipment":      "Good",
		"monitor":        "Good",
		"keyboard":       "Broken",
		"mouse":          "Good",
	})

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackHandlerForward(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeFeedbackRepo{reports: map[string]*models.EquipmentReport{
		"rep-1": {ID: "rep-1", StudentID: "s1", Status: models.ReportPending},
	}}
	handler := newFeedbackTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/feedback/rep-1/forward", bytes.NewReader([]byte(`{"notes":"check asap"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "ws1", Role: models.RoleWorkingStudent})

	handler.Forward(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Forwarded"`)
	assert.Equal(t, models.ReportForwarded, repo.reports["rep-1"].Status)
}

func TestFeedbackHandlerForwardAlreadyForwarded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	actor := "other"
	repo := &fakeFeedbackRepo{reports: map[string]*models.EquipmentReport{
		"rep-1": {ID: "rep-1", StudentID: "s1", Status: models.ReportForwarded, ForwardedBy: &actor},
	}}
	handler := newFeedbackTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/feedback/rep-1/forward", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "ws1", Role: models.RoleWorkingStudent})

	handler.Forward(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFeedbackHandlerForwardWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newFeedbackTestHandler(&fakeFeedbackRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/feedback/rep-1/forward", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}

	handler.Forward(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
