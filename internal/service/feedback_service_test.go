package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type mockFeedbackRepo struct {
	reports     map[string]*models.EquipmentReport
	forwardWins bool
}

func (m *mockFeedbackRepo) Create(ctx context.Context, report *models.EquipmentReport) error {
	if m.reports == nil {
		m.reports = make(map[string]*models.EquipmentReport)
	}
	if report.ID == "" {
		report.ID = "rep-1"
	}
	m.reports[report.ID] = report
	return nil
}

func (m *mockFeedbackRepo) FindByID(ctx context.Context, id string) (*models.EquipmentReport, error) {
	if r, ok := m.reports[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedbackRepo) ListPending(ctx context.Context) ([]models.EquipmentReport, error) {
	var out []models.EquipmentReport
	for _, r := range m.reports {
		if r.Status == models.ReportPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockFeedbackRepo) Forward(ctx context.Context, id, actorID string, notes *string, forwardedAt time.Time) (bool, error) {
	report, ok := m.reports[id]
	if !ok || report.Status != models.ReportPending {
		return false, nil
	}
	if !m.forwardWins {
		// Simulates losing the compare-and-swap to a concurrent forward.
		return false, nil
	}
	report.Status = models.ReportForwarded
	report.ForwardedBy = &actorID
	report.ForwardedAt = &forwardedAt
	report.ForwardingNotes = notes
	return true, nil
}

func validSubmitRequest() SubmitFeedbackRequest {
	return SubmitFeedbackRequest{
		StudentID:     "s1",
		WorkstationID: "ws-07",
		Equipment:     "Good",
		Monitor:       "Minor Issue",
		Keyboard:      "Good",
		Mouse:         "Major Issue",
	}
}

func newFeedbackFixture(forwardWins bool) (*FeedbackService, *mockFeedbackRepo) {
	repo := &mockFeedbackRepo{forwardWins: forwardWins}
	users := &mockUserReader{users: map[string]*models.User{"s1": activeStudent("s1")}}
	svc := NewFeedbackService(repo, users, validator.New(), zap.NewNop(), nil)
	return svc, repo
}

func TestFeedbackServiceSubmit(t *testing.T) {
	svc, repo := newFeedbackFixture(true)

	report, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Equal(t, models.ConditionMinorIssue, report.MonitorRating)
	assert.False(t, report.SubmittedAt.IsZero())
	assert.Len(t, repo.reports, 1)
}

func TestFeedbackServiceSubmitInvalidRating(t *testing.T) {
	svc, _ := newFeedbackFixture(true)

	req := validSubmitRequest()
	req.Keyboard = "Broken"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceSubmitUnknownStudent(t *testing.T) {
	svc, _ := newFeedbackFixture(true)

	req := validSubmitRequest()
	req.StudentID = "ghost"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceSubmitNonStudent(t *testing.T) {
	repo := &mockFeedbackRepo{}
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, Active: true}
	users := &mockUserReader{users: map[string]*models.User{"t1": teacher}}
	svc := NewFeedbackService(repo, users, validator.New(), zap.NewNop(), nil)

	req := validSubmitRequest()
	req.StudentID = "t1"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceForward(t *testing.T) {
	svc, repo := newFeedbackFixture(true)
	report, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)

	notes := "replace the mouse"
	forwarded, err := svc.Forward(context.Background(), report.ID, ForwardFeedbackRequest{ActorID: "ws1", Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.ReportForwarded, forwarded.Status)
	require.NotNil(t, forwarded.ForwardedBy)
	assert.Equal(t, "ws1", *forwarded.ForwardedBy)
	require.NotNil(t, forwarded.ForwardingNotes)
	assert.Equal(t, notes, *forwarded.ForwardingNotes)
	assert.Equal(t, models.ReportForwarded, repo.reports[report.ID].Status)
}

func TestFeedbackServiceForwardAlreadyForwarded(t *testing.T) {
	svc, _ := newFeedbackFixture(true)
	report, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.Forward(context.Background(), report.ID, ForwardFeedbackRequest{ActorID: "ws1"})
	require.NoError(t, err)

	_, err = svc.Forward(context.Background(), report.ID, ForwardFeedbackRequest{ActorID: "ws2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceForwardLosesRace(t *testing.T) {
	svc, _ := newFeedbackFixture(false)
	report, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)

	// The fast-path read still sees Pending but the store-side CAS loses.
	_, err = svc.Forward(context.Background(), report.ID, ForwardFeedbackRequest{ActorID: "ws1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceForwardNotFound(t *testing.T) {
	svc, _ := newFeedbackFixture(true)

	_, err := svc.Forward(context.Background(), "missing", ForwardFeedbackRequest{ActorID: "ws1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceListPending(t *testing.T) {
	svc, _ := newFeedbackFixture(true)
	report, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Forward(context.Background(), report.ID, ForwardFeedbackRequest{ActorID: "ws1"})
	require.NoError(t, err)

	pending, err = svc.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
