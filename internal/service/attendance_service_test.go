package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type mockSessionLister struct {
	sessions []models.LoginSession
}

func (m *mockSessionLister) ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error) {
	var out []models.LoginSession
	for _, s := range m.sessions {
		if s.UserID != userID {
			continue
		}
		if filter.From != nil && s.LoginAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.LoginAt.Before(*filter.To) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type mockSummaryCache struct {
	gets int
	sets int
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	return appErrors.ErrCacheMiss
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func closedSession(userID string, login, logout time.Time) models.LoginSession {
	return models.LoginSession{UserID: userID, LoginAt: login, LogoutAt: &logout}
}

func TestDeriveStatusNoSessions(t *testing.T) {
	assert.Equal(t, models.AttendanceAbsent, deriveStatus(nil))
}

func TestDeriveStatusClosedSession(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sessions := []models.LoginSession{closedSession("u1", at(day, 9, 0), at(day, 11, 0))}
	assert.Equal(t, models.AttendancePresent, deriveStatus(sessions))
}

func TestDeriveStatusOpenSession(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sessions := []models.LoginSession{{UserID: "u1", LoginAt: at(day, 9, 0)}}
	assert.Equal(t, models.AttendanceSeatIn, deriveStatus(sessions))
}

func TestDeriveStatusLaterClosedWinsOverEarlierOpen(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sessions := []models.LoginSession{
		{UserID: "u1", LoginAt: at(day, 8, 0)},
		closedSession("u1", at(day, 10, 0), at(day, 12, 0)),
	}
	assert.Equal(t, models.AttendancePresent, deriveStatus(sessions))
}

func TestDeriveStatusLaterOpenWins(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sessions := []models.LoginSession{
		closedSession("u1", at(day, 8, 0), at(day, 9, 0)),
		{UserID: "u1", LoginAt: at(day, 10, 0)},
	}
	assert.Equal(t, models.AttendanceSeatIn, deriveStatus(sessions))
}

func TestAttendanceServiceDeriveStatusForDate(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	otherDay := day.AddDate(0, 0, 1)
	sessions := &mockSessionLister{sessions: []models.LoginSession{
		closedSession("u1", at(day, 9, 0), at(day, 11, 0)),
		// Next day must not leak into this date's derivation.
		{UserID: "u1", LoginAt: at(otherDay, 9, 0)},
	}}
	svc := NewAttendanceService(sessions, &mockUserReader{}, nil, zap.NewNop(), nil, AttendanceServiceConfig{})

	status, err := svc.DeriveStatus(context.Background(), "u1", day)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, status)
}

func TestAttendanceServiceMidnightSpanAttributesToLoginDate(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	sessions := &mockSessionLister{sessions: []models.LoginSession{
		closedSession("u1", at(day, 23, 30), at(next, 1, 0)),
	}}
	svc := NewAttendanceService(sessions, &mockUserReader{}, nil, zap.NewNop(), nil, AttendanceServiceConfig{})

	status, err := svc.DeriveStatus(context.Background(), "u1", day)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, status)

	status, err = svc.DeriveStatus(context.Background(), "u1", next)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, status)
}

func TestAttendanceServiceTodayUnknownUser(t *testing.T) {
	svc := NewAttendanceService(&mockSessionLister{}, &mockUserReader{}, nil, zap.NewNop(), nil, AttendanceServiceConfig{})

	_, err := svc.Today(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceToday(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sessions := &mockSessionLister{sessions: []models.LoginSession{
		{UserID: "u1", LoginAt: at(day, 9, 0)},
	}}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewAttendanceService(sessions, users, nil, zap.NewNop(), nil, AttendanceServiceConfig{})
	svc.now = func() time.Time { return at(day, 10, 0) }

	record, err := svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceSeatIn, record.Status)
	assert.Equal(t, day, record.Date)
}

func TestAttendanceServiceSummarize(t *testing.T) {
	day1 := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	day3 := day1.AddDate(0, 0, 2)
	sessions := &mockSessionLister{sessions: []models.LoginSession{
		closedSession("u1", at(day1, 9, 0), at(day1, 11, 0)),
		{UserID: "u1", LoginAt: at(day3, 9, 0)},
	}}
	cache := &mockSummaryCache{}
	svc := NewAttendanceService(sessions, &mockUserReader{}, cache, zap.NewNop(), nil, AttendanceServiceConfig{})

	summary, err := svc.Summarize(context.Background(), "u1", day1, day3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 1, summary.SeatIn)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestAttendanceServiceSummarizeInvalidRange(t *testing.T) {
	svc := NewAttendanceService(&mockSessionLister{}, &mockUserReader{}, nil, zap.NewNop(), nil, AttendanceServiceConfig{})

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summarize(context.Background(), "u1", day, day.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
