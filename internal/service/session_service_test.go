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

type mockSessionRepo struct {
	open     map[string]*models.LoginSession
	history  map[string][]models.LoginSession
	openErr  error
	closeErr error
}

func (m *mockSessionRepo) Open(ctx context.Context, session *models.LoginSession) (bool, error) {
	if m.openErr != nil {
		return false, m.openErr
	}
	if m.open == nil {
		m.open = make(map[string]*models.LoginSession)
	}
	if _, exists := m.open[session.UserID]; exists {
		return false, nil
	}
	if session.ID == "" {
		session.ID = "sess-1"
	}
	m.open[session.UserID] = session
	return true, nil
}

func (m *mockSessionRepo) Close(ctx context.Context, userID string, logoutAt time.Time) (*models.LoginSession, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	session, exists := m.open[userID]
	if !exists {
		return nil, sql.ErrNoRows
	}
	session.LogoutAt = &logoutAt
	delete(m.open, userID)
	return session, nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error) {
	return m.history[userID], nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func activeStudent(id string) *models.User {
	return &models.User{ID: id, Code: "2021-" + id, Role: models.RoleStudent, Active: true}
}

func TestSessionServiceOpen(t *testing.T) {
	repo := &mockSessionRepo{}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewSessionService(repo, users, validator.New(), zap.NewNop(), nil)

	session, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.False(t, session.LoginAt.IsZero())
	assert.Nil(t, session.LogoutAt)
}

func TestSessionServiceOpenConflict(t *testing.T) {
	repo := &mockSessionRepo{}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewSessionService(repo, users, validator.New(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceOpenUnknownUser(t *testing.T) {
	svc := NewSessionService(&mockSessionRepo{}, &mockUserReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceOpenInactiveUser(t *testing.T) {
	inactive := activeStudent("u1")
	inactive.Active = false
	users := &mockUserReader{users: map[string]*models.User{"u1": inactive}}
	svc := NewSessionService(&mockSessionRepo{}, users, validator.New(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceClose(t *testing.T) {
	repo := &mockSessionRepo{}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewSessionService(repo, users, validator.New(), zap.NewNop(), nil)

	opened, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closed.ID)
	require.NotNil(t, closed.LogoutAt)
	assert.False(t, closed.LogoutAt.Before(closed.LoginAt))
}

func TestSessionServiceCloseWithoutOpen(t *testing.T) {
	svc := NewSessionService(&mockSessionRepo{}, &mockUserReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Close(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceReopenAfterClose(t *testing.T) {
	repo := &mockSessionRepo{}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewSessionService(repo, users, validator.New(), zap.NewNop(), nil)

	_, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)
}

func TestSessionServiceCloseAcceptsClockSkew(t *testing.T) {
	repo := &mockSessionRepo{}
	users := &mockUserReader{users: map[string]*models.User{"u1": activeStudent("u1")}}
	svc := NewSessionService(repo, users, validator.New(), zap.NewNop(), nil)

	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err := svc.Open(context.Background(), OpenSessionRequest{UserID: "u1"})
	require.NoError(t, err)

	// Workstation clock drifted backwards between login and logout.
	svc.now = func() time.Time { return base.Add(-time.Minute) }
	closed, err := svc.Close(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, closed.LogoutAt)
	assert.True(t, closed.LogoutAt.Before(closed.LoginAt))
}

func TestSessionServiceList(t *testing.T) {
	repo := &mockSessionRepo{history: map[string][]models.LoginSession{
		"u1": {{ID: "s1", UserID: "u1"}, {ID: "s2", UserID: "u1"}},
	}}
	svc := NewSessionService(repo, &mockUserReader{}, validator.New(), zap.NewNop(), nil)

	sessions, err := svc.List(context.Background(), "u1", models.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
