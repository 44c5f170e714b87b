package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type sessionRepository interface {
	Open(ctx context.Context, session *models.LoginSession) (bool, error)
	Close(ctx context.Context, userID string, logoutAt time.Time) (*models.LoginSession, error)
	ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error)
}

type sessionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// OpenSessionRequest describes a workstation login event.
type OpenSessionRequest struct {
	UserID        string  `json:"user_id" validate:"required"`
	WorkstationID *string `json:"workstation_id"`
}

// SessionService tracks workstation occupancy sessions. It holds no session
// state in process: every call reads and writes the store, and open-session
// uniqueness is enforced by the repository's atomic check-and-set.
type SessionService struct {
	repo      sessionRepository
	users     sessionUserReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, users sessionUserReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, users: users, validator: validate, logger: logger, metrics: metrics, now: time.Now}
}

// Open starts a session for the user. A second login before logout fails
// with a conflict; the check and insert are a single atomic store write.
func (s *SessionService) Open(ctx context.Context, req OpenSessionRequest) (*models.LoginSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	session := &models.LoginSession{UserID: req.UserID, WorkstationID: req.WorkstationID, LoginAt: s.now().UTC()}
	inserted, err := s.repo.Open(ctx, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to open session")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already has an open session")
	}

	s.metrics.RecordSessionOpened()
	s.logger.Info("session opened",
		zap.String("user_id", session.UserID),
		zap.String("session_id", session.ID),
		zap.Stringp("workstation_id", session.WorkstationID))
	return session, nil
}

// Close stamps the logout timestamp on the user's open session. A logout
// earlier than the login is accepted but flagged: workstation clocks are
// not authoritative and the anomaly belongs in observability, not in a
// rejected logout.
func (s *SessionService) Close(ctx context.Context, userID string) (*models.LoginSession, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}

	logoutAt := s.now().UTC()
	session, err := s.repo.Close(ctx, userID, logoutAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no open session for user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to close session")
	}

	if session.LogoutAt != nil && session.LogoutAt.Before(session.LoginAt) {
		s.metrics.RecordSessionClockSkew()
		s.logger.Warn("session closed before it opened",
			zap.String("session_id", session.ID),
			zap.String("user_id", session.UserID),
			zap.Time("login_at", session.LoginAt),
			zap.Time("logout_at", *session.LogoutAt))
	}

	s.metrics.RecordSessionClosed()
	return session, nil
}

// List returns the user's sessions inside the optional range ordered by
// login time ascending, open session included.
func (s *SessionService) List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	sessions, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list sessions")
	}
	return sessions, nil
}
