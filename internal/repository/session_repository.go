package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/labtrack/labtrack-api/internal/models"
)

// SessionRepository handles persistence of workstation login sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Open inserts a new session only if the user has no open one. The check and
// insert run as a single statement so two concurrent logins cannot both
// succeed; the return value reports whether the row was inserted.
func (r *SessionRepository) Open(ctx context.Context, session *models.LoginSession) (bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.LoginAt.IsZero() {
		session.LoginAt = time.Now().UTC()
	}
	const query = `INSERT INTO login_sessions (id, user_id, workstation_id, login_at)
        SELECT $1, $2, $3, $4
        WHERE NOT EXISTS (SELECT 1 FROM login_sessions WHERE user_id = $2 AND logout_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.WorkstationID, session.LoginAt)
	if err != nil {
		return false, fmt.Errorf("open session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("open session rows affected: %w", err)
	}
	return rows == 1, nil
}

// Close stamps the logout timestamp on the user's open session and returns
// the closed row. sql.ErrNoRows means no session was open.
func (r *SessionRepository) Close(ctx context.Context, userID string, logoutAt time.Time) (*models.LoginSession, error) {
	const query = `UPDATE login_sessions SET logout_at = $2 WHERE user_id = $1 AND logout_at IS NULL
        RETURNING id, user_id, workstation_id, login_at, logout_at`
	var session models.LoginSession
	if err := r.db.GetContext(ctx, &session, query, userID, logoutAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("close session: %w", err)
	}
	return &session, nil
}

// FindOpenByUser returns the user's open session, if any.
func (r *SessionRepository) FindOpenByUser(ctx context.Context, userID string) (*models.LoginSession, error) {
	const query = `SELECT id, user_id, workstation_id, login_at, logout_at FROM login_sessions
        WHERE user_id = $1 AND logout_at IS NULL LIMIT 1`
	var session models.LoginSession
	if err := r.db.GetContext(ctx, &session, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &session, nil
}

// ListByUser returns the user's sessions inside the optional range, open
// session included, ordered by login time ascending.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error) {
	query := `SELECT id, user_id, workstation_id, login_at, logout_at FROM login_sessions WHERE user_id = $1`
	args := []interface{}{userID}

	if filter.From != nil {
		query += fmt.Sprintf(" AND login_at >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND login_at < $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	query += " ORDER BY login_at ASC"

	var sessions []models.LoginSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CountOpenByUser returns the number of open sessions for a user. Kept for
// invariant monitoring; the value is 0 or 1 when the store is healthy.
func (r *SessionRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM login_sessions WHERE user_id = $1 AND logout_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return count, nil
}
