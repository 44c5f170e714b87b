package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrack/labtrack-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryOpenInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	session := &models.LoginSession{UserID: "u1"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_sessions")).
		WithArgs(sqlmock.AnyArg(), "u1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Open(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryOpenBlockedByOpenSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// The guarded insert affects zero rows while an open session exists.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_sessions")).
		WithArgs(sqlmock.AnyArg(), "u1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Open(context.Background(), &models.LoginSession{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryClose(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	login := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	logout := login.Add(2 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "workstation_id", "login_at", "logout_at"}).
		AddRow("sess-1", "u1", nil, login, logout)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE login_sessions SET logout_at = $2")).
		WithArgs("u1", logout).
		WillReturnRows(rows)

	session, err := repo.Close(context.Background(), "u1", logout)
	require.NoError(t, err)
	require.NotNil(t, session.LogoutAt)
	assert.Equal(t, logout, session.LogoutAt.UTC())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCloseNoOpenSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	logout := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE login_sessions SET logout_at = $2")).
		WithArgs("u1", logout).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Close(context.Background(), "u1", logout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByUserWithRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "workstation_id", "login_at", "logout_at"}).
		AddRow("sess-1", "u1", "ws-07", from.Add(9*time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("AND login_at >= $2 AND login_at < $3 ORDER BY login_at ASC")).
		WithArgs("u1", from, to).
		WillReturnRows(rows)

	sessions, err := repo.ListByUser(context.Background(), "u1", models.SessionFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Open())
	require.NoError(t, mock.ExpectationsWereMet())
}
