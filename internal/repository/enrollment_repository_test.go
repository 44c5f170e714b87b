package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrack/labtrack-api/internal/models"
)

func TestEnrollmentRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrollment := &models.ClassEnrollment{ClassID: "c1", StudentID: "s1", EnrolledBy: "admin"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_enrollments")).
		WithArgs("c1", "s1", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Insert(context.Background(), enrollment)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertConflictIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows affected.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_enrollments")).
		WithArgs("c1", "s1", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Insert(context.Background(), &models.ClassEnrollment{ClassID: "c1", StudentID: "s1", EnrolledBy: "admin"})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_enrollments WHERE class_id = $1 AND student_id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteMissingPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_enrollments WHERE class_id = $1 AND student_id = $2")).
		WithArgs("c1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "c1", "ghost")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListOptions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "code", "full_name", "is_enrolled"}).
		AddRow("s1", "2021-001", "Ana Cruz", true).
		AddRow("s2", "2021-002", "Ben Reyes", false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WithArgs("c1", models.RoleStudent, models.RoleWorkingStudent).
		WillReturnRows(rows)

	options, err := repo.ListOptions(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.True(t, options[0].IsEnrolled)
	assert.Equal(t, "Ben Reyes", options[1].FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "student_id", "enrolled_by", "enrolled_at"}).
		AddRow("c1", "s1", "admin", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, student_id, enrolled_by, enrolled_at FROM class_enrollments")).
		WithArgs("c1").
		WillReturnRows(rows)

	roster, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
