package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/labtrack/labtrack-api/internal/models"
)

// EnrollmentRepository handles persistence of class roster membership.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Insert adds a student to a class roster. The (class, student) pair is the
// primary key and the insert is idempotent: re-enrolling an existing member
// affects zero rows and is not an error. Returns whether a row was inserted.
func (r *EnrollmentRepository) Insert(ctx context.Context, enrollment *models.ClassEnrollment) (bool, error) {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_enrollments (class_id, student_id, enrolled_by, enrolled_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, enrollment.ClassID, enrollment.StudentID, enrollment.EnrolledBy, enrollment.EnrolledAt)
	if err != nil {
		return false, fmt.Errorf("insert enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert enrollment rows affected: %w", err)
	}
	return rows == 1, nil
}

// Delete removes a roster pair. Returns whether a row was deleted; the
// roster carries no audit requirement so removal is a hard delete.
func (r *EnrollmentRepository) Delete(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `DELETE FROM class_enrollments WHERE class_id = $1 AND student_id = $2`
	res, err := r.db.ExecContext(ctx, query, classID, studentID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	return rows == 1, nil
}

// Exists checks roster membership for a (class, student) pair.
func (r *EnrollmentRepository) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM class_enrollments WHERE class_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListByClass returns the current roster of a class.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassEnrollment, error) {
	const query = `SELECT class_id, student_id, enrolled_by, enrolled_at FROM class_enrollments
        WHERE class_id = $1 ORDER BY enrolled_at ASC`
	var enrollments []models.ClassEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return enrollments, nil
}

// ListOptions returns every active student annotated with membership in the
// given class, ordered by name for deterministic listings.
func (r *EnrollmentRepository) ListOptions(ctx context.Context, classID string) ([]models.EnrollmentOption, error) {
	const query = `SELECT u.id AS student_id, u.code,
        TRIM(u.first_name || ' ' || u.last_name) AS full_name,
        EXISTS (SELECT 1 FROM class_enrollments e WHERE e.class_id = $1 AND e.student_id = u.id) AS is_enrolled
        FROM users u
        WHERE u.role IN ($2, $3) AND u.active = TRUE
        ORDER BY full_name ASC, u.id ASC`
	var options []models.EnrollmentOption
	if err := r.db.SelectContext(ctx, &options, query, classID, models.RoleStudent, models.RoleWorkingStudent); err != nil {
		return nil, fmt.Errorf("list enrollment options: %w", err)
	}
	return options, nil
}
