package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type enrollmentRepository interface {
	Insert(ctx context.Context, enrollment *models.ClassEnrollment) (bool, error)
	Delete(ctx context.Context, classID, studentID string) (bool, error)
	ListOptions(ctx context.Context, classID string) ([]models.EnrollmentOption, error)
}

type rosterUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type rosterClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// EnrollManyRequest describes a batch enrollment.
type EnrollManyRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
	ClassID    string   `json:"class_id" validate:"required"`
	ActorID    string   `json:"actor_id" validate:"required"`
}

// EnrollmentService manages class roster membership.
type EnrollmentService struct {
	repo      enrollmentRepository
	users     rosterUserReader
	classes   rosterClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, users rosterUserReader, classes rosterClassReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, users: users, classes: classes, validator: validate, logger: logger}
}

// Enroll adds a student to a class roster. Enrolling an already-enrolled
// student succeeds without modification; the uniqueness of the pair is
// enforced by the store, not by a read-then-write check.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, classID, actorID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load class")
	}
	if err := s.checkStudent(ctx, studentID); err != nil {
		return err
	}

	enrollment := &models.ClassEnrollment{ClassID: classID, StudentID: studentID, EnrolledBy: actorID}
	inserted, err := s.repo.Insert(ctx, enrollment)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to enroll student")
	}
	if !inserted {
		s.logger.Debug("student already enrolled", zap.String("class_id", classID), zap.String("student_id", studentID))
	}
	return nil
}

// EnrollMany applies Enroll per student. One student's failure never aborts
// the batch; each enrollment is independently atomic and partial success is
// the documented contract.
func (s *EnrollmentService) EnrollMany(ctx context.Context, req EnrollManyRequest) (*models.EnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load class")
	}

	result := &models.EnrollResult{Succeeded: []string{}, Failed: map[string]string{}}
	for _, studentID := range req.StudentIDs {
		if err := s.checkStudent(ctx, studentID); err != nil {
			result.Failed[studentID] = appErrors.FromError(err).Message
			continue
		}
		enrollment := &models.ClassEnrollment{ClassID: req.ClassID, StudentID: studentID, EnrolledBy: req.ActorID}
		if _, err := s.repo.Insert(ctx, enrollment); err != nil {
			s.logger.Warn("batch enrollment insert failed", zap.String("student_id", studentID), zap.Error(err))
			result.Failed[studentID] = "store error"
			continue
		}
		result.Succeeded = append(result.Succeeded, studentID)
	}
	return result, nil
}

// Unenroll removes a roster pair, failing with not-found when the pair does
// not exist. Removal is a hard delete.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, classID string) error {
	deleted, err := s.repo.Delete(ctx, classID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to unenroll student")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return nil
}

// ListAvailable returns every known student annotated with membership in the
// class, ordered by name for deterministic listings.
func (s *EnrollmentService) ListAvailable(ctx context.Context, classID string) ([]models.EnrollmentOption, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load class")
	}
	options, err := s.repo.ListOptions(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list enrollment options")
	}
	return options, nil
}

func (s *EnrollmentService) checkStudent(ctx context.Context, studentID string) error {
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
	}
	if !user.Role.IsStudentRole() {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}
	return nil
}
