package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, report *models.EquipmentReport) error
	FindByID(ctx context.Context, id string) (*models.EquipmentReport, error)
	ListPending(ctx context.Context) ([]models.EquipmentReport, error)
	Forward(ctx context.Context, id, actorID string, notes *string, forwardedAt time.Time) (bool, error)
}

type feedbackUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SubmitFeedbackRequest describes a student-submitted equipment report.
type SubmitFeedbackRequest struct {
	StudentID     string  `json:"student_id" validate:"required"`
	WorkstationID string  `json:"workstation_id" validate:"required"`
	Equipment     string  `json:"equipment" validate:"required"`
	Monitor       string  `json:"monitor" validate:"required"`
	Keyboard      string  `json:"keyboard" validate:"required"`
	Mouse         string  `json:"mouse" validate:"required"`
	Comments      *string `json:"comments"`
}

// ForwardFeedbackRequest escalates a pending report to the administrator.
type ForwardFeedbackRequest struct {
	ActorID string  `json:"actor_id" validate:"required"`
	Notes   *string `json:"notes"`
}

// FeedbackService runs the equipment-report escalation workflow:
// Pending -> Forwarded, exactly once. Forwarded is terminal here;
// administrative resolution happens outside this engine.
type FeedbackService struct {
	repo      feedbackRepository
	users     feedbackUserReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewFeedbackService constructs FeedbackService.
func NewFeedbackService(repo feedbackRepository, users feedbackUserReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, users: users, validator: validate, logger: logger, metrics: metrics, now: time.Now}
}

// Submit files a new report in Pending state.
func (s *FeedbackService) Submit(ctx context.Context, req SubmitFeedbackRequest) (*models.EquipmentReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	ratings := map[string]models.ConditionRating{
		"equipment": models.ConditionRating(req.Equipment),
		"monitor":   models.ConditionRating(req.Monitor),
		"keyboard":  models.ConditionRating(req.Keyboard),
		"mouse":     models.ConditionRating(req.Mouse),
	}
	for field, rating := range ratings {
		if !rating.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid condition rating for %s: %q", field, rating))
		}
	}

	user, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
	}
	if !user.Role.IsStudentRole() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reports are submitted by students")
	}

	report := &models.EquipmentReport{
		StudentID:       req.StudentID,
		WorkstationID:   req.WorkstationID,
		EquipmentRating: ratings["equipment"],
		MonitorRating:   ratings["monitor"],
		KeyboardRating:  ratings["keyboard"],
		MouseRating:     ratings["mouse"],
		Comments:        req.Comments,
		SubmittedAt:     s.now().UTC(),
		Status:          models.ReportPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create report")
	}

	s.metrics.RecordReportSubmitted()
	s.logger.Info("equipment report submitted",
		zap.String("report_id", report.ID),
		zap.String("student_id", report.StudentID),
		zap.String("workstation_id", report.WorkstationID))
	return report, nil
}

// Forward escalates a pending report to the administrator. The transition
// is a store-side compare-and-swap: of two concurrent forwards exactly one
// wins, the loser observes a conflict and the report keeps the winner's
// actor and notes.
func (s *FeedbackService) Forward(ctx context.Context, reportID string, req ForwardFeedbackRequest) (*models.EquipmentReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forward payload")
	}

	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load report")
	}
	if report.Status == models.ReportForwarded {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report already forwarded")
	}

	forwardedAt := s.now().UTC()
	won, err := s.repo.Forward(ctx, reportID, req.ActorID, req.Notes, forwardedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to forward report")
	}
	if !won {
		s.metrics.RecordForwardConflict()
		return nil, appErrors.Clone(appErrors.ErrConflict, "report already forwarded")
	}

	report.Status = models.ReportForwarded
	report.ForwardedBy = &req.ActorID
	report.ForwardedAt = &forwardedAt
	report.ForwardingNotes = req.Notes

	s.metrics.RecordReportForwarded()
	s.logger.Info("equipment report forwarded",
		zap.String("report_id", reportID),
		zap.String("actor_id", req.ActorID))
	return report, nil
}

// ListPending returns unforwarded reports oldest-first.
func (s *FeedbackService) ListPending(ctx context.Context) ([]models.EquipmentReport, error) {
	reports, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list pending reports")
	}
	return reports, nil
}
