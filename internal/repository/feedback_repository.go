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

// FeedbackRepository handles persistence of equipment-condition reports.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create persists a new report in Pending state.
func (r *FeedbackRepository) Create(ctx context.Context, report *models.EquipmentReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = models.ReportPending
	}
	const query = `INSERT INTO equipment_reports (id, student_id, workstation_id, equipment_rating, monitor_rating,
        keyboard_rating, mouse_rating, comments, submitted_at, status)
        VALUES (:id, :student_id, :workstation_id, :equipment_rating, :monitor_rating,
        :keyboard_rating, :mouse_rating, :comments, :submitted_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create equipment report: %w", err)
	}
	return nil
}

// FindByID returns a report by its identifier.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.EquipmentReport, error) {
	const query = `SELECT id, student_id, workstation_id, equipment_rating, monitor_rating, keyboard_rating,
        mouse_rating, comments, submitted_at, status, forwarded_by, forwarded_at, forwarding_notes
        FROM equipment_reports WHERE id = $1 LIMIT 1`
	var report models.EquipmentReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find equipment report: %w", err)
	}
	return &report, nil
}

// ListPending returns unforwarded reports oldest-first so escalation stays
// FIFO-fair.
func (r *FeedbackRepository) ListPending(ctx context.Context) ([]models.EquipmentReport, error) {
	const query = `SELECT id, student_id, workstation_id, equipment_rating, monitor_rating, keyboard_rating,
        mouse_rating, comments, submitted_at, status, forwarded_by, forwarded_at, forwarding_notes
        FROM equipment_reports WHERE status = $1 ORDER BY submitted_at ASC`
	var reports []models.EquipmentReport
	if err := r.db.SelectContext(ctx, &reports, query, models.ReportPending); err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	return reports, nil
}

// Forward performs the Pending -> Forwarded transition as a compare-and-swap
// on status: the update only applies while the row is still Pending, so two
// concurrent forwards yield exactly one winner. The forwarding fields are
// written in the same statement as the status change. Returns whether this
// call won the transition.
func (r *FeedbackRepository) Forward(ctx context.Context, id, actorID string, notes *string, forwardedAt time.Time) (bool, error) {
	const query = `UPDATE equipment_reports
        SET status = $2, forwarded_by = $3, forwarded_at = $4, forwarding_notes = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportForwarded, actorID, forwardedAt, notes, models.ReportPending)
	if err != nil {
		return false, fmt.Errorf("forward equipment report: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("forward report rows affected: %w", err)
	}
	return rows == 1, nil
}
