package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type attendanceSessionLister interface {
	ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.LoginSession, error)
}

type attendanceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AttendanceServiceConfig tunes summary caching.
type AttendanceServiceConfig struct {
	SummaryCacheTTL time.Duration
}

// AttendanceService derives per-day attendance from login sessions. Nothing
// is persisted: every status is recomputed from the session records on read,
// and the Redis summary cache is an optimisation only.
type AttendanceService struct {
	sessions attendanceSessionLister
	users    attendanceUserReader
	cache    summaryCache
	logger   *zap.Logger
	metrics  *MetricsService
	now      func() time.Time
	cfg      AttendanceServiceConfig
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(sessions attendanceSessionLister, users attendanceUserReader, cache summaryCache, logger *zap.Logger, metrics *MetricsService, cfg AttendanceServiceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Minute
	}
	return &AttendanceService{sessions: sessions, users: users, cache: cache, logger: logger, metrics: metrics, now: time.Now, cfg: cfg}
}

// deriveStatus computes the status for one calendar day's sessions. The
// session with the latest login wins: closed means Present, still open
// means Seat-in. An open earlier session with a later closed one therefore
// still counts Present.
func deriveStatus(sessions []models.LoginSession) models.AttendanceStatus {
	if len(sessions) == 0 {
		return models.AttendanceAbsent
	}
	latest := sessions[0]
	for _, s := range sessions[1:] {
		if s.LoginAt.After(latest.LoginAt) {
			latest = s
		}
	}
	if latest.Open() {
		return models.AttendanceSeatIn
	}
	return models.AttendancePresent
}

// dayBounds returns the UTC half-open interval covering the calendar date.
// Sessions spanning midnight attribute to their login date.
func dayBounds(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day, day.Add(24 * time.Hour)
}

// DeriveStatus computes the attendance status of a student for one date.
func (s *AttendanceService) DeriveStatus(ctx context.Context, studentID string, date time.Time) (models.AttendanceStatus, error) {
	from, to := dayBounds(date)
	sessions, err := s.sessions.ListByUser(ctx, studentID, models.SessionFilter{From: &from, To: &to})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load sessions")
	}
	return deriveStatus(sessions), nil
}

// Today returns the derived attendance record of a user for the current
// date, failing with not-found when the user is unknown.
func (s *AttendanceService) Today(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load user")
	}

	today, _ := dayBounds(s.now().UTC())
	status, err := s.DeriveStatus(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return &models.AttendanceRecord{StudentID: userID, Date: today, Status: status}, nil
}

// Summarize aggregates derived statuses over an inclusive date range. The
// result is cached briefly for dashboard counters; the cache never feeds
// back into derivation.
func (s *AttendanceService) Summarize(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceSummary, error) {
	fromDay, _ := dayBounds(from)
	toDay, toEnd := dayBounds(to)
	if toDay.Before(fromDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range end precedes start")
	}

	key := fmt.Sprintf("attendance:summary:%s:%s:%s", studentID, fromDay.Format("2006-01-02"), toDay.Format("2006-01-02"))
	if s.cache != nil {
		var cached models.AttendanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	sessions, err := s.sessions.ListByUser(ctx, studentID, models.SessionFilter{From: &fromDay, To: &toEnd})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load sessions")
	}

	byDay := make(map[time.Time][]models.LoginSession)
	for _, session := range sessions {
		day, _ := dayBounds(session.LoginAt.UTC())
		byDay[day] = append(byDay[day], session)
	}

	summary := &models.AttendanceSummary{StudentID: studentID, From: fromDay, To: toDay}
	for day := fromDay; !day.After(toDay); day = day.Add(24 * time.Hour) {
		switch deriveStatus(byDay[day]) {
		case models.AttendancePresent:
			summary.Present++
		case models.AttendanceSeatIn:
			summary.SeatIn++
		default:
			summary.Absent++
		}
		summary.Total++
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cfg.SummaryCacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance summary", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, nil
}
