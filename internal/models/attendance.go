package models

import "time"

// AttendanceStatus is the per-day status derived from login sessions. The
// literal strings are the wire contract consumed by dashboards; they must
// not be renamed or abbreviated.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceSeatIn  AttendanceStatus = "Seat-in"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceSeatIn:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the derived status for a (student, calendar date)
// pair. Records are recomputed on read and never independently persisted.
type AttendanceRecord struct {
	StudentID string           `json:"student_id"`
	Date      time.Time        `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

// AttendanceSummary aggregates derived statuses over a date range.
type AttendanceSummary struct {
	StudentID string    `json:"student_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Present   int       `json:"present"`
	Absent    int       `json:"absent"`
	SeatIn    int       `json:"seat_in"`
	Total     int       `json:"total"`
}
