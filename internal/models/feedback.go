package models

import "time"

// ConditionRating grades a single piece of equipment. The literal strings
// are the wire contract and must not be renumbered or abbreviated.
type ConditionRating string

const (
	ConditionGood       ConditionRating = "Good"
	ConditionMinorIssue ConditionRating = "Minor Issue"
	ConditionMajorIssue ConditionRating = "Major Issue"
)

// Valid returns true when the rating is a supported value.
func (r ConditionRating) Valid() bool {
	switch r {
	case ConditionGood, ConditionMinorIssue, ConditionMajorIssue:
		return true
	default:
		return false
	}
}

// ReportStatus tracks the escalation state of an equipment report.
// Pending -> Forwarded is the only transition; Forwarded is terminal here,
// administrative resolution happens outside this engine.
type ReportStatus string

const (
	ReportPending   ReportStatus = "Pending"
	ReportForwarded ReportStatus = "Forwarded"
)

// EquipmentReport is a student-submitted equipment-condition report. The
// forwarding fields are set atomically with the Pending -> Forwarded
// transition and are absent otherwise.
type EquipmentReport struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	WorkstationID   string          `db:"workstation_id" json:"workstation_id"`
	EquipmentRating ConditionRating `db:"equipment_rating" json:"equipment_rating"`
	MonitorRating   ConditionRating `db:"monitor_rating" json:"monitor_rating"`
	KeyboardRating  ConditionRating `db:"keyboard_rating" json:"keyboard_rating"`
	MouseRating     ConditionRating `db:"mouse_rating" json:"mouse_rating"`
	Comments        *string         `db:"comments" json:"comments,omitempty"`
	SubmittedAt     time.Time       `db:"submitted_at" json:"submitted_at"`
	Status          ReportStatus    `db:"status" json:"status"`
	ForwardedBy     *string         `db:"forwarded_by" json:"forwarded_by,omitempty"`
	ForwardedAt     *time.Time      `db:"forwarded_at" json:"forwarded_at,omitempty"`
	ForwardingNotes *string         `db:"forwarding_notes" json:"forwarding_notes,omitempty"`
}
