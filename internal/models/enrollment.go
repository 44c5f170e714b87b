package models

import "time"

// ClassEnrollment links a student to a class roster. The (class, student)
// pair is unique; inserting an existing pair is a no-op, not an error.
type ClassEnrollment struct {
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledBy string    `db:"enrolled_by" json:"enrolled_by"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollResult reports the outcome of a batch enrollment. A failed student
// never aborts the batch; partial success is the documented contract.
type EnrollResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// EnrollmentOption annotates a known student with roster membership for a
// given class, for deterministic enrollment pickers.
type EnrollmentOption struct {
	StudentID  string `db:"student_id" json:"student_id"`
	Code       string `db:"code" json:"code"`
	FullName   string `db:"full_name" json:"full_name"`
	IsEnrolled bool   `db:"is_enrolled" json:"is_enrolled"`
}
