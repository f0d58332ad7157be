package models

import "time"

// EnrollmentStatus is the state of a section enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusActive     EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
)

// enrollmentTransitions lists every legal status change. Dropped records are
// terminal; re-registration creates a new record.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusActive:     {EnrollmentStatusCompleted, EnrollmentStatusFailed, EnrollmentStatusDropped},
	EnrollmentStatusWaitlisted: {EnrollmentStatusActive, EnrollmentStatusDropped},
}

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusWaitlisted, EnrollmentStatusCompleted,
		EnrollmentStatusFailed, EnrollmentStatusDropped:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the status counts against the one-enrollment rule.
func (s EnrollmentStatus) Open() bool {
	return s != EnrollmentStatusDropped
}

// EnrollmentRole distinguishes credit students from auditors.
type EnrollmentRole string

const (
	EnrollmentRoleStudent EnrollmentRole = "STUDENT"
	EnrollmentRoleAuditor EnrollmentRole = "AUDITOR"
)

// SectionEnrollment is a student's registration in a section.
type SectionEnrollment struct {
	ID           string           `db:"id" json:"id"`
	SectionID    string           `db:"section_id" json:"section_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Role         EnrollmentRole   `db:"role" json:"role"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt   *time.Time       `db:"enrolled_at" json:"enrolled_at,omitempty"`
	WaitlistedAt *time.Time       `db:"waitlisted_at" json:"waitlisted_at,omitempty"`
	DroppedAt    *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches an enrollment with student and section info.
type EnrollmentDetail struct {
	SectionEnrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	SectionCode  string `db:"section_code" json:"section_code"`
	CourseCode   string `db:"course_code" json:"course_code"`
	TermID       string `db:"term_id" json:"term_id"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	SectionID string
	StudentID string
	TermID    string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
