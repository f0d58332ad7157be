package models

import "time"

// SectionStatus describes whether a section accepts registrations.
type SectionStatus string

const (
	SectionStatusOpen      SectionStatus = "OPEN"
	SectionStatusClosed    SectionStatus = "CLOSED"
	SectionStatusCancelled SectionStatus = "CANCELLED"
)

// Section is a scheduled offering of a course in a term.
type Section struct {
	ID               string        `db:"id" json:"id"`
	CourseID         string        `db:"course_id" json:"course_id"`
	TermID           string        `db:"term_id" json:"term_id"`
	Code             string        `db:"code" json:"code"`
	CourseCode       string        `db:"course_code" json:"course_code"`
	CourseTitle      string        `db:"course_title" json:"course_title"`
	Capacity         int           `db:"capacity" json:"capacity"`
	WaitlistCapacity int           `db:"waitlist_capacity" json:"waitlist_capacity"`
	Status           SectionStatus `db:"status" json:"status"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// DisplayName is the course and section code, e.g. "CS101-A".
func (s *Section) DisplayName() string {
	if s.CourseCode == "" {
		return s.Code
	}
	return s.CourseCode + "-" + s.Code
}

// SeatCounts is a snapshot of a section's derived counters.
type SeatCounts struct {
	Active     int `db:"active" json:"active"`
	Waitlisted int `db:"waitlisted" json:"waitlisted"`
}
