package models

import "time"

// Domain event types emitted by the enrollment engine.
const (
	EventEnrollmentCreated    = "enrollment.created"
	EventEnrollmentOverridden = "enrollment.overridden"
	EventWaitlistPromoted     = "waitlist.promoted"
)

// EnrollmentEvent carries enough identifiers for a notification dispatcher to
// render a message without calling back into the engine.
type EnrollmentEvent struct {
	EnrollmentID   string           `json:"enrollment_id"`
	StudentID      string           `json:"student_id"`
	SectionID      string           `json:"section_id"`
	CourseID       string           `json:"course_id"`
	TermID         string           `json:"term_id"`
	Status         EnrollmentStatus `json:"status"`
	PreviousStatus EnrollmentStatus `json:"previous_status,omitempty"`
	ActorID        string           `json:"actor_id,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
