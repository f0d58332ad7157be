package models

import "time"

// AppointmentRole is the teaching role of an appointed user.
type AppointmentRole string

const (
	AppointmentRoleLecturer AppointmentRole = "LECTURER"
	AppointmentRoleTA       AppointmentRole = "TA"
)

// MaxSectionLoad is the ceiling on summed load percent per section.
const MaxSectionLoad = 100

// Appointment assigns a lecturer or TA to a section with a share of the load.
type Appointment struct {
	ID          string          `db:"id" json:"id"`
	SectionID   string          `db:"section_id" json:"section_id"`
	TermID      string          `db:"term_id" json:"term_id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Role        AppointmentRole `db:"role" json:"role"`
	LoadPercent int             `db:"load_percent" json:"load_percent"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
