package dto

// AppointmentRequest appoints a lecturer or TA to a section.
type AppointmentRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	Role        string `json:"role" validate:"required,appointment_role"`
	LoadPercent int    `json:"load_percent" validate:"min=1,max=100"`
}

// UpdateAppointmentRequest changes role or load of an appointment.
type UpdateAppointmentRequest struct {
	Role        string `json:"role" validate:"required,appointment_role"`
	LoadPercent int    `json:"load_percent" validate:"min=1,max=100"`
}

// ConflictAppointmentRequest checks a candidate appointment.
type ConflictAppointmentRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Role      string `json:"role" validate:"omitempty,appointment_role"`
}
