package dto

import "github.com/noah-isme/academic-registrar-api/internal/models"

// EnrollRequest registers a student in a section.
type EnrollRequest struct {
	StudentID string                `json:"student_id" validate:"required"`
	Role      models.EnrollmentRole `json:"role" validate:"omitempty,oneof=STUDENT AUDITOR student auditor"`
}

// OverrideRequest forces an enrollment into a new status through the
// transition table.
type OverrideRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=ACTIVE COMPLETED FAILED DROPPED"`
	Reason string                  `json:"reason" validate:"max=500"`
}

// EnrollmentQuery captures list filters from the query string.
type EnrollmentQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
