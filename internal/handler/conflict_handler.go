package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

type meetingConflictChecker interface {
	CheckConflicts(ctx context.Context, req dto.ConflictMeetingRequest) (*models.ConflictReport, error)
}

type appointmentConflictChecker interface {
	CheckConflicts(ctx context.Context, req dto.ConflictAppointmentRequest) (*models.ConflictReport, error)
}

type conflictMatrix interface {
	SectionMatrix(ctx context.Context, sectionID string) (*models.ConflictReport, error)
}

// ConflictHandler answers "would this collide" questions without writing.
type ConflictHandler struct {
	meetings     meetingConflictChecker
	appointments appointmentConflictChecker
	matrix       conflictMatrix
}

// NewConflictHandler constructs ConflictHandler.
func NewConflictHandler(meetings meetingConflictChecker, appointments appointmentConflictChecker, matrix conflictMatrix) *ConflictHandler {
	return &ConflictHandler{meetings: meetings, appointments: appointments, matrix: matrix}
}

// CheckMeeting godoc
// @Summary Check a candidate meeting for room and teacher conflicts
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.ConflictMeetingRequest true "Candidate meeting"
// @Success 200 {object} response.Envelope
// @Router /conflicts/meetings [post]
func (h *ConflictHandler) CheckMeeting(c *gin.Context) {
	var req dto.ConflictMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.meetings.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// CheckAppointment godoc
// @Summary Check a candidate appointment for teacher double booking
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.ConflictAppointmentRequest true "Candidate appointment"
// @Success 200 {object} response.Envelope
// @Router /conflicts/appointments [post]
func (h *ConflictHandler) CheckAppointment(c *gin.Context) {
	var req dto.ConflictAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.appointments.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SectionMatrix godoc
// @Summary Conflict matrix of a section
// @Tags Conflicts
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/conflicts [get]
func (h *ConflictHandler) SectionMatrix(c *gin.Context) {
	report, err := h.matrix.SectionMatrix(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
