package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

type scheduleService interface {
	ListMeetings(ctx context.Context, sectionID string) ([]models.SectionMeeting, error)
	CreateMeeting(ctx context.Context, sectionID string, req dto.MeetingRequest) (*models.SectionMeeting, []models.Warning, error)
	UpdateMeeting(ctx context.Context, id string, req dto.MeetingRequest) (*models.SectionMeeting, []models.Warning, error)
	DeleteMeeting(ctx context.Context, id string) error
	Occurrences(ctx context.Context, meetingID string) (*dto.OccurrencesResponse, error)
}

// ScheduleHandler exposes meeting administration endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List godoc
// @Summary List section meetings
// @Tags Meetings
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/meetings [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	meetings, err := h.service.ListMeetings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings, nil)
}

// Create godoc
// @Summary Add a weekly meeting to a section
// @Description Rejects room and teacher collisions with CONFLICT_DETECTED; non-fatal issues come back as warnings.
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.MeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id}/meetings [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.MeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, warnings, err := h.service.CreateMeeting(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, meeting, warnings)
}

// Update godoc
// @Summary Replace a meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body dto.MeetingRequest true "Meeting payload"
// @Success 200 {object} response.Envelope
// @Router /meetings/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.MeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, warnings, err := h.service.UpdateMeeting(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, meeting, warnings)
}

// Delete godoc
// @Summary Delete a meeting
// @Tags Meetings
// @Param id path string true "Meeting ID"
// @Success 204
// @Router /meetings/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteMeeting(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Occurrences godoc
// @Summary Preview the dated occurrences of a meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Router /meetings/{id}/occurrences [get]
func (h *ScheduleHandler) Occurrences(c *gin.Context) {
	preview, err := h.service.Occurrences(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}
