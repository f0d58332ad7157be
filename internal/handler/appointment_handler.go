package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

type appointmentService interface {
	List(ctx context.Context, sectionID string) ([]models.Appointment, error)
	Create(ctx context.Context, sectionID string, req dto.AppointmentRequest) (*models.Appointment, error)
	Update(ctx context.Context, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentHandler exposes lecturer and TA appointment endpoints.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(service appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// List godoc
// @Summary List section appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	appts, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, nil)
}

// Create godoc
// @Summary Appoint a lecturer or TA
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.AppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sections/{id}/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.AppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	appt, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Update godoc
// @Summary Change role or load of an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentRequest true "Appointment payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	appt, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Delete godoc
// @Summary Remove an appointment
// @Tags Appointments
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
