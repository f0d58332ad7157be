package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor models.Actor, sectionID string, req dto.EnrollRequest) (*models.SectionEnrollment, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Withdraw(ctx context.Context, actor models.Actor, id string) (*models.SectionEnrollment, error)
	Override(ctx context.Context, actor models.Actor, id string, req dto.OverrideRequest) (*models.SectionEnrollment, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student in a section
// @Description Seats the student when capacity allows, otherwise appends to the waitlist.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sections/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ListBySection godoc
// @Summary List section enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Section ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/enrollments [get]
func (h *EnrollmentHandler) ListBySection(c *gin.Context) {
	var query dto.EnrollmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.EnrollmentFilter{
		SectionID: c.Param("id"),
		Status:    models.EnrollmentStatus(strings.ToUpper(query.Status)),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Withdraw godoc
// @Summary Withdraw from a section
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Override godoc
// @Summary Override enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.OverrideRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/override [post]
func (h *EnrollmentHandler) Override(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.OverrideRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Override(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
