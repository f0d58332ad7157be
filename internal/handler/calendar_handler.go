package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/service"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

type calendarExporter interface {
	ExportSection(ctx context.Context, sectionID string) (*service.CalendarFile, error)
	ExportStudent(ctx context.Context, actor models.Actor, studentID, termID string) (*service.CalendarFile, error)
}

// CalendarHandler serves iCalendar timetables.
type CalendarHandler struct {
	exporter calendarExporter
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(exporter calendarExporter) *CalendarHandler {
	return &CalendarHandler{exporter: exporter}
}

// Section godoc
// @Summary Download a section timetable
// @Tags Calendar
// @Produce text/calendar
// @Param id path string true "Section ID"
// @Success 200 {file} file
// @Router /sections/{id}/calendar.ics [get]
func (h *CalendarHandler) Section(c *gin.Context) {
	file, err := h.exporter.ExportSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, calendarContentType, file.Body)
}

// Student godoc
// @Summary Download a student's timetable for a term
// @Description Active enrollments are CONFIRMED, waitlisted ones TENTATIVE.
// @Tags Calendar
// @Produce text/calendar
// @Param id path string true "Student ID"
// @Param term_id query string true "Term ID"
// @Success 200 {file} file
// @Router /students/{id}/calendar.ics [get]
func (h *CalendarHandler) Student(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.exporter.ExportStudent(c.Request.Context(), actor, c.Param("id"), c.Query("term_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, calendarContentType, file.Body)
}
