package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/service"
	"github.com/noah-isme/academic-registrar-api/pkg/response"
)

type rosterExporter interface {
	Export(ctx context.Context, sectionID, format string) (*service.RosterFile, error)
}

// RosterHandler serves section rosters as downloadable files.
type RosterHandler struct {
	rosters rosterExporter
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(rosters rosterExporter) *RosterHandler {
	return &RosterHandler{rosters: rosters}
}

// Export godoc
// @Summary Download a section roster
// @Tags Rosters
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Section ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /sections/{id}/roster [get]
func (h *RosterHandler) Export(c *gin.Context) {
	file, err := h.rosters.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
