package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
	"fundledger/internal/reporting"
	"fundledger/internal/services"
)

// ReportHandler serves monthly reports and their lifecycle.
type ReportHandler struct {
	reportService services.ReportServicer
	exportService services.ExportServicer
	auditService  services.AuditServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer, exportService services.ExportServicer, auditService services.AuditServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService, auditService: auditService}
}

// NeededActionRequest is one follow-up item on a report.
type NeededActionRequest struct {
	Text     string `json:"text" binding:"required,max=500"`
	Assignee string `json:"assignee" binding:"max=100"`
	Priority string `json:"priority" binding:"omitempty,report_priority"`
}

// ReportEditRequest is a partial update of a report's narrative. Omitted
// fields are left unchanged; an empty explanation removes it.
type ReportEditRequest struct {
	ExecutiveSummary         *string               `json:"executive_summary" binding:"omitempty,max=10000"`
	NeededActions            []NeededActionRequest `json:"needed_actions" binding:"omitempty,max=50,dive"`
	VarianceExplanations     map[string]string     `json:"variance_explanations" binding:"omitempty,dive,max=5000"`
	AdditionalNotes          *string               `json:"additional_notes" binding:"omitempty,max=10000"`
	UpcomingExpenses         *string               `json:"upcoming_expenses" binding:"omitempty,max=10000"`
	YTDComment               *string               `json:"ytd_comment" binding:"omitempty,max=10000"`
	FinancialPositionComment *string               `json:"financial_position_comment" binding:"omitempty,max=10000"`
}

// SaveReportRequest autosaves the report of a period, creating it on first save.
type SaveReportRequest struct {
	Year  int `json:"year" binding:"required,min=1,max=9999"`
	Month int `json:"month" binding:"required,min=1,max=12"`
	ReportEditRequest
}

func (r ReportEditRequest) toEdit() reporting.Edit {
	edit := reporting.Edit{
		ExecutiveSummary:         r.ExecutiveSummary,
		VarianceExplanations:     r.VarianceExplanations,
		AdditionalNotes:          r.AdditionalNotes,
		UpcomingExpenses:         r.UpcomingExpenses,
		YTDComment:               r.YTDComment,
		FinancialPositionComment: r.FinancialPositionComment,
	}
	if r.NeededActions != nil {
		edit.NeededActions = make([]models.NeededAction, len(r.NeededActions))
		for i, a := range r.NeededActions {
			edit.NeededActions[i] = models.NeededAction{Text: a.Text, Assignee: a.Assignee, Priority: a.Priority}
		}
	}
	return edit
}

// ListReports returns reports, newest period first.
// @Summary     List reports
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year      query int    false "Filter by year"
// @Param       status    query string false "draft or final"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Report] "Paginated reports"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.ReportFilter
	if v := c.Query("year"); v != "" {
		year, err := parseIntParam(v, "year")
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.Year = &year
	}
	if v := c.Query("status"); v != "" {
		status := models.ReportStatus(v)
		if status != models.ReportStatusDraft && status != models.ReportStatusFinal {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be draft or final"))
			return
		}
		filter.Status = &status
	}

	result, err := h.reportService.ListReports(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReport returns one report.
// @Summary     Get report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} map[string]interface{} "{report}"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetReport(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// SaveReport autosaves the report of a period.
// @Summary     Save report
// @Description Creates the period's draft on first save and updates it afterwards
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SaveReportRequest true "Period and narrative"
// @Success     200 {object} map[string]interface{} "{report} (updated)"
// @Success     201 {object} map[string]interface{} "{report} (created)"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Report is final"
// @Router      /reports [post]
func (h *ReportHandler) SaveReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SaveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	report, created, err := h.reportService.SaveReport(c.Request.Context(), userID, req.Year, req.Month, req.toEdit())
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.auditService.Log(userID, "CREATE_REPORT", "report", report.ID, c.ClientIP(),
			map[string]interface{}{"year": req.Year, "month": req.Month})
	}

	c.JSON(status, gin.H{"report": report})
}

// UpdateReport autosaves an existing draft.
// @Summary     Update report
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Report ID"
// @Param       request body ReportEditRequest true "Narrative fields"
// @Success     200 {object} map[string]interface{} "{report}"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Failure     409 {object} ErrorResponse "Report is final"
// @Router      /reports/{id} [put]
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReportEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	report, err := h.reportService.UpdateReport(c.Request.Context(), id, req.toEdit())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// FinalizeReport freezes a draft.
// @Summary     Finalize report
// @Description Requires an explanation for every flagged variance; the error details list the missing ones
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} map[string]interface{} "{report}"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Failure     409 {object} ErrorResponse "Report is already final"
// @Failure     422 {object} ErrorResponse "Variance explanations missing"
// @Router      /reports/{id}/finalize [post]
func (h *ReportHandler) FinalizeReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.FinalizeReport(c.Request.Context(), userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "FINALIZE_REPORT", "report", id, c.ClientIP(),
		map[string]interface{}{"year": report.Year, "month": report.Month})

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ReopenReport returns a final report to draft.
// @Summary     Reopen report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} map[string]interface{} "{report}"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Failure     409 {object} ErrorResponse "Report is not final"
// @Router      /reports/{id}/reopen [post]
func (h *ReportHandler) ReopenReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.ReopenReport(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REOPEN_REPORT", "report", id, c.ClientIP(),
		map[string]interface{}{"year": report.Year, "month": report.Month})

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GenerateReport returns the live figures for a period with any stored report.
// @Summary     Generate report data
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year  path int true "Year"
// @Param       month path int true "Month (1-12)"
// @Success     200 {object} map[string]interface{} "{success, data: generated report}"
// @Failure     400 {object} ErrorResponse "Invalid year or month"
// @Router      /reports/generate/{year}/{month} [get]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	year, err := parseIntParam(c.Param("year"), "year")
	if err != nil {
		respondWithError(c, err)
		return
	}
	month, err := parseIntParam(c.Param("month"), "month")
	if err != nil {
		respondWithError(c, err)
		return
	}

	generated, err := h.reportService.GenerateReport(c.Request.Context(), year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": generated})
}

// ExportReport writes a report's snapshot as CSV.
// @Summary     Export report
// @Tags        reports
// @Produce     text/csv
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {string} string "CSV file"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/{id}/export [get]
func (h *ReportHandler) ExportReport(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	writeCSV(c, "report-"+id+".csv", func(w io.Writer) error {
		return h.exportService.ExportReport(w, id)
	})
}
