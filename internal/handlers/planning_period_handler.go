package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/services"
)

// PlanningPeriodHandler serves fiscal planning periods.
type PlanningPeriodHandler struct {
	periodService services.PlanningPeriodServicer
	auditService  services.AuditServicer
}

// NewPlanningPeriodHandler creates a new PlanningPeriodHandler.
func NewPlanningPeriodHandler(periodService services.PlanningPeriodServicer, auditService services.AuditServicer) *PlanningPeriodHandler {
	return &PlanningPeriodHandler{periodService: periodService, auditService: auditService}
}

// PlanningPeriodRequest holds the editable fields of a planning period.
// Month formats and ordering are checked by the service so validation can
// report every problem at once.
type PlanningPeriodRequest struct {
	Name       string                      `json:"name" binding:"max=100"`
	StartMonth string                      `json:"start_month"`
	EndMonth   string                      `json:"end_month"`
	Status     models.PlanningPeriodStatus `json:"status" binding:"omitempty,period_status"`
	Notes      string                      `json:"notes" binding:"max=2000"`
	ExcludeID  string                      `json:"exclude_id"`
}

func (r PlanningPeriodRequest) toInput() services.PlanningPeriodInput {
	return services.PlanningPeriodInput{
		Name:       r.Name,
		StartMonth: r.StartMonth,
		EndMonth:   r.EndMonth,
		Status:     r.Status,
		Notes:      r.Notes,
	}
}

// ListPeriods returns every planning period.
// @Summary     List planning periods
// @Tags        planning-periods
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "{success, data: [period]}"
// @Router      /planning-periods [get]
func (h *PlanningPeriodHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodService.ListPeriods()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": periods})
}

// GetPeriod returns one planning period.
// @Summary     Get planning period
// @Tags        planning-periods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planning period ID"
// @Success     200 {object} map[string]interface{} "{success, data: period}"
// @Failure     404 {object} ErrorResponse "Planning period not found"
// @Router      /planning-periods/{id} [get]
func (h *PlanningPeriodHandler) GetPeriod(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	period, err := h.periodService.GetPeriod(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": period})
}

// CreatePeriod stores a new planning period.
// @Summary     Create planning period
// @Tags        planning-periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PlanningPeriodRequest true "Planning period"
// @Success     201 {object} map[string]interface{} "{success, data: period}"
// @Failure     400 {object} ErrorResponse "Invalid planning period; details list every problem"
// @Router      /planning-periods [post]
func (h *PlanningPeriodHandler) CreatePeriod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PlanningPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	period, err := h.periodService.CreatePeriod(req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_PLANNING_PERIOD", "planning_period", period.ID, c.ClientIP(),
		map[string]interface{}{"start_month": period.StartMonth, "end_month": period.EndMonth})

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": period})
}

// UpdatePeriod replaces a planning period's fields.
// @Summary     Update planning period
// @Tags        planning-periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Planning period ID"
// @Param       request body PlanningPeriodRequest true "Planning period"
// @Success     200 {object} map[string]interface{} "{success, data: period}"
// @Failure     400 {object} ErrorResponse "Invalid planning period"
// @Failure     404 {object} ErrorResponse "Planning period not found"
// @Router      /planning-periods/{id} [put]
func (h *PlanningPeriodHandler) UpdatePeriod(c *gin.Context) {
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

	var req PlanningPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	period, err := h.periodService.UpdatePeriod(id, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_PLANNING_PERIOD", "planning_period", id, c.ClientIP(),
		map[string]interface{}{"status": period.Status})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": period})
}

// ValidatePeriod checks a planning period without storing it.
// @Summary     Validate planning period
// @Description Checks month formats, ordering, a span of at most 12 months and overlap with other periods
// @Tags        planning-periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PlanningPeriodRequest true "Planning period; exclude_id skips the period being edited"
// @Success     200 {object} services.PeriodValidation "{valid, errors}"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /planning-periods/validate [post]
func (h *PlanningPeriodHandler) ValidatePeriod(c *gin.Context) {
	var req PlanningPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.periodService.ValidatePeriod(req.toInput(), req.ExcludeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
