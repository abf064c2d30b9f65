package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fundledger/internal/services"
)

// BudgetHandler serves budget-versus-actual views.
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

func yearMonthQuery(c *gin.Context) (int, time.Month, error) {
	year, err := parseIntParam(c.Query("year"), "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := parseIntParam(c.Query("month"), "month")
	if err != nil {
		return 0, 0, err
	}
	return year, time.Month(month), nil
}

// GetMonth returns one month's budget figures per account.
// @Summary     Monthly budget
// @Description Spent, budgeted, remaining and percent used per account for one month
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int true "Year"
// @Param       month query int true "Month (1-12)"
// @Success     200 {object} map[string]interface{} "{success, data: {monthKey, totalBudget, totalSpent, accountsGrouped}}"
// @Failure     400 {object} ErrorResponse "Invalid year or month"
// @Router      /budgets [get]
func (h *BudgetHandler) GetMonth(c *gin.Context) {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	agg, err := h.budgetService.GetMonth(c.Request.Context(), year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"monthKey":        agg.MonthKey,
			"totalBudget":     agg.TotalBudget,
			"totalSpent":      agg.TotalSpent,
			"accountsGrouped": agg.Rows,
			"flagged":         agg.Flagged(),
		},
	})
}

// GetYearToDate rolls up January through the given month.
// @Summary     Year to date
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int true "Year"
// @Param       month query int true "Last month included (1-12)"
// @Success     200 {object} map[string]interface{} "{success, data: rollup}"
// @Failure     400 {object} ErrorResponse "Invalid year or month"
// @Router      /budgets/ytd [get]
func (h *BudgetHandler) GetYearToDate(c *gin.Context) {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rollup, err := h.budgetService.GetYearToDate(c.Request.Context(), year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rollup})
}

// GetYear rolls up all twelve months of a year. Months after the current
// one are marked future and excluded from totals.
// @Summary     Full year
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Year"
// @Success     200 {object} map[string]interface{} "{success, data: rollup}"
// @Failure     400 {object} ErrorResponse "Invalid year"
// @Router      /budgets/year [get]
func (h *BudgetHandler) GetYear(c *gin.Context) {
	year, err := parseIntParam(c.Query("year"), "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rollup, err := h.budgetService.GetYear(c.Request.Context(), year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rollup})
}

// GetFiscalYear rolls up the months of a planning period.
// @Summary     Fiscal year
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       periodId path string true "Planning period ID"
// @Success     200 {object} map[string]interface{} "{success, data: fiscal rollup}"
// @Failure     404 {object} ErrorResponse "Planning period not found"
// @Router      /budgets/fiscal-year/{periodId} [get]
func (h *BudgetHandler) GetFiscalYear(c *gin.Context) {
	periodID, err := parsePathID(c, "periodId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rollup, err := h.budgetService.GetFiscalYear(c.Request.Context(), periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rollup})
}
