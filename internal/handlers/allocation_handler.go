package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/payload"
	"fundledger/internal/services"
)

// AllocationHandler serves monthly budget allocations.
type AllocationHandler struct {
	allocationService services.AllocationServicer
	exportService     services.ExportServicer
	auditService      services.AuditServicer
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocationService services.AllocationServicer, exportService services.ExportServicer, auditService services.AuditServicer) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService, exportService: exportService, auditService: auditService}
}

// PutAllocationsRequest replaces one month of allocations. Allocation values
// are amounts keyed by account code; metadata keys starting with "_" are
// accepted and ignored.
type PutAllocationsRequest struct {
	MonthKey    string                     `json:"monthKey" binding:"required,month_key"`
	Allocations map[string]json.RawMessage `json:"allocations" binding:"required"`
}

// BulkCopyRequest copies one month's allocations into other months.
type BulkCopyRequest struct {
	SourceMonth  string   `json:"source_month" binding:"required,month_key"`
	TargetMonths []string `json:"target_months" binding:"required,min=1,max=24,dive,month_key"`
}

func encodeMonth(m services.MonthAllocations) map[string]interface{} {
	return payload.Encode(m.Amounts, m.Total, m.UpdatedAt, m.UpdatedBy)
}

// GetAllocations returns allocations keyed by month.
// @Summary     Get allocations
// @Description Get the allocations of one month, or of every month of a year that has any
// @Tags        budget-allocations
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int true  "Year"
// @Param       month query int false "Month (1-12)"
// @Success     200 {object} map[string]interface{} "{data: {monthKey: {accountCode: amount, _total, _updatedAt, _updatedBy}}}"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /budget-allocations [get]
func (h *AllocationHandler) GetAllocations(c *gin.Context) {
	year, err := parseIntParam(c.Query("year"), "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var month *int
	if v := c.Query("month"); v != "" {
		m, err := parseIntParam(v, "month")
		if err != nil {
			respondWithError(c, err)
			return
		}
		month = &m
	}

	months, err := h.allocationService.GetAllocations(year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	data := make(map[string]interface{}, len(months))
	for _, m := range months {
		data[m.MonthKey] = encodeMonth(m)
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// PutAllocations replaces the allocations of a month.
// @Summary     Replace a month's allocations
// @Description Category/subcategory mismatches are reported, not rejected
// @Tags        budget-allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PutAllocationsRequest true "Month allocations"
// @Success     200 {object} map[string]interface{} "{success, data: {monthKey: month}, inconsistencies}"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /budget-allocations [put]
func (h *AllocationHandler) PutAllocations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PutAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	month, err := payload.Decode(req.Allocations)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	amounts := month.Amounts()

	result, err := h.allocationService.PutAllocations(userID, req.MonthKey, amounts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_ALLOCATIONS", "budget_allocation", req.MonthKey, c.ClientIP(),
		map[string]interface{}{"accounts": len(amounts), "total": result.Month.Total.String()})

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"data":            gin.H{result.Month.MonthKey: encodeMonth(result.Month)},
		"inconsistencies": result.Inconsistencies,
	})
}

// BulkCopy copies a month's allocations into other months.
// @Summary     Copy allocations
// @Tags        budget-allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkCopyRequest true "Source and target months"
// @Success     200 {object} map[string]interface{} "{success, data: copy result}"
// @Failure     400 {object} ErrorResponse "Invalid input or empty source month"
// @Router      /budget-allocations/bulk-copy [post]
func (h *AllocationHandler) BulkCopy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.allocationService.BulkCopy(userID, req.SourceMonth, req.TargetMonths)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "COPY_ALLOCATIONS", "budget_allocation", req.SourceMonth, c.ClientIP(),
		map[string]interface{}{"target_months": req.TargetMonths})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// CheckConsistency lists categories whose allocation differs from their subcategories' sum.
// @Summary     Check allocation consistency
// @Tags        budget-allocations
// @Produce     json
// @Security    BearerAuth
// @Param       monthKey query string true "Month (YYYY-MM)"
// @Success     200 {object} map[string]interface{} "{success, data: [inconsistency]}"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Router      /budget-allocations/consistency [get]
func (h *AllocationHandler) CheckConsistency(c *gin.Context) {
	inconsistencies, err := h.allocationService.CheckConsistency(c.Query("monthKey"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inconsistencies})
}

// ExportAllocations writes a month's allocations as CSV.
// @Summary     Export allocations
// @Tags        budget-allocations
// @Produce     text/csv
// @Security    BearerAuth
// @Param       monthKey query string true "Month (YYYY-MM)"
// @Success     200 {string} string "CSV file"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Router      /budget-allocations/export [get]
func (h *AllocationHandler) ExportAllocations(c *gin.Context) {
	monthKey := c.Query("monthKey")
	writeCSV(c, "allocations-"+monthKey+".csv", func(w io.Writer) error {
		return h.exportService.ExportAllocations(w, monthKey)
	})
}
