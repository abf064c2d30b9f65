package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/services"
)

func setupAllocationRouter(handler *AllocationHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID("treasurer"))
	auth.GET("/budget-allocations", handler.GetAllocations)
	auth.PUT("/budget-allocations", handler.PutAllocations)
	auth.POST("/budget-allocations/bulk-copy", handler.BulkCopy)
	auth.GET("/budget-allocations/consistency", handler.CheckConsistency)
	auth.GET("/budget-allocations/export", handler.ExportAllocations)
	return r
}

func TestAllocationHandler_GetAllocations(t *testing.T) {
	t.Run("keys months and adds metadata", func(t *testing.T) {
		updated := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
		var gotMonth *int
		svc := &mockAllocationService{
			getAllocationsFn: func(year int, month *int) ([]services.MonthAllocations, error) {
				gotMonth = month
				return []services.MonthAllocations{{
					MonthKey:  "2024-03",
					Amounts:   map[string]decimal.Decimal{"Facility": decimal.NewFromInt(1500)},
					Total:     decimal.NewFromInt(1500),
					UpdatedAt: &updated,
					UpdatedBy: "treasurer",
				}}, nil
			},
		}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budget-allocations?year=2024&month=3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMonth == nil || *gotMonth != 3 {
			t.Errorf("expected month 3, got %v", gotMonth)
		}
		data := parseJSON(t, rec)["data"].(map[string]interface{})
		march, ok := data["2024-03"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected 2024-03 entry, got %v", data)
		}
		if fmt.Sprint(march["Facility"]) != "1500" {
			t.Errorf("expected Facility 1500, got %v", march["Facility"])
		}
		if march["_updatedBy"] != "treasurer" {
			t.Errorf("expected _updatedBy treasurer, got %v", march["_updatedBy"])
		}
	})

	t.Run("returns 400 without year", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budget-allocations", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAllocationHandler_PutAllocations(t *testing.T) {
	t.Run("drops metadata keys and reports inconsistencies", func(t *testing.T) {
		var gotAmounts map[string]decimal.Decimal
		svc := &mockAllocationService{
			putAllocationsFn: func(_, monthKey string, amounts map[string]decimal.Decimal) (*services.AllocationUpdate, error) {
				gotAmounts = amounts
				return &services.AllocationUpdate{
					Month: services.MonthAllocations{MonthKey: monthKey, Amounts: amounts, Total: decimal.NewFromInt(1700)},
					Inconsistencies: []services.Inconsistency{{
						CategoryCode:     "Programs",
						CategoryAmount:   decimal.NewFromInt(500),
						SubcategoryTotal: decimal.NewFromInt(700),
					}},
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockExportService{}, audit))

		rec := doRequest(r, "PUT", "/budget-allocations",
			`{"monthKey":"2024-03","allocations":{"Facility":1500,"Programs":"500","Programs.Youth":700,"_total":9999,"_updatedAt":"x"}}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(gotAmounts) != 3 {
			t.Fatalf("expected 3 amounts, got %v", gotAmounts)
		}
		if _, ok := gotAmounts["_total"]; ok {
			t.Error("expected metadata keys to be dropped")
		}
		result := parseJSON(t, rec)
		if len(result["inconsistencies"].([]interface{})) != 1 {
			t.Errorf("expected 1 inconsistency, got %v", result["inconsistencies"])
		}
		if _, ok := result["data"].(map[string]interface{})["2024-03"]; !ok {
			t.Errorf("expected data keyed by month, got %v", result["data"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != "UPDATE_ALLOCATIONS" {
			t.Errorf("expected UPDATE_ALLOCATIONS audit, got %v", audit.actions)
		}
	})

	t.Run("returns 400 on bad month key", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budget-allocations", `{"monthKey":"2024-3","allocations":{"Facility":1}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on negative amount", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budget-allocations", `{"monthKey":"2024-03","allocations":{"Facility":-1}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on non-numeric amount", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budget-allocations", `{"monthKey":"2024-03","allocations":{"Facility":"lots"}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAllocationHandler_BulkCopy(t *testing.T) {
	t.Run("copies into every target", func(t *testing.T) {
		svc := &mockAllocationService{
			bulkCopyFn: func(_, source string, targets []string) (*services.BulkCopyResult, error) {
				copied := make(map[string]int)
				for _, m := range targets {
					copied[m] = 4
				}
				return &services.BulkCopyResult{SourceMonth: source, Copied: copied}, nil
			},
		}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budget-allocations/bulk-copy",
			`{"source_month":"2024-01","target_months":["2024-02","2024-03"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		copied := parseJSON(t, rec)["data"].(map[string]interface{})["copied"].(map[string]interface{})
		if len(copied) != 2 {
			t.Errorf("expected 2 targets, got %v", copied)
		}
	})

	t.Run("returns 400 on invalid target month", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budget-allocations/bulk-copy", `{"source_month":"2024-01","target_months":["March"]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 without targets", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budget-allocations/bulk-copy", `{"source_month":"2024-01","target_months":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAllocationHandler_CheckConsistency(t *testing.T) {
	t.Run("passes service errors through", func(t *testing.T) {
		svc := &mockAllocationService{
			checkConsistencyFn: func(string) ([]services.Inconsistency, error) { return nil, apperrors.ErrInvalidMonthKey },
		}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockExportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budget-allocations/consistency?monthKey=bad", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_MONTH_KEY")
	})
}

func TestAllocationHandler_ExportAllocations(t *testing.T) {
	t.Run("names the file after the month", func(t *testing.T) {
		export := &mockExportService{
			exportAllocationsFn: func(w io.Writer, monthKey string) error {
				_, err := io.WriteString(w, "Account Code,Amount\nFacility,1500.00\n")
				return err
			},
		}
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, export, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budget-allocations/export?monthKey=2024-03", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "allocations-2024-03.csv") {
			t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
		}
	})
}
