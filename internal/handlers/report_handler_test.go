package handlers

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
	"fundledger/internal/reporting"
	"fundledger/internal/services"
)

func setupReportRouter(handler *ReportHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID("treasurer"))
	auth.GET("/reports", handler.ListReports)
	auth.POST("/reports", handler.SaveReport)
	auth.GET("/reports/generate/:year/:month", handler.GenerateReport)
	auth.GET("/reports/:id", handler.GetReport)
	auth.PUT("/reports/:id", handler.UpdateReport)
	auth.POST("/reports/:id/finalize", handler.FinalizeReport)
	auth.POST("/reports/:id/reopen", handler.ReopenReport)
	auth.GET("/reports/:id/export", handler.ExportReport)
	return r
}

func newTestReportHandler(svc *mockReportService, audit *mockAuditService) *ReportHandler {
	return NewReportHandler(svc, &mockExportService{}, audit)
}

func TestReportHandler_ListReports(t *testing.T) {
	t.Run("passes year and status filters", func(t *testing.T) {
		var gotFilter services.ReportFilter
		svc := &mockReportService{
			listReportsFn: func(_ pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.Report], error) {
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.Report{{Year: 2024, Month: 3}}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupReportRouter(newTestReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports?year=2024&status=final", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.Year == nil || *gotFilter.Year != 2024 {
			t.Errorf("expected year 2024, got %v", gotFilter.Year)
		}
		if gotFilter.Status == nil || *gotFilter.Status != models.ReportStatusFinal {
			t.Errorf("expected status final, got %v", gotFilter.Status)
		}
		if len(parseJSON(t, rec)["data"].([]interface{})) != 1 {
			t.Error("expected 1 report")
		}
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		r := setupReportRouter(newTestReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports?status=archived", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_SaveReport(t *testing.T) {
	t.Run("returns 201 when the report is created", func(t *testing.T) {
		var gotEdit reporting.Edit
		svc := &mockReportService{
			saveReportFn: func(_ string, year, month int, edit reporting.Edit) (*models.Report, bool, error) {
				gotEdit = edit
				return &models.Report{Base: models.Base{ID: "r-1"}, Year: year, Month: month}, true, nil
			},
		}
		audit := &mockAuditService{}
		r := setupReportRouter(newTestReportHandler(svc, audit))

		rec := doRequest(r, "POST", "/reports",
			`{"year":2024,"month":3,"executive_summary":"Quiet month","needed_actions":[{"text":"Call roofer","priority":"high"}],"variance_explanations":{"Facility":"Boiler repair"}}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotEdit.ExecutiveSummary == nil || *gotEdit.ExecutiveSummary != "Quiet month" {
			t.Errorf("expected summary, got %v", gotEdit.ExecutiveSummary)
		}
		if len(gotEdit.NeededActions) != 1 || gotEdit.NeededActions[0].Priority != "high" {
			t.Errorf("unexpected actions %v", gotEdit.NeededActions)
		}
		if gotEdit.VarianceExplanations["Facility"] != "Boiler repair" {
			t.Errorf("unexpected explanations %v", gotEdit.VarianceExplanations)
		}
		if gotEdit.AdditionalNotes != nil {
			t.Error("expected omitted fields to stay nil")
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_REPORT" {
			t.Errorf("expected CREATE_REPORT audit, got %v", audit.actions)
		}
	})

	t.Run("returns 200 when the report already existed", func(t *testing.T) {
		svc := &mockReportService{
			saveReportFn: func(_ string, year, month int, _ reporting.Edit) (*models.Report, bool, error) {
				return &models.Report{Base: models.Base{ID: "r-1"}, Year: year, Month: month}, false, nil
			},
		}
		audit := &mockAuditService{}
		r := setupReportRouter(newTestReportHandler(svc, audit))

		rec := doRequest(r, "POST", "/reports", `{"year":2024,"month":3,"ytd_comment":"On track"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(audit.actions) != 0 {
			t.Errorf("expected no audit for autosave, got %v", audit.actions)
		}
	})

	t.Run("returns 400 on invalid month", func(t *testing.T) {
		r := setupReportRouter(newTestReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports", `{"year":2024,"month":13}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown priority", func(t *testing.T) {
		r := setupReportRouter(newTestReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports", `{"year":2024,"month":3,"needed_actions":[{"text":"x","priority":"urgent"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_UpdateReport(t *testing.T) {
	t.Run("returns 409 when the report is final", func(t *testing.T) {
		svc := &mockReportService{
			updateReportFn: func(string, reporting.Edit) (*models.Report, error) { return nil, apperrors.ErrReportFinalized },
		}
		r := setupReportRouter(newTestReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/reports/r-1", `{"additional_notes":"late"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "REPORT_FINALIZED")
	})
}

func TestReportHandler_FinalizeReport(t *testing.T) {
	t.Run("returns 200 and audits", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupReportRouter(newTestReportHandler(&mockReportService{}, audit))

		rec := doRequest(r, "POST", "/reports/r-1/finalize", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		report := parseJSON(t, rec)["report"].(map[string]interface{})
		if report["status"] != "final" {
			t.Errorf("expected final, got %v", report["status"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != "FINALIZE_REPORT" {
			t.Errorf("expected FINALIZE_REPORT audit, got %v", audit.actions)
		}
	})

	t.Run("returns 422 listing missing explanations", func(t *testing.T) {
		svc := &mockReportService{
			finalizeReportFn: func(string, string) (*models.Report, error) {
				return nil, apperrors.WithDetails(apperrors.ErrMissingExplanations, "1 variance needs an explanation",
					[]reporting.MissingExplanation{{AccountCode: "Facility", AccountName: "Facility", Variance: "300.00"}})
			},
		}
		audit := &mockAuditService{}
		r := setupReportRouter(newTestReportHandler(svc, audit))

		rec := doRequest(r, "POST", "/reports/r-1/finalize", "")

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "MISSING_VARIANCE_EXPLANATIONS")
		details := result["error"].(map[string]interface{})["details"].([]interface{})
		if details[0].(map[string]interface{})["account_code"] != "Facility" {
			t.Errorf("unexpected details %v", details)
		}
		if len(audit.actions) != 0 {
			t.Error("expected no audit on failure")
		}
	})
}

func TestReportHandler_ReopenReport(t *testing.T) {
	t.Run("returns 409 when not final", func(t *testing.T) {
		svc := &mockReportService{
			reopenReportFn: func(string, string) (*models.Report, error) { return nil, apperrors.ErrReportNotFinal },
		}
		r := setupReportRouter(newTestReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/r-1/reopen", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestReportHandler_GenerateReport(t *testing.T) {
	t.Run("routes alongside report ids", func(t *testing.T) {
		var gotYear, gotMonth int
		svc := &mockReportService{
			generateReportFn: func(year, month int) (*services.GeneratedReport, error) {
				gotYear, gotMonth = year, month
				return &services.GeneratedReport{Year: year, Month: month}, nil
			},
		}
		r := setupReportRouter(newTestReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports/generate/2024/3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotYear != 2024 || gotMonth != 3 {
			t.Errorf("unexpected period %d-%d", gotYear, gotMonth)
		}
	})

	t.Run("returns 400 on non-numeric month", func(t *testing.T) {
		r := setupReportRouter(newTestReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports/generate/2024/march", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_ExportReport(t *testing.T) {
	t.Run("writes the snapshot CSV", func(t *testing.T) {
		export := &mockExportService{
			exportReportFn: func(w io.Writer, id string) error {
				_, err := io.WriteString(w, "Account Code,Spent\nFacility,1300.00\n")
				return err
			},
		}
		r := setupReportRouter(NewReportHandler(&mockReportService{}, export, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports/r-1/export", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "report-r-1.csv") {
			t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
		}
	})
}
