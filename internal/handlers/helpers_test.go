package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fundledger/internal/budget"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
	"fundledger/internal/reporting"
	"fundledger/internal/services"
	"fundledger/internal/validator"
)

// --- mock services ---

type mockAuditService struct {
	actions   []string
	historyFn func(filter services.AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Log(_, action, _, _, _ string, _ map[string]interface{}) {
	m.actions = append(m.actions, action)
}

func (m *mockAuditService) History(filter services.AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	return m.historyFn(filter, page)
}

var _ services.AuditServicer = (*mockAuditService)(nil)

type mockAccountService struct {
	listAccountsFn  func(activeOnly bool) ([]models.Account, error)
	getAccountFn    func(code string) (*models.Account, error)
	createAccountFn func(input services.AccountInput) (*models.Account, error)
	updateAccountFn func(code string, update services.AccountUpdate) (*models.Account, error)
	deleteAccountFn func(actor, code string, action services.DeleteAction, targetCode string) (*services.DeleteResult, error)
}

func (m *mockAccountService) ListAccounts(activeOnly bool) ([]models.Account, error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(activeOnly)
	}
	return []models.Account{}, nil
}

func (m *mockAccountService) GetAccount(code string) (*models.Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(code)
	}
	return &models.Account{Code: code}, nil
}

func (m *mockAccountService) CreateAccount(input services.AccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(input)
	}
	return &models.Account{Code: input.Code, Name: input.Name}, nil
}

func (m *mockAccountService) UpdateAccount(code string, update services.AccountUpdate) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(code, update)
	}
	return &models.Account{Code: code}, nil
}

func (m *mockAccountService) DeleteAccount(actor, code string, action services.DeleteAction, targetCode string) (*services.DeleteResult, error) {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(actor, code, action, targetCode)
	}
	return &services.DeleteResult{AccountCode: code}, nil
}

var _ services.AccountServicer = (*mockAccountService)(nil)

type mockTransactionService struct {
	createTransactionFn  func(actor string, input services.TransactionInput) (*models.Transaction, error)
	getTransactionsFn    func(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn func(id string) (*models.Transaction, error)
	updateTransactionFn  func(id string, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn  func(id string) error
}

func (m *mockTransactionService) CreateTransaction(actor string, input services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(actor, input)
	}
	return &models.Transaction{Amount: input.Amount, Type: input.Type}, nil
}

func (m *mockTransactionService) GetTransactions(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getTransactionsFn != nil {
		return m.getTransactionsFn(page, filter)
	}
	resp := pagination.NewPageResponse[models.Transaction](nil, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) ListTransactions(filter services.TransactionFilter) ([]models.Transaction, error) {
	return nil, nil
}

func (m *mockTransactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(id)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) UpdateTransaction(id string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(id, update)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) DeleteTransaction(id string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(id)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockAllocationService struct {
	getAllocationsFn   func(year int, month *int) ([]services.MonthAllocations, error)
	putAllocationsFn   func(actor, monthKey string, amounts map[string]decimal.Decimal) (*services.AllocationUpdate, error)
	bulkCopyFn         func(actor, sourceMonth string, targetMonths []string) (*services.BulkCopyResult, error)
	checkConsistencyFn func(monthKey string) ([]services.Inconsistency, error)
}

func (m *mockAllocationService) GetMonth(monthKey string) (*services.MonthAllocations, error) {
	return &services.MonthAllocations{MonthKey: monthKey}, nil
}

func (m *mockAllocationService) GetAllocations(year int, month *int) ([]services.MonthAllocations, error) {
	if m.getAllocationsFn != nil {
		return m.getAllocationsFn(year, month)
	}
	return nil, nil
}

func (m *mockAllocationService) PutAllocations(actor, monthKey string, amounts map[string]decimal.Decimal) (*services.AllocationUpdate, error) {
	if m.putAllocationsFn != nil {
		return m.putAllocationsFn(actor, monthKey, amounts)
	}
	return &services.AllocationUpdate{Month: services.MonthAllocations{MonthKey: monthKey, Amounts: amounts}}, nil
}

func (m *mockAllocationService) BulkCopy(actor, sourceMonth string, targetMonths []string) (*services.BulkCopyResult, error) {
	if m.bulkCopyFn != nil {
		return m.bulkCopyFn(actor, sourceMonth, targetMonths)
	}
	return &services.BulkCopyResult{SourceMonth: sourceMonth}, nil
}

func (m *mockAllocationService) CheckConsistency(monthKey string) ([]services.Inconsistency, error) {
	if m.checkConsistencyFn != nil {
		return m.checkConsistencyFn(monthKey)
	}
	return []services.Inconsistency{}, nil
}

var _ services.AllocationServicer = (*mockAllocationService)(nil)

type mockBudgetService struct {
	getMonthFn      func(year int, month time.Month) (*budget.MonthAggregate, error)
	getYearToDateFn func(year int, month time.Month) (*budget.Rollup, error)
	getYearFn       func(year int) (*budget.Rollup, error)
	getFiscalYearFn func(periodID string) (*services.FiscalRollup, error)
}

func (m *mockBudgetService) GetMonth(_ context.Context, year int, month time.Month) (*budget.MonthAggregate, error) {
	if m.getMonthFn != nil {
		return m.getMonthFn(year, month)
	}
	return &budget.MonthAggregate{MonthKey: budget.MonthKey(year, month)}, nil
}

func (m *mockBudgetService) GetYearToDate(_ context.Context, year int, month time.Month) (*budget.Rollup, error) {
	if m.getYearToDateFn != nil {
		return m.getYearToDateFn(year, month)
	}
	return &budget.Rollup{}, nil
}

func (m *mockBudgetService) GetYear(_ context.Context, year int) (*budget.Rollup, error) {
	if m.getYearFn != nil {
		return m.getYearFn(year)
	}
	return &budget.Rollup{}, nil
}

func (m *mockBudgetService) GetFiscalYear(_ context.Context, periodID string) (*services.FiscalRollup, error) {
	if m.getFiscalYearFn != nil {
		return m.getFiscalYearFn(periodID)
	}
	return &services.FiscalRollup{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

type mockReportService struct {
	listReportsFn    func(page pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.Report], error)
	getReportFn      func(id string) (*models.Report, error)
	saveReportFn     func(actor string, year, month int, edit reporting.Edit) (*models.Report, bool, error)
	updateReportFn   func(id string, edit reporting.Edit) (*models.Report, error)
	finalizeReportFn func(actor, id string) (*models.Report, error)
	reopenReportFn   func(actor, id string) (*models.Report, error)
	generateReportFn func(year, month int) (*services.GeneratedReport, error)
}

func (m *mockReportService) ListReports(page pagination.PageRequest, filter services.ReportFilter) (*pagination.PageResponse[models.Report], error) {
	if m.listReportsFn != nil {
		return m.listReportsFn(page, filter)
	}
	resp := pagination.NewPageResponse[models.Report](nil, 1, 20, 0)
	return &resp, nil
}

func (m *mockReportService) GetReport(id string) (*models.Report, error) {
	if m.getReportFn != nil {
		return m.getReportFn(id)
	}
	return &models.Report{Base: models.Base{ID: id}}, nil
}

func (m *mockReportService) SaveReport(_ context.Context, actor string, year, month int, edit reporting.Edit) (*models.Report, bool, error) {
	if m.saveReportFn != nil {
		return m.saveReportFn(actor, year, month, edit)
	}
	return &models.Report{Year: year, Month: month}, true, nil
}

func (m *mockReportService) UpdateReport(_ context.Context, id string, edit reporting.Edit) (*models.Report, error) {
	if m.updateReportFn != nil {
		return m.updateReportFn(id, edit)
	}
	return &models.Report{Base: models.Base{ID: id}}, nil
}

func (m *mockReportService) FinalizeReport(_ context.Context, actor, id string) (*models.Report, error) {
	if m.finalizeReportFn != nil {
		return m.finalizeReportFn(actor, id)
	}
	return &models.Report{Base: models.Base{ID: id}, Status: models.ReportStatusFinal}, nil
}

func (m *mockReportService) ReopenReport(actor, id string) (*models.Report, error) {
	if m.reopenReportFn != nil {
		return m.reopenReportFn(actor, id)
	}
	return &models.Report{Base: models.Base{ID: id}, Status: models.ReportStatusDraft}, nil
}

func (m *mockReportService) GenerateReport(_ context.Context, year, month int) (*services.GeneratedReport, error) {
	if m.generateReportFn != nil {
		return m.generateReportFn(year, month)
	}
	return &services.GeneratedReport{Year: year, Month: month}, nil
}

var _ services.ReportServicer = (*mockReportService)(nil)

type mockPlanningPeriodService struct {
	listPeriodsFn    func() ([]models.PlanningPeriod, error)
	getPeriodFn      func(id string) (*models.PlanningPeriod, error)
	createPeriodFn   func(input services.PlanningPeriodInput) (*models.PlanningPeriod, error)
	updatePeriodFn   func(id string, input services.PlanningPeriodInput) (*models.PlanningPeriod, error)
	validatePeriodFn func(input services.PlanningPeriodInput, excludeID string) (*services.PeriodValidation, error)
}

func (m *mockPlanningPeriodService) ListPeriods() ([]models.PlanningPeriod, error) {
	if m.listPeriodsFn != nil {
		return m.listPeriodsFn()
	}
	return []models.PlanningPeriod{}, nil
}

func (m *mockPlanningPeriodService) GetPeriod(id string) (*models.PlanningPeriod, error) {
	if m.getPeriodFn != nil {
		return m.getPeriodFn(id)
	}
	return &models.PlanningPeriod{Base: models.Base{ID: id}}, nil
}

func (m *mockPlanningPeriodService) CreatePeriod(input services.PlanningPeriodInput) (*models.PlanningPeriod, error) {
	if m.createPeriodFn != nil {
		return m.createPeriodFn(input)
	}
	return &models.PlanningPeriod{Name: input.Name, StartMonth: input.StartMonth, EndMonth: input.EndMonth}, nil
}

func (m *mockPlanningPeriodService) UpdatePeriod(id string, input services.PlanningPeriodInput) (*models.PlanningPeriod, error) {
	if m.updatePeriodFn != nil {
		return m.updatePeriodFn(id, input)
	}
	return &models.PlanningPeriod{Base: models.Base{ID: id}, Name: input.Name}, nil
}

func (m *mockPlanningPeriodService) ValidatePeriod(input services.PlanningPeriodInput, excludeID string) (*services.PeriodValidation, error) {
	if m.validatePeriodFn != nil {
		return m.validatePeriodFn(input, excludeID)
	}
	return &services.PeriodValidation{Valid: true, Errors: []string{}}, nil
}

var _ services.PlanningPeriodServicer = (*mockPlanningPeriodService)(nil)

type mockExportService struct {
	exportAllocationsFn  func(w io.Writer, monthKey string) error
	exportTransactionsFn func(w io.Writer, filter services.TransactionFilter) error
	exportReportFn       func(w io.Writer, id string) error
}

func (m *mockExportService) ExportAllocations(w io.Writer, monthKey string) error {
	if m.exportAllocationsFn != nil {
		return m.exportAllocationsFn(w, monthKey)
	}
	return nil
}

func (m *mockExportService) ExportTransactions(w io.Writer, filter services.TransactionFilter) error {
	if m.exportTransactionsFn != nil {
		return m.exportTransactionsFn(w, filter)
	}
	return nil
}

func (m *mockExportService) ExportReport(w io.Writer, id string) error {
	if m.exportReportFn != nil {
		return m.exportReportFn(w, id)
	}
	return nil
}

var _ services.ExportServicer = (*mockExportService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func strPtr(s string) *string { return &s }
