package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/budget"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
	"fundledger/internal/reporting"
)

// AccountInput holds the fields for creating a chart-of-accounts entry.
type AccountInput struct {
	Code         string
	Name         string
	ParentCode   *string
	DisplayAs    models.DisplayAs
	Description  string
	IsActive     *bool
	DisplayOrder int
}

// AccountUpdate holds optional changes to an account. The code is immutable.
type AccountUpdate struct {
	Name         *string
	ParentCode   *string
	DisplayAs    *models.DisplayAs
	Description  *string
	IsActive     *bool
	DisplayOrder *int
}

// DeleteAction selects what happens to transactions of a deleted account.
type DeleteAction string

const (
	DeleteActionNone     DeleteAction = ""
	DeleteActionTransfer DeleteAction = "transfer"
	DeleteActionCascade  DeleteAction = "cascade"
)

// DeleteResult reports what an account deletion touched.
type DeleteResult struct {
	AccountCode         string       `json:"account_code"`
	Action              DeleteAction `json:"action,omitempty"`
	TargetCode          string       `json:"target_code,omitempty"`
	TransactionsMoved   int64        `json:"transactions_moved"`
	TransactionsDeleted int64        `json:"transactions_deleted"`
	AllocationsMoved    int64        `json:"allocations_moved"`
	AllocationsDeleted  int64        `json:"allocations_deleted"`
}

// AccountServicer defines the contract for the chart of accounts.
type AccountServicer interface {
	ListAccounts(activeOnly bool) ([]models.Account, error)
	GetAccount(code string) (*models.Account, error)
	CreateAccount(input AccountInput) (*models.Account, error)
	UpdateAccount(code string, update AccountUpdate) (*models.Account, error)
	DeleteAccount(actor, code string, action DeleteAction, targetCode string) (*DeleteResult, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate      *time.Time
	ToDate        *time.Time
	Type          *models.TransactionType
	AccountCode   *string
	PaymentMethod *models.PaymentMethod
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Search        string
}

// TransactionInput holds the fields of a new transaction.
type TransactionInput struct {
	Date          time.Time
	Description   string
	Amount        decimal.Decimal
	Type          models.TransactionType
	AccountCode   string
	PaymentMethod models.PaymentMethod
	ReceiptURL    string
	Notes         string
}

// TransactionUpdate holds optional changes to a transaction.
type TransactionUpdate struct {
	Date          *time.Time
	Description   *string
	Amount        *decimal.Decimal
	Type          *models.TransactionType
	AccountCode   *string
	PaymentMethod *models.PaymentMethod
	ReceiptURL    *string
	Notes         *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(actor string, input TransactionInput) (*models.Transaction, error)
	GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListTransactions(filter TransactionFilter) ([]models.Transaction, error)
	GetTransactionByID(id string) (*models.Transaction, error)
	UpdateTransaction(id string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(id string) error
}

// MonthAllocations is one month of allocations plus its metadata.
type MonthAllocations struct {
	MonthKey  string                     `json:"month_key"`
	Amounts   map[string]decimal.Decimal `json:"amounts"`
	Total     decimal.Decimal            `json:"total"`
	UpdatedAt *time.Time                 `json:"updated_at,omitempty"`
	UpdatedBy string                     `json:"updated_by,omitempty"`
}

// Inconsistency reports a category whose allocation differs from the sum of its subcategories.
type Inconsistency struct {
	CategoryCode     string          `json:"category_code"`
	CategoryAmount   decimal.Decimal `json:"category_amount"`
	SubcategoryTotal decimal.Decimal `json:"subcategory_total"`
}

// AllocationUpdate is the result of replacing a month's allocations.
type AllocationUpdate struct {
	Month           MonthAllocations `json:"month"`
	Inconsistencies []Inconsistency  `json:"inconsistencies"`
}

// BulkCopyResult reports how many allocations each target month received.
type BulkCopyResult struct {
	SourceMonth string         `json:"source_month"`
	Copied      map[string]int `json:"copied"`
}

// AllocationServicer defines the contract for monthly budget allocations.
type AllocationServicer interface {
	GetMonth(monthKey string) (*MonthAllocations, error)
	GetAllocations(year int, month *int) ([]MonthAllocations, error)
	PutAllocations(actor, monthKey string, amounts map[string]decimal.Decimal) (*AllocationUpdate, error)
	BulkCopy(actor, sourceMonth string, targetMonths []string) (*BulkCopyResult, error)
	CheckConsistency(monthKey string) ([]Inconsistency, error)
}

// FiscalRollup is the roll-up of a planning period's months.
type FiscalRollup struct {
	Period *models.PlanningPeriod `json:"period"`
	budget.Rollup
}

// BudgetServicer computes budget-versus-actual views from stored data.
type BudgetServicer interface {
	GetMonth(ctx context.Context, year int, month time.Month) (*budget.MonthAggregate, error)
	GetYearToDate(ctx context.Context, year int, month time.Month) (*budget.Rollup, error)
	GetYear(ctx context.Context, year int) (*budget.Rollup, error)
	GetFiscalYear(ctx context.Context, periodID string) (*FiscalRollup, error)
}

// ReportFilter holds optional filters for listing reports.
type ReportFilter struct {
	Year   *int
	Status *models.ReportStatus
}

// GeneratedReport is a month's live figures alongside any stored report.
type GeneratedReport struct {
	Year      int                            `json:"year"`
	Month     int                            `json:"month"`
	Aggregate budget.MonthAggregate          `json:"aggregate"`
	YTD       budget.Rollup                  `json:"ytd"`
	Flagged   []budget.AggregateRow          `json:"flagged"`
	Missing   []reporting.MissingExplanation `json:"missing_explanations"`
	Report    *models.Report                 `json:"report,omitempty"`
}

// ReportServicer defines the contract for monthly reports and their lifecycle.
type ReportServicer interface {
	ListReports(page pagination.PageRequest, filter ReportFilter) (*pagination.PageResponse[models.Report], error)
	GetReport(id string) (*models.Report, error)
	SaveReport(ctx context.Context, actor string, year, month int, edit reporting.Edit) (*models.Report, bool, error)
	UpdateReport(ctx context.Context, id string, edit reporting.Edit) (*models.Report, error)
	FinalizeReport(ctx context.Context, actor, id string) (*models.Report, error)
	ReopenReport(actor, id string) (*models.Report, error)
	GenerateReport(ctx context.Context, year, month int) (*GeneratedReport, error)
}

// PlanningPeriodInput holds the editable fields of a planning period.
type PlanningPeriodInput struct {
	Name       string
	StartMonth string
	EndMonth   string
	Status     models.PlanningPeriodStatus
	Notes      string
}

// PeriodValidation is the outcome of validating a planning period.
type PeriodValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// PlanningPeriodServicer defines the contract for planning periods.
type PlanningPeriodServicer interface {
	ListPeriods() ([]models.PlanningPeriod, error)
	GetPeriod(id string) (*models.PlanningPeriod, error)
	CreatePeriod(input PlanningPeriodInput) (*models.PlanningPeriod, error)
	UpdatePeriod(id string, input PlanningPeriodInput) (*models.PlanningPeriod, error)
	ValidatePeriod(input PlanningPeriodInput, excludeID string) (*PeriodValidation, error)
}

// ExportServicer writes CSV exports.
type ExportServicer interface {
	ExportAllocations(w io.Writer, monthKey string) error
	ExportTransactions(w io.Writer, filter TransactionFilter) error
	ExportReport(w io.Writer, id string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
	History(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
