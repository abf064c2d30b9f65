package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
)

// monthLoadConcurrency bounds the months loaded in parallel for a roll-up.
const monthLoadConcurrency = 4

// budgetService computes budget-versus-actual views from stored accounts,
// transactions and allocations.
type budgetService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db, now: time.Now}
}

// GetMonth aggregates one month.
func (s *budgetService) GetMonth(ctx context.Context, year int, month time.Month) (*budget.MonthAggregate, error) {
	if err := checkPeriod(year, month); err != nil {
		return nil, err
	}
	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	agg, err := s.loadMonth(ctx, accounts, year, month)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// GetYearToDate rolls up January through month of year. Every month in the
// range counts as elapsed.
func (s *budgetService) GetYearToDate(ctx context.Context, year int, month time.Month) (*budget.Rollup, error) {
	if err := checkPeriod(year, month); err != nil {
		return nil, err
	}
	keys := make([]string, 0, int(month))
	for m := time.January; m <= month; m++ {
		keys = append(keys, budget.MonthKey(year, m))
	}
	return s.rollUp(ctx, keys, func(string) bool { return true })
}

// GetYear rolls up all twelve months of year. Months after the current one
// are marked as future and left out of totals.
func (s *budgetService) GetYear(ctx context.Context, year int) (*budget.Rollup, error) {
	if err := checkPeriod(year, time.January); err != nil {
		return nil, err
	}
	keys := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		keys = append(keys, budget.MonthKey(year, m))
	}
	return s.rollUp(ctx, keys, s.elapsed())
}

// GetFiscalYear rolls up the months of a planning period.
func (s *budgetService) GetFiscalYear(ctx context.Context, periodID string) (*FiscalRollup, error) {
	var period models.PlanningPeriod
	if err := s.db.WithContext(ctx).Where("id = ?", periodID).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPlanningPeriodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	keys, err := budget.MonthsBetween(period.StartMonth, period.EndMonth)
	if err != nil || len(keys) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPlanningPeriod, "planning period has an invalid month range")
	}

	rollup, err := s.rollUp(ctx, keys, s.elapsed())
	if err != nil {
		return nil, err
	}
	return &FiscalRollup{Period: &period, Rollup: *rollup}, nil
}

// elapsed reports whether a month key is not after the current month.
func (s *budgetService) elapsed() func(string) bool {
	now := s.now().UTC()
	current := budget.MonthKey(now.Year(), now.Month())
	return func(key string) bool { return key <= current }
}

// rollUp loads every month concurrently and sums them. Future months are
// not loaded at all.
func (s *budgetService) rollUp(ctx context.Context, keys []string, elapsed func(string) bool) (*budget.Rollup, error) {
	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	inputs := make([]budget.MonthInput, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthLoadConcurrency)

	for i, key := range keys {
		year, month, err := budget.ParseMonthKey(key)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidMonthKey, err)
		}
		inputs[i] = budget.MonthInput{Year: year, Month: month, Elapsed: elapsed(key)}
		if !inputs[i].Elapsed {
			continue
		}

		g.Go(func() error {
			agg, err := s.loadMonth(gctx, accounts, year, month)
			if err != nil {
				return err
			}
			inputs[i].Aggregate = &agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := budget.RollUp(inputs)
	return &result, nil
}

func (s *budgetService) loadAccounts(ctx context.Context) ([]budget.Account, error) {
	var rows []models.Account
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return toBudgetAccounts(rows), nil
}

// loadMonth reads one month's expenses and allocations and aggregates them.
func (s *budgetService) loadMonth(ctx context.Context, accounts []budget.Account, year int, month time.Month) (budget.MonthAggregate, error) {
	key := budget.MonthKey(year, month)
	start, next := budget.MonthRange(year, month)

	var txs []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ? AND type = ?", start, next, models.TransactionTypeExpense).
		Find(&txs).Error; err != nil {
		return budget.MonthAggregate{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var allocs []models.BudgetAllocation
	if err := s.db.WithContext(ctx).Where("month_key = ?", key).Find(&allocs).Error; err != nil {
		return budget.MonthAggregate{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget.Aggregate(key, accounts, toBudgetTransactions(txs), toAllocationMap(allocs)), nil
}

func toBudgetAccounts(rows []models.Account) []budget.Account {
	out := make([]budget.Account, len(rows))
	for i, a := range rows {
		out[i] = budget.Account{
			Code:         a.Code,
			Name:         a.Name,
			ParentCode:   a.Parent(),
			Subcategory:  a.IsSubcategory(),
			DisplayOrder: a.DisplayOrder,
		}
	}
	return out
}

func toBudgetTransactions(rows []models.Transaction) []budget.Transaction {
	out := make([]budget.Transaction, len(rows))
	for i, t := range rows {
		out[i] = budget.Transaction{AccountCode: t.AccountCode, Type: string(t.Type), Amount: t.Amount}
	}
	return out
}

func toAllocationMap(rows []models.BudgetAllocation) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(rows))
	for _, a := range rows {
		out[a.AccountCode] = a.Amount
	}
	return out
}

func checkPeriod(year int, month time.Month) error {
	if year < 1 || year > 9999 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid year")
	}
	if month < time.January || month > time.December {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	return nil
}
