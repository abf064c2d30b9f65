package services

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/events"
	"fundledger/internal/logger"
	"fundledger/internal/models"
)

// allocationService manages monthly budget allocations.
type allocationService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewAllocationService creates a new AllocationServicer.
func NewAllocationService(db *gorm.DB, publisher events.Publisher) AllocationServicer {
	return &allocationService{db: db, publisher: publisher}
}

// GetMonth returns the allocations of one month. A month without
// allocations yields an empty amounts map.
func (s *allocationService) GetMonth(monthKey string) (*MonthAllocations, error) {
	if !budget.IsMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonthKey
	}

	var rows []models.BudgetAllocation
	if err := s.db.Where("month_key = ?", monthKey).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	subs, err := s.subcategoryCodes()
	if err != nil {
		return nil, err
	}
	months := groupAllocations(rows, subs)
	if len(months) == 0 {
		return &MonthAllocations{MonthKey: monthKey, Amounts: map[string]decimal.Decimal{}, Total: decimal.Zero}, nil
	}
	return &months[0], nil
}

// GetAllocations returns the allocations of a single month, or of every
// month of year that has any when month is nil.
func (s *allocationService) GetAllocations(year int, month *int) ([]MonthAllocations, error) {
	if year < 1 || year > 9999 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid year")
	}
	if month != nil {
		if *month < 1 || *month > 12 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
		}
		m, err := s.GetMonth(budget.MonthKey(year, time.Month(*month)))
		if err != nil {
			return nil, err
		}
		return []MonthAllocations{*m}, nil
	}

	var rows []models.BudgetAllocation
	prefix := budget.MonthKey(year, time.January)[:5] + "%"
	if err := s.db.Where("month_key LIKE ?", prefix).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	subs, err := s.subcategoryCodes()
	if err != nil {
		return nil, err
	}
	return groupAllocations(rows, subs), nil
}

// PutAllocations replaces the allocations of monthKey with amounts. Amounts
// must not be negative. The category/subcategory sums are checked but not
// enforced; mismatches are returned to the caller.
func (s *allocationService) PutAllocations(actor, monthKey string, amounts map[string]decimal.Decimal) (*AllocationUpdate, error) {
	if !budget.IsMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonthKey
	}
	clean := make(map[string]decimal.Decimal, len(amounts))
	for code, amount := range amounts {
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocation account code cannot be empty")
		}
		if amount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocation for "+code+" cannot be negative")
		}
		clean[code] = amount
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return replaceMonth(tx, monthKey, clean, actor)
	})
	if err != nil {
		return nil, err
	}

	month, err := s.GetMonth(monthKey)
	if err != nil {
		return nil, err
	}
	inconsistencies, err := s.CheckConsistency(monthKey)
	if err != nil {
		return nil, err
	}

	s.publish(actor, map[string]interface{}{"month_keys": []string{monthKey}, "accounts": len(clean)})

	return &AllocationUpdate{Month: *month, Inconsistencies: inconsistencies}, nil
}

// BulkCopy replaces the allocations of every target month with a copy of sourceMonth.
func (s *allocationService) BulkCopy(actor, sourceMonth string, targetMonths []string) (*BulkCopyResult, error) {
	if !budget.IsMonthKey(sourceMonth) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidMonthKey, "invalid source month: "+sourceMonth)
	}

	var targets []string
	seen := map[string]bool{sourceMonth: true}
	for _, target := range targetMonths {
		if !budget.IsMonthKey(target) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidMonthKey, "invalid target month: "+target)
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one target month different from the source is required")
	}

	source, err := s.GetMonth(sourceMonth)
	if err != nil {
		return nil, err
	}
	if len(source.Amounts) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source month has no allocations")
	}

	result := &BulkCopyResult{SourceMonth: sourceMonth, Copied: make(map[string]int, len(targets))}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, target := range targets {
			if err := replaceMonth(tx, target, source.Amounts, actor); err != nil {
				return err
			}
			result.Copied[target] = len(source.Amounts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(actor, map[string]interface{}{"month_keys": targets, "source_month": sourceMonth})
	return result, nil
}

// CheckConsistency lists categories whose allocation differs from the sum
// of their subcategories' allocations. Categories whose subcategories have
// no allocations are not reported.
func (s *allocationService) CheckConsistency(monthKey string) ([]Inconsistency, error) {
	month, err := s.GetMonth(monthKey)
	if err != nil {
		return nil, err
	}

	subs, err := s.subcategoryCodes()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for code, parent := range subs {
		amount, ok := month.Amounts[code]
		if !ok {
			continue
		}
		totals[parent] = totals[parent].Add(amount)
	}

	out := []Inconsistency{}
	for parent, total := range totals {
		categoryAmount := month.Amounts[parent]
		if !categoryAmount.Equal(total) {
			out = append(out, Inconsistency{
				CategoryCode:     parent,
				CategoryAmount:   categoryAmount,
				SubcategoryTotal: total,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryCode < out[j].CategoryCode })
	return out, nil
}

// subcategoryCodes maps every subcategory code to its parent code.
func (s *allocationService) subcategoryCodes() (map[string]string, error) {
	var subs []models.Account
	if err := s.db.Where("display_as = ? AND parent_code IS NOT NULL", models.DisplayAsSubcategory).
		Find(&subs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	out := make(map[string]string, len(subs))
	for _, sub := range subs {
		out[sub.Code] = sub.Parent()
	}
	return out, nil
}

func (s *allocationService) publish(actor string, data map[string]interface{}) {
	if err := s.publisher.Publish(events.New(events.AllocationsUpdated, actor, data)); err != nil {
		logger.Get().Warnw("failed to publish event", "type", events.AllocationsUpdated, "error", err)
	}
}

// replaceMonth deletes a month's allocations and inserts amounts in their place.
func replaceMonth(tx *gorm.DB, monthKey string, amounts map[string]decimal.Decimal, actor string) error {
	if err := tx.Unscoped().Where("month_key = ?", monthKey).Delete(&models.BudgetAllocation{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(amounts) == 0 {
		return nil
	}

	rows := make([]models.BudgetAllocation, 0, len(amounts))
	for code, amount := range amounts {
		rows = append(rows, models.BudgetAllocation{
			MonthKey:    monthKey,
			AccountCode: code,
			Amount:      amount,
			UpdatedBy:   actor,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// groupAllocations folds allocation rows into per-month maps sorted by month.
// Totals count top-level allocations only, since categories already carry
// their subcategories' share.
func groupAllocations(rows []models.BudgetAllocation, subcategories map[string]string) []MonthAllocations {
	byMonth := make(map[string]*MonthAllocations)
	for _, row := range rows {
		m, ok := byMonth[row.MonthKey]
		if !ok {
			m = &MonthAllocations{MonthKey: row.MonthKey, Amounts: map[string]decimal.Decimal{}, Total: decimal.Zero}
			byMonth[row.MonthKey] = m
		}
		m.Amounts[row.AccountCode] = row.Amount
		if _, isSub := subcategories[row.AccountCode]; !isSub {
			m.Total = m.Total.Add(row.Amount)
		}
		if m.UpdatedAt == nil || row.UpdatedAt.After(*m.UpdatedAt) {
			updatedAt := row.UpdatedAt
			m.UpdatedAt = &updatedAt
			m.UpdatedBy = row.UpdatedBy
		}
	}

	out := make([]MonthAllocations, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthKey < out[j].MonthKey })
	return out
}
