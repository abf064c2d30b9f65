package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fundledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestUser is the actor recorded by fixtures.
const TestUser = "test-user"

// CreateTestCategory creates a top-level account with a unique code.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	n := nextID()
	return CreateTestAccount(t, db, fmt.Sprintf("CAT%d", n), fmt.Sprintf("Category %d", n), "")
}

// CreateTestSubcategory creates a subcategory under parentCode.
func CreateTestSubcategory(t *testing.T, db *gorm.DB, parentCode string) *models.Account {
	t.Helper()
	n := nextID()
	return CreateTestAccount(t, db, fmt.Sprintf("%s.SUB%d", parentCode, n), fmt.Sprintf("Subcategory %d", n), parentCode)
}

// CreateTestAccount creates an account with the given code and name. A non-empty
// parentCode makes it a subcategory.
func CreateTestAccount(t *testing.T, db *gorm.DB, code, name, parentCode string) *models.Account {
	t.Helper()

	account := &models.Account{
		Code:      code,
		Name:      name,
		DisplayAs: models.DisplayAsCategory,
		IsActive:  true,
	}
	if parentCode != "" {
		account.ParentCode = &parentCode
		account.DisplayAs = models.DisplayAsSubcategory
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestTransaction creates a card transaction of the given type and amount on date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountCode string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Date:          date,
		Description:   fmt.Sprintf("Test transaction %d", nextID()),
		Amount:        decimal.RequireFromString(amount),
		Type:          txType,
		AccountCode:   accountCode,
		PaymentMethod: models.PaymentMethodCard,
		CreatedBy:     TestUser,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestExpense creates an expense transaction.
func CreateTestExpense(t *testing.T, db *gorm.DB, accountCode, amount string, date time.Time) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, accountCode, models.TransactionTypeExpense, amount, date)
}

// CreateTestAllocation stores an allocation for accountCode in monthKey.
func CreateTestAllocation(t *testing.T, db *gorm.DB, monthKey, accountCode, amount string) *models.BudgetAllocation {
	t.Helper()

	alloc := &models.BudgetAllocation{
		MonthKey:    monthKey,
		AccountCode: accountCode,
		Amount:      decimal.RequireFromString(amount),
		UpdatedBy:   TestUser,
	}
	if err := db.Create(alloc).Error; err != nil {
		t.Fatalf("failed to create test allocation: %v", err)
	}
	return alloc
}

// CreateTestPlanningPeriod creates an open planning period.
func CreateTestPlanningPeriod(t *testing.T, db *gorm.DB, start, end string) *models.PlanningPeriod {
	t.Helper()

	period := &models.PlanningPeriod{
		Name:       fmt.Sprintf("FY %d", nextID()),
		StartMonth: start,
		EndMonth:   end,
		Status:     models.PlanningPeriodOpen,
	}
	if err := db.Create(period).Error; err != nil {
		t.Fatalf("failed to create test planning period: %v", err)
	}
	return period
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
