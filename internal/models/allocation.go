package models

import "github.com/shopspring/decimal"

// BudgetAllocation is the planned spend for one account in one month.
type BudgetAllocation struct {
	Base
	MonthKey    string          `gorm:"not null;uniqueIndex:idx_allocation_month_account" json:"month_key"`
	AccountCode string          `gorm:"not null;uniqueIndex:idx_allocation_month_account" json:"account_code"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	UpdatedBy   string          `json:"updated_by,omitempty"`
}
