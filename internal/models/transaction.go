package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeTransfer TransactionType = "transfer"
)

// PaymentMethod records how money moved.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
)

// Transaction represents one money movement. Expenses are stored as positive
// magnitudes; AccountCode may be empty or point at an unknown account, in
// which case budgets treat it as uncategorized.
type Transaction struct {
	Base
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type          TransactionType `gorm:"not null;index" json:"type"`
	AccountCode   string          `gorm:"index" json:"account_code"`
	PaymentMethod PaymentMethod   `gorm:"not null" json:"payment_method"`
	ReceiptURL    string          `json:"receipt_url,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
}
