package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a transaction. The account code is not checked
// against the chart of accounts; unknown codes show up as uncategorized.
func (s *transactionService) CreateTransaction(actor string, input TransactionInput) (*models.Transaction, error) {
	transaction := &models.Transaction{
		Date:          input.Date.UTC(),
		Description:   strings.TrimSpace(input.Description),
		Amount:        input.Amount,
		Type:          input.Type,
		AccountCode:   strings.TrimSpace(input.AccountCode),
		PaymentMethod: input.PaymentMethod,
		ReceiptURL:    input.ReceiptURL,
		Notes:         input.Notes,
		CreatedBy:     actor,
	}
	if err := validateTransaction(transaction); err != nil {
		return nil, err
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetTransactions returns a paginated, filtered list of transactions, newest first.
func (s *transactionService) GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListTransactions returns every transaction matching filter, oldest first.
func (s *transactionService) ListTransactions(filter TransactionFilter) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter).
		Order("date ASC").
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.AccountCode != nil {
		q = q.Where("account_code = ?", *f.AccountCode)
	}
	if f.PaymentMethod != nil {
		q = q.Where("payment_method = ?", *f.PaymentMethod)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(description) LIKE ? OR LOWER(notes) LIKE ?)", like, like)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID.
func (s *transactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", id).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the non-nil fields of update.
func (s *transactionService) UpdateTransaction(id string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}

	if update.Date != nil {
		transaction.Date = update.Date.UTC()
	}
	if update.Description != nil {
		transaction.Description = strings.TrimSpace(*update.Description)
	}
	if update.Amount != nil {
		transaction.Amount = *update.Amount
	}
	if update.Type != nil {
		transaction.Type = *update.Type
	}
	if update.AccountCode != nil {
		transaction.AccountCode = strings.TrimSpace(*update.AccountCode)
	}
	if update.PaymentMethod != nil {
		transaction.PaymentMethod = *update.PaymentMethod
	}
	if update.ReceiptURL != nil {
		transaction.ReceiptURL = *update.ReceiptURL
	}
	if update.Notes != nil {
		transaction.Notes = *update.Notes
	}
	if err := validateTransaction(transaction); err != nil {
		return nil, err
	}

	if err := s.db.Save(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(id string) error {
	transaction, err := s.GetTransactionByID(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func validateTransaction(t *models.Transaction) error {
	switch t.Type {
	case models.TransactionTypeExpense, models.TransactionTypeIncome, models.TransactionTypeTransfer:
	default:
		return apperrors.ErrInvalidTransactionType
	}
	switch t.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodBankTransfer:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "payment method must be Cash, Card or Bank Transfer")
	}
	if t.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction date is required")
	}
	if t.Amount.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be zero")
	}
	// Expenses are stored as positive magnitudes.
	if t.Type == models.TransactionTypeExpense && t.Amount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "expense amounts must be positive")
	}
	if t.Amount.Exponent() < -2 && !t.Amount.Equal(t.Amount.Round(2)) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot have more than two decimal places")
	}
	return nil
}
