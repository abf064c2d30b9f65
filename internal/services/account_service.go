package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/events"
	"fundledger/internal/logger"
	"fundledger/internal/models"
)

// accountService manages the chart of accounts.
type accountService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, publisher events.Publisher) AccountServicer {
	return &accountService{db: db, publisher: publisher}
}

// accountOrder sorts unset display orders after set ones, then by name.
const accountOrder = "display_order = 0, display_order, LOWER(name)"

// ListAccounts returns the chart of accounts in display order.
func (s *accountService) ListAccounts(activeOnly bool) ([]models.Account, error) {
	query := s.db.Model(&models.Account{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var accounts []models.Account
	if err := query.Order(accountOrder).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// GetAccount returns the account with the given code.
func (s *accountService) GetAccount(code string) (*models.Account, error) {
	return findAccount(s.db, code)
}

func findAccount(db *gorm.DB, code string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("code = ?", code).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// CreateAccount adds an account. The display type is inferred from the
// parent code when not given.
func (s *accountService) CreateAccount(input AccountInput) (*models.Account, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account code and name are required")
	}
	if strings.EqualFold(code, "Uncategorized") {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account code is reserved")
	}

	var count int64
	if err := s.db.Model(&models.Account{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateAccountCode
	}

	parent := normalizeCode(input.ParentCode)
	displayAs := input.DisplayAs
	if displayAs == "" {
		displayAs = models.DisplayAsCategory
		if parent != nil {
			displayAs = models.DisplayAsSubcategory
		}
	}
	if err := s.checkParent(code, displayAs, parent); err != nil {
		return nil, err
	}

	account := &models.Account{
		Code:         code,
		Name:         name,
		ParentCode:   parent,
		DisplayAs:    displayAs,
		Description:  input.Description,
		IsActive:     true,
		DisplayOrder: input.DisplayOrder,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// GORM skips false for columns with a default on create.
	if input.IsActive != nil && !*input.IsActive {
		if err := s.db.Model(account).Update("is_active", false).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// UpdateAccount changes an account's editable fields.
func (s *accountService) UpdateAccount(code string, update AccountUpdate) (*models.Account, error) {
	account, err := findAccount(s.db, code)
	if err != nil {
		return nil, err
	}

	displayAs := account.DisplayAs
	if update.DisplayAs != nil {
		displayAs = *update.DisplayAs
	}
	parent := account.ParentCode
	if update.ParentCode != nil {
		parent = normalizeCode(update.ParentCode)
	}
	// Promoting to category drops the parent.
	if update.DisplayAs != nil && displayAs == models.DisplayAsCategory && update.ParentCode == nil {
		parent = nil
	}
	if err := s.checkParent(code, displayAs, parent); err != nil {
		return nil, err
	}
	if displayAs == models.DisplayAsSubcategory && !account.IsSubcategory() {
		children, err := countChildren(s.db, code)
		if err != nil {
			return nil, err
		}
		if children > 0 {
			return nil, apperrors.WithMessage(apperrors.ErrAccountHasChildren,
				"a category with subcategories cannot become a subcategory")
		}
	}

	updates := map[string]interface{}{
		"display_as":  displayAs,
		"parent_code": parent,
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
		}
		updates["name"] = name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.DisplayOrder != nil {
		updates["display_order"] = *update.DisplayOrder
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return findAccount(s.db, code)
}

// DeleteAccount removes an account. When transactions still reference it the
// caller must choose to transfer them (with their allocations) to targetCode
// or to cascade the delete. Categories with subcategories cannot be deleted.
func (s *accountService) DeleteAccount(actor, code string, action DeleteAction, targetCode string) (*DeleteResult, error) {
	account, err := findAccount(s.db, code)
	if err != nil {
		return nil, err
	}

	children, err := countChildren(s.db, code)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return nil, apperrors.ErrAccountHasChildren
	}

	var txCount int64
	if err := s.db.Model(&models.Transaction{}).Where("account_code = ?", code).Count(&txCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &DeleteResult{AccountCode: code}
	if txCount > 0 {
		switch action {
		case DeleteActionTransfer:
			if strings.TrimSpace(targetCode) == "" {
				return nil, apperrors.ErrTransferTargetNeeded
			}
			if targetCode == code {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot transfer transactions to the account being deleted")
			}
			if _, err := findAccount(s.db, targetCode); err != nil {
				if errors.Is(err, apperrors.ErrAccountNotFound) {
					return nil, apperrors.WithMessage(apperrors.ErrAccountNotFound, "destination account not found")
				}
				return nil, err
			}
		case DeleteActionCascade:
		default:
			return nil, apperrors.WithDetails(apperrors.ErrAccountInUse, apperrors.ErrAccountInUse.Message,
				map[string]interface{}{"transaction_count": txCount})
		}
		result.Action = action
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch result.Action {
		case DeleteActionTransfer:
			result.TargetCode = targetCode
			moved := tx.Model(&models.Transaction{}).Where("account_code = ?", code).Update("account_code", targetCode)
			if moved.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, moved.Error)
			}
			result.TransactionsMoved = moved.RowsAffected

			n, err := mergeAllocations(tx, code, targetCode)
			if err != nil {
				return err
			}
			result.AllocationsMoved = n
		case DeleteActionCascade:
			deleted := tx.Where("account_code = ?", code).Delete(&models.Transaction{})
			if deleted.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, deleted.Error)
			}
			result.TransactionsDeleted = deleted.RowsAffected
		}

		// Allocations and accounts are removed for good so their keys can be reused.
		allocs := tx.Unscoped().Where("account_code = ?", code).Delete(&models.BudgetAllocation{})
		if allocs.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, allocs.Error)
		}
		result.AllocationsDeleted = allocs.RowsAffected

		if err := tx.Unscoped().Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(events.New(events.AccountDeleted, actor, result)); err != nil {
		logger.Get().Warnw("failed to publish event", "type", events.AccountDeleted, "error", err)
	}

	return result, nil
}

// mergeAllocations moves every allocation of from onto to, adding amounts
// when to already has an allocation for the same month.
func mergeAllocations(tx *gorm.DB, from, to string) (int64, error) {
	var source []models.BudgetAllocation
	if err := tx.Where("account_code = ?", from).Find(&source).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var moved int64
	for _, alloc := range source {
		var existing models.BudgetAllocation
		err := tx.Where("month_key = ? AND account_code = ?", alloc.MonthKey, to).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("amount", existing.Amount.Add(alloc.Amount)).Error; err != nil {
				return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			merged := models.BudgetAllocation{
				MonthKey:    alloc.MonthKey,
				AccountCode: to,
				Amount:      alloc.Amount,
				UpdatedBy:   alloc.UpdatedBy,
			}
			if err := tx.Create(&merged).Error; err != nil {
				return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		default:
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		moved++
	}
	return moved, nil
}

// checkParent enforces the two-level forest: categories have no parent and
// subcategories hang under an existing category.
func (s *accountService) checkParent(code string, displayAs models.DisplayAs, parent *string) error {
	switch displayAs {
	case models.DisplayAsCategory:
		if parent != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidParent, "categories cannot have a parent")
		}
		return nil
	case models.DisplayAsSubcategory:
		if parent == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidParent, "subcategories require a parent code")
		}
		if *parent == code {
			return apperrors.WithMessage(apperrors.ErrInvalidParent, "an account cannot be its own parent")
		}
		p, err := findAccount(s.db, *parent)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				return apperrors.WithMessage(apperrors.ErrInvalidParent, "parent account not found")
			}
			return err
		}
		if p.IsSubcategory() {
			return apperrors.WithMessage(apperrors.ErrInvalidParent, "parent must be a category")
		}
		return nil
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "display_as must be 'category' or 'subcategory'")
	}
}

func countChildren(db *gorm.DB, code string) (int64, error) {
	var count int64
	if err := db.Model(&models.Account{}).Where("parent_code = ?", code).Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
