// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"fundledger/internal/budget"
	"fundledger/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterWith(v)
	}
}

// RegisterWith registers the custom validators on v.
func RegisterWith(v *validator.Validate) {
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("payment_method", validatePaymentMethod)
	_ = v.RegisterValidation("month_key", validateMonthKey)
	_ = v.RegisterValidation("display_as", validateDisplayAs)
	_ = v.RegisterValidation("period_status", validatePeriodStatus)
	_ = v.RegisterValidation("report_priority", validateReportPriority)
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeExpense, models.TransactionTypeIncome, models.TransactionTypeTransfer:
		return true
	}
	return false
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch models.PaymentMethod(fl.Field().String()) {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodBankTransfer:
		return true
	}
	return false
}

func validateMonthKey(fl validator.FieldLevel) bool {
	return budget.IsMonthKey(fl.Field().String())
}

func validateDisplayAs(fl validator.FieldLevel) bool {
	switch models.DisplayAs(fl.Field().String()) {
	case models.DisplayAsCategory, models.DisplayAsSubcategory:
		return true
	}
	return false
}

func validatePeriodStatus(fl validator.FieldLevel) bool {
	switch models.PlanningPeriodStatus(fl.Field().String()) {
	case models.PlanningPeriodOpen, models.PlanningPeriodClosed:
		return true
	}
	return false
}

func validateReportPriority(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "low", "medium", "high":
		return true
	}
	return false
}
