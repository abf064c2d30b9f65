package services

import (
	"gorm.io/gorm"

	"fundledger/internal/events"
)

// Container is the application context: every service, built once at
// startup and handed to the router.
type Container struct {
	Accounts        AccountServicer
	Transactions    TransactionServicer
	Allocations     AllocationServicer
	Budgets         BudgetServicer
	Reports         ReportServicer
	PlanningPeriods PlanningPeriodServicer
	Exports         ExportServicer
	Audit           AuditServicer
}

// NewContainer wires the services over db. Domain events go to publisher.
func NewContainer(db *gorm.DB, publisher events.Publisher) *Container {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	c := &Container{
		Accounts:        NewAccountService(db, publisher),
		Transactions:    NewTransactionService(db),
		Allocations:     NewAllocationService(db, publisher),
		Budgets:         NewBudgetService(db),
		PlanningPeriods: NewPlanningPeriodService(db),
		Audit:           NewAuditService(db),
	}
	c.Reports = NewReportService(db, c.Budgets, publisher)
	c.Exports = NewExportService(c.Accounts, c.Allocations, c.Transactions, c.Reports)
	return c
}
