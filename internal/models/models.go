package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&Transaction{},
		&BudgetAllocation{},
		&Report{},
		&PlanningPeriod{},
		&AuditLog{},
	}
}
