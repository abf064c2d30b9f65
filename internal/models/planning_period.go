package models

// PlanningPeriodStatus marks whether a fiscal period is still being planned.
type PlanningPeriodStatus string

const (
	PlanningPeriodOpen   PlanningPeriodStatus = "open"
	PlanningPeriodClosed PlanningPeriodStatus = "closed"
)

// PlanningPeriod is a named fiscal year spanning StartMonth..EndMonth ("YYYY-MM", inclusive).
type PlanningPeriod struct {
	Base
	Name       string               `gorm:"not null" json:"name"`
	StartMonth string               `gorm:"not null" json:"start_month"`
	EndMonth   string               `gorm:"not null" json:"end_month"`
	Status     PlanningPeriodStatus `gorm:"not null;default:open" json:"status"`
	Notes      string               `json:"notes,omitempty"`
}
