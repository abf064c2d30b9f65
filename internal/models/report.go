package models

import (
	"time"

	"fundledger/internal/budget"
)

// ReportStatus is the lifecycle state of a monthly report
type ReportStatus string

const (
	ReportStatusDraft ReportStatus = "draft"
	ReportStatusFinal ReportStatus = "final"
)

// NeededAction is a follow-up item recorded on a report.
type NeededAction struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee"`
	Priority string `json:"priority"`
}

// Report is a monthly narrative plus a snapshot of that month's budget figures.
// The snapshot is recomputed on every save while the report is a draft and
// frozen once it is final.
type Report struct {
	Base
	Year                     int                    `gorm:"not null;uniqueIndex:idx_report_period" json:"year"`
	Month                    int                    `gorm:"not null;uniqueIndex:idx_report_period" json:"month"`
	Status                   ReportStatus           `gorm:"not null;default:draft" json:"status"`
	DataSnapshot             *budget.MonthAggregate `gorm:"serializer:json;type:text" json:"data_snapshot,omitempty"`
	ExecutiveSummary         string                 `json:"executive_summary"`
	NeededActions            []NeededAction         `gorm:"serializer:json;type:text" json:"needed_actions"`
	VarianceExplanations     map[string]string      `gorm:"serializer:json;type:text" json:"variance_explanations"`
	AdditionalNotes          string                 `json:"additional_notes"`
	UpcomingExpenses         string                 `json:"upcoming_expenses"`
	YTDComment               string                 `gorm:"column:ytd_comment" json:"ytd_comment"`
	FinancialPositionComment string                 `json:"financial_position_comment"`
	CreatedBy                string                 `json:"created_by"`
	FinalizedAt              *time.Time             `json:"finalized_at,omitempty"`
}

// IsFinal reports whether the report is locked against edits.
func (r *Report) IsFinal() bool {
	return r.Status == ReportStatusFinal
}
