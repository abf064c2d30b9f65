// Package reporting implements the draft/final lifecycle of monthly reports.
//
// A report starts as a draft the first time any narrative field is saved.
// While it is a draft every save replaces the data snapshot with the live
// aggregate. Finalizing freezes the snapshot and is only allowed once every
// row flagged by the variance policy has a written explanation. A final
// report rejects edits until it is explicitly reopened.
package reporting

import (
	"strings"
	"time"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
)

// Edit is a partial update of a report's narrative. Nil fields are left untouched.
type Edit struct {
	ExecutiveSummary         *string
	NeededActions            []models.NeededAction
	VarianceExplanations     map[string]string
	AdditionalNotes          *string
	UpcomingExpenses         *string
	YTDComment               *string
	FinancialPositionComment *string
}

// MissingExplanation names a flagged row that still lacks an explanation.
type MissingExplanation struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Variance    string `json:"variance"`
}

// MissingDetails is attached to the error returned by Finalize.
type MissingDetails struct {
	Missing []string             `json:"missing"`
	Rows    []MissingExplanation `json:"rows"`
}

// New returns an empty draft for the given period.
func New(year, month int, createdBy string) *models.Report {
	return &models.Report{
		Year:                 year,
		Month:                month,
		Status:               models.ReportStatusDraft,
		NeededActions:        []models.NeededAction{},
		VarianceExplanations: map[string]string{},
		CreatedBy:            createdBy,
	}
}

// Autosave applies edit to a draft report and refreshes its snapshot with live.
func Autosave(r *models.Report, edit Edit, live budget.MonthAggregate) error {
	if r.IsFinal() {
		return apperrors.ErrReportFinalized
	}
	apply(r, edit)
	r.Status = models.ReportStatusDraft
	r.DataSnapshot = &live
	return nil
}

// Refresh recomputes the snapshot of a draft. Final reports keep their frozen snapshot.
func Refresh(r *models.Report, live budget.MonthAggregate) {
	if r.IsFinal() {
		return
	}
	r.DataSnapshot = &live
}

// Missing lists the flagged rows of agg without a non-empty explanation in r.
// Explanations may be keyed by account code or by account name.
func Missing(r *models.Report, agg budget.MonthAggregate) []MissingExplanation {
	var out []MissingExplanation
	for _, row := range agg.Flagged() {
		if hasExplanation(r.VarianceExplanations, row) {
			continue
		}
		out = append(out, MissingExplanation{
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Variance:    row.Variance.StringFixed(2),
		})
	}
	return out
}

// Finalize locks the report against edits, freezing live as its snapshot.
// On failure the report is left unchanged.
func Finalize(r *models.Report, live budget.MonthAggregate, now time.Time) error {
	if r.IsFinal() {
		return apperrors.ErrReportFinalized
	}

	if missing := Missing(r, live); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.AccountName
		}
		return apperrors.WithDetails(apperrors.ErrMissingExplanations,
			"Variance explanations are required for: "+strings.Join(names, ", "),
			MissingDetails{Missing: names, Rows: missing})
	}

	finalizedAt := now.UTC()
	r.DataSnapshot = &live
	r.Status = models.ReportStatusFinal
	r.FinalizedAt = &finalizedAt
	return nil
}

// Reopen returns a final report to draft.
func Reopen(r *models.Report) error {
	if !r.IsFinal() {
		return apperrors.ErrReportNotFinal
	}
	r.Status = models.ReportStatusDraft
	r.FinalizedAt = nil
	return nil
}

func hasExplanation(explanations map[string]string, row budget.AggregateRow) bool {
	for _, key := range []string{row.AccountCode, row.AccountName} {
		if strings.TrimSpace(explanations[key]) != "" {
			return true
		}
	}
	return false
}

func apply(r *models.Report, edit Edit) {
	if edit.ExecutiveSummary != nil {
		r.ExecutiveSummary = *edit.ExecutiveSummary
	}
	if edit.NeededActions != nil {
		r.NeededActions = edit.NeededActions
	}
	if edit.VarianceExplanations != nil {
		merged := make(map[string]string, len(r.VarianceExplanations)+len(edit.VarianceExplanations))
		for k, v := range r.VarianceExplanations {
			merged[k] = v
		}
		for k, v := range edit.VarianceExplanations {
			if strings.TrimSpace(v) == "" {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		r.VarianceExplanations = merged
	}
	if edit.AdditionalNotes != nil {
		r.AdditionalNotes = *edit.AdditionalNotes
	}
	if edit.UpcomingExpenses != nil {
		r.UpcomingExpenses = *edit.UpcomingExpenses
	}
	if edit.YTDComment != nil {
		r.YTDComment = *edit.YTDComment
	}
	if edit.FinancialPositionComment != nil {
		r.FinancialPositionComment = *edit.FinancialPositionComment
	}
}
