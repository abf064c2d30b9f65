package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/reporting"
)

// ReportEdit is the editable part of a report. Nil fields are left unchanged.
type ReportEdit struct {
	ExecutiveSummary         *string               `json:"executive_summary,omitempty"`
	AdditionalNotes          *string               `json:"additional_notes,omitempty"`
	UpcomingExpenses         *string               `json:"upcoming_expenses,omitempty"`
	YTDComment               *string               `json:"ytd_comment,omitempty"`
	FinancialPositionComment *string               `json:"financial_position_comment,omitempty"`
	NeededActions            []models.NeededAction `json:"needed_actions,omitempty"`
	VarianceExplanations     map[string]string     `json:"variance_explanations,omitempty"`
}

// MergeReportEdit layers next over prev: set fields in next win and
// explanations are merged per account.
func MergeReportEdit(prev, next ReportEdit) ReportEdit {
	out := prev
	if next.ExecutiveSummary != nil {
		out.ExecutiveSummary = next.ExecutiveSummary
	}
	if next.AdditionalNotes != nil {
		out.AdditionalNotes = next.AdditionalNotes
	}
	if next.UpcomingExpenses != nil {
		out.UpcomingExpenses = next.UpcomingExpenses
	}
	if next.YTDComment != nil {
		out.YTDComment = next.YTDComment
	}
	if next.FinancialPositionComment != nil {
		out.FinancialPositionComment = next.FinancialPositionComment
	}
	if next.NeededActions != nil {
		out.NeededActions = next.NeededActions
	}
	if len(next.VarianceExplanations) > 0 {
		merged := make(map[string]string, len(prev.VarianceExplanations)+len(next.VarianceExplanations))
		for k, v := range prev.VarianceExplanations {
			merged[k] = v
		}
		for k, v := range next.VarianceExplanations {
			merged[k] = v
		}
		out.VarianceExplanations = merged
	}
	return out
}

type saveReportBody struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	ReportEdit
}

type reportEnvelope struct {
	Report models.Report `json:"report"`
}

// SaveReport creates or updates the draft report for year/month.
func (c *Client) SaveReport(ctx context.Context, year, month int, edit ReportEdit) (*models.Report, error) {
	var result reportEnvelope
	body := saveReportBody{Year: year, Month: month, ReportEdit: edit}
	if err := c.do(ctx, http.MethodPost, "/reports", nil, body, &result); err != nil {
		return nil, err
	}
	return &result.Report, nil
}

// GetReport fetches a report by ID.
func (c *Client) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var result reportEnvelope
	if err := c.do(ctx, http.MethodGet, "/reports/"+id, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result.Report, nil
}

// UpdateReport edits a draft report by ID.
func (c *Client) UpdateReport(ctx context.Context, id string, edit ReportEdit) (*models.Report, error) {
	var result reportEnvelope
	if err := c.do(ctx, http.MethodPut, "/reports/"+id, nil, edit, &result); err != nil {
		return nil, err
	}
	return &result.Report, nil
}

// FinalizeReport locks a report. A report with unexplained variances fails
// with a 422 APIError; see MissingExplanations.
func (c *Client) FinalizeReport(ctx context.Context, id string) (*models.Report, error) {
	return c.reportTransition(ctx, id, "finalize")
}

// ReopenReport returns a final report to draft.
func (c *Client) ReopenReport(ctx context.Context, id string) (*models.Report, error) {
	return c.reportTransition(ctx, id, "reopen")
}

func (c *Client) reportTransition(ctx context.Context, id, action string) (*models.Report, error) {
	var result reportEnvelope
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/reports/%s/%s", id, action), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result.Report, nil
}

// MissingExplanations extracts the accounts still lacking a variance
// explanation from a failed finalize. ok is false for any other error.
func MissingExplanations(err error) (details reporting.MissingDetails, ok bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != apperrors.ErrMissingExplanations.Code {
		return details, false
	}
	if len(apiErr.Details) > 0 {
		if json.Unmarshal(apiErr.Details, &details) != nil {
			return details, false
		}
	}
	return details, true
}
