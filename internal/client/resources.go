package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/budget"
	"fundledger/internal/models"
	"fundledger/internal/payload"
	"fundledger/internal/services"
)

// ListAccounts returns the chart of accounts.
func (c *Client) ListAccounts(ctx context.Context, activeOnly bool) ([]models.Account, error) {
	query := url.Values{}
	if activeOnly {
		query.Set("active", "true")
	}
	var result struct {
		Data []models.Account `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/chart-of-accounts", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// TransactionQuery filters a transaction listing. Zero values are omitted.
type TransactionQuery struct {
	StartDate   string
	EndDate     string
	AccountCode string
	Type        models.TransactionType
	Limit       int
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("startDate", q.StartDate)
	set("endDate", q.EndDate)
	set("category", q.AccountCode)
	set("type", string(q.Type))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// NewTransaction is the body of a transaction create.
type NewTransaction struct {
	Date          string                 `json:"date,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Amount        decimal.Decimal        `json:"amount"`
	Type          models.TransactionType `json:"type"`
	AccountCode   string                 `json:"account_code,omitempty"`
	PaymentMethod models.PaymentMethod   `json:"payment_method"`
	Notes         string                 `json:"notes,omitempty"`
}

// ListTransactions returns one page of transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, int64, error) {
	var result struct {
		Transactions []models.Transaction `json:"transactions"`
		TotalItems   int64                `json:"total_items"`
	}
	if err := c.do(ctx, http.MethodGet, "/transactions", q.values(), nil, &result); err != nil {
		return nil, 0, err
	}
	return result.Transactions, result.TotalItems, nil
}

// CreateTransaction records a transaction.
func (c *Client) CreateTransaction(ctx context.Context, tx NewTransaction) (*models.Transaction, error) {
	var result struct {
		Transaction models.Transaction `json:"transaction"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, tx, &result); err != nil {
		return nil, err
	}
	return &result.Transaction, nil
}

// ExportTransactions streams the CSV export of the matching transactions into w.
func (c *Client) ExportTransactions(ctx context.Context, q TransactionQuery, w io.Writer) error {
	raw, err := c.send(ctx, http.MethodGet, "/transactions/export", q.values(), nil)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// GetAllocations returns decoded month payloads keyed by month key. A nil
// month fetches every month of year that has allocations.
func (c *Client) GetAllocations(ctx context.Context, year int, month *int) (map[string]payload.Month, error) {
	query := url.Values{"year": {strconv.Itoa(year)}}
	if month != nil {
		query.Set("month", strconv.Itoa(*month))
	}
	var result struct {
		Data map[string]map[string]json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/budget-allocations", query, nil, &result); err != nil {
		return nil, err
	}
	return decodeMonths(result.Data)
}

// AllocationResult is the answer to a month replace.
type AllocationResult struct {
	Month           payload.Month
	Inconsistencies []services.Inconsistency
}

// PutAllocations replaces the allocations of monthKey.
func (c *Client) PutAllocations(ctx context.Context, monthKey string, amounts map[string]decimal.Decimal) (*AllocationResult, error) {
	body := map[string]interface{}{"monthKey": monthKey, "allocations": amounts}
	var result struct {
		Data            map[string]map[string]json.RawMessage `json:"data"`
		Inconsistencies []services.Inconsistency              `json:"inconsistencies"`
	}
	if err := c.do(ctx, http.MethodPut, "/budget-allocations", nil, body, &result); err != nil {
		return nil, err
	}
	months, err := decodeMonths(result.Data)
	if err != nil {
		return nil, err
	}
	return &AllocationResult{Month: months[monthKey], Inconsistencies: result.Inconsistencies}, nil
}

func decodeMonths(data map[string]map[string]json.RawMessage) (map[string]payload.Month, error) {
	out := make(map[string]payload.Month, len(data))
	for key, raw := range data {
		month, err := payload.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding allocations for %s: %w", key, err)
		}
		out[key] = month
	}
	return out, nil
}

// MonthBudget is the server's monthly budget view.
type MonthBudget struct {
	MonthKey        string                `json:"monthKey"`
	TotalBudget     decimal.Decimal       `json:"totalBudget"`
	TotalSpent      decimal.Decimal       `json:"totalSpent"`
	AccountsGrouped []budget.AggregateRow `json:"accountsGrouped"`
	Flagged         []budget.AggregateRow `json:"flagged"`
}

// Aggregate converts the view back to the aggregator's shape.
func (m *MonthBudget) Aggregate() *budget.MonthAggregate {
	return &budget.MonthAggregate{
		MonthKey:    m.MonthKey,
		TotalBudget: m.TotalBudget,
		TotalSpent:  m.TotalSpent,
		Rows:        m.AccountsGrouped,
	}
}

// GetMonthBudget returns one month's budget-versus-actual rows.
func (c *Client) GetMonthBudget(ctx context.Context, year int, month time.Month) (*MonthBudget, error) {
	query := url.Values{"year": {strconv.Itoa(year)}, "month": {strconv.Itoa(int(month))}}
	var result struct {
		Data MonthBudget `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/budgets", query, nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// GetYearToDate returns the server-side roll-up of January through month.
func (c *Client) GetYearToDate(ctx context.Context, year int, month time.Month) (*budget.Rollup, error) {
	query := url.Values{"year": {strconv.Itoa(year)}, "month": {strconv.Itoa(int(month))}}
	var result struct {
		Data budget.Rollup `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/budgets/ytd", query, nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}
