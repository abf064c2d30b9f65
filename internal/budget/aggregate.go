// Package budget computes monthly budget-versus-actual figures per account
// and rolls them up across months. Everything here is pure: callers load
// accounts, transactions and allocations and pass them in.
package budget

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// UncategorizedCode is the synthetic bucket for expenses whose account code
// is empty or not present in the chart of accounts.
const UncategorizedCode = "Uncategorized"

// TypeExpense is the only transaction type that counts against a budget.
const TypeExpense = "expense"

// Variance policy: a row over budget needs a written explanation when the
// overspend exceeds either threshold.
var (
	VarianceAmountThreshold  = decimal.NewFromInt(100)
	VariancePercentThreshold = decimal.NewFromInt(10)
)

var hundred = decimal.NewFromInt(100)

// Account is the slice of a chart-of-accounts entry the aggregator needs.
type Account struct {
	Code         string
	Name         string
	ParentCode   string
	Subcategory  bool
	DisplayOrder int
}

// Transaction is a single money movement tagged with an account code.
type Transaction struct {
	AccountCode string
	Type        string
	Amount      decimal.Decimal
}

// AggregateRow holds one account's figures for one month.
type AggregateRow struct {
	AccountCode      string          `json:"account_code"`
	AccountName      string          `json:"account_name"`
	ParentCode       string          `json:"parent_code,omitempty"`
	DisplayOrder     int             `json:"display_order"`
	Spent            decimal.Decimal `json:"spent"`
	Budgeted         decimal.Decimal `json:"budgeted"`
	Remaining        decimal.Decimal `json:"remaining"`
	PercentUsed      decimal.Decimal `json:"percent_used"`
	Variance         decimal.Decimal `json:"variance"`
	VariancePercent  decimal.Decimal `json:"variance_percent"`
	NeedsExplanation bool            `json:"needs_explanation"`
	Subaccounts      []AggregateRow  `json:"subaccounts,omitempty"`
}

// MonthAggregate is the aggregator output for a single month.
type MonthAggregate struct {
	MonthKey    string          `json:"month_key"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	Rows        []AggregateRow  `json:"rows"`
}

// Find returns the row for code, searching subaccounts too.
func (m *MonthAggregate) Find(code string) (AggregateRow, bool) {
	for _, row := range m.Rows {
		if row.AccountCode == code {
			return row, true
		}
		for _, sub := range row.Subaccounts {
			if sub.AccountCode == code {
				return sub, true
			}
		}
	}
	return AggregateRow{}, false
}

// Flagged returns every row, at either level, that needs a variance explanation.
func (m *MonthAggregate) Flagged() []AggregateRow {
	var out []AggregateRow
	for _, row := range m.Rows {
		if row.NeedsExplanation {
			out = append(out, withoutSubaccounts(row))
		}
		for _, sub := range row.Subaccounts {
			if sub.NeedsExplanation {
				out = append(out, sub)
			}
		}
	}
	return out
}

// ByCode flattens the aggregate into a code-indexed map.
func (m *MonthAggregate) ByCode() map[string]AggregateRow {
	out := make(map[string]AggregateRow)
	for _, row := range m.Rows {
		out[row.AccountCode] = row
		for _, sub := range row.Subaccounts {
			out[sub.AccountCode] = sub
		}
	}
	return out
}

// NewRow computes the derived figures for a spent/budgeted pair.
func NewRow(code, name string, spent, budgeted decimal.Decimal) AggregateRow {
	variance := spent.Sub(budgeted)
	return AggregateRow{
		AccountCode:      code,
		AccountName:      name,
		Spent:            spent,
		Budgeted:         budgeted,
		Remaining:        budgeted.Sub(spent),
		PercentUsed:      percentOf(spent, budgeted),
		Variance:         variance,
		VariancePercent:  percentOf(variance, budgeted),
		NeedsExplanation: NeedsExplanation(spent, budgeted),
	}
}

// NeedsExplanation applies the variance policy to a spent/budgeted pair.
func NeedsExplanation(spent, budgeted decimal.Decimal) bool {
	variance := spent.Sub(budgeted)
	if !variance.IsPositive() {
		return false
	}
	if variance.Abs().GreaterThan(VarianceAmountThreshold) {
		return true
	}
	if budgeted.IsPositive() {
		pct := variance.Div(budgeted).Mul(hundred)
		return pct.Abs().GreaterThan(VariancePercentThreshold)
	}
	return false
}

// percentOf returns part/whole*100 rounded to two places, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

type bucket struct {
	spent      decimal.Decimal
	hasExpense bool
}

// Aggregate computes one month's rows from that month's transactions and
// allocations. Allocations are keyed by account code; codes missing from
// accounts are ignored.
func Aggregate(monthKey string, accounts []Account, transactions []Transaction, allocations map[string]decimal.Decimal) MonthAggregate {
	known := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		known[a.Code] = a
	}

	buckets := make(map[string]*bucket)
	for _, tx := range transactions {
		if tx.Type != TypeExpense {
			continue
		}
		code := strings.TrimSpace(tx.AccountCode)
		if _, ok := known[code]; !ok {
			code = UncategorizedCode
		}
		b, ok := buckets[code]
		if !ok {
			b = &bucket{spent: decimal.Zero}
			buckets[code] = b
		}
		b.spent = b.spent.Add(tx.Amount)
		b.hasExpense = true
	}

	active := func(code string) bool {
		if b, ok := buckets[code]; ok && b.hasExpense {
			return true
		}
		amount, ok := allocations[code]
		return ok && !amount.IsZero()
	}

	rowFor := func(a Account) AggregateRow {
		spent := decimal.Zero
		if b, ok := buckets[a.Code]; ok {
			spent = b.spent
		}
		budgeted := decimal.Zero
		if amount, ok := allocations[a.Code]; ok {
			budgeted = amount
		}
		row := NewRow(a.Code, a.Name, spent, budgeted)
		row.ParentCode = a.ParentCode
		row.DisplayOrder = a.DisplayOrder
		return row
	}

	// Subcategories whose parent is missing or not a category are promoted to top level.
	children := make(map[string][]Account)
	var tops []Account
	for _, a := range accounts {
		if a.Subcategory {
			if parent, ok := known[a.ParentCode]; ok && !parent.Subcategory {
				children[a.ParentCode] = append(children[a.ParentCode], a)
				continue
			}
		}
		tops = append(tops, a)
	}

	result := MonthAggregate{
		MonthKey:    monthKey,
		TotalBudget: decimal.Zero,
		TotalSpent:  decimal.Zero,
	}

	for _, top := range tops {
		var subs []AggregateRow
		for _, child := range children[top.Code] {
			if active(child.Code) {
				subs = append(subs, rowFor(child))
			}
		}
		if !active(top.Code) && len(subs) == 0 {
			continue
		}
		row := rowFor(top)
		if top.Subcategory {
			row.ParentCode = ""
		}
		sortRows(subs)
		row.Subaccounts = subs
		result.Rows = append(result.Rows, row)
	}
	sortRows(result.Rows)

	if b, ok := buckets[UncategorizedCode]; ok && b.hasExpense {
		result.Rows = append(result.Rows, NewRow(UncategorizedCode, UncategorizedCode, b.spent, decimal.Zero))
	}

	for _, row := range result.Rows {
		result.TotalBudget = result.TotalBudget.Add(row.Budgeted)
		result.TotalSpent = result.TotalSpent.Add(row.Spent)
		for _, sub := range row.Subaccounts {
			result.TotalSpent = result.TotalSpent.Add(sub.Spent)
		}
	}

	return result
}

// rowLess orders by display order ascending, with unset (zero) orders after
// set ones, then by name.
func rowLess(aOrder int, aName string, bOrder int, bName string) bool {
	if aOrder != bOrder {
		if aOrder == 0 {
			return false
		}
		if bOrder == 0 {
			return true
		}
		return aOrder < bOrder
	}
	return strings.ToLower(aName) < strings.ToLower(bName)
}

func sortRows(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rowLess(rows[i].DisplayOrder, rows[i].AccountName, rows[j].DisplayOrder, rows[j].AccountName)
	})
}

func withoutSubaccounts(row AggregateRow) AggregateRow {
	row.Subaccounts = nil
	return row
}
