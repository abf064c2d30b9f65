package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthInput is one month fed to RollUp. Aggregate may be nil when the month
// has no data at all. Months with Elapsed=false are shown as future columns
// and do not count toward totals.
type MonthInput struct {
	Year      int
	Month     time.Month
	Elapsed   bool
	Aggregate *MonthAggregate
}

// MonthColumn describes one column of a roll-up table.
type MonthColumn struct {
	MonthKey string `json:"month_key"`
	Future   bool   `json:"future"`
}

// MonthCell is one account's figures for one month column.
type MonthCell struct {
	MonthKey string          `json:"month_key"`
	Spent    decimal.Decimal `json:"spent"`
	Budgeted decimal.Decimal `json:"budgeted"`
	Future   bool            `json:"future"`
}

// RolledRow is one account summed across the elapsed months of a roll-up.
type RolledRow struct {
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	ParentCode      string          `json:"parent_code,omitempty"`
	DisplayOrder    int             `json:"display_order"`
	Actual          decimal.Decimal `json:"actual"`
	Budget          decimal.Decimal `json:"budget"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Months          []MonthCell     `json:"months"`
	Subaccounts     []RolledRow     `json:"subaccounts,omitempty"`
}

// Rollup is the result of summing several months of aggregates.
type Rollup struct {
	Months      []MonthColumn   `json:"months"`
	TotalActual decimal.Decimal `json:"total_actual"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	Rows        []RolledRow     `json:"rows"`
}

// Find returns the rolled row for code, searching subaccounts too.
func (r *Rollup) Find(code string) (RolledRow, bool) {
	for _, row := range r.Rows {
		if row.AccountCode == code {
			return row, true
		}
		for _, sub := range row.Subaccounts {
			if sub.AccountCode == code {
				return sub, true
			}
		}
	}
	return RolledRow{}, false
}

type rolledMeta struct {
	name       string
	parentCode string
	order      int
	cells      []MonthCell
}

// RollUp sums per-month aggregates into year-to-date or full-year rows.
// Accounts absent from a month count as zero for that month.
func RollUp(months []MonthInput) Rollup {
	result := Rollup{
		Months:      make([]MonthColumn, len(months)),
		TotalActual: decimal.Zero,
		TotalBudget: decimal.Zero,
	}
	for i, m := range months {
		result.Months[i] = MonthColumn{MonthKey: MonthKey(m.Year, m.Month), Future: !m.Elapsed}
	}

	metas := make(map[string]*rolledMeta)
	var order []string

	touch := func(row AggregateRow, parent string) *rolledMeta {
		meta, ok := metas[row.AccountCode]
		if !ok {
			meta = &rolledMeta{cells: emptyCells(result.Months)}
			metas[row.AccountCode] = meta
			order = append(order, row.AccountCode)
		}
		// Later months win so renames and moves show their current state.
		meta.name = row.AccountName
		meta.parentCode = parent
		meta.order = row.DisplayOrder
		return meta
	}

	for i, m := range months {
		if m.Aggregate == nil {
			continue
		}
		for _, row := range m.Aggregate.Rows {
			meta := touch(row, "")
			meta.cells[i].Spent = row.Spent
			meta.cells[i].Budgeted = row.Budgeted
			for _, sub := range row.Subaccounts {
				subMeta := touch(sub, row.AccountCode)
				subMeta.cells[i].Spent = sub.Spent
				subMeta.cells[i].Budgeted = sub.Budgeted
			}
		}
	}

	build := func(code string) RolledRow {
		meta := metas[code]
		actual, budget := decimal.Zero, decimal.Zero
		for _, cell := range meta.cells {
			if cell.Future {
				continue
			}
			actual = actual.Add(cell.Spent)
			budget = budget.Add(cell.Budgeted)
		}
		variance := actual.Sub(budget)
		return RolledRow{
			AccountCode:     code,
			AccountName:     meta.name,
			ParentCode:      meta.parentCode,
			DisplayOrder:    meta.order,
			Actual:          actual,
			Budget:          budget,
			Variance:        variance,
			VariancePercent: percentOf(variance, budget),
			Months:          meta.cells,
		}
	}

	childrenOf := make(map[string][]string)
	var tops []string
	for _, code := range order {
		parent := metas[code].parentCode
		if _, ok := metas[parent]; parent != "" && ok {
			childrenOf[parent] = append(childrenOf[parent], code)
			continue
		}
		tops = append(tops, code)
	}

	var uncategorized *RolledRow
	for _, code := range tops {
		row := build(code)
		for _, child := range childrenOf[code] {
			row.Subaccounts = append(row.Subaccounts, build(child))
		}
		sortRolled(row.Subaccounts)

		if code == UncategorizedCode {
			uncategorized = &row
			continue
		}
		result.Rows = append(result.Rows, row)
	}
	sortRolled(result.Rows)
	if uncategorized != nil {
		result.Rows = append(result.Rows, *uncategorized)
	}

	for _, row := range result.Rows {
		result.TotalBudget = result.TotalBudget.Add(row.Budget)
		result.TotalActual = result.TotalActual.Add(row.Actual)
		for _, sub := range row.Subaccounts {
			result.TotalActual = result.TotalActual.Add(sub.Actual)
		}
	}

	return result
}

func emptyCells(columns []MonthColumn) []MonthCell {
	cells := make([]MonthCell, len(columns))
	for i, col := range columns {
		cells[i] = MonthCell{
			MonthKey: col.MonthKey,
			Spent:    decimal.Zero,
			Budgeted: decimal.Zero,
			Future:   col.Future,
		}
	}
	return cells
}

func sortRolled(rows []RolledRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rowLess(rows[i].DisplayOrder, rows[i].AccountName, rows[j].DisplayOrder, rows[j].AccountName)
	})
}
