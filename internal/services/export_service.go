package services

import (
	"io"

	"github.com/shopspring/decimal"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/export"
)

// exportService renders CSV exports from the other services.
type exportService struct {
	accounts     AccountServicer
	allocations  AllocationServicer
	transactions TransactionServicer
	reports      ReportServicer
}

// NewExportService creates a new ExportServicer.
func NewExportService(accounts AccountServicer, allocations AllocationServicer, transactions TransactionServicer, reports ReportServicer) ExportServicer {
	return &exportService{accounts: accounts, allocations: allocations, transactions: transactions, reports: reports}
}

// ExportAllocations writes one row per chart-of-accounts entry with its
// allocation for monthKey (zero when unset).
func (s *exportService) ExportAllocations(w io.Writer, monthKey string) error {
	month, err := s.allocations.GetMonth(monthKey)
	if err != nil {
		return err
	}
	accounts, err := s.accounts.ListAccounts(false)
	if err != nil {
		return err
	}

	out := export.NewWriter(w)
	out.Header("Account Code", "Account Name", "Type", "Allocated Amount")
	for _, a := range accounts {
		amount, ok := month.Amounts[a.Code]
		if !ok {
			amount = decimal.Zero
		}
		out.Row(export.Text(a.Code), export.Text(a.Name), export.Text(string(a.DisplayAs)), export.Money(amount))
	}
	return flush(out)
}

// ExportTransactions writes every transaction matching filter, oldest first.
func (s *exportService) ExportTransactions(w io.Writer, filter TransactionFilter) error {
	transactions, err := s.transactions.ListTransactions(filter)
	if err != nil {
		return err
	}

	out := export.NewWriter(w)
	out.Header("Date", "Description", "Account Code", "Type", "Payment Method", "Amount")
	for _, t := range transactions {
		out.Row(
			export.Text(t.Date.Format("2006-01-02")),
			export.Text(t.Description),
			export.Text(t.AccountCode),
			export.Text(string(t.Type)),
			export.Text(string(t.PaymentMethod)),
			export.Money(t.Amount),
		)
	}
	return flush(out)
}

// ExportReport writes the snapshot rows of a report, subaccounts after their parent.
func (s *exportService) ExportReport(w io.Writer, id string) error {
	report, err := s.reports.GetReport(id)
	if err != nil {
		return err
	}

	out := export.NewWriter(w)
	out.Header("Account Code", "Account Name", "Budgeted", "Spent", "Remaining", "Percent Used", "Needs Explanation")
	if report.DataSnapshot != nil {
		for _, row := range report.DataSnapshot.Rows {
			writeReportRow(out, row)
			for _, sub := range row.Subaccounts {
				writeReportRow(out, sub)
			}
		}
	}
	return flush(out)
}

func writeReportRow(out *export.Writer, row budget.AggregateRow) {
	out.Row(
		export.Text(row.AccountCode),
		export.Text(row.AccountName),
		export.Money(row.Budgeted),
		export.Money(row.Spent),
		export.Money(row.Remaining),
		export.Number(row.PercentUsed),
		export.Bool(row.NeedsExplanation),
	)
}

func flush(out *export.Writer) error {
	if err := out.Flush(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
