package reporting

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/budget"
	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
)

var accounts = []budget.Account{
	{Code: "5100", Name: "Facility", DisplayOrder: 1},
	{Code: "Administration", Name: "Administration", DisplayOrder: 2},
}

func liveAggregate(facilitySpent string) budget.MonthAggregate {
	txs := []budget.Transaction{
		{AccountCode: "5100", Type: budget.TypeExpense, Amount: decimal.RequireFromString(facilitySpent)},
		{AccountCode: "Administration", Type: budget.TypeExpense, Amount: decimal.RequireFromString("380")},
	}
	allocs := map[string]decimal.Decimal{
		"5100":           decimal.NewFromInt(1000),
		"Administration": decimal.NewFromInt(1200),
	}
	return budget.Aggregate("2024-03", accounts, txs, allocs)
}

func strPtr(s string) *string { return &s }

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T", err)
	return appErr.Code
}

func TestAutosave(t *testing.T) {
	t.Run("first save creates a draft with a live snapshot", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		err := Autosave(r, Edit{ExecutiveSummary: strPtr("Quiet month")}, liveAggregate("450"))
		require.NoError(t, err)

		assert.Equal(t, models.ReportStatusDraft, r.Status)
		assert.Equal(t, "Quiet month", r.ExecutiveSummary)
		require.NotNil(t, r.DataSnapshot)
		assert.True(t, r.DataSnapshot.TotalSpent.Equal(decimal.NewFromInt(830)))
	})

	t.Run("later saves recompute the snapshot and keep untouched fields", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Autosave(r, Edit{ExecutiveSummary: strPtr("v1")}, liveAggregate("450")))
		require.NoError(t, Autosave(r, Edit{AdditionalNotes: strPtr("notes")}, liveAggregate("500")))

		assert.Equal(t, "v1", r.ExecutiveSummary)
		assert.Equal(t, "notes", r.AdditionalNotes)
		assert.True(t, r.DataSnapshot.TotalSpent.Equal(decimal.NewFromInt(880)))
	})

	t.Run("blank explanations are removed", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Autosave(r, Edit{VarianceExplanations: map[string]string{"5100": "roof"}}, liveAggregate("450")))
		require.NoError(t, Autosave(r, Edit{VarianceExplanations: map[string]string{"5100": "  "}}, liveAggregate("450")))

		assert.NotContains(t, r.VarianceExplanations, "5100")
	})

	t.Run("final reports reject edits", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Finalize(r, liveAggregate("450"), time.Now()))

		err := Autosave(r, Edit{ExecutiveSummary: strPtr("late edit")}, liveAggregate("450"))
		assert.Equal(t, "REPORT_FINALIZED", appCode(t, err))
		assert.Empty(t, r.ExecutiveSummary)
	})
}

func TestFinalize(t *testing.T) {
	t.Run("blocked while a flagged row lacks an explanation", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		live := liveAggregate("1300")

		err := Finalize(r, live, time.Now())
		require.Error(t, err)
		assert.Equal(t, "MISSING_VARIANCE_EXPLANATIONS", appCode(t, err))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		details, ok := appErr.Details.(MissingDetails)
		require.True(t, ok)
		assert.Equal(t, []string{"Facility"}, details.Missing)
		assert.Equal(t, "300.00", details.Rows[0].Variance)

		assert.Equal(t, models.ReportStatusDraft, r.Status)
		assert.Nil(t, r.FinalizedAt)
		assert.Nil(t, r.DataSnapshot)
	})

	t.Run("succeeds once every flagged row is explained", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		live := liveAggregate("1300")
		require.NoError(t, Autosave(r, Edit{VarianceExplanations: map[string]string{"5100": "Emergency roof repair"}}, live))

		now := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
		require.NoError(t, Finalize(r, live, now))

		assert.Equal(t, models.ReportStatusFinal, r.Status)
		require.NotNil(t, r.FinalizedAt)
		assert.True(t, r.FinalizedAt.Equal(now))
		assert.True(t, r.DataSnapshot.TotalSpent.Equal(decimal.NewFromInt(1680)))
	})

	t.Run("accepts explanations keyed by account name", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		r.VarianceExplanations = map[string]string{"Facility": "named"}
		assert.Empty(t, Missing(r, liveAggregate("1300")))
	})

	t.Run("freezes the snapshot", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Finalize(r, liveAggregate("450"), time.Now()))

		Refresh(r, liveAggregate("900"))
		assert.True(t, r.DataSnapshot.TotalSpent.Equal(decimal.NewFromInt(830)))
	})

	t.Run("already final", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Finalize(r, liveAggregate("450"), time.Now()))
		assert.Equal(t, "REPORT_FINALIZED", appCode(t, Finalize(r, liveAggregate("450"), time.Now())))
	})
}

func TestReopen(t *testing.T) {
	t.Run("returns to draft and resumes live snapshots", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		require.NoError(t, Finalize(r, liveAggregate("450"), time.Now()))

		require.NoError(t, Reopen(r))
		assert.Equal(t, models.ReportStatusDraft, r.Status)
		assert.Nil(t, r.FinalizedAt)

		require.NoError(t, Autosave(r, Edit{}, liveAggregate("900")))
		assert.True(t, r.DataSnapshot.TotalSpent.Equal(decimal.NewFromInt(1280)))
	})

	t.Run("draft cannot be reopened", func(t *testing.T) {
		r := New(2024, 3, "user-1")
		assert.Equal(t, "REPORT_NOT_FINAL", appCode(t, Reopen(r)))
	})
}
