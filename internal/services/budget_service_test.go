package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fundledger/internal/budget"
	"fundledger/internal/testutil"
)

// seedBudget creates a small chart of accounts with data for January to March 2024.
func seedBudget(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.CreateTestAccount(t, db, "Facility", "Facility", "")
	testutil.CreateTestAccount(t, db, "Administration", "Administration", "")

	for _, key := range []string{"2024-01", "2024-02", "2024-03"} {
		testutil.CreateTestAllocation(t, db, key, "Facility", "1500")
		testutil.CreateTestAllocation(t, db, key, "Administration", "1200")
	}

	testutil.CreateTestExpense(t, db, "Facility", "450", testutil.Day(2024, time.March, 5))
	testutil.CreateTestExpense(t, db, "Administration", "380", testutil.Day(2024, time.March, 20))
	testutil.CreateTestExpense(t, db, "Facility", "1000", testutil.Day(2024, time.January, 10))
	testutil.CreateTestExpense(t, db, "Facility", "1700", testutil.Day(2024, time.February, 29))
	testutil.CreateTestTransaction(t, db, "Facility", "income", "5000", testutil.Day(2024, time.March, 1))
	testutil.CreateTestExpense(t, db, "Mystery", "25", testutil.Day(2024, time.March, 31))
	testutil.CreateTestExpense(t, db, "Facility", "999", testutil.Day(2024, time.April, 1))
}

func budgetServiceAt(db *gorm.DB, now time.Time) *budgetService {
	svc := NewBudgetService(db).(*budgetService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestBudgetGetMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	seedBudget(t, db)
	svc := NewBudgetService(db)
	ctx := context.Background()

	t.Run("aggregates_the_month", func(t *testing.T) {
		agg, err := svc.GetMonth(ctx, 2024, time.March)
		testutil.AssertNoError(t, err)

		if agg.MonthKey != "2024-03" {
			t.Errorf("expected month key 2024-03, got %s", agg.MonthKey)
		}
		facility, ok := agg.Find("Facility")
		if !ok {
			t.Fatal("expected a Facility row")
		}
		if !facility.Spent.Equal(decimal.NewFromInt(450)) || !facility.Remaining.Equal(decimal.NewFromInt(1050)) {
			t.Errorf("unexpected Facility figures: spent %s remaining %s", facility.Spent, facility.Remaining)
		}
		if facility.PercentUsed.String() != "30" {
			t.Errorf("expected 30 percent used, got %s", facility.PercentUsed)
		}
		if !agg.TotalBudget.Equal(decimal.NewFromInt(2700)) {
			t.Errorf("expected total budget 2700, got %s", agg.TotalBudget)
		}
		// Income is ignored; the unknown code lands in Uncategorized.
		if !agg.TotalSpent.Equal(decimal.NewFromInt(855)) {
			t.Errorf("expected total spent 855, got %s", agg.TotalSpent)
		}
		last := agg.Rows[len(agg.Rows)-1]
		if last.AccountCode != budget.UncategorizedCode {
			t.Errorf("expected uncategorized row last, got %s", last.AccountCode)
		}
	})

	t.Run("month_boundaries", func(t *testing.T) {
		agg, err := svc.GetMonth(ctx, 2024, time.February)
		testutil.AssertNoError(t, err)

		facility, _ := agg.Find("Facility")
		if !facility.Spent.Equal(decimal.NewFromInt(1700)) {
			t.Errorf("expected leap day expense in February, got %s", facility.Spent)
		}
		if len(agg.Flagged()) != 1 {
			t.Errorf("expected Facility to be flagged, got %+v", agg.Flagged())
		}
	})

	t.Run("empty_month", func(t *testing.T) {
		agg, err := svc.GetMonth(ctx, 2023, time.June)
		testutil.AssertNoError(t, err)
		if len(agg.Rows) != 0 || !agg.TotalSpent.IsZero() {
			t.Errorf("expected an empty aggregate, got %+v", agg)
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		_, err := svc.GetMonth(ctx, 2024, time.Month(13))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestBudgetGetYearToDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	seedBudget(t, db)
	svc := NewBudgetService(db)

	rollup, err := svc.GetYearToDate(context.Background(), 2024, time.March)
	testutil.AssertNoError(t, err)

	if len(rollup.Months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(rollup.Months))
	}
	facility, ok := rollup.Find("Facility")
	if !ok {
		t.Fatal("expected a Facility row")
	}
	if !facility.Actual.Equal(decimal.NewFromInt(3150)) {
		t.Errorf("expected actual 3150, got %s", facility.Actual)
	}
	if !facility.Budget.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("expected budget 4500, got %s", facility.Budget)
	}
	if !facility.Variance.Equal(decimal.NewFromInt(-1350)) {
		t.Errorf("expected variance -1350, got %s", facility.Variance)
	}
}

func TestBudgetGetYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	seedBudget(t, db)
	svc := budgetServiceAt(db, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC))

	rollup, err := svc.GetYear(context.Background(), 2024)
	testutil.AssertNoError(t, err)

	if len(rollup.Months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(rollup.Months))
	}
	if rollup.Months[2].Future || !rollup.Months[3].Future {
		t.Errorf("expected April onwards to be future, got %+v", rollup.Months[2:4])
	}
	facility, _ := rollup.Find("Facility")
	if !facility.Actual.Equal(decimal.NewFromInt(3150)) {
		t.Errorf("future April expense must not count, got actual %s", facility.Actual)
	}
}

func TestBudgetGetFiscalYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	seedBudget(t, db)
	svc := budgetServiceAt(db, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))

	t.Run("rolls_up_the_period", func(t *testing.T) {
		period := testutil.CreateTestPlanningPeriod(t, db, "2024-02", "2024-04")

		result, err := svc.GetFiscalYear(context.Background(), period.ID)
		testutil.AssertNoError(t, err)

		if result.Period.ID != period.ID {
			t.Errorf("expected period %s, got %s", period.ID, result.Period.ID)
		}
		if len(result.Months) != 3 || result.Months[0].MonthKey != "2024-02" {
			t.Errorf("unexpected months: %+v", result.Months)
		}
		facility, _ := result.Find("Facility")
		if !facility.Actual.Equal(decimal.NewFromInt(3149)) {
			t.Errorf("expected actual 3149, got %s", facility.Actual)
		}
	})

	t.Run("unknown_period", func(t *testing.T) {
		_, err := svc.GetFiscalYear(context.Background(), "missing")
		testutil.AssertAppError(t, err, "PLANNING_PERIOD_NOT_FOUND")
	})
}
