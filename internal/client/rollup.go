package client

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fundledger/internal/budget"
)

// maxConcurrentMonths bounds the month fetches of a client-side roll-up.
const maxConcurrentMonths = 4

// RollUpMonths fetches January through last of year concurrently and sums
// them locally. Months after now are fetched, shown as future and left out
// of the totals.
func (c *Client) RollUpMonths(ctx context.Context, year int, last time.Month, now time.Time) (*budget.Rollup, error) {
	if last < time.January {
		last = time.January
	}
	if last > time.December {
		last = time.December
	}

	current := budget.MonthKey(now.Year(), now.Month())
	inputs := make([]budget.MonthInput, int(last))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMonths)
	for m := time.January; m <= last; m++ {
		month := m
		inputs[month-1] = budget.MonthInput{
			Year:    year,
			Month:   month,
			Elapsed: budget.MonthKey(year, month) <= current,
		}
		g.Go(func() error {
			view, err := c.GetMonthBudget(gctx, year, month)
			if err != nil {
				return err
			}
			inputs[month-1].Aggregate = view.Aggregate()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rollup := budget.RollUp(inputs)
	return &rollup, nil
}
