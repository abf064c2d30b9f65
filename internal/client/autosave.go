package client

import (
	"context"
	"sync"
	"time"

	"fundledger/internal/logger"
)

// Autosaver debounces edits: each Edit restarts a single timer and only the
// latest pending value is saved once the timer fires. Saves of earlier
// values may still be in flight when a later one starts.
type Autosaver[T any] struct {
	delay   time.Duration
	save    func(ctx context.Context, v T) error
	merge   func(prev, next T) T
	onError func(error)

	mu      sync.Mutex
	pending *T
	timer   *time.Timer
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAutosaver returns an Autosaver that calls save delay after the last
// edit. merge combines a pending value with a newer edit; nil means the
// newer edit replaces the pending one.
func NewAutosaver[T any](delay time.Duration, save func(ctx context.Context, v T) error, merge func(prev, next T) T) *Autosaver[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Autosaver[T]{
		delay:  delay,
		save:   save,
		merge:  merge,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnError registers a callback for failed background saves.
func (a *Autosaver[T]) OnError(fn func(error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onError = fn
}

// Edit records v and restarts the timer. It is a no-op after Close.
func (a *Autosaver[T]) Edit(v T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if a.pending != nil && a.merge != nil {
		v = a.merge(*a.pending, v)
	}
	a.pending = &v

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Pending reports whether an edit is waiting to be saved.
func (a *Autosaver[T]) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Flush saves the pending edit now, if any.
func (a *Autosaver[T]) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.closed || a.pending == nil {
		a.mu.Unlock()
		return nil
	}
	v := *a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	return a.save(ctx, v)
}

// Close drops any pending edit, cancels in-flight saves and waits for them
// to return.
func (a *Autosaver[T]) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Autosaver[T]) fire() {
	a.mu.Lock()
	if a.closed || a.pending == nil {
		a.mu.Unlock()
		return
	}
	v := *a.pending
	a.pending = nil
	a.timer = nil
	onError := a.onError
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	if err := a.save(a.ctx, v); err != nil {
		if a.ctx.Err() != nil {
			return
		}
		logger.Get().Warnw("Autosave failed", "error", err)
		if onError != nil {
			onError(err)
		}
	}
}

// ReportAutosaver debounces edits to the draft report of year/month and
// saves them with SaveReport.
func (c *Client) ReportAutosaver(year, month int, delay time.Duration) *Autosaver[ReportEdit] {
	return NewAutosaver(delay, func(ctx context.Context, edit ReportEdit) error {
		_, err := c.SaveReport(ctx, year, month, edit)
		return err
	}, MergeReportEdit)
}
