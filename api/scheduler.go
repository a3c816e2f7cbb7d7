/*
scheduler.go - Background inventory auditor

PURPOSE:
  Periodically resums the inventory journal per item and compares it to
  the cached balances. Under the single-transaction write path the two
  can never disagree; a reported drift means operator surgery or data
  corruption, so it is logged loudly and left for a human (or an explicit
  repair call) to fix.

DESIGN:
  - One goroutine on a ticker; Stop() drains it cleanly
  - Detect-only: the scheduler never repairs on its own
  - POST /api/admin/reconcile with {"repair": true} is the manual path

USAGE:
  auditor := NewReconcileScheduler(handler, time.Hour)
  auditor.Start()
  defer auditor.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"
)

// ReconcileScheduler runs the journal-vs-projection audit on an interval.
type ReconcileScheduler struct {
	handler  *Handler
	interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewReconcileScheduler(h *Handler, interval time.Duration) *ReconcileScheduler {
	return &ReconcileScheduler{
		handler:  h,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the audit loop. No-op when the interval is zero.
func (rs *ReconcileScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.interval <= 0 {
		rs.handler.log.Info().Msg("reconcile scheduler disabled")
		return
	}

	rs.ticker = time.NewTicker(rs.interval)
	rs.wg.Add(1)
	go rs.run()

	rs.handler.log.Info().Dur("interval", rs.interval).Msg("reconcile scheduler started")
}

// Stop halts the loop and waits for an in-flight audit to finish.
func (rs *ReconcileScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
}

func (rs *ReconcileScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.audit()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconcileScheduler) audit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	drifts, err := rs.handler.Inventory.Reconcile(ctx, false)
	if err != nil {
		rs.handler.log.Error().Err(err).Msg("scheduled reconcile failed")
		return
	}
	if len(drifts) == 0 {
		rs.handler.log.Debug().Msg("scheduled reconcile clean")
		return
	}
	for _, d := range drifts {
		rs.handler.log.Error().
			Str("item_id", string(d.ItemID)).
			Str("item", d.ItemName).
			Str("cached", d.CachedBalance.String()).
			Str("journal", d.JournalSum.String()).
			Msg("inventory projection drift")
	}
}
