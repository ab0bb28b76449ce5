package daemon

import (
	"context"
	"time"

	"editorial/internal/journal"
	"editorial/internal/logging"
)

func (d *Daemon) sweepLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep expires overdue reviews once and returns how many moved. Failures
// for individual reviews are logged by the workflow service and do not
// stop the sweep.
func (d *Daemon) Sweep(ctx context.Context) int {
	results, err := d.svc.ExpireOverdueReviews(ctx)
	expired := 0
	for _, res := range results {
		if res.State == string(journal.ReviewExpired) {
			expired++
		}
	}

	d.mu.Lock()
	d.lastSweep = time.Now()
	d.swept += expired
	d.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		d.logger.Warn("review expiry sweep incomplete",
			logging.Int("expired", expired),
			logging.Error(err),
		)
		return expired
	}
	if expired > 0 {
		d.logger.Info("expired overdue reviews", logging.Int("expired", expired))
	}
	return expired
}
