package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"editorial/internal/api"
	"editorial/internal/config"
	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/notifications"
	"editorial/internal/workflow"
)

// Daemon runs the API server and the review expiry sweep, and enforces
// single-instance execution per data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *journal.Store
	svc      *workflow.Service
	notifier notifications.Service
	api      *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	lastSweep time.Time
	swept     int
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	APIAddr       string
	DatabasePath  string
	LockFilePath  string
	SweepInterval time.Duration
	LastSweep     time.Time
	ExpiredTotal  int
}

// New constructs a daemon. A nil gatherer serves the default Prometheus
// registry on /metrics.
func New(cfg *config.Config, store *journal.Store, svc *workflow.Service, logger *slog.Logger, gatherer prometheus.Gatherer) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil {
		return nil, errors.New("daemon requires config, store, and workflow service")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		svc:      svc,
		notifier: notifications.NewService(cfg, logger),
		api:      api.NewServer(cfg.Paths.APIBind, svc, store, logger, gatherer),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the lock, starts the API server and schedules the sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another editorial server is already using %s", d.cfg.Paths.DataDir)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel

	if interval := d.sweepInterval(); interval > 0 {
		d.wg.Add(1)
		go d.sweepLoop(runCtx, interval)
	}

	d.running.Store(true)
	d.logger.Info("editorial server started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.Addr()),
		logging.Duration("sweep_interval", d.sweepInterval()),
	)
	return nil
}

// Stop stops the sweep and the API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release server lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("editorial server stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the API listen address.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:       d.running.Load(),
		APIAddr:       d.api.Addr(),
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		SweepInterval: d.sweepInterval(),
		LastSweep:     d.lastSweep,
		ExpiredTotal:  d.swept,
	}
}

// TestNotification sends a test message to the given addresses through the
// configured backend.
func (d *Daemon) TestNotification(ctx context.Context, recipients ...string) (bool, string, error) {
	if strings.EqualFold(d.cfg.Notifications.Backend, "none") {
		return false, "notifications are disabled (backend = none)", nil
	}
	if len(recipients) == 0 {
		return false, "no recipients given", nil
	}
	if err := d.notifier.Send(ctx, notifications.TestMessage(recipients...)); err != nil {
		return false, "", err
	}
	return true, fmt.Sprintf("Test notification sent via %s", d.cfg.Notifications.Backend), nil
}

func (d *Daemon) sweepInterval() time.Duration {
	return time.Duration(d.cfg.Review.ExpirySweepInterval) * time.Second
}
