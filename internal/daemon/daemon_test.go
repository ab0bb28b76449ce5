package daemon_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"editorial/internal/config"
	"editorial/internal/daemon"
	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/testsupport"
	"editorial/internal/workflow"
)

var testNow = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func newDaemon(t *testing.T, cfg *config.Config, store *journal.Store) *daemon.Daemon {
	t.Helper()
	svc, err := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithClock(testsupport.NewClock(testNow)),
		workflow.WithNotifier(&testsupport.Notifier{}),
	)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	d, err := daemon.New(cfg, store, svc, logging.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Review.ExpirySweepInterval = 0
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	resp, err := http.Get("http://" + d.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondDaemonOnSameDataDirFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Review.ExpirySweepInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newDaemon(t, cfg, store)
	err := second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already using") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestSweepExpiresOverdueReviews(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	author := testsupport.SeedUser(t, store, "author", testsupport.Author)
	late := testsupport.SeedUser(t, store, "late", testsupport.Reviewer)
	prompt := testsupport.SeedUser(t, store, "prompt", testsupport.Reviewer)
	_, rev := testsupport.SeedRevision(t, store, journal.RevisionPending, author)
	overdue := testsupport.SeedReview(t, store, rev, late, journal.ReviewAssigned, testNow.Add(-time.Hour))
	current := testsupport.SeedReview(t, store, rev, prompt, journal.ReviewAssigned, testNow.Add(48*time.Hour))

	d := newDaemon(t, cfg, store)
	if got := d.Sweep(context.Background()); got != 1 {
		t.Fatalf("Sweep expired %d, want 1", got)
	}

	ctx := context.Background()
	if review, _ := store.GetReview(ctx, overdue.ID); review.Status != journal.ReviewExpired {
		t.Fatalf("overdue review = %s", review.Status)
	}
	if review, _ := store.GetReview(ctx, current.ID); review.Status != journal.ReviewAssigned {
		t.Fatalf("current review = %s", review.Status)
	}
	if status := d.Status(); status.ExpiredTotal != 1 || status.LastSweep.IsZero() {
		t.Fatalf("unexpected status %+v", status)
	}

	if got := d.Sweep(context.Background()); got != 0 {
		t.Fatalf("second sweep expired %d, want 0", got)
	}
}

func TestTestNotification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	sent, message, err := d.TestNotification(context.Background(), "ed@journal.test")
	if err != nil || sent || !strings.Contains(message, "disabled") {
		t.Fatalf("none backend: sent=%v message=%q err=%v", sent, message, err)
	}

	cfg.Notifications.Backend = "log"
	d = newDaemon(t, cfg, store)
	sent, _, err = d.TestNotification(context.Background(), "ed@journal.test")
	if err != nil || !sent {
		t.Fatalf("log backend: sent=%v err=%v", sent, err)
	}
}
