package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"editorial/internal/config"
	"editorial/internal/journal"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase opens the journal database and verifies its schema version.
// A missing file passes; serve creates it on first open.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Database"

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	store, err := journal.OpenPath(path)
	if err != nil {
		if errors.Is(err, journal.ErrSchemaMismatch) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (schema mismatch; move the file aside to recreate)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (ping failed: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema ok)", path)}
}

// CheckNotifications probes the configured delivery backend. It reports
// false when the backend has nothing to reach.
func CheckNotifications(ctx context.Context, n config.Notifications) (Result, bool) {
	switch strings.ToLower(strings.TrimSpace(n.Backend)) {
	case "smtp":
		return CheckSMTP(ctx, n.SMTPHost, n.SMTPPort), true
	case "ntfy":
		return CheckNtfy(ctx, n.NtfyTopic), true
	default:
		return Result{}, false
	}
}

// CheckSMTP verifies that the mail server accepts TCP connections.
func CheckSMTP(ctx context.Context, host string, port int) Result {
	const name = "SMTP"

	host = strings.TrimSpace(host)
	if host == "" {
		return Result{Name: name, Optional: true, Detail: "missing smtp_host"}
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s unreachable (%s)", addr, summarizeNetError(err))}
	}
	conn.Close()
	return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s reachable", addr)}
}

// CheckNtfy verifies that the ntfy server behind topic answers HTTP.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	parsed, err := url.Parse(strings.TrimSpace(topic))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Optional: true, Detail: "invalid ntfy_topic"}
	}
	base := parsed.Scheme + "://" + parsed.Host + "/v1/health"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("health check failed (%s)", summarizeNetError(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "Reachable"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
