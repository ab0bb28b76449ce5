package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"editorial/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Notifications default to the none backend and automatic reviewer
// assignment is off; options re-enable what a test needs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Journal.BaseURL = "http://journal.test"
	cfgVal.Notifications.Backend = "none"
	cfgVal.Review.AutomaticallyAssignReviewers = false
	cfgVal.Logging.AuditLog = filepath.Join(base, "logs", "analytics.log")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAutoAssign enables automatic reviewer assignment with a panel of n.
func WithAutoAssign(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Review.AutomaticallyAssignReviewers = true
		b.cfg.Review.NumberOfReviewers = n
	}
}

// WithReviewWindows overrides the review, edit, and extension windows in days.
func WithReviewWindows(review, edit, extension int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Review.DaysToReview = review
		b.cfg.Review.DaysToEditReview = edit
		b.cfg.Review.DaysOnExtension = extension
	}
}

// WithConfigFile writes contents as config.toml under the base directory
// and returns its path through dst.
func WithConfigFile(contents string, dst *string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "config.toml")
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			b.t.Fatalf("write config: %v", err)
		}
		*dst = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
