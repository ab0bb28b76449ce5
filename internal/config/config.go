package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Journal describes the publication the workflow runs for.
type Journal struct {
	Name    string `toml:"name"`
	BaseURL string `toml:"base_url"`
}

// Review contains the knobs consumed by the revision and review workflows.
type Review struct {
	DaysToReview                 int  `toml:"days_to_review"`
	DaysToEditReview             int  `toml:"days_to_edit_review"`
	DaysOnExtension              int  `toml:"days_on_extension"`
	AutomaticallyAssignReviewers bool `toml:"automatically_assign_reviewers"`
	NumberOfReviewers            int  `toml:"number_of_reviewers"`
	DueDateHour                  int  `toml:"due_date_hour"`
	// ExpirySweepInterval is how often `editorial serve` expires overdue
	// reviews, in seconds. Zero disables the sweep.
	ExpirySweepInterval int `toml:"expiry_sweep_interval"`
}

// Notifications contains configuration for outgoing user notifications.
type Notifications struct {
	// Backend selects the delivery channel: smtp, ntfy, log, or none.
	Backend        string `toml:"backend"`
	SubjectPrefix  string `toml:"subject_prefix"`
	Sender         string `toml:"sender"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	SMTPUser       string `toml:"smtp_user"`
	SMTPPass       string `toml:"smtp_pass"`
	SkipTLSVerify  bool   `toml:"skip_tls_verify"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format   string `toml:"format"`
	Level    string `toml:"level"`
	AuditLog string `toml:"audit_log"`
}

// Config encapsulates all configuration values for the editorial service.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Journal: journal name and public base URL used in message links
//   - Review: review windows, due-date hour, and automatic assignment
//   - Notifications: email (SMTP) or ntfy delivery settings
//   - Logging: log format, level, and audit log location
type Config struct {
	Paths         Paths         `toml:"paths"`
	Journal       Journal       `toml:"journal"`
	Review        Review        `toml:"review"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("editorial.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "editorial.db")
}

// LockPath returns the lock file guarding a running API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "editorial.lock")
}

// URL joins a site-relative path onto the configured journal base URL.
func (c *Config) URL(path string) string {
	base := strings.TrimRight(c.Journal.BaseURL, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
