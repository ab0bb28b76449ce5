package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeJournal()
	if err := c.normalizeNotifications(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeJournal() {
	if value, ok := os.LookupEnv("EDITORIAL_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Journal.BaseURL = value
	}
	c.Journal.BaseURL = strings.TrimRight(strings.TrimSpace(c.Journal.BaseURL), "/")
	if c.Journal.BaseURL == "" {
		c.Journal.BaseURL = defaultBaseURL
	}
	c.Journal.Name = strings.TrimSpace(c.Journal.Name)
	if c.Journal.Name == "" {
		c.Journal.Name = defaultJournalName
	}
}

func (c *Config) normalizeNotifications() error {
	n := &c.Notifications
	n.Backend = strings.ToLower(strings.TrimSpace(n.Backend))
	if n.Backend == "" {
		n.Backend = defaultNotificationBackend
	}

	envString := func(key string, target *string) {
		if strings.TrimSpace(*target) != "" {
			return
		}
		if value, ok := os.LookupEnv(key); ok {
			*target = strings.TrimSpace(value)
		}
	}
	envString("SMTP_HOST", &n.SMTPHost)
	envString("SMTP_USER", &n.SMTPUser)
	envString("SMTP_PASS", &n.SMTPPass)
	if value, ok := os.LookupEnv("SMTP_FROM"); ok && strings.TrimSpace(value) != "" {
		n.Sender = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SMTP_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		n.SMTPPort = port
	}
	if os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1" {
		n.SkipTLSVerify = true
	}
	if n.SMTPPort <= 0 {
		n.SMTPPort = defaultSMTPPort
	}
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = defaultNotifyRequestTimeout
	}
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.AuditLog) == "" {
		c.Logging.AuditLog = filepath.Join(c.Paths.LogDir, defaultAuditLogFileName)
	}
	var err error
	if c.Logging.AuditLog, err = expandPath(c.Logging.AuditLog); err != nil {
		return fmt.Errorf("logging.audit_log: %w", err)
	}
	return nil
}
