package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReview(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateReview() error {
	r := c.Review
	windows := []struct {
		key   string
		value int
	}{
		{"review.days_to_review", r.DaysToReview},
		{"review.days_to_edit_review", r.DaysToEditReview},
		{"review.days_on_extension", r.DaysOnExtension},
	}
	for _, w := range windows {
		if w.value < 0 || w.value > maxReviewWindowDays {
			return fmt.Errorf("%s must be between 0 and %d", w.key, maxReviewWindowDays)
		}
	}
	if r.NumberOfReviewers < 0 || r.NumberOfReviewers > maxNumberOfReviewers {
		return fmt.Errorf("review.number_of_reviewers must be between 0 and %d", maxNumberOfReviewers)
	}
	if r.DueDateHour < 0 || r.DueDateHour >= hoursPerDay {
		return errors.New("review.due_date_hour must be between 0 and 23")
	}
	if r.ExpirySweepInterval < 0 {
		return errors.New("review.expiry_sweep_interval must be non-negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	switch n.Backend {
	case notificationBackendSMTP:
		if strings.TrimSpace(n.SMTPHost) == "" {
			return errors.New("notifications.smtp_host must be set when notifications.backend is smtp (or set SMTP_HOST)")
		}
		if strings.TrimSpace(n.Sender) == "" {
			return errors.New("notifications.sender must be set when notifications.backend is smtp (or set SMTP_FROM)")
		}
	case notificationBackendNtfy:
		if n.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when notifications.backend is ntfy")
		}
	case notificationBackendLog, notificationBackendNone:
	default:
		return fmt.Errorf("notifications.backend: unsupported value %q (want smtp, ntfy, log, or none)", n.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case logFormatAuto, logFormatConsole, logFormatJSON:
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
