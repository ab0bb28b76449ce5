package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"editorial/internal/config"
	"editorial/internal/logging"
)

// Message is a fully rendered notification for one or more recipients.
type Message struct {
	Subject    string
	Body       string
	Recipients []string
}

// Service delivers rendered messages. Callers treat delivery as fire and
// forget: an error is logged, never propagated into workflow state.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

// NewService builds the configured backend and wraps it so every message gets
// the subject prefix and a log line recording recipients, subject and whether
// it was sent.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	logger = logging.NewComponentLogger(logger, "notifications")
	if cfg == nil {
		return &journalService{backend: noopService{}, backendName: "none", logger: logger}
	}

	n := cfg.Notifications
	var backend Service
	name := strings.ToLower(strings.TrimSpace(n.Backend))
	switch name {
	case "smtp":
		backend = newSMTPService(n)
	case "ntfy":
		backend = newNtfyService(n)
	case "log":
		backend = logService{logger: logger}
	default:
		name = "none"
		backend = noopService{}
	}

	return &journalService{
		backend:     backend,
		backendName: name,
		prefix:      n.SubjectPrefix,
		logger:      logger,
	}
}

type journalService struct {
	backend     Service
	backendName string
	prefix      string
	logger      *slog.Logger
}

func (s *journalService) Send(ctx context.Context, msg Message) error {
	msg.Recipients = cleanRecipients(msg.Recipients)
	if len(msg.Recipients) == 0 {
		return nil
	}
	if s.prefix != "" && !strings.HasPrefix(msg.Subject, s.prefix) {
		msg.Subject = s.prefix + msg.Subject
	}

	start := time.Now()
	err := s.backend.Send(ctx, msg)
	attrs := []logging.Attr{
		logging.String("recipients", strings.Join(msg.Recipients, ", ")),
		logging.String("subject", msg.Subject),
		logging.String("backend", s.backendName),
		logging.Bool("sent", err == nil),
		logging.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [notifications] settings and run editorial test-notify"),
			logging.String(logging.FieldImpact, "recipients were not notified; workflow state is unaffected"),
		)
		logging.WarnWithContext(s.logger, "notification failed", "notification_failed", attrs...)
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	s.logger.Info("notification sent", logging.Args(attrs...)...)
	return nil
}

func cleanRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		key := strings.ToLower(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// logService records messages without delivering them.
type logService struct {
	logger *slog.Logger
}

func (l logService) Send(_ context.Context, msg Message) error {
	l.logger.Debug("notification body", logging.String("subject", msg.Subject), logging.String("body", msg.Body))
	return nil
}

type noopService struct{}

func (noopService) Send(context.Context, Message) error { return nil }

// TestMessage builds the message sent by `editorial test-notify`.
func TestMessage(recipients ...string) Message {
	return Message{
		Subject:    "Notification test",
		Body:       "This is a test message from the editorial workflow service.",
		Recipients: recipients,
	}
}
