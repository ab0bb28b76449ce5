package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"editorial/internal/audit"
	"editorial/internal/config"
	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/notifications"
	"editorial/internal/workflow"
)

type commandContext struct {
	configFlag *string
	actorFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, actorFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		actorFlag:  actorFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// session is an open store and the workflow service bound to it.
type session struct {
	cfg    *config.Config
	store  *journal.Store
	svc    *workflow.Service
	logger *slog.Logger
}

// sessionOptions carries what `serve` adds on top of a CLI session.
type sessionOptions struct {
	logger   *slog.Logger
	registry prometheus.Registerer
}

func (c *commandContext) withSession(fn func(*session) error) error {
	s, err := c.openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.store.Close()
	return fn(s)
}

// openSession opens the store and builds the service. CLI commands log to
// the log file only so their output stays clean.
func (c *commandContext) openSession(opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger := opts.logger
	if logger == nil {
		logger, err = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      "json",
			OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "editorial.log")},
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	recorder, err := newAuditRecorder(cfg)
	if err != nil {
		return nil, err
	}
	serviceOpts := []workflow.Option{
		workflow.WithNotifier(notifications.NewService(cfg, logger)),
	}
	if opts.registry != nil {
		metrics := audit.NewMetrics(opts.registry)
		recorder = append(recorder, metrics)
		serviceOpts = append(serviceOpts, workflow.WithMetrics(metrics))
	}
	serviceOpts = append(serviceOpts, workflow.WithRecorder(recorder))

	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	svc, err := workflow.New(cfg, store, logger, serviceOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: store, svc: svc, logger: logger}, nil
}

// newAuditRecorder writes audit records as JSON lines to the audit log.
func newAuditRecorder(cfg *config.Config) (audit.Multi, error) {
	writer, err := logging.OpenWriters([]string{cfg.Logging.AuditLog})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	auditLogger := slog.New(logging.NewJSONHandler(writer, slog.LevelInfo))
	return audit.Multi{audit.NewLogger(auditLogger)}, nil
}

// actor resolves --actor to a user id. Ids are taken as given; anything
// else is looked up as a username.
func (c *commandContext) actor(ctx context.Context, s *session) (int64, error) {
	var raw string
	if c.actorFlag != nil {
		raw = strings.TrimSpace(*c.actorFlag)
	}
	if raw == "" {
		return 0, errors.New("an acting user is required (use --actor or set EDITORIAL_ACTOR)")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("invalid actor id %d", id)
		}
		return id, nil
	}
	u, err := s.store.GetUserByUsername(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("resolve actor: %w", err)
	}
	return u.ID, nil
}

// userRef resolves an argument naming a user by id or username.
func userRef(ctx context.Context, s *session, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	u, err := s.store.GetUserByUsername(ctx, raw)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
