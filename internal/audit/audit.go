// Package audit receives one structured record per workflow transition.
//
// Records are buffered by the workflow for the duration of a unit of work and
// handed to a Recorder once the unit commits or rolls back, so Committed tells
// consumers whether the state change is durable.
package audit

import (
	"context"
	"log/slog"
	"time"

	"editorial/internal/logging"
)

// Record describes one transition that reached a handler.
type Record struct {
	UnitID   string
	Entity   string
	EntityID int64
	From     string
	To       string
	// ActorID is nil for system-initiated transitions.
	ActorID *int64
	// Cascade is true when another transition triggered this one.
	Cascade   bool
	Err       error
	Committed bool
	At        time.Time
}

// Outcome summarizes the record for labels and log lines.
func (r Record) Outcome() string {
	switch {
	case r.Err != nil:
		return "failed"
	case !r.Committed:
		return "rolled_back"
	default:
		return "applied"
	}
}

// Recorder consumes transition records. Implementations must not block for
// long; they run after the unit of work has finished.
type Recorder interface {
	RecordTransition(ctx context.Context, rec Record)
}

// Multi fans a record out to several recorders.
type Multi []Recorder

func (m Multi) RecordTransition(ctx context.Context, rec Record) {
	for _, r := range m {
		if r != nil {
			r.RecordTransition(ctx, rec)
		}
	}
}

// Nop discards records.
type Nop struct{}

func (Nop) RecordTransition(context.Context, Record) {}

// Logger writes each record as one analytics log line.
type Logger struct {
	logger *slog.Logger
}

// NewLogger wraps logger. A nil logger discards records.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Logger{logger: logger}
}

func (l *Logger) RecordTransition(ctx context.Context, rec Record) {
	attrs := []logging.Attr{
		logging.String("event", rec.To),
		logging.String("old_state", rec.From),
		logging.String("new_state", rec.To),
		logging.String("model", rec.Entity),
		logging.Int64("id", rec.EntityID),
		logging.String(logging.FieldUnitID, rec.UnitID),
		logging.Bool("cascade", rec.Cascade),
		logging.String("outcome", rec.Outcome()),
	}
	if rec.ActorID != nil {
		attrs = append(attrs, logging.Int64("user", *rec.ActorID))
	} else {
		attrs = append(attrs, logging.String("user", ""))
	}
	if !rec.At.IsZero() {
		attrs = append(attrs, logging.Time("at", rec.At))
	}
	if rec.Err != nil {
		attrs = append(attrs, logging.Error(rec.Err))
		l.logger.LogAttrs(ctx, slog.LevelWarn, "transition", attrs...)
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "transition", attrs...)
}
