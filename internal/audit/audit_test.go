package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"editorial/internal/audit"
	"editorial/internal/logging"
)

func TestLoggerWritesAnalyticsFields(t *testing.T) {
	var buf bytes.Buffer
	rec := audit.NewLogger(slog.New(logging.NewJSONHandler(&buf, slog.LevelInfo)))

	actor := int64(42)
	rec.RecordTransition(context.Background(), audit.Record{
		UnitID:    "unit-1",
		Entity:    "revision",
		EntityID:  7,
		From:      "UNSUBMITTED",
		To:        "PENDING",
		ActorID:   &actor,
		Committed: true,
	})

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode analytics line: %v", err)
	}
	checks := map[string]any{
		"event":     "PENDING",
		"old_state": "UNSUBMITTED",
		"new_state": "PENDING",
		"model":     "revision",
		"id":        float64(7),
		"user":      float64(42),
		"outcome":   "applied",
		"unit_id":   "unit-1",
	}
	for key, want := range checks {
		if payload[key] != want {
			t.Fatalf("%s = %v, want %v (line %s)", key, payload[key], want, buf.String())
		}
	}
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		rec  audit.Record
		want string
	}{
		{audit.Record{Committed: true}, "applied"},
		{audit.Record{Committed: false}, "rolled_back"},
		{audit.Record{Committed: false, Err: errors.New("x")}, "failed"},
	}
	for _, tc := range cases {
		if got := tc.rec.Outcome(); got != tc.want {
			t.Fatalf("Outcome(%+v) = %s, want %s", tc.rec, got, tc.want)
		}
	}
}

func TestMultiAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := audit.NewMetrics(reg)
	multi := audit.Multi{metrics, audit.Nop{}, nil}

	for i := 0; i < 2; i++ {
		multi.RecordTransition(context.Background(), audit.Record{
			Entity: "review", From: "ASSIGNED", To: "SUBMITTED", Committed: true,
		})
	}

	metrics.ObserveInsufficientReviewers()

	if got := counterValue(t, reg, "editorial_transitions_total"); got != 2 {
		t.Fatalf("expected 2 transitions counted, got %v", got)
	}
	if got := counterValue(t, reg, "editorial_insufficient_reviewers_total"); got != 1 {
		t.Fatalf("expected insufficient reviewer counter of 1, got %v", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
