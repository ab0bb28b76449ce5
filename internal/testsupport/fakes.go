package testsupport

import (
	"context"
	"sync"
	"time"

	"editorial/internal/audit"
	"editorial/internal/notifications"
)

// Clock is a settable clock for workflow tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Notifier records every message it is asked to send. When Err is set,
// Send records the message and returns Err.
type Notifier struct {
	mu       sync.Mutex
	Err      error
	messages []notifications.Message
}

func (n *Notifier) Send(_ context.Context, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.Err
}

// Messages returns a copy of the recorded messages.
func (n *Notifier) Messages() []notifications.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Message(nil), n.messages...)
}

// To returns the recorded messages addressed to email.
func (n *Notifier) To(email string) []notifications.Message {
	var out []notifications.Message
	for _, msg := range n.Messages() {
		for _, r := range msg.Recipients {
			if r == email {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// Reset forgets recorded messages.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.messages = nil
	n.mu.Unlock()
}

// Audit captures transition records.
type Audit struct {
	mu      sync.Mutex
	records []audit.Record
}

func (a *Audit) RecordTransition(_ context.Context, rec audit.Record) {
	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()
}

// Records returns a copy of the captured records.
func (a *Audit) Records() []audit.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Record(nil), a.records...)
}

// Reset forgets captured records.
func (a *Audit) Reset() {
	a.mu.Lock()
	a.records = nil
	a.mu.Unlock()
}
