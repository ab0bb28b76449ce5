package workflow_test

import (
	"testing"
	"time"

	"editorial/internal/workflow"
)

func TestDueDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		days int
		want time.Time
	}{
		{
			name: "before due hour",
			now:  time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC),
			days: 7,
			want: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "at due hour bumps a day",
			now:  time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
			days: 7,
			want: time.Date(2025, 3, 11, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "after due hour crosses month",
			now:  time.Date(2025, 1, 30, 22, 15, 0, 0, time.UTC),
			days: 1,
			want: time.Date(2025, 2, 1, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "zero window lands today",
			now:  time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
			days: 0,
			want: time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := workflow.DueDate(tc.now, tc.days, 17)
			if !got.Equal(tc.want) {
				t.Fatalf("DueDate(%v, %d) = %v, want %v", tc.now, tc.days, got, tc.want)
			}
			if !got.After(tc.now) {
				t.Fatalf("due date %v is not after %v", got, tc.now)
			}
		})
	}
}
