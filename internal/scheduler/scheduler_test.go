package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseCron(t *testing.T) {
	valid := []string{"*/5 * * * *", "15 */2 * * *", "0 8 * * *", "0 9 * * 1"}
	for _, expr := range valid {
		if _, err := ParseCron(expr); err != nil {
			t.Errorf("ParseCron(%q) error: %v", expr, err)
		}
	}

	invalid := []string{"", "* * * *", "*/0 * * * *", "*/60 * * * *", "61 * * * *", "0 24 * * *", "0 8 * * 7", "0 */24 * * *", "x 8 * * *"}
	for _, expr := range invalid {
		if _, err := ParseCron(expr); err == nil {
			t.Errorf("ParseCron(%q) should fail", expr)
		}
	}
}

func TestScheduleNext(t *testing.T) {
	// Wednesday
	from := time.Date(2026, 3, 4, 10, 20, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/30 * * * *", from.Add(30 * time.Minute)},
		{"15 */4 * * *", time.Date(2026, 3, 4, 12, 15, 0, 0, time.UTC)},
		{"30 10 * * *", time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)},
		{"0 9 * * *", time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)},
		{"0 9 * * 1", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)},
		{"20 10 * * 3", time.Date(2026, 3, 11, 10, 20, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		schedule, err := ParseCron(tt.expr)
		if err != nil {
			t.Fatalf("ParseCron(%q): %v", tt.expr, err)
		}
		if got := schedule.Next(from); !got.Equal(tt.want) {
			t.Errorf("%q.Next(%v) = %v, want %v", tt.expr, from, got, tt.want)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			return errors.New("failures are logged and do not stop the job")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Task ran %d times", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAddRunsIntervalJobsOnStart(t *testing.T) {
	s := NewScheduler()
	ran := make(chan struct{}, 1)
	if err := s.Add("cleanup", "*/30 * * * *", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("Interval job should run immediately")
	}
}
