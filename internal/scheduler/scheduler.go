package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Task is one unit of periodic work
type Task func(ctx context.Context) error

// Schedule computes the next run after a point in time
type Schedule interface {
	Next(from time.Time) time.Time
}

type job struct {
	name     string
	schedule Schedule
	task     Task
	// runOnStart runs the task once before waiting for the first tick
	runOnStart bool
}

// Scheduler runs registered tasks until its context is canceled
type Scheduler struct {
	jobs []job
	wg   sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers task under a simple cron expression
// Supports "minute hour day month weekday" with these shapes:
// "*/5 * * * *" every 5 minutes, "15 */2 * * *" every 2 hours at :15,
// "0 8 * * *" daily at 08:00 and "0 9 * * 1" Mondays at 09:00.
func (s *Scheduler) Add(name, cronExpr string, task Task) error {
	schedule, err := ParseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	_, isInterval := schedule.(intervalSchedule)
	s.jobs = append(s.jobs, job{name: name, schedule: schedule, task: task, runOnStart: isInterval})
	return nil
}

// Every registers task to run at a fixed interval
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	s.jobs = append(s.jobs, job{name: name, schedule: intervalSchedule(interval), task: task})
}

// Run starts every job and blocks until ctx is done and all running tasks returned
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Starting scheduler", "jobs", len(s.jobs))
	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j job) {
			defer s.wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	<-ctx.Done()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	if j.runOnStart {
		runTask(ctx, j)
	}

	for {
		now := time.Now()
		next := j.schedule.Next(now)
		slog.Debug("Next task scheduled", "task", j.name, "next_run", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			runTask(ctx, j)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func runTask(ctx context.Context, j job) {
	start := time.Now()
	if err := j.task(ctx); err != nil {
		slog.Error("Scheduled task failed", "task", j.name, "error", err)
		return
	}
	slog.Debug("Scheduled task completed", "task", j.name, "duration_ms", time.Since(start).Milliseconds())
}

// ParseCron parses the supported subset of cron expressions
func ParseCron(cronExpr string) (Schedule, error) {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	if strings.HasPrefix(parts[0], "*/") {
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return nil, fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		return intervalSchedule(time.Duration(interval) * time.Minute), nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	if strings.HasPrefix(parts[1], "*/") {
		interval, err := strconv.Atoi(parts[1][2:])
		if err != nil || interval < 1 || interval > 23 {
			return nil, fmt.Errorf("invalid hour interval in cron: %s", parts[1])
		}
		return hourlySchedule{every: interval, minute: minute}, nil
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	if parts[4] == "*" {
		return dailySchedule{hour: hour, minute: minute}, nil
	}
	weekday, err := strconv.Atoi(parts[4])
	if err != nil || weekday < 0 || weekday > 6 {
		return nil, fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
	}
	return weeklySchedule{weekday: time.Weekday(weekday), hour: hour, minute: minute}, nil
}

type intervalSchedule time.Duration

func (i intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(time.Duration(i))
}

// hourlySchedule runs every N hours at a fixed minute
type hourlySchedule struct {
	every, minute int
}

func (h hourlySchedule) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), h.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	for next.Hour()%h.every != 0 {
		next = next.Add(time.Hour)
	}
	return next
}

type dailySchedule struct {
	hour, minute int
}

func (d dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), d.hour, d.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type weeklySchedule struct {
	weekday      time.Weekday
	hour, minute int
}

func (w weeklySchedule) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), w.hour, w.minute, 0, 0, from.Location())
	daysUntil := int(w.weekday - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}
	next = next.AddDate(0, 0, daysUntil)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
