// Package sweeper runs periodic housekeeping: evicting expired short-term
// memory entries and releasing idle cameras. Both also happen lazily on
// access, so the sweeper only bounds how long stale state lingers.
package sweeper

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper schedules housekeeping tasks at a fixed interval.
type Sweeper struct {
	interval  time.Duration
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	tasks   []string
	running bool
}

// New creates a stopped sweeper. A non-positive interval disables it.
func New(interval time.Duration) *Sweeper {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Sweeper{interval: interval, scheduler: s}
}

// Enabled reports whether the sweeper has a positive interval.
func (s *Sweeper) Enabled() bool {
	return s.interval > 0
}

// Add registers a named task. Tasks are only scheduled when enabled.
func (s *Sweeper) Add(name string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled() {
		return nil
	}
	for _, t := range s.tasks {
		if t == name {
			return fmt.Errorf("task %s already registered", name)
		}
	}

	_, err := s.scheduler.Every(s.interval).Tag(name).Do(func() {
		started := time.Now()
		task()
		slog.Debug("sweeper: task finished", "task", name, "took", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.tasks = append(s.tasks, name)
	return nil
}

// Tasks returns the registered task names in registration order.
func (s *Sweeper) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tasks...)
}

// Start runs the scheduled tasks in the background.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || !s.Enabled() {
		return
	}
	s.scheduler.StartAsync()
	s.running = true
	slog.Info("sweeper: started", "interval", s.interval, "tasks", len(s.tasks))
}

// Stop halts the scheduler. Stopping a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.scheduler.Stop()
	s.running = false
	slog.Info("sweeper: stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
