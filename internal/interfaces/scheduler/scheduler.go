// Package scheduler runs background jobs at fixed times of day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 10 * time.Minute

// ScheduleTime represents a specific time of day when the scheduler should run.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// String returns the time in HH:MM format.
func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses a time string in HH:MM format.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format %q (expected HH:MM): %w", s, err)
	}
	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}
	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// Config holds configuration for the scheduler.
type Config struct {
	ScheduleTimes []string
	RunOnStartup  bool
	JobTimeout    time.Duration
	// Tick is how often the clock is checked. Defaults to one minute.
	Tick time.Duration
}

// Scheduler runs one job at each configured time of day. Runs never
// overlap: a trigger that fires while the job is still running is skipped.
type Scheduler struct {
	job           Job
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobTimeout    time.Duration
	tick          time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running sync.Mutex

	mu      sync.Mutex
	lastRun string
}

// New creates a scheduler for job.
func New(job Job, cfg Config, logger zerolog.Logger) (*Scheduler, error) {
	times := make([]ScheduleTime, 0, len(cfg.ScheduleTimes))
	for _, s := range cfg.ScheduleTimes {
		st, err := ParseScheduleTime(s)
		if err != nil {
			return nil, err
		}
		times = append(times, st)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		job:           job,
		scheduleTimes: times,
		runOnStartup:  cfg.RunOnStartup,
		jobTimeout:    cfg.JobTimeout,
		tick:          cfg.Tick,
		logger:        logger.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.logger.Info().Str("job", s.job.Description()).Strs("at", s.timeStrings()).Msg("scheduler started")

	if s.runOnStartup {
		s.TriggerNow()
	}

	s.wg.Add(1)
	go s.loop()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.shouldRun(s.now()) {
				s.run()
			}
		}
	}
}

// shouldRun reports whether now matches a schedule time that has not
// fired yet during this minute.
func (s *Scheduler) shouldRun(now time.Time) bool {
	key := now.Format("2006-01-02 15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}
	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

func (s *Scheduler) run() {
	if !s.running.TryLock() {
		s.logger.Warn().Str("job", s.job.Description()).Msg("previous run still in progress, skipping")
		return
	}
	defer s.running.Unlock()

	runJob(s.ctx, s.job, s.jobTimeout, s.logger)
}

// TriggerNow runs the job in the background immediately.
func (s *Scheduler) TriggerNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Next returns the next scheduled run after the current time.
func (s *Scheduler) Next() time.Time {
	now := s.now()
	var next time.Time
	for _, st := range s.scheduleTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

// Shutdown cancels any running job and waits up to timeout for the loop to
// stop.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
	case <-time.After(timeout):
		s.logger.Warn().Dur("timeout", timeout).Msg("timed out waiting for scheduler to stop")
	}
}

func (s *Scheduler) timeStrings() []string {
	out := make([]string, len(s.scheduleTimes))
	for i, st := range s.scheduleTimes {
		out[i] = st.String()
	}
	return out
}
