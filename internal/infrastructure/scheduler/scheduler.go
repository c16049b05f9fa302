// Package scheduler runs periodic maintenance tasks inside the server process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/printshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Task is one unit of periodic work. It returns how many records it touched.
type Task interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// TaskFunc adapts a function to Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) (int, error)
}

// Name returns the task name
func (f TaskFunc) Name() string { return f.TaskName }

// Run calls Fn
func (f TaskFunc) Run(ctx context.Context) (int, error) { return f.Fn(ctx) }

// Config holds scheduler configuration
type Config struct {
	// Interval between runs
	Interval time.Duration
	// RunTimeout bounds a single attempt
	RunTimeout time.Duration
	// RetryAttempts is the number of extra attempts after a failed run
	RetryAttempts int
	// RetryDelay is the pause between attempts
	RetryDelay time.Duration
	// RunOnStart runs the task once immediately instead of waiting a full interval
	RunOnStart bool
}

// DefaultConfig returns a configuration that runs hourly
func DefaultConfig() Config {
	return Config{
		Interval:      time.Hour,
		RunTimeout:    5 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    30 * time.Second,
		RunOnStart:    true,
	}
}

func (c Config) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// RunResult describes one completed run, successful or not.
type RunResult struct {
	ID       uuid.UUID
	Task     string
	Count    int
	Attempts int
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Scheduler runs a Task on a fixed interval until stopped.
type Scheduler struct {
	config Config
	task   Task
	logger *zap.Logger

	// OnResult, when set, is called after every run
	OnResult func(ctx context.Context, r RunResult)

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	runs      int
}

// New creates a scheduler for task
func New(config Config, task Task, logger *zap.Logger) (*Scheduler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		task:   task,
		logger: logger.With(zap.String("task", task.Name())),
	}, nil
}

// Start launches the run loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Runs returns how many runs have finished
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs the task now, retrying failed attempts, and reports the result.
func (s *Scheduler) RunOnce(ctx context.Context) RunResult {
	result := RunResult{ID: uuid.New(), Task: s.task.Name(), Started: time.Now()}

	telemetry.WithProfilingLabels(ctx, map[string]string{"scheduled_task": s.task.Name()}, func(ctx context.Context) {
		for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					result.Err = ctx.Err()
					return
				case <-time.After(s.config.RetryDelay):
				}
			}
			result.Attempts++
			result.Count, result.Err = s.attempt(ctx)
			if result.Err == nil || ctx.Err() != nil {
				return
			}
			s.logger.Warn("Scheduled run failed",
				zap.String("run_id", result.ID.String()),
				zap.Int("attempt", result.Attempts),
				zap.Error(result.Err),
			)
		}
	})
	result.Duration = time.Since(result.Started)

	if result.Err != nil {
		s.logger.Error("Scheduled run gave up",
			zap.String("run_id", result.ID.String()),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err),
		)
	} else {
		s.logger.Info("Scheduled run completed",
			zap.String("run_id", result.ID.String()),
			zap.Int("count", result.Count),
			zap.Duration("duration", result.Duration),
		)
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	if s.OnResult != nil {
		s.OnResult(ctx, result)
	}
	return result
}

func (s *Scheduler) attempt(ctx context.Context) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()
	return s.task.Run(runCtx)
}
