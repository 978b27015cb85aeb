package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner performs one backup.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// ParseSchedule parses a standard five-field cron expression such as
// "59 23 * * *".
func ParseSchedule(spec string) (cron.Schedule, error) {
	return cron.ParseStandard(spec)
}

// Scheduler runs a backup on a cron schedule. It implements suture.Service.
type Scheduler struct {
	runner   Runner
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler firing on schedule.
func NewScheduler(runner Runner, schedule cron.Schedule) *Scheduler {
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		logger:   slog.Default().With("component", "backup-scheduler"),
	}
}

// Next returns the first trigger time strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Serve runs the cron loop until ctx is done. Failed backups are logged by
// the runner and retried at the next trigger; a trigger that fires while the
// previous backup is still running is skipped.
func (s *Scheduler) Serve(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_, _ = s.runner.Run(ctx)
	}))
	s.logger.Debug("next backup scheduled", "at", s.Next(time.Now()))

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) String() string { return "backup-scheduler" }

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
