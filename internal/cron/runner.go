package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/metrics"
	pkgredis "github.com/stocklane-io/stocklane-backend/pkg/redis"
)

// Locker is the distributed lock surface the runner needs from Redis.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Job is one scheduled unit of work. Only a single replica runs a job at a
// time; the lock TTL bounds how long a crashed holder can block the others.
type Job struct {
	Name     string
	Interval time.Duration
	LockTTL  time.Duration
	Fn       func(ctx context.Context) error
}

// Runner executes registered jobs on their intervals, guarded by Redis locks
// so scaled-out replicas never double-run.
type Runner struct {
	locker     Locker
	stats      *metrics.JobMetrics
	logg       *logger.Logger
	instanceID string
	jobs       []Job
}

// NewRunner wires the job runner.
func NewRunner(locker Locker, stats *metrics.JobMetrics, logg *logger.Logger) (*Runner, error) {
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	return &Runner{
		locker:     locker,
		stats:      stats,
		logg:       logg,
		instanceID: uuid.NewString(),
	}, nil
}

// Register adds a job to the schedule. Call before Run.
func (r *Runner) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if job.Fn == nil {
		return fmt.Errorf("job %s: fn required", job.Name)
	}
	if job.LockTTL <= 0 {
		job.LockTTL = job.Interval
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Run blocks until the context is cancelled, ticking every registered job.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}
	for _, job := range r.jobs {
		go r.loop(ctx, job)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunJob(ctx, job)
		}
	}
}

// RunJob executes the job once if this instance wins the lock. It reports
// whether the job actually ran.
func (r *Runner) RunJob(ctx context.Context, job Job) bool {
	key := pkgredis.LockKey(job.Name)
	acquired, err := r.locker.SetNX(ctx, key, r.instanceID, job.LockTTL)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, fmt.Sprintf("acquiring lock for job %s", job.Name), err)
		}
		return false
	}
	if !acquired {
		return false
	}
	defer func() {
		if err := r.locker.Del(ctx, key); err != nil && r.logg != nil {
			r.logg.Error(ctx, fmt.Sprintf("releasing lock for job %s", job.Name), err)
		}
	}()

	start := time.Now()
	runErr := job.Fn(ctx)
	r.stats.ObserveDuration(job.Name, time.Since(start))

	if runErr != nil {
		r.stats.IncFailure(job.Name)
		if r.logg != nil {
			r.logg.Error(ctx, fmt.Sprintf("job %s failed", job.Name), runErr)
		}
		return true
	}
	r.stats.IncSuccess(job.Name)
	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "job", job.Name), "job completed")
	}
	return true
}
