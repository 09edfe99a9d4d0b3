package cron

import (
	"context"
	"errors"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/metrics"
)

// Service drives the registered jobs on a fixed interval, guarded by a
// distributed lock so only one worker replica sweeps at a time.
type Service struct {
	registry *Registry
	lock     Lock
	interval time.Duration
	metrics  *metrics.CronJobMetrics
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Registry *Registry
	Lock     Lock
	Interval time.Duration
	Metrics  *metrics.CronJobMetrics
	Logger   *logger.Logger
}

// NewService validates the parameters and constructs a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock is required")
	}
	if params.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	return &Service{
		registry: params.Registry,
		lock:     params.Lock,
		interval: params.Interval,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Run executes one cycle immediately, then on every tick until the
// context is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logError(ctx, "acquire sweep lock", err)
		return
	}
	if !acquired {
		if s.logg != nil {
			s.logg.Info(ctx, "sweep lock held elsewhere, skipping cycle")
		}
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logError(ctx, "release sweep lock", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := ctx
	if s.logg != nil {
		jobCtx = s.logg.WithFields(ctx, map[string]any{
			"job":   job.Name(),
			"event": "cron.job",
		})
	}

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)

	s.observeDuration(job.Name(), duration)
	if err != nil {
		s.incFailure(job.Name())
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds()), "cron job failed", err)
		}
		return
	}
	s.incSuccess(job.Name())
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds()), "cron job completed")
	}
}

func (s *Service) observeDuration(job string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveDuration(job, d)
	}
}

func (s *Service) incSuccess(job string) {
	if s.metrics != nil {
		s.metrics.IncSuccess(job)
	}
}

func (s *Service) incFailure(job string) {
	if s.metrics != nil {
		s.metrics.IncFailure(job)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
