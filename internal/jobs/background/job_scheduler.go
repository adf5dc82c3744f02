package background

import (
	"context"
	"fmt"
	"time"

	"talentdesk/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Settings controls how often each background job runs.
type Settings struct {
	NotificationInterval  time.Duration
	NotificationBatchSize int
	IntegrityScanInterval time.Duration
}

// JobScheduler runs the notification drain and the integrity scan on fixed
// intervals. Each job is a singleton: a slow run is never overlapped by the next.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	notifications services.NotificationWorker
	integrity     services.IntegrityService
	settings      Settings
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	jobs          map[string]gocron.Job
}

// NewJobScheduler creates a new job scheduler and registers its jobs.
func NewJobScheduler(notifications services.NotificationWorker, integrity services.IntegrityService,
	settings Settings, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler:     scheduler,
		notifications: notifications,
		integrity:     integrity,
		settings:      settings,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		jobs:          make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	if js.settings.NotificationInterval > 0 {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(js.settings.NotificationInterval),
			gocron.NewTask(js.drainNotifications),
			gocron.WithName("notification-drain"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register notification drain: %w", err)
		}
		js.jobs["notification-drain"] = job
	}

	if js.settings.IntegrityScanInterval > 0 {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(js.settings.IntegrityScanInterval),
			gocron.NewTask(js.scanIntegrity),
			gocron.WithName("integrity-scan"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register integrity scan: %w", err)
		}
		js.jobs["integrity-scan"] = job
	}
	return nil
}

func (js *JobScheduler) drainNotifications() {
	delivered, err := js.notifications.Drain(js.ctx, js.settings.NotificationBatchSize)
	if err != nil {
		js.logger.Error("notification drain failed", zap.Int("delivered", delivered), zap.Error(err))
		return
	}
	if delivered > 0 {
		js.logger.Debug("notifications delivered", zap.Int("count", delivered))
	}
}

// scanIntegrity only reports. Violations are left for an operator to repair.
func (js *JobScheduler) scanIntegrity() {
	violations, err := js.integrity.Scan(js.ctx)
	if err != nil {
		js.logger.Error("integrity scan failed", zap.Error(err))
		return
	}
	if len(violations) > 0 {
		js.logger.Warn("integrity scan found violations", zap.Int("count", len(violations)))
	}
}
