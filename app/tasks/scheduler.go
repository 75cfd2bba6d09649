package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/cfg"
	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/feed"
	"github.com/lysyi3m/critique-desk/app/metrics"
	"github.com/lysyi3m/critique-desk/app/notify"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Deps are the collaborators background tasks run against.
type Deps struct {
	Store      *catalog.Store
	Controller *catalog.Controller
	Ingester   FeedIngester
	Entries    database.EntryRepository
	Settings   database.SettingsRepository
	Previews   database.PreviewRepository
	Fetcher    PageFetcher
	Extractor  *feed.PreviewExtractor
	Notifier   notify.Notifier
}

type SchedulerConfig struct {
	WorkerCount     int
	Interval        time.Duration
	FeedURL         string
	FeedInterval    time.Duration
	ExtractPreviews bool
	StaleAfter      time.Duration
	SweepSchedule   string
}

func ConfigFromCfg(c *cfg.Cfg) SchedulerConfig {
	return SchedulerConfig{
		WorkerCount:     c.WorkerCount,
		Interval:        c.GetSchedulerInterval(),
		FeedURL:         c.FeedURL,
		FeedInterval:    c.GetFeedInterval(),
		ExtractPreviews: c.ExtractPreviews,
		StaleAfter:      c.GetStaleAfter(),
		SweepSchedule:   c.StaleSweepCron,
	}
}

type Scheduler struct {
	deps       Deps
	conf       SchedulerConfig
	cron       *cron.Cron
	nextFeedAt time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	taskQueue  chan TaskInterface
}

func NewScheduler(deps Deps, conf SchedulerConfig) (*Scheduler, error) {
	if conf.WorkerCount < 1 {
		conf.WorkerCount = 1
	}
	if conf.Interval <= 0 {
		conf.Interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		deps:      deps,
		conf:      conf,
		cron:      cron.New(cron.WithLocation(time.Local)),
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, 100),
	}

	if conf.StaleAfter > 0 && conf.SweepSchedule != "" {
		_, err := s.cron.AddFunc(conf.SweepSchedule, func() {
			if err := s.EnqueueTask(NewSweepStaleTask(deps.Store, deps.Controller, deps.Notifier, conf.StaleAfter)); err != nil {
				slog.Warn("Failed to enqueue SweepStaleTask", "error", err)
			}
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", conf.SweepSchedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.conf.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.conf.Interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	now := time.Now()

	if s.deps.Ingester != nil && !now.Before(s.nextFeedAt) {
		s.nextFeedAt = now.Add(s.conf.FeedInterval)
		if err := s.EnqueueTask(NewIngestFeedTask(s.conf.FeedURL, s.deps.Ingester)); err != nil {
			slog.Warn("Failed to enqueue IngestFeedTask", "feed", s.conf.FeedURL, "error", err)
		}
	} else {
		slog.Debug("Feed not due for refresh yet", "feed", s.conf.FeedURL, "next_fetch_at", s.nextFeedAt)
	}

	if err := s.EnqueueTask(NewSaveCatalogTask(s.deps.Store, s.deps.Entries, s.deps.Settings)); err != nil {
		slog.Warn("Failed to enqueue SaveCatalogTask", "error", err)
	}

	if s.conf.ExtractPreviews && s.deps.Previews != nil {
		if err := s.EnqueueTask(NewExtractPreviewsTask(s.deps.Fetcher, s.deps.Extractor, s.deps.Previews, 0)); err != nil {
			slog.Warn("Failed to enqueue ExtractPreviewsTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.TaskDuration.WithLabelValues(string(task.GetType()), result).Observe(task.GetDuration().Seconds())

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := task.RetryDelay()

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-time.After(retryDelay):
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
