package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Config struct {
	Redis       asynq.RedisConnOpt
	Concurrency int
	SweepEvery  time.Duration
	Retention   time.Duration
}

// Worker: asynq-сервер плюс планировщик периодической чистки приглашений.
type Worker struct {
	cfg       Config
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func New(cfg Config, sweeper Sweeper, logger *slog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	log := newAsynqLogger(logger)

	server := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      log,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			slog.Error("worker task failed",
				slog.Any("err", err), slog.String("task_type", task.Type()),
				slog.Int("retries", retried), slog.Int("max_retry", maxRetry))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeInvitationSweep, NewSweepHandler(sweeper, cfg.Retention))

	return &Worker{
		cfg:       cfg,
		server:    server,
		scheduler: asynq.NewScheduler(cfg.Redis, &asynq.SchedulerOpts{Logger: log, Location: time.UTC}),
		mux:       mux,
	}
}

// Start регистрирует периодическую задачу и запускает сервер и планировщик.
func (w *Worker) Start() error {
	task, err := NewSweepTask(w.cfg.Retention)
	if err != nil {
		return err
	}
	schedule := fmt.Sprintf("@every %s", w.cfg.SweepEvery)
	entryID, err := w.scheduler.Register(schedule, task, asynq.Queue("default"), asynq.Unique(w.cfg.SweepEvery))
	if err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	slog.Info("invitation sweep registered", "schedule", schedule, "entry_id", entryID)

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

func (w *Worker) Shutdown() {
	slog.Info("shutting down worker...")
	w.scheduler.Shutdown()
	w.server.Shutdown()
}
