package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/queue"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Options configures the worker behavior.
type Options struct {
	// Tools are the tool IDs whose queues are served.
	// If empty, every tool in the engine's registry is served.
	Tools []string

	// Concurrency is the number of worker goroutines to start.
	// If 0, uses the worker configuration or default (4).
	Concurrency int

	// ShutdownTimeout is the time to wait for in-flight items on shutdown.
	// If 0, uses the worker configuration or default (30s).
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the interval between tool heartbeats.
	// If 0, uses the worker configuration or default (10s).
	HeartbeatInterval time.Duration

	// PopTimeout bounds each blocking pop so shutdown is noticed. Default: 1s.
	PopTimeout time.Duration

	// Version is advertised in the tool metadata.
	Version string

	// Logger is the structured logger for worker operations.
	// If nil, the engine's logger is used.
	Logger *slog.Logger

	// Config is the worker section of the configuration file.
	Config *config.WorkerConfig
}

// applyConfig fills unset options from cfg; explicit values win.
func applyConfig(opts Options, cfg *config.WorkerConfig) Options {
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.GetConcurrency()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = cfg.GetShutdownTimeout()
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = cfg.GetHeartbeatInterval()
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	return opts
}

// Worker consumes parse jobs.
type Worker struct {
	engine *warnings.Engine
	client queue.Client
	opts   Options
	id     string
	logger *slog.Logger
}

// New creates a worker that parses with engine and talks to client.
func New(engine *warnings.Engine, client queue.Client, opts Options) *Worker {
	opts = applyConfig(opts, opts.Config)
	if len(opts.Tools) == 0 {
		opts.Tools = engine.Registry().IDs()
	}
	if opts.Logger == nil {
		opts.Logger = engine.Logger()
	}

	id := generateWorkerID()
	return &Worker{
		engine: engine,
		client: client,
		opts:   opts,
		id:     id,
		logger: opts.Logger.With("worker_id", id),
	}
}

// ID returns the unique identifier of the worker.
func (w *Worker) ID() string {
	return w.id
}

// Run connects to Redis, serves the queues until SIGTERM or SIGINT and then
// shuts down gracefully.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. The worker section of the configuration file
//  3. Default values
func Run(engine *warnings.Engine, opts Options) error {
	client, err := queue.NewRedisClient(queue.RedisOptions{
		URL:    opts.Config.GetRedisURL(),
		Prefix: opts.Config.GetQueuePrefix(),
		Logger: opts.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	w := New(engine, client, opts)
	defer warnings.CloseWithLog(client, w.logger, "redis client")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return w.Serve(ctx)
}

// Serve registers the served tools, starts the worker goroutines and the
// heartbeat, and blocks until ctx is done. It then waits up to the shutdown
// timeout for in-flight items.
func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("worker starting",
		"tools", w.opts.Tools,
		"concurrency", w.opts.Concurrency,
	)

	if err := w.register(ctx); err != nil {
		return err
	}
	defer w.unregister()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.runHeartbeat(heartbeatCtx)

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			w.loop(ctx, workerNum)
		}(i)
	}

	w.logger.Info("worker started", "workers", w.opts.Concurrency)

	<-ctx.Done()
	w.logger.Info("initiating graceful shutdown", "reason", context.Cause(ctx))

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		w.logger.Info("worker shutdown complete")
		return nil
	case <-time.After(w.opts.ShutdownTimeout):
		w.logger.Warn("worker shutdown timeout exceeded", "timeout", w.opts.ShutdownTimeout)
		return fmt.Errorf("shutdown timeout of %s exceeded", w.opts.ShutdownTimeout)
	}
}

func (w *Worker) register(ctx context.Context) error {
	for _, id := range w.opts.Tools {
		entry, err := w.engine.Registry().Entry(id)
		if err != nil {
			return fmt.Errorf("cannot serve tool %s: %w", id, err)
		}
		meta := queue.ToolMeta{ID: id, Name: entry.Labels().Name(), Version: w.opts.Version}
		if err := w.client.RegisterTool(ctx, meta); err != nil {
			w.logger.Error("failed to register tool", "tool", id, "error", err)
			return fmt.Errorf("failed to register tool %s: %w", id, err)
		}
		if err := w.client.IncrementWorkerCount(ctx, id); err != nil {
			w.logger.Error("failed to increment worker count", "tool", id, "error", err)
		}
	}
	return nil
}

func (w *Worker) unregister() {
	// ctx may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range w.opts.Tools {
		if err := w.client.DecrementWorkerCount(ctx, id); err != nil {
			w.logger.Error("failed to decrement worker count", "tool", id, "error", err)
		}
	}
}

// runHeartbeat sends periodic heartbeats for every served tool until ctx is
// cancelled. The first heartbeat is sent immediately.
func (w *Worker) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(w.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		for _, id := range w.opts.Tools {
			if err := w.client.Heartbeat(ctx, id); err != nil && ctx.Err() == nil {
				// transient, the next tick retries
				w.logger.Debug("heartbeat failed", "tool", id, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// loop pops and processes items until ctx is cancelled.
func (w *Worker) loop(ctx context.Context, workerNum int) {
	logger := w.logger.With("worker_num", workerNum)
	logger.Debug("worker loop started")

	for ctx.Err() == nil {
		item, err := w.client.Pop(ctx, w.opts.PopTimeout, w.opts.Tools...)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("failed to pop work item", "error", err)
			continue
		}
		if item == nil {
			continue
		}

		logger.Info("received work item",
			"job_id", item.JobID,
			"index", item.Index,
			"total", item.Total,
			"tool", item.Tool,
			"queue_wait_ms", item.Age().Milliseconds(),
		)

		// finish the item even when shutdown starts mid-parse
		result := w.process(context.WithoutCancel(ctx), *item)
		if err := w.client.Publish(context.WithoutCancel(ctx), result); err != nil {
			logger.Error("failed to publish result", "job_id", item.JobID, "error", err)
		}
	}
	logger.Debug("worker loop stopped")
}

// process parses the report of one item. It always returns a result; failures
// are reported in Result.Error.
func (w *Worker) process(ctx context.Context, item queue.WorkItem) queue.Result {
	result := queue.Result{
		JobID:     item.JobID,
		Index:     item.Index,
		Tool:      item.Tool,
		Path:      item.Path,
		WorkerID:  w.id,
		StartedAt: time.Now().UnixMilli(),
	}
	fail := func(err error) queue.Result {
		result.Error = err.Error()
		var te *toolerr.Error
		if errors.As(err, &te) {
			result.ErrorCode = te.Code
		}
		result.CompletedAt = time.Now().UnixMilli()
		w.logger.Error("work item failed", "job_id", item.JobID, "index", item.Index, "error", err)
		return result
	}

	if err := item.IsValid(); err != nil {
		return fail(fmt.Errorf("invalid work item: %w", err))
	}

	res, err := w.engine.Parse(ctx, warnings.Request{
		Tool:     item.Tool,
		Path:     item.Path,
		Charset:  item.Charset,
		Settings: item.Settings(),
	})
	if err != nil {
		return fail(err)
	}

	result.Issues = res.Issues.Records()
	result.Stats = res.Stats
	result.CompletedAt = time.Now().UnixMilli()

	w.logger.Info("work item completed",
		"job_id", item.JobID,
		"index", item.Index,
		"issues", res.Stats.Issues,
		"duration_ms", result.CompletedAt-result.StartedAt,
	)
	return result
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}
