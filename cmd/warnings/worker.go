package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/tool/worker"
)

// queueFlags are the Redis settings shared by worker and submit.
type queueFlags struct {
	redisURL string
	prefix   string
}

func (q *queueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.redisURL, "redis-url", "", "Redis URL (default: worker.redis_url or redis://localhost:6379)")
	cmd.Flags().StringVar(&q.prefix, "queue-prefix", "", "Redis key prefix (default: worker.queue_prefix or warnings)")
}

// workerConfig returns the worker section of cfg with the flags applied.
func (q *queueFlags) workerConfig(cfg *config.Config) *config.WorkerConfig {
	var wc config.WorkerConfig
	if cfg != nil && cfg.Worker != nil {
		wc = *cfg.Worker
	}
	if q.redisURL != "" {
		wc.RedisURL = q.redisURL
	}
	if q.prefix != "" {
		wc.QueuePrefix = q.prefix
	}
	return &wc
}

func newWorkerCmd(root *rootOptions) *cobra.Command {
	var (
		q           queueFlags
		tools       []string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the Redis parse queues",
		Long: `Pop parse requests from the Redis queues of the given tools, parse the
reports and publish the issues to the submitting job. Runs until SIGINT or
SIGTERM; in-flight reports are finished before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return worker.Run(s.engine, worker.Options{
				Tools:       tools,
				Concurrency: concurrency,
				Version:     Version,
				Logger:      s.logger,
				Config:      q.workerConfig(s.cfg),
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringSliceVar(&tools, "tools", nil, "tool queues to serve (default: every supported tool)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parse goroutines (default: worker.concurrency or 4)")
	return cmd
}
