package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/health"
	"github.com/zero-day-ai/warnings/queue"
)

var statusColors = map[string]*color.Color{
	health.StatusHealthy:   color.New(color.FgGreen),
	health.StatusDegraded:  color.New(color.FgYellow),
	health.StatusUnhealthy: color.New(color.FgRed, color.Bold),
}

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var (
		q       queueFlags
		queued  bool
		format  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, cache, catalogs and queue",
		Long: `Run the health checks of the local setup. The queue checks (Redis
reachability and live workers per tool) run with --queue, when --redis-url is
given or when the configuration has a worker section.

Exits with status 1 when a check failed. Degraded checks only warn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var checks []health.Status
			cfg, err := root.loadConfig()
			switch {
			case err != nil:
				checks = append(checks, health.Unhealthy("config", err.Error(), nil))
			case cfg == nil:
				checks = append(checks, health.Healthy("config", "no configuration file, using defaults"))
			default:
				checks = append(checks, health.Healthy("config", "configuration is valid"))
			}

			s, err := root.openWith(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			checks = append(checks, health.CatalogCheck(s.engine.Registry()))
			if dir := root.cacheDirFor(cfg); dir != "" {
				checks = append(checks, health.WritableDirCheck("cache", dir))
			}

			if queued || q.redisURL != "" || (cfg != nil && cfg.Worker != nil) {
				checks = append(checks, queueChecks(ctx, s, q)...)
			}

			overall := health.Combine(checks...)
			if err := writeChecks(cmd, format, checks, overall); err != nil {
				return err
			}
			if overall.IsUnhealthy() {
				return fmt.Errorf("%s", overall.Message)
			}
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().BoolVar(&queued, "queue", false, "also check Redis and the queue workers")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text|json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "time limit of the network checks")
	return cmd
}

func queueChecks(ctx context.Context, s *session, q queueFlags) []health.Status {
	wc := q.workerConfig(s.cfg)
	redisStatus := health.RedisCheck(ctx, wc.GetRedisURL())
	if !redisStatus.IsHealthy() {
		return []health.Status{redisStatus}
	}

	client, err := queue.NewRedisClient(queue.RedisOptions{
		URL:    wc.GetRedisURL(),
		Prefix: wc.GetQueuePrefix(),
		Logger: s.logger,
	})
	if err != nil {
		return []health.Status{redisStatus, health.Unhealthy("workers", err.Error(), nil)}
	}
	defer warnings.CloseWithLog(client, s.logger, "redis client")

	return []health.Status{redisStatus, health.WorkersCheck(ctx, client, s.engine.Registry().IDs()...)}
}

func writeChecks(cmd *cobra.Command, format string, checks []health.Status, overall health.Status) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Overall health.Status   `json:"overall"`
			Checks  []health.Status `json:"checks"`
		}{overall, checks})
	case "text":
		rows := make([][]string, len(checks))
		for i, c := range checks {
			rows[i] = []string{c.Name, c.Status, c.Message}
		}
		statusColumn := func(col int, cell string) *color.Color {
			if col != 1 {
				return nil
			}
			return statusColors[cell]
		}
		if err := table(out, []string{"CHECK", "STATUS", "MESSAGE"}, rows, statusColumn); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "\n%s: %s\n", statusColors[overall.Status].Sprint(overall.Status), overall.Message)
		return err
	default:
		return fmt.Errorf("unknown format %q (expected text|json)", format)
	}
}
