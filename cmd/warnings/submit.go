package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/queue"
)

func newSubmitCmd(root *rootOptions) *cobra.Command {
	var (
		q       queueFlags
		format  string
		charset string
		rank    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <tool> <report>...",
		Short: "Parse reports on queue workers",
		Long: `Push one parse request per report to the Redis queue of the tool, wait for
the workers' results and print the issues. Report paths are made absolute and
must be readable by the workers.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.engine.Registry().Entry(args[0])
			if err != nil {
				return err
			}

			paths := make([]string, len(args)-1)
			for i, p := range args[1:] {
				if paths[i], err = filepath.Abs(p); err != nil {
					return err
				}
			}
			items := queue.NewJob(args[0], paths...)
			for i := range items {
				items[i].Charset = charset
				if cmd.Flags().Changed("rank") {
					items[i].Override = true
					items[i].UseRankAsPriority = rank
				}
			}

			wc := q.workerConfig(s.cfg)
			client, err := queue.NewRedisClient(queue.RedisOptions{
				URL:    wc.GetRedisURL(),
				Prefix: wc.GetQueuePrefix(),
				Logger: s.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			defer warnings.CloseWithLog(client, s.logger, "redis client")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			results, err := queue.Submit(ctx, client, items)
			if err != nil {
				return err
			}
			collected, collectErr := queue.Collect(ctx, results, len(items))

			all := issue.NewCollection()
			failed := 0
			for _, r := range collected {
				if r.HasError() {
					failed++
					fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("warning:"), r.Path+":", r.Error)
					continue
				}
				c, err := r.Collection()
				if err != nil {
					return fmt.Errorf("invalid result from worker %s: %w", r.WorkerID, err)
				}
				all.Add(c.All()...)
			}

			if err := writeIssues(cmd.OutOrStdout(), format, all, entry.Labels(), s.engine.Locale()); err != nil {
				return err
			}
			if collectErr != nil {
				return collectErr
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d reports could not be parsed", failed, len(items))
			}
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text|json|sarif|csv)")
	cmd.Flags().StringVar(&charset, "charset", "", "charset of the reports (default: the worker's configuration)")
	cmd.Flags().BoolVar(&rank, "rank", false, "map the bug rank instead of the confidence to the priority")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the workers")
	return cmd
}
