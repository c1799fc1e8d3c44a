package queue

import (
	"context"
	"fmt"
	"sort"
)

// Submit subscribes to the results of a job and then pushes its items. The
// returned channel delivers results as workers publish them.
//
// All items must share one job ID, as produced by NewJob.
func Submit(ctx context.Context, c Client, items []WorkItem) (<-chan Result, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no work items")
	}
	jobID := items[0].JobID
	for _, item := range items[1:] {
		if item.JobID != jobID {
			return nil, fmt.Errorf("work items belong to different jobs: %s and %s", jobID, item.JobID)
		}
	}

	// subscribe first so no result can be published before we listen
	results, err := c.Subscribe(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := c.Push(ctx, item); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Collect waits for total results and returns them ordered by Index. A
// duplicate index keeps the first result. It fails if ctx ends or the channel
// closes before every result arrived.
func Collect(ctx context.Context, results <-chan Result, total int) ([]Result, error) {
	seen := make(map[int]bool, total)
	out := make([]Result, 0, total)

	for len(out) < total {
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("collected %d of %d results: %w", len(out), total, ctx.Err())
		case r, ok := <-results:
			if !ok {
				return out, fmt.Errorf("collected %d of %d results: subscription closed", len(out), total)
			}
			if seen[r.Index] {
				continue
			}
			seen[r.Index] = true
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func sortTools(tools []ToolMeta) {
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
}
