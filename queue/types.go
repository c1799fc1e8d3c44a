package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "warnings"

// Keys builds the Redis key names under one prefix.
type Keys struct {
	Prefix string
}

func (k Keys) prefix() string {
	if k.Prefix == "" {
		return DefaultPrefix
	}
	return k.Prefix
}

// Queue returns the work list of a tool: <prefix>:<tool>:queue.
func (k Keys) Queue(toolID string) string {
	return formatKeyName(k.prefix(), toolID, "queue")
}

// Results returns the pub/sub channel of a job: <prefix>:results:<job>.
func (k Keys) Results(jobID string) string {
	return formatKeyName(k.prefix(), "results", jobID)
}

// Meta returns the metadata hash of a tool.
func (k Keys) Meta(toolID string) string {
	return formatKeyName(k.prefix(), toolID, "meta")
}

// Health returns the heartbeat key of a tool.
func (k Keys) Health(toolID string) string {
	return formatKeyName(k.prefix(), toolID, "health")
}

// Workers returns the worker counter of a tool.
func (k Keys) Workers(toolID string) string {
	return formatKeyName(k.prefix(), toolID, "workers")
}

// Available returns the set of tools served by at least one worker.
func (k Keys) Available() string {
	return formatKeyName(k.prefix(), "tools", "available")
}

// WorkItem asks a worker to parse one report.
type WorkItem struct {
	// JobID is a UUID that correlates all work items in a batch
	JobID string `json:"job_id"`

	// Index is the position of this item in the batch (0-based)
	Index int `json:"index"`

	// Total is the total number of items in the batch
	Total int `json:"total"`

	// Tool is the registry ID of the tool that produced the report
	Tool string `json:"tool"`

	// Path of the report, as seen by the worker
	Path string `json:"path"`

	// Charset of the report; empty uses the worker's configuration
	Charset string `json:"charset,omitempty"`

	// UseRankAsPriority and Priorities override the worker's parser settings
	// when Override is set.
	Override          bool            `json:"override,omitempty"`
	UseRankAsPriority bool            `json:"use_rank_as_priority,omitempty"`
	Priorities        *priority.Table `json:"priorities,omitempty"`

	// TraceID is the distributed tracing trace ID for observability
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the distributed tracing span ID for observability
	SpanID string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when work was submitted
	SubmittedAt int64 `json:"submitted_at"`
}

// Settings returns the parser settings requested by the item, or nil when
// the worker's own configuration applies.
func (w *WorkItem) Settings() *tool.Settings {
	if !w.Override {
		return nil
	}
	return &tool.Settings{UseRankAsPriority: w.UseRankAsPriority, Priorities: w.Priorities}
}

// NewJob creates one work item per report path, all sharing a fresh job ID.
func NewJob(toolID string, paths ...string) []WorkItem {
	jobID := uuid.New().String()
	now := time.Now().UnixMilli()
	items := make([]WorkItem, len(paths))
	for i, p := range paths {
		items[i] = WorkItem{
			JobID:       jobID,
			Index:       i,
			Total:       len(paths),
			Tool:        toolID,
			Path:        p,
			SubmittedAt: now,
		}
	}
	return items
}

// Result is the outcome of a WorkItem. It is published to the job's results
// channel.
type Result struct {
	// JobID correlates this result with the original work item
	JobID string `json:"job_id"`

	// Index is the position of this result in the batch
	Index int `json:"index"`

	Tool string `json:"tool"`
	Path string `json:"path"`

	// Issues and Stats are empty if Error is set
	Issues []issue.Record `json:"issues,omitempty"`
	Stats  tool.Stats     `json:"stats"`

	// Error is the error message if parsing failed
	Error string `json:"error,omitempty"`

	// ErrorCode is the toolerr code of Error, when it has one
	ErrorCode string `json:"error_code,omitempty"`

	// WorkerID is the unique identifier of the worker that processed this item
	WorkerID string `json:"worker_id"`

	// StartedAt is the Unix timestamp in milliseconds when parsing started
	StartedAt int64 `json:"started_at"`

	// CompletedAt is the Unix timestamp in milliseconds when parsing completed
	CompletedAt int64 `json:"completed_at"`
}

// ToolMeta describes a tool served by queue workers. It is stored as a Redis
// hash and used for discovery.
type ToolMeta struct {
	// ID is the registry ID of the tool
	ID string `json:"id"`

	// Name is the human readable tool name
	Name string `json:"name"`

	// Version is the version of the worker serving the tool
	Version string `json:"version"`

	// WorkerCount is the number of active workers for this tool
	// Updated by IncrementWorkerCount/DecrementWorkerCount
	WorkerCount int `json:"worker_count"`
}

// IsValid checks if the WorkItem has all required fields populated correctly.
// Returns an error describing any validation failures.
func (w *WorkItem) IsValid() error {
	if w.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if w.Index < 0 {
		return fmt.Errorf("index must be non-negative, got %d", w.Index)
	}
	if w.Total <= 0 {
		return fmt.Errorf("total must be positive, got %d", w.Total)
	}
	if w.Index >= w.Total {
		return fmt.Errorf("index %d is out of bounds for total %d", w.Index, w.Total)
	}
	if w.Tool == "" {
		return fmt.Errorf("tool is required")
	}
	if w.Path == "" {
		return fmt.Errorf("path is required")
	}
	if w.Priorities != nil {
		if err := w.Priorities.Validate(); err != nil {
			return fmt.Errorf("priorities: %w", err)
		}
	}
	if w.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", w.SubmittedAt)
	}
	return nil
}

// Age returns the duration since this work item was submitted.
// Useful for detecting stale work items and computing queue wait time.
func (w *WorkItem) Age() time.Duration {
	if w.SubmittedAt <= 0 {
		return 0
	}
	now := time.Now().UnixMilli()
	return time.Duration(now-w.SubmittedAt) * time.Millisecond
}

// HasError returns true if the result represents a failed parse.
func (r *Result) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall-clock time the worker spent processing this item.
func (r *Result) Duration() time.Duration {
	if r.StartedAt <= 0 || r.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}

// Collection rebuilds the issues of the result.
func (r *Result) Collection() (*issue.Collection, error) {
	return issue.CollectionFromRecords(r.Issues)
}

// IsValid checks if the Result has all required fields populated correctly.
func (r *Result) IsValid() error {
	if r.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if r.Index < 0 {
		return fmt.Errorf("index must be non-negative, got %d", r.Index)
	}
	if r.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if r.StartedAt <= 0 {
		return fmt.Errorf("started_at must be positive, got %d", r.StartedAt)
	}
	if r.CompletedAt <= 0 {
		return fmt.Errorf("completed_at must be positive, got %d", r.CompletedAt)
	}
	if r.CompletedAt < r.StartedAt {
		return fmt.Errorf("completed_at (%d) cannot be before started_at (%d)", r.CompletedAt, r.StartedAt)
	}
	if r.HasError() && len(r.Issues) > 0 {
		return fmt.Errorf("issues must be empty when error is set")
	}
	return nil
}

// IsValid checks if the ToolMeta has all required fields populated correctly.
func (t *ToolMeta) IsValid() error {
	if t.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	if t.WorkerCount < 0 {
		return fmt.Errorf("worker_count must be non-negative, got %d", t.WorkerCount)
	}
	return nil
}
