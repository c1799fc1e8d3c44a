package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
)

func TestWorkItem_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkItem)
		errMsg string
	}{
		{name: "valid work item", mutate: func(*WorkItem) {}},
		{name: "missing job_id", mutate: func(w *WorkItem) { w.JobID = "" }, errMsg: "job_id is required"},
		{name: "negative index", mutate: func(w *WorkItem) { w.Index = -1 }, errMsg: "index must be non-negative, got -1"},
		{name: "zero total", mutate: func(w *WorkItem) { w.Total = 0 }, errMsg: "total must be positive, got 0"},
		{name: "index out of bounds", mutate: func(w *WorkItem) { w.Index, w.Total = 5, 3 }, errMsg: "index 5 is out of bounds for total 3"},
		{name: "missing tool", mutate: func(w *WorkItem) { w.Tool = "" }, errMsg: "tool is required"},
		{name: "missing path", mutate: func(w *WorkItem) { w.Path = "" }, errMsg: "path is required"},
		{name: "zero submitted_at", mutate: func(w *WorkItem) { w.SubmittedAt = 0 }, errMsg: "submitted_at must be positive, got 0"},
		{
			name: "invalid priorities",
			mutate: func(w *WorkItem) {
				w.Priorities = &priority.Table{Rank: []priority.RankBucket{{Max: 3, Priority: "urgent"}}}
			},
			errMsg: "priorities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(&item)
			err := item.IsValid()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWorkItem_Settings(t *testing.T) {
	item := validItem()
	assert.Nil(t, item.Settings(), "worker configuration applies")

	table := &priority.Table{Confidence: map[string]issue.Priority{"1": issue.PriorityError}}
	item.Override = true
	item.UseRankAsPriority = true
	item.Priorities = table

	s := item.Settings()
	require.NotNil(t, s)
	assert.True(t, s.UseRankAsPriority)
	assert.Same(t, table, s.Priorities)
	assert.Nil(t, s.Logger)
}

func TestWorkItem_Age(t *testing.T) {
	item := WorkItem{SubmittedAt: time.Now().Add(-2 * time.Second).UnixMilli()}
	assert.GreaterOrEqual(t, item.Age(), 2*time.Second)
	assert.Zero(t, (&WorkItem{}).Age())
}

func TestNewJob(t *testing.T) {
	items := NewJob("javac", "build1.log", "build2.log")
	require.Len(t, items, 2)

	_, err := uuid.Parse(items[0].JobID)
	require.NoError(t, err)
	for i, item := range items {
		assert.Equal(t, items[0].JobID, item.JobID)
		assert.Equal(t, i, item.Index)
		assert.Equal(t, 2, item.Total)
		assert.Equal(t, "javac", item.Tool)
		assert.NoError(t, item.IsValid())
	}
	assert.NotEqual(t, items[0].JobID, NewJob("javac", "x.log")[0].JobID)
	assert.Empty(t, NewJob("javac"))
}

func TestResult_IsValid(t *testing.T) {
	now := time.Now().UnixMilli()
	valid := func() Result {
		return Result{JobID: "job", WorkerID: "w", StartedAt: now, CompletedAt: now + 5}
	}

	tests := []struct {
		name   string
		mutate func(*Result)
		errMsg string
	}{
		{name: "valid", mutate: func(*Result) {}},
		{name: "valid error result", mutate: func(r *Result) { r.Error = "boom" }},
		{name: "missing job_id", mutate: func(r *Result) { r.JobID = "" }, errMsg: "job_id is required"},
		{name: "negative index", mutate: func(r *Result) { r.Index = -2 }, errMsg: "index must be non-negative"},
		{name: "missing worker", mutate: func(r *Result) { r.WorkerID = "" }, errMsg: "worker_id is required"},
		{name: "missing start", mutate: func(r *Result) { r.StartedAt = 0 }, errMsg: "started_at must be positive"},
		{name: "missing completion", mutate: func(r *Result) { r.CompletedAt = 0 }, errMsg: "completed_at must be positive"},
		{name: "completed before start", mutate: func(r *Result) { r.CompletedAt = now - 1 }, errMsg: "cannot be before"},
		{
			name: "issues with error",
			mutate: func(r *Result) {
				r.Error = "boom"
				r.Issues = []issue.Record{{Path: "a", Type: "T"}}
			},
			errMsg: "issues must be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.IsValid()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResult_Duration(t *testing.T) {
	r := Result{StartedAt: 1000, CompletedAt: 1250}
	assert.Equal(t, 250*time.Millisecond, r.Duration())
	assert.Zero(t, (&Result{StartedAt: 1000}).Duration())
	assert.True(t, (&Result{Error: "x"}).HasError())
	assert.False(t, (&Result{}).HasError())
}

func TestResult_Collection(t *testing.T) {
	r := Result{Issues: []issue.Record{{Path: "a/B.java", Type: "NP", Priority: "urgent"}}}
	_, err := r.Collection()
	assert.Error(t, err)

	r.Issues[0].Priority = issue.PriorityHigh
	coll, err := r.Collection()
	require.NoError(t, err)
	assert.Equal(t, 1, coll.Len())
	assert.NotEmpty(t, coll.Get(0).Fingerprint())
}

func TestToolMeta_IsValid(t *testing.T) {
	assert.NoError(t, (&ToolMeta{ID: "findbugs"}).IsValid())
	assert.Error(t, (&ToolMeta{}).IsValid())
	assert.Error(t, (&ToolMeta{ID: "findbugs", WorkerCount: -1}).IsValid())
}
