package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, mr
}

func validItem() WorkItem {
	return WorkItem{
		JobID:       "job-123",
		Index:       0,
		Total:       1,
		Tool:        "findbugs",
		Path:        "target/spotbugsXml.xml",
		SubmittedAt: time.Now().UnixMilli(),
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
		assert.Equal(t, "warnings:findbugs:queue", client.Keys().Queue("findbugs"))
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL: "invalid://url",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
		got  func(Keys) string
		want string
	}{
		{"default queue", Keys{}, func(k Keys) string { return k.Queue("javac") }, "warnings:javac:queue"},
		{"custom queue", Keys{Prefix: "ci"}, func(k Keys) string { return k.Queue("javac") }, "ci:javac:queue"},
		{"results", Keys{}, func(k Keys) string { return k.Results("job-1") }, "warnings:results:job-1"},
		{"meta", Keys{}, func(k Keys) string { return k.Meta("findbugs") }, "warnings:findbugs:meta"},
		{"health", Keys{}, func(k Keys) string { return k.Health("findbugs") }, "warnings:findbugs:health"},
		{"workers", Keys{}, func(k Keys) string { return k.Workers("findbugs") }, "warnings:findbugs:workers"},
		{"available", Keys{Prefix: "ci"}, func(k Keys) string { return k.Available() }, "ci:tools:available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got(tt.keys))
		})
	}
}

func TestPushPop(t *testing.T) {
	t.Run("successful push and pop", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		item := validItem()
		item.Charset = "ISO-8859-1"
		item.Override = true
		item.UseRankAsPriority = true
		item.Priorities = &priority.Table{Rank: []priority.RankBucket{{Max: 20, Priority: issue.PriorityLow}}}
		item.TraceID = "trace-123"

		require.NoError(t, client.Push(ctx, item))
		assert.True(t, mr.Exists("warnings:findbugs:queue"))

		popped, err := client.Pop(ctx, time.Second, "findbugs")
		require.NoError(t, err)
		require.NotNil(t, popped)
		assert.Equal(t, item, *popped)
	})

	t.Run("FIFO order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		items := NewJob("checkstyle", "a.xml", "b.xml", "c.xml")
		for _, item := range items {
			require.NoError(t, client.Push(ctx, item))
		}
		for i := range items {
			popped, err := client.Pop(ctx, time.Second, "checkstyle")
			require.NoError(t, err)
			require.NotNil(t, popped)
			assert.Equal(t, i, popped.Index)
			assert.Equal(t, items[i].Path, popped.Path)
		}
	})

	t.Run("queues are per tool", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Push(ctx, validItem()))
		assert.False(t, mr.Exists("warnings:javac:queue"))

		popped, err := client.Pop(ctx, time.Second, "javac")
		require.NoError(t, err)
		assert.Nil(t, popped, "timeout yields no item")
	})

	t.Run("invalid item is rejected", func(t *testing.T) {
		client, _ := setupTestClient(t)
		item := validItem()
		item.Path = ""
		err := client.Push(context.Background(), item)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path is required")
	})

	t.Run("undecodable item", func(t *testing.T) {
		client, mr := setupTestClient(t)
		_, err := mr.Lpush("warnings:findbugs:queue", "{not json")
		require.NoError(t, err)

		_, err = client.Pop(context.Background(), time.Second, "findbugs")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal work item")
	})
}

func TestPublishSubscribe(t *testing.T) {
	t.Run("successful publish and subscribe", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resultChan, err := client.Subscribe(ctx, "job-123")
		require.NoError(t, err)

		i, err := issue.NewBuilder().SetPath("a/B.java").SetLine(3).SetType("NP").SetMessage("null").Build()
		require.NoError(t, err)
		result := Result{
			JobID:       "job-123",
			Index:       0,
			Tool:        "findbugs",
			Path:        "r.xml",
			Issues:      []issue.Record{i.Record()},
			Stats:       tool.Stats{Records: 2, Issues: 1, Malformed: 1},
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli() + 100,
		}
		require.NoError(t, client.Publish(ctx, result))

		select {
		case received := <-resultChan:
			assert.Equal(t, result, received)
			coll, err := received.Collection()
			require.NoError(t, err)
			assert.Equal(t, i, coll.Get(0))
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for result")
		}
	})

	t.Run("other jobs are not delivered", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resultChan, err := client.Subscribe(ctx, "job-a")
		require.NoError(t, err)

		require.NoError(t, client.Publish(ctx, Result{JobID: "job-b", WorkerID: "w"}))
		require.NoError(t, client.Publish(ctx, Result{JobID: "job-a", Index: 4, WorkerID: "w"}))

		select {
		case received := <-resultChan:
			assert.Equal(t, "job-a", received.JobID)
			assert.Equal(t, 4, received.Index)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for result")
		}
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())

		resultChan, err := client.Subscribe(ctx, "job-123")
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-resultChan:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed")
		}
	})
}

func TestSubmitCollect(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	items := NewJob("findbugs", "a.xml", "b.xml")
	results, err := Submit(ctx, client, items)
	require.NoError(t, err)

	// a fake worker answering out of order
	go func() {
		popped := make([]*WorkItem, 0, len(items))
		for range items {
			item, err := client.Pop(ctx, time.Second, "findbugs")
			if err != nil || item == nil {
				return
			}
			popped = append(popped, item)
		}
		for i := len(popped) - 1; i >= 0; i-- {
			item := popped[i]
			now := time.Now().UnixMilli()
			_ = client.Publish(ctx, Result{JobID: item.JobID, Index: item.Index, Path: item.Path, WorkerID: "w", StartedAt: now, CompletedAt: now})
		}
	}()

	all, err := Collect(ctx, results, len(items))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.xml", all[0].Path)
	assert.Equal(t, "b.xml", all[1].Path)
}

func TestSubmit_Errors(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := Submit(ctx, client, nil)
	assert.Error(t, err)

	mixed := append(NewJob("findbugs", "a.xml"), NewJob("findbugs", "b.xml")...)
	_, err = Submit(ctx, client, mixed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different jobs")
}

func TestCollect(t *testing.T) {
	t.Run("duplicates are ignored", func(t *testing.T) {
		ch := make(chan Result, 3)
		ch <- Result{Index: 1, WorkerID: "first"}
		ch <- Result{Index: 1, WorkerID: "second"}
		ch <- Result{Index: 0}

		all, err := Collect(context.Background(), ch, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, all[0].Index)
		assert.Equal(t, "first", all[1].WorkerID)
	})

	t.Run("closed channel", func(t *testing.T) {
		ch := make(chan Result, 1)
		ch <- Result{Index: 0}
		close(ch)

		all, err := Collect(context.Background(), ch, 2)
		require.Error(t, err)
		assert.Len(t, all, 1)
		assert.Contains(t, err.Error(), "collected 1 of 2")
	})

	t.Run("context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := Collect(ctx, make(chan Result), 1)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRegisterToolAndList(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.RegisterTool(ctx, ToolMeta{ID: "javac", Name: "Java Compiler", Version: "1.0.0"}))
	require.NoError(t, client.RegisterTool(ctx, ToolMeta{ID: "findbugs", Name: "FindBugs", Version: "1.0.0"}))
	require.NoError(t, client.IncrementWorkerCount(ctx, "findbugs"))
	require.NoError(t, client.IncrementWorkerCount(ctx, "findbugs"))

	members, err := mr.SMembers("warnings:tools:available")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"findbugs", "javac"}, members)
	assert.Equal(t, "FindBugs", mr.HGet("warnings:findbugs:meta", "name"))

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, ToolMeta{ID: "findbugs", Name: "FindBugs", Version: "1.0.0", WorkerCount: 2}, tools[0])
	assert.Equal(t, "javac", tools[1].ID)
	assert.Zero(t, tools[1].WorkerCount)

	assert.Error(t, client.RegisterTool(ctx, ToolMeta{}))
}

func TestHeartbeat(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	healthy, err := client.Healthy(ctx, "findbugs")
	require.NoError(t, err)
	assert.False(t, healthy)

	require.NoError(t, client.Heartbeat(ctx, "findbugs"))
	ttl := mr.TTL("warnings:findbugs:health")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, HeartbeatTTL)

	healthy, err = client.Healthy(ctx, "findbugs")
	require.NoError(t, err)
	assert.True(t, healthy)

	mr.FastForward(HeartbeatTTL + time.Second)
	healthy, err = client.Healthy(ctx, "findbugs")
	require.NoError(t, err)
	assert.False(t, healthy)
}

func TestWorkerCount(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	count, err := client.GetWorkerCount(ctx, "javac")
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.IncrementWorkerCount(ctx, "javac"))
	}
	require.NoError(t, client.DecrementWorkerCount(ctx, "javac"))

	count, err = client.GetWorkerCount(ctx, "javac")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, mr.Set("warnings:javac:workers", "many"))
	_, err = client.GetWorkerCount(ctx, "javac")
	assert.Error(t, err)
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(Result{JobID: "j", WorkerID: "w", Error: "boom", ErrorCode: "PARSE_ERROR"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "PARSE_ERROR", fields["error_code"])
	assert.NotContains(t, fields, "issues")
	assert.Contains(t, fields, "stats")
}

func TestClose(t *testing.T) {
	client, _ := setupTestClient(t)
	require.NoError(t, client.Close())

	err := client.Push(context.Background(), validItem())
	assert.Error(t, err)
}
