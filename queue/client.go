package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client defines the interface for interacting with the Redis parse queues.
type Client interface {
	// Keys returns the key names the client operates on.
	Keys() Keys

	// Push adds a work item to the end of its tool's queue (LPUSH).
	Push(ctx context.Context, item WorkItem) error

	// Pop removes and returns a work item from the front of the first
	// non-empty queue of toolIDs (BRPOP). It returns nil, nil when no item
	// arrived within timeout.
	Pop(ctx context.Context, timeout time.Duration, toolIDs ...string) (*WorkItem, error)

	// Publish sends a result to its job's results channel.
	Publish(ctx context.Context, result Result) error

	// Subscribe creates a subscription to a job's results channel.
	// Returns a channel that receives results until ctx is cancelled.
	Subscribe(ctx context.Context, jobID string) (<-chan Result, error)

	// RegisterTool writes tool metadata to Redis and adds to available set.
	RegisterTool(ctx context.Context, meta ToolMeta) error

	// ListTools returns metadata for all registered tools.
	ListTools(ctx context.Context) ([]ToolMeta, error)

	// Heartbeat updates the health key for a tool with a 30s TTL.
	Heartbeat(ctx context.Context, toolID string) error

	// Healthy reports whether a heartbeat for the tool is current.
	Healthy(ctx context.Context, toolID string) (bool, error)

	// GetWorkerCount returns the current worker count for a tool.
	GetWorkerCount(ctx context.Context, toolID string) (int, error)

	// IncrementWorkerCount increments the worker count for a tool.
	IncrementWorkerCount(ctx context.Context, toolID string) error

	// DecrementWorkerCount decrements the worker count for a tool.
	DecrementWorkerCount(ctx context.Context, toolID string) error

	// Close closes the Redis connection.
	Close() error
}

// HeartbeatTTL is the lifetime of a tool heartbeat.
const HeartbeatTTL = 30 * time.Second

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Prefix is the key prefix of all queue keys. Default: "warnings".
	Prefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// Logger receives decode errors of subscribed messages.
	Logger *slog.Logger
}

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client *redis.Client
	keys   Keys
	logger *slog.Logger
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, keys: Keys{Prefix: opts.Prefix}, logger: opts.Logger}, nil
}

// Keys returns the key names the client operates on.
func (c *RedisClient) Keys() Keys {
	return c.keys
}

// Push adds a work item to the end of its tool's queue.
func (c *RedisClient) Push(ctx context.Context, item WorkItem) error {
	if err := item.IsValid(); err != nil {
		return fmt.Errorf("invalid work item: %w", err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	queue := c.keys.Queue(item.Tool)
	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	return nil
}

// Pop removes and returns a work item from the front of the first non-empty
// queue of toolIDs. Blocks until an item is available, timeout elapses or
// ctx is cancelled.
func (c *RedisClient) Pop(ctx context.Context, timeout time.Duration, toolIDs ...string) (*WorkItem, error) {
	if len(toolIDs) == 0 {
		return nil, fmt.Errorf("no queues to pop from")
	}
	queues := make([]string, len(toolIDs))
	for i, id := range toolIDs {
		queues[i] = c.keys.Queue(id)
	}

	// BRPOP returns [queue_name, value] or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, timeout, queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from %s: %w", strings.Join(queues, ", "), err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var item WorkItem
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work item: %w", err)
	}

	return &item, nil
}

// Publish sends a result to its job's results channel.
func (c *RedisClient) Publish(ctx context.Context, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	channel := c.keys.Results(result.JobID)
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// Subscribe creates a subscription to a job's results channel.
func (c *RedisClient) Subscribe(ctx context.Context, jobID string) (<-chan Result, error) {
	channel := c.keys.Results(jobID)
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	resultChan := make(chan Result)

	go func() {
		defer close(resultChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result Result
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					c.logger.Warn("dropping undecodable result", "channel", channel, "error", err)
					continue
				}

				select {
				case resultChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return resultChan, nil
}

// RegisterTool writes tool metadata to Redis and adds to available set.
func (c *RedisClient) RegisterTool(ctx context.Context, meta ToolMeta) error {
	if err := meta.IsValid(); err != nil {
		return fmt.Errorf("invalid tool metadata: %w", err)
	}

	// all values must be strings for HSET
	metaMap := map[string]string{
		"id":           meta.ID,
		"name":         meta.Name,
		"version":      meta.Version,
		"worker_count": strconv.Itoa(meta.WorkerCount),
	}

	args := make([]interface{}, 0, len(metaMap)*2)
	for k, v := range metaMap {
		args = append(args, k, v)
	}
	if err := c.client.HSet(ctx, c.keys.Meta(meta.ID), args...).Err(); err != nil {
		return fmt.Errorf("failed to set tool metadata: %w", err)
	}

	if err := c.client.SAdd(ctx, c.keys.Available(), meta.ID).Err(); err != nil {
		return fmt.Errorf("failed to add tool to available set: %w", err)
	}

	return nil
}

// ListTools returns metadata for all registered tools, sorted by ID. The
// worker count is read from the live counter.
func (c *RedisClient) ListTools(ctx context.Context) ([]ToolMeta, error) {
	ids, err := c.client.SMembers(ctx, c.keys.Available()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get available tools: %w", err)
	}

	tools := make([]ToolMeta, 0, len(ids))
	for _, id := range ids {
		metaMap, err := c.client.HGetAll(ctx, c.keys.Meta(id)).Result()
		if err != nil || len(metaMap) == 0 {
			// Skip tools with missing metadata
			continue
		}

		meta := ToolMeta{
			ID:      metaMap["id"],
			Name:    metaMap["name"],
			Version: metaMap["version"],
		}
		if count, err := c.GetWorkerCount(ctx, id); err == nil {
			meta.WorkerCount = count
		}
		tools = append(tools, meta)
	}

	sortTools(tools)
	return tools, nil
}

// Heartbeat updates the health key for a tool with a 30s TTL.
func (c *RedisClient) Heartbeat(ctx context.Context, toolID string) error {
	if err := c.client.Set(ctx, c.keys.Health(toolID), "ok", HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for tool %s: %w", toolID, err)
	}
	return nil
}

// Healthy reports whether the heartbeat of a tool has not expired.
func (c *RedisClient) Healthy(ctx context.Context, toolID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.keys.Health(toolID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read heartbeat for tool %s: %w", toolID, err)
	}
	return n > 0, nil
}

// GetWorkerCount returns the current worker count for a tool.
func (c *RedisClient) GetWorkerCount(ctx context.Context, toolID string) (int, error) {
	countStr, err := c.client.Get(ctx, c.keys.Workers(toolID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count for tool %s: %w", toolID, err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}

	return count, nil
}

// IncrementWorkerCount increments the worker count for a tool.
func (c *RedisClient) IncrementWorkerCount(ctx context.Context, toolID string) error {
	if err := c.client.Incr(ctx, c.keys.Workers(toolID)).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count for tool %s: %w", toolID, err)
	}
	return nil
}

// DecrementWorkerCount decrements the worker count for a tool.
func (c *RedisClient) DecrementWorkerCount(ctx context.Context, toolID string) error {
	if err := c.client.Decr(ctx, c.keys.Workers(toolID)).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count for tool %s: %w", toolID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// formatKeyName ensures consistent key naming with the <prefix>:<a>:<b> pattern.
func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}
