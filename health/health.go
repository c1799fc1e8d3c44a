// Package health checks what the warnings command and its queue workers
// depend on: the configuration file, the cache directory, the message
// catalogs of the registered tools and Redis.
//
// Every check returns a Status; Combine folds several into one.
//
//	overall := health.Combine(
//	    health.CatalogCheck(engine.Registry()),
//	    health.WritableDirCheck("cache", cfg.CacheDir),
//	    health.RedisCheck(ctx, cfg.Worker.GetRedisURL()),
//	)
//	if overall.IsUnhealthy() {
//	    log.Printf("health check failed: %s", overall.Message)
//	}
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/warnings/label"
	"github.com/zero-day-ai/warnings/queue"
	"github.com/zero-day-ai/warnings/registry"
)

// DefaultTimeout bounds network checks run with a context without deadline.
const DefaultTimeout = 5 * time.Second

// FileCheck verifies that a file or directory exists at path.
func FileCheck(name, path string) Status {
	if path == "" {
		return Unhealthy(name, "path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Unhealthy(name, fmt.Sprintf("path '%s' does not exist", path), map[string]any{"path": path})
		}
		return Unhealthy(name, fmt.Sprintf("failed to stat path '%s'", path), map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}
	return Healthy(name, fmt.Sprintf("%s '%s' exists", fileType, path))
}

// WritableDirCheck verifies that files can be created in dir. A missing
// directory is degraded: the cache creates it on first use.
func WritableDirCheck(name, dir string) Status {
	if dir == "" {
		return Unhealthy(name, "directory cannot be empty", nil)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Degraded(name, fmt.Sprintf("directory '%s' does not exist yet", dir), map[string]any{"path": dir})
	case err != nil:
		return Unhealthy(name, fmt.Sprintf("failed to stat directory '%s'", dir), map[string]any{
			"path":  dir,
			"error": err.Error(),
		})
	case !info.IsDir():
		return Unhealthy(name, fmt.Sprintf("'%s' is not a directory", dir), map[string]any{"path": dir})
	}

	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return Unhealthy(name, fmt.Sprintf("directory '%s' is not writable", dir), map[string]any{
			"path":  dir,
			"error": err.Error(),
		})
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return Healthy(name, fmt.Sprintf("directory '%s' is writable", dir))
}

// NetworkCheck verifies TCP connectivity to host and port. Without a
// deadline on ctx, DefaultTimeout applies.
func NetworkCheck(ctx context.Context, name, host string, port int) Status {
	if host == "" {
		return Unhealthy(name, "host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return Unhealthy(name, fmt.Sprintf("invalid port number: %d", port), map[string]any{"port": port})
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(name, fmt.Sprintf("failed to connect to %s", address), map[string]any{
			"host":  host,
			"port":  port,
			"error": err.Error(),
		})
	}
	_ = conn.Close()

	return Healthy(name, fmt.Sprintf("successfully connected to %s", address))
}

// RedisCheck verifies that the server of a Redis URL accepts connections.
func RedisCheck(ctx context.Context, url string) Status {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return Unhealthy("redis", "invalid Redis URL", map[string]any{"error": err.Error()})
	}
	host, portStr, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return Unhealthy("redis", fmt.Sprintf("invalid Redis address %q", opts.Addr), map[string]any{"error": err.Error()})
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Unhealthy("redis", fmt.Sprintf("invalid Redis port %q", portStr), nil)
	}
	return NetworkCheck(ctx, "redis", host, port)
}

// CatalogCheck verifies that the message catalog of every registered tool
// loads.
func CatalogCheck(r *registry.Registry) Status {
	var failed []string
	loaded := map[string]int{}
	for _, e := range r.Entries() {
		dp, ok := e.Labels().(*label.DefaultProvider)
		if !ok || dp.Info().CatalogKey == "" {
			continue
		}
		key := dp.Info().CatalogKey
		if _, done := loaded[key]; done {
			continue
		}
		catalog, err := label.SharedCatalog(key)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		loaded[key] = len(catalog.Languages())
	}

	if len(failed) > 0 {
		return Unhealthy("catalogs", fmt.Sprintf("%d catalog(s) failed to load", len(failed)), map[string]any{"errors": failed})
	}
	return Healthy("catalogs", fmt.Sprintf("%d catalog(s) loaded", len(loaded)))
}

// WorkersCheck verifies that every tool in toolIDs has a current heartbeat.
// Tools without one make the status degraded: submitted jobs would wait.
func WorkersCheck(ctx context.Context, client queue.Client, toolIDs ...string) Status {
	var idle []string
	for _, id := range toolIDs {
		ok, err := client.Healthy(ctx, id)
		if err != nil {
			return Unhealthy("workers", "failed to read heartbeats", map[string]any{"tool": id, "error": err.Error()})
		}
		if !ok {
			idle = append(idle, id)
		}
	}
	if len(idle) > 0 {
		sort.Strings(idle)
		return Degraded("workers", "no live workers for "+strings.Join(idle, ", "), map[string]any{"tools": idle})
	}
	return Healthy("workers", fmt.Sprintf("%d tool(s) served", len(toolIDs)))
}

// Combine aggregates multiple health checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("overall", "no checks provided")
	}

	var unhealthyChecks, degradedChecks []string
	var healthyCount int
	for _, check := range checks {
		name := check.Name
		if name == "" {
			name = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthyChecks = append(unhealthyChecks, name)
		case StatusDegraded:
			degradedChecks = append(degradedChecks, name)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return Unhealthy("overall", fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)), map[string]any{
			"total":         len(checks),
			"unhealthy":     len(unhealthyChecks),
			"degraded":      len(degradedChecks),
			"healthy":       healthyCount,
			"failed_checks": unhealthyChecks,
		})
	}
	if len(degradedChecks) > 0 {
		return Degraded("overall", fmt.Sprintf("%d check(s) degraded", len(degradedChecks)), map[string]any{
			"total":           len(checks),
			"degraded":        len(degradedChecks),
			"healthy":         healthyCount,
			"degraded_checks": degradedChecks,
		})
	}
	return Healthy("overall", fmt.Sprintf("all %d check(s) passed", len(checks)))
}
