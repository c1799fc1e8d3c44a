// Package config provides loading and validation of warnings.yaml (or
// warnings.toml) configuration files. A configuration selects the locale of
// descriptions, the parse concurrency, the cache directory, per tool parser
// settings and the queue worker settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/warnings/parser"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

// FileNames are the configuration file names Load looks for in a directory,
// in order.
var FileNames = []string{"warnings.yaml", "warnings.yml", "warnings.toml"}

// ErrNoConfig is returned by LoadFromDir when no configuration file exists.
var ErrNoConfig = errors.New("no warnings configuration found")

// Config represents a warnings configuration file.
type Config struct {
	// Locale is the BCP 47 tag descriptions are rendered in. Default: "en".
	Locale string `yaml:"locale,omitempty" toml:"locale"`

	// Jobs bounds the number of reports parsed concurrently. Default: 4.
	Jobs int `yaml:"jobs,omitempty" toml:"jobs"`

	// CacheDir enables the parse cache when set.
	CacheDir string `yaml:"cache_dir,omitempty" toml:"cache_dir"`

	// Tools holds per tool parser settings.
	Tools []ToolConfig `yaml:"tools,omitempty" toml:"tools"`

	// Worker configures queue based execution.
	Worker *WorkerConfig `yaml:"worker,omitempty" toml:"worker"`
}

// ToolConfig holds the settings of one tool.
type ToolConfig struct {
	ID                string          `yaml:"id" toml:"id"`
	UseRankAsPriority bool            `yaml:"use_rank_as_priority,omitempty" toml:"use_rank_as_priority"`
	Charset           string          `yaml:"charset,omitempty" toml:"charset"`
	Priorities        *priority.Table `yaml:"priorities,omitempty" toml:"priorities"`
}

// WorkerConfig defines configuration for queue-based worker execution.
type WorkerConfig struct {
	// RedisURL is the Redis connection string.
	// Default: redis://localhost:6379
	RedisURL string `yaml:"redis_url,omitempty" toml:"redis_url"`

	// Concurrency is the default number of concurrent worker goroutines.
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty" toml:"concurrency"`

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty" toml:"shutdown_timeout"`

	// QueuePrefix is the Redis key prefix of the job queues.
	// Default: "warnings" (resulting in "warnings:<tool>:queue")
	QueuePrefix string `yaml:"queue_prefix,omitempty" toml:"queue_prefix"`

	// HeartbeatInterval is the interval between health heartbeats.
	// Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty" toml:"heartbeat_interval"`
}

// GetRedisURL returns the Redis URL or the default value.
func (w *WorkerConfig) GetRedisURL() string {
	if w == nil || w.RedisURL == "" {
		return "redis://localhost:6379"
	}
	return w.RedisURL
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil || w.ShutdownTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil || w.HeartbeatInterval == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(w.HeartbeatInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetQueuePrefix returns the queue prefix or the default value.
func (w *WorkerConfig) GetQueuePrefix() string {
	if w == nil || w.QueuePrefix == "" {
		return "warnings"
	}
	return w.QueuePrefix
}

// GetJobs returns the configured concurrency or the default value.
func (c *Config) GetJobs() int {
	if c == nil || c.Jobs <= 0 {
		return 4
	}
	return c.Jobs
}

// Language returns the configured locale, English when unset or invalid.
func (c *Config) Language() language.Tag {
	if c == nil || c.Locale == "" {
		return language.English
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// Tool returns the settings for id.
func (c *Config) Tool(id string) (ToolConfig, bool) {
	if c == nil {
		return ToolConfig{}, false
	}
	for _, t := range c.Tools {
		if t.ID == id {
			return t, true
		}
	}
	return ToolConfig{}, false
}

// Settings returns the parser settings for id. Tools without an entry get
// the defaults.
func (c *Config) Settings(id string, logger *slog.Logger) tool.Settings {
	t, _ := c.Tool(id)
	return tool.Settings{
		UseRankAsPriority: t.UseRankAsPriority,
		Priorities:        t.Priorities,
		Logger:            logger,
	}
}

// Charset returns the configured report charset for id, empty when unset.
func (c *Config) Charset(id string) string {
	t, _ := c.Tool(id)
	return t.Charset
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var problems []string

	if c.Jobs < 0 {
		problems = append(problems, fmt.Sprintf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			problems = append(problems, fmt.Sprintf("invalid locale %q: %v", c.Locale, err))
		}
	}

	seen := make(map[string]bool, len(c.Tools))
	for i, t := range c.Tools {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("tools[%d]: id is required", i))
			continue
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("tools[%d]: duplicate id %q", i, id))
		}
		seen[id] = true

		if t.Charset != "" {
			if _, err := parser.LookupEncoding(t.Charset); err != nil {
				problems = append(problems, fmt.Sprintf("tools[%d] %s: %v", i, id, err))
			}
		}
		if t.Priorities != nil {
			if err := t.Priorities.Validate(); err != nil {
				problems = append(problems, fmt.Sprintf("tools[%d] %s: priorities: %v", i, id, err))
			}
		}
	}

	if c.Worker != nil {
		for name, d := range map[string]string{
			"shutdown_timeout":   c.Worker.ShutdownTimeout,
			"heartbeat_interval": c.Worker.HeartbeatInterval,
		} {
			if d == "" {
				continue
			}
			if _, err := time.ParseDuration(d); err != nil {
				problems = append(problems, fmt.Sprintf("worker.%s: %v", name, err))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return toolerr.New("", "config", toolerr.ErrCodeConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Load reads, parses and validates a configuration file from the given path.
// If the path is a directory, it looks for one of FileNames in that directory.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = findConfig(path)
		if configPath == "" {
			return nil, fmt.Errorf("no %s found in %s", strings.Join(FileNames, " or "), path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		err = decodeTOML(data, &config)
	} else {
		err = decodeYAML(data, &config)
	}
	if err != nil {
		return nil, toolerr.New("", "config", toolerr.ErrCodeConfig, "failed to parse config file").
			WithPath(configPath).
			WithCause(err)
	}

	if err := config.Validate(); err != nil {
		var e *toolerr.Error
		if errors.As(err, &e) {
			return nil, e.WithPath(configPath)
		}
		return nil, err
	}
	return &config, nil
}

func decodeYAML(data []byte, out *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, out *Config) error {
	meta, err := toml.Decode(string(data), out)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadFromDir searches for a configuration file starting from the given
// directory and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		if found := findConfig(absDir); found != "" {
			return Load(found)
		}

		// Move to parent directory
		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("%w in %s or parent directories", ErrNoConfig, dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads the configuration from the current working directory
// or its parents.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}

func findConfig(dir string) string {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
