package warnings

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/cache"
	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/registry"
)

// Option configures an Engine.
type Option func(*engineConfig)

// engineConfig holds the settings New builds an Engine from.
type engineConfig struct {
	logger   *slog.Logger
	registry *registry.Registry
	cache    *cache.Cache
	config   *config.Config
	tracer   trace.Tracer
	meter    metric.Meter
	jobs     int
	locale   language.Tag
}

// WithLogger sets a custom logger for the engine.
// If not provided, a JSON logger writing to stderr at info level is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithRegistry sets the tool registry parsers are looked up in.
// If not provided, a registry holding the built-in tools is created.
func WithRegistry(r *registry.Registry) Option {
	return func(c *engineConfig) {
		c.registry = r
	}
}

// WithCache enables the on-disk parse cache.
func WithCache(cc *cache.Cache) Option {
	return func(c *engineConfig) {
		c.cache = cc
	}
}

// WithConfig supplies per tool settings, charsets, the default locale and
// the parse concurrency. Explicit WithJobs and WithLocale options win.
func WithConfig(cfg *config.Config) Option {
	return func(c *engineConfig) {
		c.config = cfg
	}
}

// WithTracer sets an OpenTelemetry tracer. Every parse then records a
// "warnings.parse" span.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *engineConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for parse metrics.
func WithMeter(meter metric.Meter) Option {
	return func(c *engineConfig) {
		c.meter = meter
	}
}

// WithJobs bounds the number of reports ParseAll parses concurrently.
func WithJobs(n int) Option {
	return func(c *engineConfig) {
		c.jobs = n
	}
}

// WithLocale sets the language Describe uses when called with language.Und.
func WithLocale(tag language.Tag) Option {
	return func(c *engineConfig) {
		c.locale = tag
	}
}
