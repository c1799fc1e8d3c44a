package warnings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/cache"
	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/label"
	"github.com/zero-day-ai/warnings/registry"
	"github.com/zero-day-ai/warnings/registry/builtin"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Request names a report to parse.
type Request struct {
	// Tool is the registry ID of the tool that produced the report.
	Tool string

	// Path of the report file.
	Path string

	// Charset of the report. Empty falls back to the configured charset of
	// the tool, then UTF-8.
	Charset string

	// Settings overrides the configured parser settings of the tool.
	Settings *tool.Settings
}

// Result is the outcome of parsing one report.
type Result struct {
	Tool   string
	Path   string
	Issues *issue.Collection
	Stats  tool.Stats

	// Skipped holds one error per malformed record. It is empty for cached
	// results even when Stats.Malformed is not.
	Skipped []*toolerr.Error

	// Labels describes the issues of Tool.
	Labels label.Provider

	// Cached is true when the result was served from the parse cache.
	Cached bool
}

// Engine parses reports of registered tools. It is safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	cache    *cache.Cache
	config   *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *otelMetrics
	jobs     int
	locale   language.Tag
}

// New creates an engine.
//
//	engine := warnings.New(
//		warnings.WithLogger(logger),
//		warnings.WithConfig(cfg),
//	)
//	res, err := engine.Parse(ctx, warnings.Request{Tool: "findbugs", Path: "target/findbugsXml.xml"})
func New(opts ...Option) *Engine {
	c := &engineConfig{}
	for _, opt := range opts {
		opt(c)
	}

	e := &Engine{
		registry: c.registry,
		cache:    c.cache,
		config:   c.config,
		logger:   c.logger,
		tracer:   c.tracer,
		jobs:     c.jobs,
		locale:   c.locale,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if e.registry == nil {
		e.registry = registry.NewRegistry()
		builtin.RegisterAll(e.registry)
	}
	if e.jobs <= 0 {
		e.jobs = e.config.GetJobs()
	}
	if e.locale == language.Und {
		e.locale = e.config.Language()
	}

	metrics, err := newOTelMetrics(c.meter)
	if err != nil {
		e.logger.Warn("metrics disabled", "error", err)
	}
	e.metrics = metrics
	return e
}

// Registry returns the registry the engine looks tools up in.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Jobs returns the ParseAll concurrency bound.
func (e *Engine) Jobs() int {
	return e.jobs
}

// Locale returns the default description language.
func (e *Engine) Locale() language.Tag {
	return e.locale
}

// settings resolves the parser settings of req.
func (e *Engine) settings(req Request) tool.Settings {
	var s tool.Settings
	if req.Settings != nil {
		s = *req.Settings
	} else {
		s = e.config.Settings(req.Tool, nil)
	}
	if s.Logger == nil {
		s.Logger = e.logger
	}
	return s
}

func (e *Engine) charset(req Request) string {
	if req.Charset != "" {
		return req.Charset
	}
	return e.config.Charset(req.Tool)
}

// Parse parses one report.
//
// An unknown tool fails with a NOT_FOUND error and an unreadable or foreign
// report with a PARSE_ERROR. Malformed records do not fail the call; they are
// counted in Result.Stats and listed in Result.Skipped.
func (e *Engine) Parse(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, req)
	defer func() {
		e.record(ctx, span, req, res, err, time.Since(start))
	}()

	var missing []string
	if req.Tool == "" {
		missing = append(missing, "tool")
	}
	if req.Path == "" {
		missing = append(missing, "path")
	}
	if len(missing) > 0 {
		return nil, toolerr.NewValidationError("parse", missing...)
	}

	logger := e.logger.With("tool", req.Tool, "path", req.Path)
	settings := e.settings(req)
	entry, err := e.registry.Entry(req.Tool)
	if err != nil {
		return nil, err
	}
	p, labels, err := entry.Open(settings)
	if err != nil {
		return nil, err
	}
	charset := e.charset(req)

	key := e.cacheKey(req, entry.Generation, settings, charset, logger)
	if key != "" {
		entry, ok, cerr := e.cache.Get(key)
		if cerr != nil {
			logger.Warn("parse cache read failed", "error", cerr)
		}
		if ok {
			cached, cerr := entry.Result()
			if cerr == nil {
				logger.Debug("parse cache hit", "issues", cached.Stats.Issues)
				return e.result(req, cached, labels, true), nil
			}
			logger.Warn("parse cache entry unusable", "error", cerr)
		}
	}

	out, err := p.Parse(ctx, tool.Source{Path: req.Path, Charset: charset}, issue.NewBuilder)
	if err != nil {
		logger.Error("report parsing failed", "error", err)
		return nil, err
	}
	logger.Info("report parsed",
		"records", out.Stats.Records,
		"issues", out.Stats.Issues,
		"malformed", out.Stats.Malformed)

	if key != "" {
		if cerr := e.cache.Put(key, cache.NewEntry(req.Tool, req.Path, out)); cerr != nil {
			logger.Warn("parse cache write failed", "error", cerr)
		}
	}
	return e.result(req, out, labels, false), nil
}

func (e *Engine) result(req Request, out *tool.Result, labels label.Provider, cached bool) *Result {
	return &Result{
		Tool:    req.Tool,
		Path:    req.Path,
		Issues:  out.Issues,
		Stats:   out.Stats,
		Skipped: out.Skipped,
		Labels:  labels,
		Cached:  cached,
	}
}

// cacheKey returns "" when the cache is disabled or the report is unreadable;
// the parser then reports the read error itself.
func (e *Engine) cacheKey(req Request, generation uint64, settings tool.Settings, charset string, logger *slog.Logger) string {
	if e.cache == nil {
		return ""
	}
	var table []byte
	if settings.Priorities != nil {
		var err error
		if table, err = json.Marshal(settings.Priorities); err != nil {
			logger.Warn("parse cache disabled for request", "error", err)
			return ""
		}
	}
	key, err := cache.Key(req.Path, req.Tool, strconv.FormatUint(generation, 10), settings.Mode().String(), charset, string(table))
	if err != nil {
		return ""
	}
	return key
}

// ParseAll parses independent reports concurrently, at most Jobs at a time.
// Results are returned in request order; the slot of a failed request is nil.
// A failure does not cancel the other parses. The returned error joins every
// failure.
func (e *Engine) ParseAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.jobs)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = e.Parse(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Describe returns the description of issue i of toolID in the language
// closest to tag. language.Und selects the engine locale.
func (e *Engine) Describe(toolID string, i issue.Issue, tag language.Tag) (string, error) {
	entry, err := e.registry.Entry(toolID)
	if err != nil {
		return "", err
	}
	if tag == language.Und {
		tag = e.locale
	}
	return entry.Labels().Description(i, tag), nil
}

// Merge returns the issues of all non-nil results as one collection, in
// result order.
func Merge(results ...*Result) *issue.Collection {
	all := issue.NewCollection()
	for _, r := range results {
		if r != nil {
			all.Add(r.Issues.All()...)
		}
	}
	return all
}
