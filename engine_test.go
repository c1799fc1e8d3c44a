package warnings

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/cache"
	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/registry"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

const findbugsReport = `<?xml version="1.0" encoding="UTF-8"?>
<BugCollection version="4.8.3">
  <BugInstance type="NP_NULL_ON_SOME_PATH" priority="1" rank="6" category="CORRECTNESS">
    <LongMessage>Possible null pointer dereference in a.B.run()</LongMessage>
    <SourceLine classname="a.B" start="12" end="12" sourcefile="B.java" sourcepath="a/B.java" primary="true"/>
  </BugInstance>
  <BugInstance type="SE_BAD_FIELD" priority="2" rank="14" category="BAD_PRACTICE">
    <SourceLine classname="a.C" start="4" end="9" sourcefile="C.java" sourcepath="a/C.java"/>
  </BugInstance>
  <BugInstance priority="2">
    <SourceLine classname="a.D" start="1" end="1" sourcefile="D.java" sourcepath="a/D.java"/>
  </BugInstance>
</BugCollection>
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEngine_Parse(t *testing.T) {
	e := New(WithLogger(quietLogger()))
	path := writeReport(t, "findbugs.xml", findbugsReport)

	res, err := e.Parse(context.Background(), Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)

	assert.Equal(t, "findbugs", res.Tool)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, tool.Stats{Records: 3, Issues: 2, Malformed: 1}, res.Stats)
	require.Len(t, res.Skipped, 1)
	assert.True(t, toolerr.IsMalformedRecord(res.Skipped[0]))
	assert.False(t, res.Cached)

	require.Equal(t, 2, res.Issues.Len())
	assert.Equal(t, issue.PriorityHigh, res.Issues.Get(0).Priority())
	assert.Equal(t, issue.PriorityNormal, res.Issues.Get(1).Priority())
	assert.Equal(t, "FindBugs", res.Labels.Name())
}

func TestEngine_Parse_Errors(t *testing.T) {
	e := New(WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := e.Parse(ctx, Request{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "tool")
	assert.Contains(t, err.Error(), "path")

	_, err = e.Parse(ctx, Request{Tool: "pmd", Path: "pmd.xml"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Parse(ctx, Request{Tool: "findbugs", Path: filepath.Join(t.TempDir(), "missing.xml")})
	assert.ErrorIs(t, err, ErrParse)

	_, err = e.Parse(ctx, Request{Tool: "findbugs", Path: writeReport(t, "bad.xml", "<checkstyle/>")})
	assert.ErrorIs(t, err, ErrParse)
}

func TestEngine_Settings(t *testing.T) {
	path := writeReport(t, "findbugs.xml", findbugsReport)
	ctx := context.Background()

	cfg := &config.Config{Tools: []config.ToolConfig{{ID: "findbugs", UseRankAsPriority: true}}}
	e := New(WithLogger(quietLogger()), WithConfig(cfg))

	res, err := e.Parse(ctx, Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	assert.Equal(t, issue.PriorityNormal, res.Issues.Get(0).Priority(), "rank 6 from config")
	assert.Equal(t, issue.PriorityLow, res.Issues.Get(1).Priority(), "rank 14 from config")

	res, err = e.Parse(ctx, Request{Tool: "findbugs", Path: path, Settings: &tool.Settings{}})
	require.NoError(t, err)
	assert.Equal(t, issue.PriorityHigh, res.Issues.Get(0).Priority(), "request settings win")

	override := &tool.Settings{Priorities: &priority.Table{Confidence: map[string]issue.Priority{"1": issue.PriorityError}}}
	res, err = e.Parse(ctx, Request{Tool: "findbugs", Path: path, Settings: override})
	require.NoError(t, err)
	assert.Equal(t, issue.PriorityError, res.Issues.Get(0).Priority())
}

func TestEngine_Charset(t *testing.T) {
	report := "<BugCollection>\n  <BugInstance type=\"X\" priority=\"1\">\n" +
		"    <LongMessage>Gr\xfc\xdfe</LongMessage>\n" +
		"    <SourceLine classname=\"a.B\" start=\"1\" sourcefile=\"B.java\" sourcepath=\"a/B.java\"/>\n" +
		"  </BugInstance>\n</BugCollection>\n"
	path := writeReport(t, "latin1.xml", report)

	cfg := &config.Config{Tools: []config.ToolConfig{{ID: "findbugs", Charset: "ISO-8859-1"}}}
	e := New(WithLogger(quietLogger()), WithConfig(cfg))

	res, err := e.Parse(context.Background(), Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, res.Issues.Len())
	assert.Equal(t, "Grüße", res.Issues.Get(0).Message())
}

func TestEngine_Cache(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	e := New(WithLogger(quietLogger()), WithCache(c))
	path := writeReport(t, "findbugs.xml", findbugsReport)
	ctx := context.Background()

	first, err := e.Parse(ctx, Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Parse(ctx, Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Issues.All(), second.Issues.All())
	assert.Equal(t, first.Stats, second.Stats)
	assert.Empty(t, second.Skipped)

	rank, err := e.Parse(ctx, Request{Tool: "findbugs", Path: path, Settings: &tool.Settings{UseRankAsPriority: true}})
	require.NoError(t, err)
	assert.False(t, rank.Cached, "settings are part of the key")

	require.NoError(t, os.WriteFile(path, []byte("<BugCollection/>"), 0o644))
	changed, err := e.Parse(ctx, Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	assert.False(t, changed.Cached, "content is part of the key")
	assert.Zero(t, changed.Issues.Len())
}

func TestEngine_ParseAll(t *testing.T) {
	e := New(WithLogger(quietLogger()), WithJobs(2))
	good := writeReport(t, "findbugs.xml", findbugsReport)
	empty := writeReport(t, "empty.xml", "<BugCollection/>")

	reqs := []Request{
		{Tool: "findbugs", Path: good},
		{Tool: "pmd", Path: good},
		{Tool: "spotbugs", Path: empty},
		{Tool: "findbugs", Path: filepath.Join(t.TempDir(), "missing.xml")},
	}
	results, err := e.ParseAll(context.Background(), reqs)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrParse)

	require.Len(t, results, 4)
	require.NotNil(t, results[0])
	assert.Equal(t, 2, results[0].Issues.Len())
	assert.Nil(t, results[1])
	require.NotNil(t, results[2])
	assert.Equal(t, "spotbugs", results[2].Tool)
	assert.Zero(t, results[2].Issues.Len())
	assert.Nil(t, results[3])

	assert.Equal(t, 2, Merge(results...).Len())
}

func TestEngine_ParseAll_Empty(t *testing.T) {
	results, err := New(WithLogger(quietLogger())).ParseAll(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

// countingParser records the number of concurrent Parse calls.
type countingParser struct {
	active, peak *atomic.Int32
	release      chan struct{}
}

func (p countingParser) ID() string { return "slow" }

func (p countingParser) Parse(ctx context.Context, src tool.Source, newBuilder issue.BuilderFactory) (*tool.Result, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	<-p.release
	return &tool.Result{Issues: issue.NewCollection()}, nil
}

func TestEngine_ParseAll_Bounded(t *testing.T) {
	var active, peak atomic.Int32
	release := make(chan struct{})
	r := registry.NewRegistry()
	r.MustRegister(registry.Entry{ID: "slow", NewParser: func(tool.Settings) (tool.Parser, error) {
		return countingParser{active: &active, peak: &peak, release: release}, nil
	}})

	e := New(WithLogger(quietLogger()), WithRegistry(r), WithJobs(2))
	reqs := make([]Request, 6)
	for i := range reqs {
		reqs[i] = Request{Tool: "slow", Path: "report"}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.ParseAll(context.Background(), reqs)
		assert.NoError(t, err)
	}()
	close(release)
	<-done

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEngine_Describe(t *testing.T) {
	e := New(WithLogger(quietLogger()), WithLocale(language.German))
	i, err := issue.NewBuilder().SetPath("a/B.java").SetType("NP_NULL_ON_SOME_PATH").Build()
	require.NoError(t, err)

	de, err := e.Describe("findbugs", i, language.Und)
	require.NoError(t, err)
	assert.Contains(t, de, "Nullwert")

	en, err := e.Describe("spotbugs", i, language.English)
	require.NoError(t, err)
	assert.Contains(t, en, "NullPointerException")

	unknown, err := issue.NewBuilder().SetPath("a/B.java").SetType("NOT_A_PATTERN").Build()
	require.NoError(t, err)
	fallback, err := e.Describe("findbugs", unknown, language.English)
	require.NoError(t, err)
	assert.NotEmpty(t, fallback)

	_, err = e.Describe("pmd", i, language.English)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_Defaults(t *testing.T) {
	e := New()
	assert.NotNil(t, e.Logger())
	assert.Equal(t, 4, e.Jobs())
	assert.Equal(t, language.English, e.Locale())
	assert.Equal(t, []string{"checkstyle", "findbugs", "javac", "spotbugs"}, e.Registry().IDs())

	cfg := &config.Config{Jobs: 7, Locale: "ja"}
	e = New(WithConfig(cfg))
	assert.Equal(t, 7, e.Jobs())
	assert.Equal(t, language.Japanese, e.Locale())

	e = New(WithConfig(cfg), WithJobs(1), WithLocale(language.German))
	assert.Equal(t, 1, e.Jobs())
	assert.Equal(t, language.German, e.Locale())
}

func TestEngine_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := New(
		WithLogger(quietLogger()),
		WithTracer(tp.Tracer("test")),
		WithMeter(noop.NewMeterProvider().Meter("test")),
	)
	path := writeReport(t, "findbugs.xml", findbugsReport)

	_, err := e.Parse(context.Background(), Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	_, err = e.Parse(context.Background(), Request{Tool: "pmd", Path: path})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "warnings.parse", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	attrs := map[string]any{}
	for _, kv := range ok.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "findbugs", attrs["warnings.tool"])
	assert.Equal(t, int64(2), attrs["warnings.issues"])
	assert.Equal(t, int64(1), attrs["warnings.malformed"])

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.NotEmpty(t, failed.Events(), "error is recorded as an event")
}

func TestEngine_Logging(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	path := writeReport(t, "findbugs.xml", findbugsReport)

	_, err := e.Parse(context.Background(), Request{Tool: "findbugs", Path: path})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"report parsed"`)
	assert.Contains(t, buf.String(), `"tool":"findbugs"`)
	assert.Contains(t, buf.String(), `"malformed":1`)
}

func TestEngine_Cancelled(t *testing.T) {
	e := New(WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Parse(ctx, Request{Tool: "findbugs", Path: writeReport(t, "findbugs.xml", findbugsReport)})
	assert.True(t, errors.Is(err, context.Canceled))
}

type fixedParser struct{ typ string }

func (p fixedParser) ID() string { return "lint" }

func (p fixedParser) Parse(_ context.Context, src tool.Source, newBuilder issue.BuilderFactory) (*tool.Result, error) {
	i, err := newBuilder().SetPath(src.Path).SetType(p.typ).Build()
	if err != nil {
		return nil, err
	}
	return &tool.Result{Issues: issue.NewCollection(i), Stats: tool.Stats{Records: 1, Issues: 1}}, nil
}

func TestEngine_Cache_Reregister(t *testing.T) {
	register := func(r *registry.Registry, typ string) {
		r.MustRegister(registry.Entry{ID: "lint", NewParser: func(tool.Settings) (tool.Parser, error) {
			return fixedParser{typ: typ}, nil
		}})
	}
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	r := registry.NewRegistry()
	register(r, "FIRST")
	e := New(WithLogger(quietLogger()), WithRegistry(r), WithCache(c))
	path := writeReport(t, "lint.log", "report")
	ctx := context.Background()

	_, err = e.Parse(ctx, Request{Tool: "lint", Path: path})
	require.NoError(t, err)
	cached, err := e.Parse(ctx, Request{Tool: "lint", Path: path})
	require.NoError(t, err)
	assert.True(t, cached.Cached)

	register(r, "SECOND")
	res, err := e.Parse(ctx, Request{Tool: "lint", Path: path})
	require.NoError(t, err)
	assert.False(t, res.Cached, "a new registration is not served old results")
	require.Equal(t, 1, res.Issues.Len())
	assert.Equal(t, "SECOND", res.Issues.Get(0).Type())
}
