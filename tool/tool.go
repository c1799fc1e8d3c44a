package tool

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Parser is the interface for report parser adapters.
// A Parser reads one report produced by an analysis tool and converts every
// well-formed record into an issue. Implementations hold only configuration,
// so a single Parser may serve concurrent Parse calls as long as each call
// uses its own Builder.
type Parser interface {
	// ID returns the tool identifier the parser is registered under.
	ID() string

	// Parse reads the report described by src and returns the issues it
	// contains. newBuilder supplies the Builder used for this invocation.
	//
	// A report that cannot be read or is not structurally a report of this
	// tool fails with a parse error. Records that are individually unusable
	// are skipped and counted in Result.Stats; they never fail the call.
	Parse(ctx context.Context, src Source, newBuilder issue.BuilderFactory) (*Result, error)
}

// Source describes a report file to parse.
type Source struct {
	// Path of the report file.
	Path string

	// Charset of the report. Empty selects UTF-8.
	Charset string
}

// Stats counts what happened to the records of a report.
type Stats struct {
	Records   int `json:"records" msgpack:"records"`
	Issues    int `json:"issues" msgpack:"issues"`
	Malformed int `json:"malformed" msgpack:"malformed"`
}

// Result is the outcome of a successful Parse.
type Result struct {
	Issues *issue.Collection

	Stats Stats

	// Skipped holds one error per malformed record, in report order.
	Skipped []*toolerr.Error
}

// Settings configures a parser built by a registry factory.
type Settings struct {
	// UseRankAsPriority selects rank based priority mapping for tools that
	// report both a rank and a confidence.
	UseRankAsPriority bool

	// Priorities overrides parts of the tool's default priority table.
	Priorities *priority.Table

	// Logger receives per record diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Mode returns the priority mode selected by s.
func (s Settings) Mode() priority.Mode {
	return priority.ModeFromUseRank(s.UseRankAsPriority)
}

// LoggerOrDefault returns s.Logger, or slog.Default() when unset.
func (s Settings) LoggerOrDefault() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Factory builds a Parser from settings.
type Factory func(Settings) (Parser, error)
