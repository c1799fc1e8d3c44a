// Package javac parses warnings from javac and maven-compiler-plugin console
// output. Two line formats are recognized:
//
//	[WARNING] /src/main/java/Foo.java:[12,8] [deprecation] bar() in Baz has been deprecated
//	src/main/java/Foo.java:12: warning: [unchecked] unchecked call to add(E)
//
// Lines matching neither format are not records. A bracketed lint key at the
// start of the message becomes the type; otherwise the type is the level.
//
// A clean build log has no matching lines, so a readable text file without
// warnings parses to an empty collection. This includes files that are not
// build logs at all. Binary input (any NUL byte) fails with a parse error.
package javac

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/parser"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
)

// ID is the tool identifier of the javac parser.
const ID = "javac"

// Category is assigned to every javac issue.
const Category = "compiler"

//go:embed priorities.yaml
var defaultTableYAML []byte

// DefaultTable returns the built-in level table.
func DefaultTable() priority.Table {
	return priority.MustParseTable(defaultTableYAML)
}

var lines = parser.MustLineParser(
	parser.Pattern{
		Name: "maven",
		Expr: `^\[(?P<level>WARNING|ERROR)\]\s+(?P<file>.+?):\[(?P<line>[^,\]]*)(?:,(?P<column>[^\]]*))?\]\s*(?P<message>.*)$`,
	},
	parser.Pattern{
		Name: "javac",
		Expr: `^(?P<file>.+?\.java):(?P<line>[^:\s]*):\s*(?P<level>warning|error):\s*(?P<message>.*)$`,
	},
)

var lintKey = regexp.MustCompile(`^\[(?P<key>[\w-]+)\]\s*`)

// Parser reads javac console output.
type Parser struct {
	mapper priority.Mapper
	logger *slog.Logger
}

// New creates a Parser.
func New(priorities *priority.Table, logger *slog.Logger) (*Parser, error) {
	mapper, err := priority.NewMapper(priority.ModeConfidence, DefaultTable().Merge(priorities))
	if err != nil {
		return nil, fmt.Errorf("javac: %w", err)
	}
	return &Parser{mapper: mapper, logger: logger}, nil
}

// NewParser is the tool.Factory for javac.
func NewParser(s tool.Settings) (tool.Parser, error) {
	return New(s.Priorities, s.LoggerOrDefault())
}

// ID returns the tool identifier.
func (p *Parser) ID() string {
	return ID
}

// Parse reads the console log at src.
func (p *Parser) Parse(ctx context.Context, src tool.Source, newBuilder issue.BuilderFactory) (*tool.Result, error) {
	session := tool.NewSession(ctx, ID, src, newBuilder, p.logger)

	report, err := parser.OpenReport(src.Path, src.Charset)
	if err != nil {
		return nil, session.Fail(err)
	}
	defer report.Close()

	err = lines.Scan(report, func(m parser.Match) error {
		b, err := session.Begin()
		if err != nil {
			return err
		}
		if err := p.fill(b, m.Groups); err != nil {
			session.Skip(fmt.Errorf("line %d: %w", m.LineNumber, err))
			return nil
		}
		session.Commit()
		return nil
	})
	if err != nil {
		return nil, session.Fail(err)
	}
	return session.Result(), nil
}

func (p *Parser) fill(b *issue.Builder, groups map[string]string) error {
	line, err := parseNumber(groups["line"])
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	column, err := parseNumber(groups["column"])
	if err != nil {
		return fmt.Errorf("column: %w", err)
	}

	level := strings.ToLower(groups["level"])
	message := strings.TrimSpace(groups["message"])
	typ := level
	if m := lintKey.FindStringSubmatch(message); m != nil {
		typ = m[1]
		message = message[len(m[0]):]
	}

	b.SetPath(strings.TrimSpace(groups["file"])).
		SetLine(line).
		SetColumnRange(column, column).
		SetType(typ).
		SetCategory(Category).
		SetMessage(message).
		SetPriority(p.mapper.Map(level))
	return nil
}

func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	n, err := safecast.Conv[int32](v)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
