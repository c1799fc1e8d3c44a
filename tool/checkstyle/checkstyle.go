// Package checkstyle parses Checkstyle XML reports.
//
// Each file element holds the errors found in one source file:
//
//	<checkstyle version="10.12.0">
//	  <file name="src/main/java/com/example/Foo.java">
//	    <error line="12" column="5" severity="warning" message="'42' is a magic number."
//	           source="com.puppycrawl.tools.checkstyle.checks.coding.MagicNumberCheck"/>
//	  </file>
//	</checkstyle>
//
// Every error element is one record. The type key is the check name without
// its "Check" suffix and the category is the check's package.
package checkstyle

import (
	"context"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/parser"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
)

// ID is the tool identifier of the Checkstyle parser.
const ID = "checkstyle"

//go:embed priorities.yaml
var defaultTableYAML []byte

// DefaultTable returns the built-in severity table.
func DefaultTable() priority.Table {
	return priority.MustParseTable(defaultTableYAML)
}

// Parser reads Checkstyle XML reports.
type Parser struct {
	mapper priority.Mapper
	logger *slog.Logger
}

// New creates a Parser. Severities are always mapped through the confidence
// part of the table; rank settings do not apply to Checkstyle.
func New(priorities *priority.Table, logger *slog.Logger) (*Parser, error) {
	mapper, err := priority.NewMapper(priority.ModeConfidence, DefaultTable().Merge(priorities))
	if err != nil {
		return nil, fmt.Errorf("checkstyle: %w", err)
	}
	return &Parser{mapper: mapper, logger: logger}, nil
}

// NewParser is the tool.Factory for Checkstyle.
func NewParser(s tool.Settings) (tool.Parser, error) {
	return New(s.Priorities, s.LoggerOrDefault())
}

// ID returns the tool identifier.
func (p *Parser) ID() string {
	return ID
}

type file struct {
	Name   string      `xml:"name,attr"`
	Errors []violation `xml:"error"`
}

type violation struct {
	Line     string `xml:"line,attr"`
	Column   string `xml:"column,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

// Parse reads the report at src.
func (p *Parser) Parse(ctx context.Context, src tool.Source, newBuilder issue.BuilderFactory) (*tool.Result, error) {
	session := tool.NewSession(ctx, ID, src, newBuilder, p.logger)

	report, err := parser.OpenReport(src.Path, src.Charset)
	if err != nil {
		return nil, session.Fail(err)
	}
	defer report.Close()

	err = parser.StreamXML(report, "checkstyle", func(d *xml.Decoder, start xml.StartElement) error {
		if start.Name.Local != "file" {
			return d.Skip()
		}

		var f file
		if err := d.DecodeElement(&f, &start); err != nil {
			return err
		}
		for _, v := range f.Errors {
			b, err := session.Begin()
			if err != nil {
				return err
			}
			if err := p.fill(b, f.Name, v); err != nil {
				session.Skip(err)
				continue
			}
			session.Commit()
		}
		return nil
	})
	if err != nil {
		return nil, session.Fail(err)
	}
	return session.Result(), nil
}

func (p *Parser) fill(b *issue.Builder, path string, v violation) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("file has no name")
	}
	line, err := parseNumber(v.Line)
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	column, err := parseNumber(v.Column)
	if err != nil {
		return fmt.Errorf("column: %w", err)
	}

	category, typ := splitSource(v.Source)
	b.SetPath(strings.TrimSpace(path)).
		SetLine(line).
		SetColumnRange(column, column).
		SetType(typ).
		SetCategory(category).
		SetMessage(strings.TrimSpace(v.Message)).
		SetPriority(p.mapper.Map(v.Severity))
	return nil
}

// splitSource turns a check class name into category and type:
// "com.puppycrawl.tools.checkstyle.checks.coding.MagicNumberCheck" is
// ("coding", "MagicNumber").
func splitSource(source string) (category, typ string) {
	parts := strings.Split(strings.TrimSpace(source), ".")
	typ = strings.TrimSuffix(parts[len(parts)-1], "Check")
	if typ == "" {
		typ = parts[len(parts)-1]
	}
	if len(parts) > 1 && parts[len(parts)-2] != "checks" {
		category = parts[len(parts)-2]
	}
	return category, typ
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
