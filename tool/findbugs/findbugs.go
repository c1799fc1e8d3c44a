// Package findbugs parses FindBugs and SpotBugs XML reports.
//
// A report is a BugCollection element holding one BugInstance per warning:
//
//	<BugCollection>
//	  <BugInstance type="NP_NULL_ON_SOME_PATH" priority="1" rank="5" category="CORRECTNESS">
//	    <LongMessage>Possible null pointer dereference in Foo.bar()</LongMessage>
//	    <Class classname="com.example.Foo" primary="true">
//	      <SourceLine classname="com.example.Foo" sourcefile="Foo.java" sourcepath="com/example/Foo.java"/>
//	    </Class>
//	    <SourceLine classname="com.example.Foo" start="42" end="42" sourcefile="Foo.java" sourcepath="com/example/Foo.java"/>
//	  </BugInstance>
//	</BugCollection>
//
// BugInstances are decoded one at a time, so memory use does not grow with
// the size of the report. The priority of an issue comes from the priority
// attribute (confidence) or the rank attribute, depending on Options.Mode.
package findbugs

import (
	"context"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/parser"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
)

// ID is the tool identifier of the FindBugs parser.
const ID = "findbugs"

// SpotBugsID is the identifier SpotBugs reports are registered under. SpotBugs
// writes the same format.
const SpotBugsID = "spotbugs"

const rootElement = "BugCollection"

//go:embed priorities.yaml
var defaultTableYAML []byte

// DefaultTable returns the built-in priority table.
func DefaultTable() priority.Table {
	return priority.MustParseTable(defaultTableYAML)
}

// Options configures a Parser.
type Options struct {
	// ID overrides the tool identifier stamped as issue origin. Defaults to ID.
	ID string

	// Mode selects confidence or rank based priorities. Defaults to
	// priority.ModeConfidence.
	Mode priority.Mode

	// Priorities overrides parts of DefaultTable.
	Priorities *priority.Table

	// Logger receives per record diagnostics.
	Logger *slog.Logger
}

// Parser reads FindBugs XML reports. It is immutable after New.
type Parser struct {
	id     string
	mapper priority.Mapper
	logger *slog.Logger
}

// New creates a Parser.
func New(opts Options) (*Parser, error) {
	if opts.ID == "" {
		opts.ID = ID
	}
	if opts.Mode == "" {
		opts.Mode = priority.ModeConfidence
	}
	mapper, err := priority.NewMapper(opts.Mode, DefaultTable().Merge(opts.Priorities))
	if err != nil {
		return nil, fmt.Errorf("findbugs: %w", err)
	}
	return &Parser{id: opts.ID, mapper: mapper, logger: opts.Logger}, nil
}

// Factory returns a tool.Factory building parsers registered under id.
func Factory(id string) tool.Factory {
	return func(s tool.Settings) (tool.Parser, error) {
		return New(Options{
			ID:         id,
			Mode:       s.Mode(),
			Priorities: s.Priorities,
			Logger:     s.LoggerOrDefault(),
		})
	}
}

// ID returns the tool identifier.
func (p *Parser) ID() string {
	return p.id
}

// Mode returns the configured priority mode.
func (p *Parser) Mode() priority.Mode {
	return p.mapper.Mode()
}

// Parse reads the report at src.
func (p *Parser) Parse(ctx context.Context, src tool.Source, newBuilder issue.BuilderFactory) (*tool.Result, error) {
	session := tool.NewSession(ctx, p.id, src, newBuilder, p.logger)

	report, err := parser.OpenReport(src.Path, src.Charset)
	if err != nil {
		return nil, session.Fail(err)
	}
	defer report.Close()

	err = parser.StreamXML(report, rootElement, func(d *xml.Decoder, start xml.StartElement) error {
		if start.Name.Local != "BugInstance" {
			return d.Skip()
		}

		var bug bugInstance
		if err := d.DecodeElement(&bug, &start); err != nil {
			return err
		}

		b, err := session.Begin()
		if err != nil {
			return err
		}
		if err := p.fill(b, &bug); err != nil {
			session.Skip(err)
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

func (p *Parser) fill(b *issue.Builder, bug *bugInstance) error {
	line := bug.primarySourceLine()
	if line == nil {
		return errors.New("no source line")
	}

	file := line.file()
	if file == "" {
		return fmt.Errorf("no source file for class %q", line.ClassName)
	}
	start, err := parseLine(line.Start)
	if err != nil {
		return fmt.Errorf("start line: %w", err)
	}
	end, err := parseLine(line.End)
	if err != nil {
		return fmt.Errorf("end line: %w", err)
	}

	signal := bug.Priority
	if p.mapper.Mode() == priority.ModeRank {
		signal = bug.Rank
	}

	b.SetPath(file).
		SetLineRange(start, end).
		SetType(strings.TrimSpace(bug.Type)).
		SetCategory(strings.TrimSpace(bug.Category)).
		SetPackageName(packageOf(bug.className(line))).
		SetMessage(bug.message()).
		SetPriority(p.mapper.Map(signal))
	return nil
}

type bugInstance struct {
	Type         string       `xml:"type,attr"`
	Priority     string       `xml:"priority,attr"`
	Rank         string       `xml:"rank,attr"`
	Category     string       `xml:"category,attr"`
	ShortMessage string       `xml:"ShortMessage"`
	LongMessage  string       `xml:"LongMessage"`
	Classes      []annotation `xml:"Class"`
	Methods      []annotation `xml:"Method"`
	SourceLines  []sourceLine `xml:"SourceLine"`
}

// annotation is a Class or Method element. Field and other annotations are
// not needed to locate an issue.
type annotation struct {
	ClassName  string      `xml:"classname,attr"`
	Primary    string      `xml:"primary,attr"`
	SourceLine *sourceLine `xml:"SourceLine"`
}

type sourceLine struct {
	ClassName  string `xml:"classname,attr"`
	Start      string `xml:"start,attr"`
	End        string `xml:"end,attr"`
	SourceFile string `xml:"sourcefile,attr"`
	SourcePath string `xml:"sourcepath,attr"`
	Primary    string `xml:"primary,attr"`
}

// primarySourceLine picks the location of the bug: a direct SourceLine
// marked primary, else the first direct SourceLine, else the line of the
// primary Method, else the line of the primary Class.
func (b *bugInstance) primarySourceLine() *sourceLine {
	for i := range b.SourceLines {
		if isTrue(b.SourceLines[i].Primary) {
			return &b.SourceLines[i]
		}
	}
	if len(b.SourceLines) > 0 {
		return &b.SourceLines[0]
	}
	if m := primary(b.Methods); m != nil && m.SourceLine != nil {
		return m.SourceLine
	}
	if c := primary(b.Classes); c != nil && c.SourceLine != nil {
		return c.SourceLine
	}
	return nil
}

func (b *bugInstance) className(line *sourceLine) string {
	if line.ClassName != "" {
		return line.ClassName
	}
	if c := primary(b.Classes); c != nil {
		return c.ClassName
	}
	return ""
}

func (b *bugInstance) message() string {
	if msg := strings.TrimSpace(b.LongMessage); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(b.ShortMessage); msg != "" {
		return msg
	}
	return strings.TrimSpace(b.Type)
}

// file returns the source path relative to the source root. Reports written
// without source directories only carry the file name, in which case the
// package directory is derived from the class name.
func (l *sourceLine) file() string {
	if p := strings.TrimSpace(l.SourcePath); p != "" {
		return p
	}
	name := strings.TrimSpace(l.SourceFile)
	if name == "" {
		return ""
	}
	pkg := packageOf(l.ClassName)
	if pkg == "" {
		return name
	}
	return path.Join(strings.ReplaceAll(pkg, ".", "/"), name)
}

func primary(as []annotation) *annotation {
	for i := range as {
		if isTrue(as[i].Primary) {
			return &as[i]
		}
	}
	if len(as) > 0 {
		return &as[0]
	}
	return nil
}

func isTrue(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

// parseLine converts a line attribute. Absent lines (class level bugs) are 0.
func parseLine(s string) (int, error) {
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
	if n < 0 {
		// FindBugs writes -1 for unknown lines.
		return 0, nil
	}
	return int(n), nil
}

func packageOf(className string) string {
	className = strings.TrimSpace(className)
	if i := strings.LastIndexByte(className, '.'); i > 0 {
		return className[:i]
	}
	return ""
}
