package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrBinary is returned by LineParser when the input contains NUL bytes.
var ErrBinary = errors.New("input is not text")

// Pattern is a named regular expression for LineParser.
type Pattern struct {
	Name string
	Expr string
}

// Match is one line matched by a LineParser.
type Match struct {
	// Pattern is the name of the pattern that matched
	Pattern string

	// Line is the full text of the line
	Line string

	// LineNumber is the 1-based position of the line in the input
	LineNumber int

	// Groups holds the named captures of the pattern
	Groups map[string]string
}

// LineParser parses text output line by line with regex patterns.
// Patterns are tried in order and the first match wins, so results are
// deterministic for a given input.
type LineParser struct {
	names    []string
	patterns []*regexp.Regexp
}

// NewLineParser compiles the given patterns.
func NewLineParser(patterns ...Pattern) (*LineParser, error) {
	p := &LineParser{}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern.Name, err)
		}
		p.names = append(p.names, pattern.Name)
		p.patterns = append(p.patterns, re)
	}
	return p, nil
}

// MustLineParser is like NewLineParser but panics if a pattern does not compile.
func MustLineParser(patterns ...Pattern) *LineParser {
	p, err := NewLineParser(patterns...)
	if err != nil {
		panic(err)
	}
	return p
}

// Scan reads r line by line and calls fn for every line matching one of the
// patterns. Lines matching no pattern are skipped. An error returned by fn
// stops the scan and is returned unchanged. A line holding a NUL byte stops
// the scan with ErrBinary.
func (p *LineParser) Scan(r io.Reader, fn func(Match) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.IndexByte(line, 0) >= 0 {
			return fmt.Errorf("line %d: %w", lineNum, ErrBinary)
		}

		for idx, re := range p.patterns {
			match := re.FindStringSubmatch(line)
			if match == nil {
				continue
			}

			groups := make(map[string]string)
			for i, name := range re.SubexpNames() {
				if i > 0 && i < len(match) && name != "" {
					groups[name] = match[i]
				}
			}
			if err := fn(Match{Pattern: p.names[idx], Line: line, LineNumber: lineNum, Groups: groups}); err != nil {
				return err
			}
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading text: %w", err)
	}
	return nil
}

// Parse collects every match of r.
func (p *LineParser) Parse(r io.Reader) ([]Match, error) {
	var results []Match
	err := p.Scan(r, func(m Match) error {
		results = append(results, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
