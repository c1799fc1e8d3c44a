package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/label"
)

var priorityColors = map[issue.Priority]*color.Color{
	issue.PriorityError:  color.New(color.FgRed, color.Bold),
	issue.PriorityHigh:   color.New(color.FgRed),
	issue.PriorityNormal: color.New(color.FgYellow),
	issue.PriorityLow:    color.New(color.FgCyan),
}

var locationColor = color.New(color.Bold)

func colorPriority(p issue.Priority) string {
	label := fmt.Sprintf("%-6s", p)
	if c, ok := priorityColors[p]; ok {
		return c.Sprint(label)
	}
	return label
}

// terminalWidth returns the width of w, 0 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// writeIssues writes c as text or in one of the export formats. SARIF rules
// are described by labels in locale.
func writeIssues(w io.Writer, format string, c *issue.Collection, labels label.Provider, locale language.Tag) error {
	var err error
	if format == "text" {
		err = writeText(w, c)
	} else {
		err = issue.Export(w, issue.ExportFormat(format), c, issue.ExportOptions{
			ToolName: labels.Name(),
			Describe: func(i issue.Issue) string { return labels.Description(i, locale) },
		})
	}
	if err != nil {
		return fmt.Errorf("failed to write issues: %w", err)
	}
	return nil
}

// validateFormat accepts text and the export formats.
func validateFormat(format string) error {
	if format == "text" {
		return nil
	}
	_, err := issue.ParseExportFormat(format)
	return err
}

// writeText prints one line per issue followed by a summary. Messages are
// cut to the terminal width.
func writeText(w io.Writer, c *issue.Collection) error {
	width := terminalWidth(w)
	for _, i := range c.All() {
		location := fmt.Sprintf("%s:%d", i.Path(), i.LineStart())
		prefix := fmt.Sprintf("%s %-6s [%s] ", location, i.Priority(), i.Type())
		msg := strings.Join(strings.Fields(i.Message()), " ")
		if width > 0 {
			msg = truncate(msg, width-runewidth.StringWidth(prefix))
		}
		if _, err := fmt.Fprintf(w, "%s %s [%s] %s\n", locationColor.Sprint(location), colorPriority(i.Priority()), i.Type(), msg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, summary(c))
	return err
}

// summary returns e.g. "3 issues (1 high, 2 normal)".
func summary(c *issue.Collection) string {
	n := c.Len()
	noun := "issues"
	if n == 1 {
		noun = "issue"
	}
	if n == 0 {
		return "no issues"
	}
	counts := c.CountByPriority()
	var parts []string
	for _, p := range issue.AllPriorities() {
		if counts[p] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[p], p))
		}
	}
	return fmt.Sprintf("%d %s (%s)", n, noun, strings.Join(parts, ", "))
}

// table writes rows as left-aligned columns, measuring cells by display
// width so wide characters line up. style, when not nil, picks the color of
// a body cell after padding.
func table(w io.Writer, header []string, rows [][]string, style func(col int, cell string) *color.Color) error {
	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	writeRow := func(row []string, body bool) error {
		cells := make([]string, len(row))
		for i, cell := range row {
			padded := cell
			if i < len(row)-1 {
				padded = runewidth.FillRight(cell, widths[i]+2)
			}
			if body && style != nil {
				if c := style(i, cell); c != nil {
					padded = c.Sprint(padded)
				}
			}
			cells[i] = padded
		}
		line := strings.TrimRight(strings.Join(cells, ""), " ")
		if !body {
			line = color.New(color.Bold).Sprint(line)
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}

	if err := writeRow(header, false); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(row, true); err != nil {
			return err
		}
	}
	return nil
}
