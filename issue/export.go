package issue

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ExportFormat represents the format for exporting issues.
type ExportFormat string

const (
	// FormatJSON exports issues as a JSON array of records.
	FormatJSON ExportFormat = "json"

	// FormatSARIF exports issues in SARIF 2.1.0 (Static Analysis Results Interchange Format).
	FormatSARIF ExportFormat = "sarif"

	// FormatCSV exports issues as comma-separated values.
	FormatCSV ExportFormat = "csv"
)

// IsValid returns true if the export format is valid.
func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatSARIF, FormatCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation of the export format.
func (f ExportFormat) String() string {
	return string(f)
}

// FileExtension returns the file extension for the export format.
func (f ExportFormat) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatSARIF:
		return ".sarif"
	case FormatCSV:
		return ".csv"
	default:
		return ""
	}
}

// MimeType returns the MIME type for the export format.
func (f ExportFormat) MimeType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatSARIF:
		return "application/sarif+json"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// ParseExportFormat parses a string into an ExportFormat value.
// Returns an error if the string is not a valid export format.
func ParseExportFormat(s string) (ExportFormat, error) {
	format := ExportFormat(s)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid export format: %s", s)
	}
	return format, nil
}

// AllExportFormats returns all valid export formats.
func AllExportFormats() []ExportFormat {
	return []ExportFormat{
		FormatJSON,
		FormatSARIF,
		FormatCSV,
	}
}

// ExportOptions carries the context an exporter needs beyond the issues.
type ExportOptions struct {
	// ToolName names the SARIF driver; defaults to the origin of the first issue.
	ToolName string

	// ToolVersion is written to the SARIF driver when set.
	ToolVersion string

	// Describe returns the human-readable description of an issue type.
	// When nil, SARIF rules carry no description.
	Describe func(Issue) string
}

// Export writes the collection to w in the given format.
func Export(w io.Writer, format ExportFormat, c *Collection, opts ExportOptions) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c.Records())
	case FormatSARIF:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toSARIF(c, opts))
	case FormatCSV:
		return writeCSV(w, c)
	default:
		return fmt.Errorf("invalid export format: %s", format)
	}
}

var csvHeader = []string{"path", "line_start", "line_end", "column_start", "column_end", "priority", "type", "category", "package", "origin", "message", "fingerprint"}

func writeCSV(w io.Writer, c *Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, i := range c.issues {
		row := []string{
			i.path,
			strconv.Itoa(i.lines.Start),
			strconv.Itoa(i.lines.End),
			strconv.Itoa(i.columns.Start),
			strconv.Itoa(i.columns.End),
			i.priority.String(),
			i.typ,
			i.category,
			i.packageName,
			i.origin,
			i.message,
			i.fingerprint,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SARIF 2.1.0 subset.
type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string        `json:"id"`
	ShortDescription *sarifMessage `json:"shortDescription,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	EndLine     int `json:"endLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

func toSARIF(c *Collection, opts ExportOptions) sarifLog {
	name := opts.ToolName
	if name == "" && c.Len() > 0 {
		name = c.issues[0].origin
	}

	rules := make(map[string]sarifRule)
	results := make([]sarifResult, 0, c.Len())
	for _, i := range c.issues {
		if _, ok := rules[i.typ]; !ok {
			rule := sarifRule{ID: i.typ}
			if opts.Describe != nil {
				if d := strings.TrimSpace(opts.Describe(i)); d != "" {
					rule.ShortDescription = &sarifMessage{Text: d}
				}
			}
			rules[i.typ] = rule
		}

		loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: strings.TrimPrefix(i.path, "./")}}
		if i.lines.Start > 0 {
			loc.Region = &sarifRegion{
				StartLine:   i.lines.Start,
				EndLine:     i.lines.End,
				StartColumn: i.columns.Start,
				EndColumn:   i.columns.End,
			}
		}

		results = append(results, sarifResult{
			RuleID:              i.typ,
			Level:               sarifLevel(i.priority),
			Message:             sarifMessage{Text: strings.TrimSpace(i.message)},
			Locations:           []sarifLocation{{PhysicalLocation: loc}},
			PartialFingerprints: map[string]string{"warnings/v1": i.fingerprint},
		})
	}

	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	driver := sarifDriver{Name: name, Version: opts.ToolVersion}
	for _, id := range ids {
		driver.Rules = append(driver.Rules, rules[id])
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs:    []sarifRun{{Tool: sarifTool{Driver: driver}, Results: results}},
	}
}

func sarifLevel(p Priority) string {
	switch p {
	case PriorityError, PriorityHigh:
		return "error"
	case PriorityNormal:
		return "warning"
	default:
		return "note"
	}
}
