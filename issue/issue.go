package issue

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// LineRange is an inclusive range of 1-based lines. A zero Start means the
// tool reported no line.
type LineRange struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// ColumnRange is an inclusive range of 1-based columns. The zero value means
// the tool reported no column.
type ColumnRange struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// IsZero reports whether no column information is present.
func (c ColumnRange) IsZero() bool {
	return c.Start == 0 && c.End == 0
}

// Issue is one normalized static-analysis finding. Issues are created by a
// Builder and never change afterwards; all fields are read through accessors.
type Issue struct {
	path        string
	lines       LineRange
	columns     ColumnRange
	priority    Priority
	typ         string
	message     string
	category    string
	packageName string
	origin      string
	fingerprint string
}

// Path returns the affected file path as reported by the tool, with forward slashes.
func (i Issue) Path() string { return i.path }

// Lines returns the affected line range.
func (i Issue) Lines() LineRange { return i.lines }

// LineStart returns the first affected line, 0 if unknown.
func (i Issue) LineStart() int { return i.lines.Start }

// LineEnd returns the last affected line, 0 if unknown.
func (i Issue) LineEnd() int { return i.lines.End }

// Columns returns the affected column range; IsZero reports when it is absent.
func (i Issue) Columns() ColumnRange { return i.columns }

// Priority returns the normalized priority.
func (i Issue) Priority() Priority { return i.priority }

// Type returns the stable type key used for message lookup (e.g. "NP_NULL_ON_SOME_PATH").
func (i Issue) Type() string { return i.typ }

// Message returns the raw message reported by the tool.
func (i Issue) Message() string { return i.message }

// Category returns the tool specific category, empty if none.
func (i Issue) Category() string { return i.category }

// PackageName returns the package or namespace of the affected code, empty if none.
func (i Issue) PackageName() string { return i.packageName }

// Origin returns the ID of the tool that reported the issue.
func (i Issue) Origin() string { return i.origin }

// Fingerprint returns the stable identity hash used to track the issue across builds.
func (i Issue) Fingerprint() string { return i.fingerprint }

// String returns a compact "path:line: [type] message" form.
func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: [%s] %s", i.path, i.lines.Start, i.typ, i.message)
}

// Record is the serialized form of an Issue, used for JSON export, the parse
// cache and queue results.
type Record struct {
	Path        string      `json:"path" msgpack:"path"`
	Lines       LineRange   `json:"lines" msgpack:"lines"`
	Columns     ColumnRange `json:"columns" msgpack:"columns"`
	Priority    Priority    `json:"priority" msgpack:"priority"`
	Type        string      `json:"type" msgpack:"type"`
	Message     string      `json:"message" msgpack:"message"`
	Category    string      `json:"category,omitempty" msgpack:"category,omitempty"`
	PackageName string      `json:"package,omitempty" msgpack:"package,omitempty"`
	Origin      string      `json:"origin,omitempty" msgpack:"origin,omitempty"`
	Fingerprint string      `json:"fingerprint" msgpack:"fingerprint"`
}

// Record returns the serialized form of the issue.
func (i Issue) Record() Record {
	return Record{
		Path:        i.path,
		Lines:       i.lines,
		Columns:     i.columns,
		Priority:    i.priority,
		Type:        i.typ,
		Message:     i.message,
		Category:    i.category,
		PackageName: i.packageName,
		Origin:      i.origin,
		Fingerprint: i.fingerprint,
	}
}

// FromRecord rebuilds an Issue from its serialized form. The fingerprint is
// recomputed, so a tampered record cannot smuggle in a foreign identity.
func FromRecord(r Record) (Issue, error) {
	b := NewBuilder().
		SetPath(r.Path).
		SetLineRange(r.Lines.Start, r.Lines.End).
		SetColumnRange(r.Columns.Start, r.Columns.End).
		SetType(r.Type).
		SetMessage(r.Message).
		SetCategory(r.Category).
		SetPackageName(r.PackageName).
		SetOrigin(r.Origin)
	if r.Priority != "" {
		if !r.Priority.IsValid() {
			return Issue{}, fmt.Errorf("invalid priority: %s", r.Priority)
		}
		b.SetPriority(r.Priority)
	}
	return b.Build()
}

// MarshalJSON encodes the issue as its Record.
func (i Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Record())
}

// UnmarshalJSON decodes a Record and validates it through a Builder.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := FromRecord(r)
	if err != nil {
		return err
	}
	*i = decoded
	return nil
}

// Fingerprint computes the stable identity hash of an issue from its type,
// location and message. Whitespace in the message is collapsed so that
// reformatted tool output keeps the same identity.
func Fingerprint(typ, path string, lines LineRange, message string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s", typ, path, lines.Start, lines.End, strings.Join(strings.Fields(message), " "))
	return hex.EncodeToString(h.Sum(nil))
}
