package issue

import (
	"strings"

	"github.com/zero-day-ai/warnings/toolerr"
)

// Builder assembles an Issue field by field. After a successful Build all
// fields return to their defaults, so a single Builder can stamp every
// record of a report without reallocating. A Builder is not safe for
// concurrent use; give each parse invocation its own.
type Builder struct {
	path        string
	lines       LineRange
	columns     ColumnRange
	priority    Priority
	typ         string
	message     string
	category    string
	packageName string
	origin      string
}

// BuilderFactory returns a fresh Builder for one parse invocation.
type BuilderFactory func() *Builder

// NewBuilder returns a Builder with default values.
func NewBuilder() *Builder {
	b := &Builder{}
	b.Reset()
	return b
}

// SetPath sets the affected file. Backslashes are converted to forward slashes.
func (b *Builder) SetPath(path string) *Builder {
	b.path = strings.ReplaceAll(path, `\`, "/")
	return b
}

// SetLineRange sets the affected lines. Negative values are clamped to 0 and
// an end before the start collapses to the start.
func (b *Builder) SetLineRange(start, end int) *Builder {
	start, end = normalizeRange(start, end)
	b.lines = LineRange{Start: start, End: end}
	return b
}

// SetLine sets a single affected line.
func (b *Builder) SetLine(line int) *Builder {
	return b.SetLineRange(line, line)
}

// SetColumnRange sets the affected columns, normalized like SetLineRange.
func (b *Builder) SetColumnRange(start, end int) *Builder {
	start, end = normalizeRange(start, end)
	b.columns = ColumnRange{Start: start, End: end}
	return b
}

// SetType sets the stable type key.
func (b *Builder) SetType(typ string) *Builder {
	b.typ = typ
	return b
}

// SetMessage sets the raw tool message.
func (b *Builder) SetMessage(message string) *Builder {
	b.message = message
	return b
}

// SetPriority sets the normalized priority. Invalid values are ignored and
// the current priority is kept.
func (b *Builder) SetPriority(p Priority) *Builder {
	if p.IsValid() {
		b.priority = p
	}
	return b
}

// SetCategory sets the optional category.
func (b *Builder) SetCategory(category string) *Builder {
	b.category = category
	return b
}

// SetPackageName sets the optional package or namespace.
func (b *Builder) SetPackageName(name string) *Builder {
	b.packageName = name
	return b
}

// SetOrigin sets the ID of the reporting tool.
func (b *Builder) SetOrigin(origin string) *Builder {
	b.origin = origin
	return b
}

// Reset restores every field to its default.
func (b *Builder) Reset() *Builder {
	*b = Builder{priority: PriorityNormal}
	return b
}

// Build seals the current fields into an Issue and resets the builder.
// It fails with a VALIDATION_ERROR naming every missing field when path or
// type is empty; in that case the builder keeps its state.
func (b *Builder) Build() (Issue, error) {
	var missing []string
	if b.path == "" {
		missing = append(missing, "path")
	}
	if b.typ == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return Issue{}, toolerr.NewValidationError("build", missing...)
	}

	i := Issue{
		path:        b.path,
		lines:       b.lines,
		columns:     b.columns,
		priority:    b.priority,
		typ:         b.typ,
		message:     b.message,
		category:    b.category,
		packageName: b.packageName,
		origin:      b.origin,
		fingerprint: Fingerprint(b.typ, b.path, b.lines, b.message),
	}
	b.Reset()
	return i, nil
}

func normalizeRange(start, end int) (int, int) {
	start = max(start, 0)
	end = max(end, 0)
	if end < start {
		end = start
	}
	return start, end
}
