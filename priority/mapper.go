package priority

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/warnings/issue"
)

// Mapper is a Table bound to a Mode. It is configured once per adapter and
// is immutable afterwards, so it is safe to share between goroutines.
type Mapper struct {
	mode       Mode
	table      Table
	confidence map[string]issue.Priority
}

// NewMapper validates the table and binds it to mode.
func NewMapper(mode Mode, table Table) (Mapper, error) {
	if !mode.IsValid() {
		return Mapper{}, fmt.Errorf("invalid priority mode: %q", mode)
	}
	if err := table.Validate(); err != nil {
		return Mapper{}, err
	}

	confidence := make(map[string]issue.Priority, len(table.Confidence))
	for k, p := range table.Confidence {
		confidence[normalizeKey(k)] = p
	}
	return Mapper{mode: mode, table: table, confidence: confidence}, nil
}

// Mode returns the configured mode.
func (m Mapper) Mode() Mode {
	return m.mode
}

// Table returns the configured table.
func (m Mapper) Table() Table {
	return m.table
}

// Map converts a raw signal using the configured mode.
func (m Mapper) Map(signal string) issue.Priority {
	if m.mode == ModeConfidence && m.confidence != nil {
		if p, ok := m.confidence[normalizeKey(signal)]; ok {
			return p
		}
		return DefaultPriority
	}
	return Map(signal, m.mode, m.table)
}

// ParseTable decodes a YAML table document and validates it.
//
//	rank:
//	  - {max: 4, priority: high}
//	  - {max: 9, priority: normal}
//	confidence:
//	  "1": high
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("failed to parse priority table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// MustParseTable is like ParseTable but panics on error. It is meant for
// tables embedded in adapter packages.
func MustParseTable(data []byte) Table {
	t, err := ParseTable(data)
	if err != nil {
		panic(err)
	}
	return t
}
