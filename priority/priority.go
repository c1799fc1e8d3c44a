// Package priority maps tool specific severity signals onto the normalized
// issue priorities.
//
// A tool reports severity either as a numeric rank (lower is more severe) or
// as a discrete confidence level. Which signal is used is chosen once per
// adapter through a Mode; the bucket boundaries are data (a Table) supplied
// by each tool, never hard-coded here. Mapping is total: any value the table
// does not cover lands in DefaultPriority.
package priority

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zero-day-ai/warnings/issue"
)

// DefaultPriority is returned for unknown or out-of-range signals.
const DefaultPriority = issue.PriorityNormal

// Mode selects which tool signal drives the priority.
type Mode string

const (
	// ModeConfidence maps a discrete confidence level through a lookup table.
	ModeConfidence Mode = "confidence"

	// ModeRank maps an integer rank through ascending bucket boundaries.
	ModeRank Mode = "rank"
)

// IsValid returns true if the mode is valid.
func (m Mode) IsValid() bool {
	return m == ModeConfidence || m == ModeRank
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a string into a Mode value.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid priority mode: %s", s)
	}
	return m, nil
}

// ModeFromUseRank converts the host's "use rank as priority" switch into a Mode.
func ModeFromUseRank(useRank bool) Mode {
	if useRank {
		return ModeRank
	}
	return ModeConfidence
}

// RankBucket assigns Priority to every rank up to and including Max that is
// above the previous bucket's Max.
type RankBucket struct {
	Max      int            `yaml:"max" toml:"max" json:"max"`
	Priority issue.Priority `yaml:"priority" toml:"priority" json:"priority"`
}

// Table holds the per-tool mapping data for both modes.
type Table struct {
	// Rank lists buckets in ascending Max order. Ranks below 1 or above the
	// last Max are out of range.
	Rank []RankBucket `yaml:"rank" toml:"rank" json:"rank"`

	// Confidence maps a confidence level to a priority. Keys are matched
	// case-insensitively after trimming.
	Confidence map[string]issue.Priority `yaml:"confidence" toml:"confidence" json:"confidence"`
}

// Validate checks that rank buckets are positive and strictly ascending and
// that every priority is valid.
func (t Table) Validate() error {
	prev := 0
	for i, b := range t.Rank {
		if b.Max <= prev {
			return fmt.Errorf("rank bucket %d: max %d must be greater than %d", i, b.Max, prev)
		}
		if !b.Priority.IsValid() {
			return fmt.Errorf("rank bucket %d: invalid priority %q", i, b.Priority)
		}
		prev = b.Max
	}
	keys := make([]string, 0, len(t.Confidence))
	for k := range t.Confidence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		norm := normalizeKey(k)
		if norm == "" {
			return fmt.Errorf("confidence table contains an empty key")
		}
		if prev, ok := seen[norm]; ok {
			return fmt.Errorf("confidence keys %q and %q are the same level", prev, k)
		}
		seen[norm] = k
		if p := t.Confidence[k]; !p.IsValid() {
			return fmt.Errorf("confidence %q: invalid priority %q", k, p)
		}
	}
	return nil
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// MapRank returns the priority bucket for a rank.
func (t Table) MapRank(rank int) issue.Priority {
	if rank < 1 {
		return DefaultPriority
	}
	for _, b := range t.Rank {
		if rank <= b.Max {
			return b.Priority
		}
	}
	return DefaultPriority
}

// MapConfidence returns the priority bucket for a confidence level.
func (t Table) MapConfidence(level string) issue.Priority {
	key := normalizeKey(level)
	if p, ok := t.Confidence[key]; ok {
		return p
	}
	// Unvalidated tables may hold several spellings of one level; the
	// smallest key wins so the result never depends on map order.
	match, p := "", DefaultPriority
	for k, v := range t.Confidence {
		if normalizeKey(k) == key && (match == "" || k < match) {
			match, p = k, v
		}
	}
	return p
}

// Map converts a raw signal into a priority. In rank mode the signal must be
// a decimal integer; anything unparsable maps to DefaultPriority.
func Map(signal string, mode Mode, table Table) issue.Priority {
	switch mode {
	case ModeRank:
		rank, err := strconv.Atoi(strings.TrimSpace(signal))
		if err != nil {
			return DefaultPriority
		}
		return table.MapRank(rank)
	case ModeConfidence:
		return table.MapConfidence(signal)
	default:
		return DefaultPriority
	}
}

// Merge returns t with every non-empty part of override replacing the
// corresponding part of t.
func (t Table) Merge(override *Table) Table {
	if override == nil {
		return t
	}
	out := t
	if len(override.Rank) > 0 {
		out.Rank = override.Rank
	}
	if len(override.Confidence) > 0 {
		out.Confidence = override.Confidence
	}
	return out
}
