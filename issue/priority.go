package issue

import "fmt"

// Priority is the normalized severity bucket of an issue, independent of the
// scale used by the originating tool.
type Priority string

const (
	// PriorityError marks issues reported as errors by the tool.
	PriorityError Priority = "error"

	// PriorityHigh marks the most severe warnings.
	PriorityHigh Priority = "high"

	// PriorityNormal is the default bucket, also used for unrecognized tool signals.
	PriorityNormal Priority = "normal"

	// PriorityLow marks minor warnings.
	PriorityLow Priority = "low"
)

// priorityWeights maps priorities to numeric weights for ordering.
// Higher weights indicate more severe issues.
var priorityWeights = map[Priority]int{
	PriorityError:  4,
	PriorityHigh:   3,
	PriorityNormal: 2,
	PriorityLow:    1,
}

// IsValid returns true if the priority is one of the four defined buckets.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityError, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// Weight returns the numeric weight associated with the priority.
// Returns 0 for invalid priorities.
func (p Priority) Weight() int {
	return priorityWeights[p]
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses a string into a Priority value.
// Returns an error if the string is not a valid priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// ComparePriority compares two priorities.
// Returns:
//   - negative if p1 is less severe than p2
//   - zero if p1 == p2
//   - positive if p1 is more severe than p2
func ComparePriority(p1, p2 Priority) int {
	return p1.Weight() - p2.Weight()
}

// AllPriorities returns all valid priorities in order from error to low.
func AllPriorities() []Priority {
	return []Priority{
		PriorityError,
		PriorityHigh,
		PriorityNormal,
		PriorityLow,
	}
}
