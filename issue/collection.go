package issue

import (
	"slices"
	"sort"
)

// Collection is an ordered sequence of issues. Insertion order is parse
// order. A Collection belongs to the caller that produced it.
type Collection struct {
	issues []Issue
}

// NewCollection returns a collection holding the given issues in order.
func NewCollection(issues ...Issue) *Collection {
	return &Collection{issues: slices.Clone(issues)}
}

// Add appends issues to the collection.
func (c *Collection) Add(issues ...Issue) {
	c.issues = append(c.issues, issues...)
}

// Len returns the number of issues.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.issues)
}

func (c *Collection) list() []Issue {
	if c == nil {
		return nil
	}
	return c.issues
}

// IsEmpty reports whether the collection holds no issues.
func (c *Collection) IsEmpty() bool {
	return c.Len() == 0
}

// Get returns the issue at index i.
func (c *Collection) Get(i int) Issue {
	return c.issues[i]
}

// All returns a copy of the issues in order.
func (c *Collection) All() []Issue {
	if c == nil {
		return nil
	}
	return slices.Clone(c.issues)
}

// Filter returns a new collection with the issues for which keep returns true,
// preserving order.
func (c *Collection) Filter(keep func(Issue) bool) *Collection {
	out := &Collection{}
	for _, i := range c.list() {
		if keep(i) {
			out.issues = append(out.issues, i)
		}
	}
	return out
}

// Fingerprints returns the fingerprints of all issues in order.
func (c *Collection) Fingerprints() []string {
	fps := make([]string, 0, c.Len())
	for _, i := range c.list() {
		fps = append(fps, i.Fingerprint())
	}
	return fps
}

// CountByPriority returns the number of issues per priority.
func (c *Collection) CountByPriority() map[Priority]int {
	counts := make(map[Priority]int, 4)
	for _, i := range c.list() {
		counts[i.Priority()]++
	}
	return counts
}

// Categories returns the distinct non-empty categories, sorted.
func (c *Collection) Categories() []string {
	seen := make(map[string]struct{})
	for _, i := range c.list() {
		if i.Category() != "" {
			seen[i.Category()] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Records returns the serialized form of all issues in order.
func (c *Collection) Records() []Record {
	out := make([]Record, 0, c.Len())
	for _, i := range c.list() {
		out = append(out, i.Record())
	}
	return out
}

// CollectionFromRecords rebuilds a collection from serialized records.
func CollectionFromRecords(records []Record) (*Collection, error) {
	c := &Collection{issues: make([]Issue, 0, len(records))}
	for _, r := range records {
		i, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		c.issues = append(c.issues, i)
	}
	return c, nil
}
