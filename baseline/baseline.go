// Package baseline compares the issues of a build against an earlier one by
// fingerprint. Issues whose fingerprint is in the baseline are outstanding,
// the others are new, and baseline fingerprints no longer reported are fixed.
//
// A baseline file is one of
//
//	["<fingerprint>", ...]
//	{"generatedAt": "...", "fingerprints": ["<fingerprint>", ...]}
//	[{"path": ..., "fingerprint": ...}, ...]   (a JSON issue export)
package baseline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/parser"
)

// Baseline is a set of issue fingerprints.
type Baseline struct {
	GeneratedAt time.Time
	set         map[string]struct{}
}

type file struct {
	GeneratedAt  time.Time `json:"generatedAt"`
	Fingerprints []string  `json:"fingerprints"`
}

// New returns a baseline holding fingerprints.
func New(fingerprints ...string) *Baseline {
	b := &Baseline{set: make(map[string]struct{}, len(fingerprints))}
	for _, fp := range fingerprints {
		if fp != "" {
			b.set[fp] = struct{}{}
		}
	}
	return b
}

// FromCollection returns a baseline of every issue in c.
func FromCollection(c *issue.Collection) *Baseline {
	b := New(c.Fingerprints()...)
	b.GeneratedAt = time.Now().UTC()
	return b
}

// Load reads a baseline file.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes any of the accepted baseline formats.
func Parse(data []byte) (*Baseline, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(), nil
	}

	switch data[0] {
	case '{':
		f, err := parser.ParseJSON[file](data)
		if err != nil {
			return nil, err
		}
		b := New(f.Fingerprints...)
		b.GeneratedAt = f.GeneratedAt
		return b, nil
	case '[':
		if fps, err := parser.ParseJSONArray[string](data); err == nil {
			return New(fps...), nil
		}
		records, err := parser.ParseJSONArray[issue.Record](data)
		if err != nil {
			return nil, err
		}
		b := New()
		for _, r := range records {
			fp := r.Fingerprint
			if fp == "" {
				i, err := issue.FromRecord(r)
				if err != nil {
					return nil, err
				}
				fp = i.Fingerprint()
			}
			b.set[fp] = struct{}{}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unrecognized baseline format")
	}
}

// Len returns the number of fingerprints.
func (b *Baseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.set)
}

// Contains reports whether fp is in the baseline.
func (b *Baseline) Contains(fp string) bool {
	if b == nil {
		return false
	}
	_, ok := b.set[fp]
	return ok
}

// Fingerprints returns the fingerprints in sorted order.
func (b *Baseline) Fingerprints() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.set))
	for fp := range b.set {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

// Write encodes the baseline as an object with sorted fingerprints.
func (b *Baseline) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file{GeneratedAt: b.GeneratedAt, Fingerprints: b.Fingerprints()})
}

// Save writes the baseline to path.
func (b *Baseline) Save(path string) error {
	var buf bytes.Buffer
	if err := b.Write(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Comparison is the result of Compare.
type Comparison struct {
	// New holds issues not in the baseline, in report order.
	New *issue.Collection

	// Outstanding holds issues also present in the baseline, in report order.
	Outstanding *issue.Collection

	// Fixed holds baseline fingerprints no longer reported, sorted.
	Fixed []string
}

// Compare splits current against the baseline. A nil baseline makes every
// issue new.
func Compare(b *Baseline, current *issue.Collection) Comparison {
	cmp := Comparison{New: issue.NewCollection(), Outstanding: issue.NewCollection()}

	seen := make(map[string]struct{}, current.Len())
	for _, i := range current.All() {
		seen[i.Fingerprint()] = struct{}{}
		if b.Contains(i.Fingerprint()) {
			cmp.Outstanding.Add(i)
		} else {
			cmp.New.Add(i)
		}
	}
	for _, fp := range b.Fingerprints() {
		if _, ok := seen[fp]; !ok {
			cmp.Fixed = append(cmp.Fixed, fp)
		}
	}
	return cmp
}
