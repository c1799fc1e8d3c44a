// Package registry maps tool identifiers to parser and label factories.
//
// A Registry is filled once at startup (see package builtin) and read on every
// parse. Writers copy the current table and swap it in atomically, so lookups
// never take a lock and always see a complete table. When the same ID is
// registered twice, the last registration wins.
//
//	r := registry.NewRegistry()
//	builtin.RegisterAll(r)
//
//	parser, labels, err := r.Lookup("findbugs", tool.Settings{UseRankAsPriority: true})
//	if toolerr.IsNotFound(err) {
//	    // unknown tool, no substitute is returned
//	}
package registry

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zero-day-ai/warnings/label"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Entry describes a supported tool.
type Entry struct {
	// ID is the unique tool identifier, e.g. "findbugs".
	ID string

	// NewParser builds a parser for the given settings.
	NewParser tool.Factory

	// NewLabels builds the tool's label provider. Nil derives a provider from
	// ID and the icon refs below.
	NewLabels func() label.Provider

	// SmallIcon and LargeIcon are icon refs used when NewLabels is nil.
	SmallIcon string
	LargeIcon string

	// Generation is set by Register and grows with every registration in
	// the registry. Results cached for one generation of an ID must not be
	// served for another.
	Generation uint64
}

// Open builds the entry's parser for settings along with its label provider.
func (e Entry) Open(settings tool.Settings) (tool.Parser, label.Provider, error) {
	p, err := e.NewParser(settings)
	if err != nil {
		return nil, nil, toolerr.New(e.ID, "lookup", toolerr.ErrCodeConfig, "invalid parser settings").WithCause(err)
	}
	return p, e.Labels(), nil
}

// Labels returns the entry's label provider.
func (e Entry) Labels() label.Provider {
	if e.NewLabels != nil {
		return e.NewLabels()
	}
	return label.NewProvider(label.Info{ID: e.ID, SmallIcon: e.SmallIcon, LargeIcon: e.LargeIcon})
}

// Registry is a concurrency safe set of tool entries.
type Registry struct {
	mu      sync.Mutex // serializes writers
	gen     uint64     // guarded by mu
	entries atomic.Pointer[map[string]Entry]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]Entry{}
	r.entries.Store(&empty)
	return r
}

// Default is the process wide registry used by the engine and the CLI.
var Default = NewRegistry()

func (r *Registry) load() map[string]Entry {
	return *r.entries.Load()
}

// update applies fn to a copy of the table and publishes the copy.
func (r *Registry) update(fn func(map[string]Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	next := make(map[string]Entry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	fn(next)
	r.entries.Store(&next)
}

// Register adds or replaces the entry for e.ID.
func (r *Registry) Register(e Entry) error {
	e.ID = strings.TrimSpace(e.ID)
	var missing []string
	if e.ID == "" {
		missing = append(missing, "id")
	}
	if e.NewParser == nil {
		missing = append(missing, "parser factory")
	}
	if len(missing) > 0 {
		return toolerr.NewValidationError("register", missing...)
	}

	r.update(func(m map[string]Entry) {
		r.gen++
		e.Generation = r.gen
		m[e.ID] = e
	})
	return nil
}

// MustRegister is like Register but panics on an invalid entry.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Unregister removes the entry for id. It reports whether an entry existed.
func (r *Registry) Unregister(id string) bool {
	existed := false
	r.update(func(m map[string]Entry) {
		_, existed = m[id]
		delete(m, id)
	})
	return existed
}

// Entry returns the entry registered under id.
func (r *Registry) Entry(id string) (Entry, error) {
	e, ok := r.load()[id]
	if !ok {
		return Entry{}, toolerr.NewNotFoundError(id)
	}
	return e, nil
}

// Lookup builds the parser and label provider for id.
func (r *Registry) Lookup(id string, settings tool.Settings) (tool.Parser, label.Provider, error) {
	e, err := r.Entry(id)
	if err != nil {
		return nil, nil, err
	}
	return e.Open(settings)
}

// IDs returns the registered tool IDs in sorted order.
func (r *Registry) IDs() []string {
	return sortedIDs(r.load())
}

func sortedIDs(m map[string]Entry) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns all entries sorted by ID.
func (r *Registry) Entries() []Entry {
	m := r.load()
	out := make([]Entry, 0, len(m))
	for _, id := range sortedIDs(m) {
		out = append(out, m[id])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.load())
}
