// Package cache stores parse results on disk, keyed by everything that
// determines them: tool, parser settings, charset and report content.
// Parsing is deterministic, so a hit can stand in for a parse.
//
// Entries are msgpack files under <dir>/v<schema>/<aa>/<key>.mp and are
// written atomically. A corrupt or outdated entry is treated as a miss.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Schema is the current entry format version. Bump it when Entry changes.
const Schema uint16 = 1

// Entry is a cached parse result.
type Entry struct {
	Schema uint16         `msgpack:"schema"`
	Tool   string         `msgpack:"tool"`
	Path   string         `msgpack:"path"`
	Stats  tool.Stats     `msgpack:"stats"`
	Issues []issue.Record `msgpack:"issues"`
}

// NewEntry snapshots a parse result.
func NewEntry(toolID, path string, res *tool.Result) *Entry {
	return &Entry{
		Schema: Schema,
		Tool:   toolID,
		Path:   path,
		Stats:  res.Stats,
		Issues: res.Issues.Records(),
	}
}

// Result rebuilds the parse result. Per record errors are not cached, so
// Skipped is empty even when Stats counts malformed records.
func (e *Entry) Result() (*tool.Result, error) {
	issues, err := issue.CollectionFromRecords(e.Issues)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Issues: issues, Stats: e.Stats}, nil
}

// Cache is a directory of entries. A nil *Cache is a valid, always empty cache.
// Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open creates dir if needed and returns a cache rooted there.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, toolerr.New("", "cache", toolerr.ErrCodeCache, "cannot create cache directory").
			WithPath(dir).
			WithCause(err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key hashes the report at path together with parts (tool ID, settings,
// charset). Two keys are equal only if all inputs are byte-identical.
func Key(path string, parts ...string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	for _, p := range parts {
		// length prefix keeps ("ab","c") and ("a","bc") apart
		fmt.Fprintf(h, "%d:%s\n", len(p), p)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) pathFor(key string) string {
	shard := "00"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(c.dir, fmt.Sprintf("v%d", Schema), shard, key+".mp")
}

// Put writes an entry.
func (c *Cache) Put(key string, entry *Entry) error {
	if c == nil {
		return nil
	}
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return toolerr.New("", "cache", toolerr.ErrCodeCache, fmt.Sprintf("invalid cache key %q", key))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return cacheError(p, err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return cacheError(p, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	entry.Schema = Schema
	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		return cacheError(p, err)
	}
	if err := f.Close(); err != nil {
		return cacheError(p, err)
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return cacheError(p, err)
	}
	committed = true
	return nil
}

// Get reads an entry. A missing, corrupt or outdated entry reports false;
// corrupt entries are removed and returned as a CACHE_ERROR alongside the miss.
func (c *Cache) Get(key string) (*Entry, bool, error) {
	if c == nil || key == "" {
		return nil, false, nil
	}
	c.mu.RLock()
	p := c.pathFor(key)
	data, err := os.ReadFile(p)
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, cacheError(p, err)
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		c.remove(p)
		return nil, false, cacheError(p, err)
	}
	if entry.Schema != Schema {
		c.remove(p)
		return nil, false, nil
	}
	return &entry, true, nil
}

func (c *Cache) remove(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = os.Remove(p)
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return cacheError(c.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "v") {
			if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
				return cacheError(c.dir, err)
			}
		}
	}
	return nil
}

func cacheError(path string, err error) error {
	return toolerr.New("", "cache", toolerr.ErrCodeCache, "cache access failed").WithPath(path).WithCause(err)
}
