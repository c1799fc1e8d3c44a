package label

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/parser"
)

//go:embed catalogs
var embedded embed.FS

// BaseLanguage is the language of messages.xml, used when no better match exists.
var BaseLanguage = language.English

// Message is the text for one issue type.
type Message struct {
	Short   string
	Details string
}

type messageCollection struct {
	Patterns []struct {
		Type             string `xml:"type,attr"`
		ShortDescription string `xml:"ShortDescription"`
		Details          string `xml:"Details"`
	} `xml:"BugPattern"`
}

// Catalog holds per-locale issue type messages. It is immutable once loaded.
type Catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages []map[string]Message
}

// LoadCatalog reads messages.xml and any messages_<locale>.xml files from dir.
// messages.xml is required and holds the BaseLanguage texts.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "messages*.xml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	c := &Catalog{}
	base, err := loadMessages(fsys, path.Join(dir, "messages.xml"))
	if err != nil {
		return nil, err
	}
	c.tags = append(c.tags, BaseLanguage)
	c.messages = append(c.messages, base)

	for _, name := range names {
		locale := strings.TrimSuffix(strings.TrimPrefix(path.Base(name), "messages"), ".xml")
		if locale == "" {
			continue
		}
		tag, err := language.Parse(strings.ReplaceAll(strings.TrimPrefix(locale, "_"), "_", "-"))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: bad locale in %s: %w", dir, name, err)
		}
		msgs, err := loadMessages(fsys, name)
		if err != nil {
			return nil, err
		}
		c.tags = append(c.tags, tag)
		c.messages = append(c.messages, msgs)
	}

	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func loadMessages(fsys fs.FS, name string) (map[string]Message, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	coll, err := parser.ParseXML[messageCollection](data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	msgs := make(map[string]Message, len(coll.Patterns))
	for _, p := range coll.Patterns {
		msgs[p.Type] = Message{
			Short:   strings.TrimSpace(p.ShortDescription),
			Details: strings.TrimSpace(p.Details),
		}
	}
	return msgs, nil
}

// Languages returns the locales the catalog has messages for, base first.
func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

// Lookup returns the message for typ in the locale closest to tag. Fields
// missing in that locale are taken from the base language.
func (c *Catalog) Lookup(typ string, tag language.Tag) (Message, bool) {
	base, ok := c.messages[0][typ]

	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No || idx == 0 {
		return base, ok
	}

	local, found := c.messages[idx][typ]
	if !found {
		return base, ok
	}
	if local.Short == "" {
		local.Short = base.Short
	}
	if local.Details == "" {
		local.Details = base.Details
	}
	return local, true
}

type sharedCatalog struct {
	once    sync.Once
	catalog *Catalog
	err     error
}

var shared sync.Map

// SharedCatalog returns the built-in catalog for key, loading it on first use.
// Catalogs are cached for the life of the process.
func SharedCatalog(key string) (*Catalog, error) {
	v, _ := shared.LoadOrStore(key, &sharedCatalog{})
	entry := v.(*sharedCatalog)
	entry.once.Do(func() {
		entry.catalog, entry.err = LoadCatalog(embedded, path.Join("catalogs", key))
	})
	return entry.catalog, entry.err
}
