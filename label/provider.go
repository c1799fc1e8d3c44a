package label

import (
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings/issue"
)

// IconPrefix is the path icon refs are resolved against by the host.
const IconPrefix = "/plugin/warnings/icons/"

// Provider supplies display data for the issues of one tool.
type Provider interface {
	// ID returns the tool identifier.
	ID() string

	// Name returns the human readable tool name.
	Name() string

	// Description returns the explanation of the issue's type in the locale
	// closest to tag. It is never empty.
	Description(i issue.Issue, tag language.Tag) string

	// SmallIconRef returns the reference of the 24x24 tool icon.
	SmallIconRef() string

	// LargeIconRef returns the reference of the 48x48 tool icon.
	LargeIconRef() string
}

// Info is the static display data of a tool.
type Info struct {
	ID        string
	Name      string
	SmallIcon string
	LargeIcon string

	// CatalogKey names the built-in message catalog. Empty means the tool
	// has no per-type messages.
	CatalogKey string
}

// DefaultProvider combines Info with a shared message catalog.
type DefaultProvider struct {
	info Info
}

// NewProvider creates a provider for info. Missing names and icons are
// derived from the ID.
func NewProvider(info Info) *DefaultProvider {
	if info.Name == "" {
		info.Name = info.ID
	}
	if info.SmallIcon == "" {
		info.SmallIcon = IconPrefix + info.ID + "-24x24.png"
	}
	if info.LargeIcon == "" {
		info.LargeIcon = IconPrefix + info.ID + "-48x48.png"
	}
	return &DefaultProvider{info: info}
}

func (p *DefaultProvider) ID() string           { return p.info.ID }
func (p *DefaultProvider) Name() string         { return p.info.Name }
func (p *DefaultProvider) SmallIconRef() string { return p.info.SmallIcon }
func (p *DefaultProvider) LargeIconRef() string { return p.info.LargeIcon }

// Info returns the provider's display data.
func (p *DefaultProvider) Info() Info {
	return p.info
}

// Description returns the catalog details for the issue type, else its short
// description, else the type key itself.
func (p *DefaultProvider) Description(i issue.Issue, tag language.Tag) string {
	msg := p.message(i.Type(), tag)
	if msg.Details != "" {
		return msg.Details
	}
	if msg.Short != "" {
		return msg.Short
	}
	return p.fallback(i.Type())
}

// ShortDescription returns the one line summary of the issue type.
func (p *DefaultProvider) ShortDescription(i issue.Issue, tag language.Tag) string {
	if msg := p.message(i.Type(), tag); msg.Short != "" {
		return msg.Short
	}
	return p.fallback(i.Type())
}

func (p *DefaultProvider) message(typ string, tag language.Tag) Message {
	if p.info.CatalogKey == "" || typ == "" {
		return Message{}
	}
	catalog, err := SharedCatalog(p.info.CatalogKey)
	if err != nil {
		slog.Default().Debug("message catalog unavailable", "tool", p.info.ID, "catalog", p.info.CatalogKey, "error", err)
		return Message{}
	}
	msg, _ := catalog.Lookup(typ, tag)
	return msg
}

func (p *DefaultProvider) fallback(typ string) string {
	if typ = strings.TrimSpace(typ); typ != "" {
		return typ
	}
	if p.info.Name != "" {
		return p.info.Name
	}
	return p.info.ID
}
