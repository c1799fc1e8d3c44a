// Package builtin registers the parsers shipped with this module.
package builtin

import (
	"github.com/zero-day-ai/warnings/label"
	"github.com/zero-day-ai/warnings/registry"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/tool/checkstyle"
	"github.com/zero-day-ai/warnings/tool/findbugs"
	"github.com/zero-day-ai/warnings/tool/javac"
)

type builtinTool struct {
	info    label.Info
	factory tool.Factory
}

var tools = []builtinTool{
	{label.Info{ID: findbugs.ID, Name: "FindBugs", CatalogKey: "findbugs"}, findbugs.Factory(findbugs.ID)},
	{label.Info{ID: findbugs.SpotBugsID, Name: "SpotBugs", CatalogKey: "findbugs"}, findbugs.Factory(findbugs.SpotBugsID)},
	{label.Info{ID: checkstyle.ID, Name: "CheckStyle", CatalogKey: "checkstyle"}, checkstyle.NewParser},
	{label.Info{ID: javac.ID, Name: "Java Compiler", CatalogKey: "javac"}, javac.NewParser},
}

// Entries returns the registry entries of the built-in tools.
func Entries() []registry.Entry {
	entries := make([]registry.Entry, 0, len(tools))
	for _, t := range tools {
		provider := label.NewProvider(t.info)
		entries = append(entries, registry.Entry{
			ID:        t.info.ID,
			NewParser: t.factory,
			NewLabels: func() label.Provider { return provider },
			SmallIcon: provider.SmallIconRef(),
			LargeIcon: provider.LargeIconRef(),
		})
	}
	return entries
}

// RegisterAll registers every built-in tool with r.
func RegisterAll(r *registry.Registry) {
	for _, e := range Entries() {
		r.MustRegister(e)
	}
}
