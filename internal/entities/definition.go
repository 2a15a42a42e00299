package entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

// Column is one tabular column of an entity list.
type Column struct {
	Key   string
	Title string
	Width int
}

// Definition carries everything that differs between entity types. Gateway,
// synchronizer, dialog and exports are all parametrized by it.
type Definition struct {
	Name  string
	Label string
	// Routes are client-facing prefixes mounted under /api.
	Routes []string

	ListPath string
	// CreatePath receives POSTs; it defaults to ListPath.
	CreatePath string
	ItemPath   string
	SelectPath string
	// IDField is the backend name of the identifier, mapped to canonical "id".
	IDField string
	// PageBase is the backend's first page number (0 or 1).
	PageBase  int
	SizeParam string
	// Filters are extra list filters forwarded verbatim.
	Filters     []string
	DefaultSort string
	Columns     []Column

	// Form returns a pointer to a fresh schema struct.
	Form func() any
	// Translate renames client-facing fields on the write path.
	Translate func(map[string]any) map[string]any
	// Seed builds a draft from a record; nil copies the form fields.
	Seed func(domain.Record) map[string]any
	// Actions maps a PATCH action name to its backend suffix.
	Actions map[string]string
}

// ItemURL returns the backend path of one record.
func (d Definition) ItemURL(id string) string {
	return strings.TrimRight(d.ItemPath, "/") + "/" + id
}

// BackendPage converts a 0-based page index to the backend's numbering.
func (d Definition) BackendPage(pageIndex int) int {
	if pageIndex < 0 {
		pageIndex = 0
	}
	return pageIndex + d.PageBase
}

// HasFilter reports whether name is an accepted list filter.
func (d Definition) HasFilter(name string) bool {
	for _, f := range d.Filters {
		if f == name {
			return true
		}
	}
	return false
}

var registry = map[string]Definition{}

// Register adds def to the registry. It panics on duplicates.
func Register(def Definition) {
	if _, ok := registry[def.Name]; ok {
		panic(fmt.Sprintf("entities: duplicate definition %q", def.Name))
	}
	if def.SizeParam == "" {
		def.SizeParam = "limit"
	}
	if def.ItemPath == "" {
		def.ItemPath = def.ListPath
	}
	if def.CreatePath == "" {
		def.CreatePath = def.ListPath
	}
	registry[def.Name] = def
}

// Lookup returns the definition registered under name.
func Lookup(name string) (Definition, bool) {
	def, ok := registry[name]
	return def, ok
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Definition {
	def, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("entities: unknown entity %q", name))
	}
	return def
}

// All returns every definition sorted by name.
func All() []Definition {
	out := make([]Definition, 0, len(registry))
	for _, def := range registry {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
