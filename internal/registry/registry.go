// Package registry maps (entity kind, name) pairs to stable identifiers so
// synthetic records referencing "the same" location, artist, or application
// stay consistent across one session. A registry is an explicit object passed
// into collectors; each test run can build its own.
package registry

import (
	"sort"

	"github.com/tracesearch/trace-ablate/internal/pkg/identity"
)

// Entity kinds used by the collectors.
const (
	KindLocation    = "location"
	KindArtist      = "artist"
	KindApplication = "application"
	KindDevice      = "device"
	KindFileType    = "file_type"
	KindPlatform    = "platform"
)

// Registry is an in-process entity registry. Not safe for concurrent use;
// its lifetime is one run session.
type Registry struct {
	entities map[string]map[string]string // kind -> name -> id
}

// New creates a registry seeded with the default vocabulary so early queries
// have something to reference.
func New() *Registry {
	r := &Registry{entities: make(map[string]map[string]string)}
	r.seedDefaults()
	return r
}

// NewEmpty creates a registry with no seeded vocabulary.
func NewEmpty() *Registry {
	return &Registry{entities: make(map[string]map[string]string)}
}

// Register returns the identifier for (kind, name), deriving and caching a
// new one on first registration. Idempotent.
func (r *Registry) Register(kind, name string) string {
	byName, ok := r.entities[kind]
	if !ok {
		byName = make(map[string]string)
		r.entities[kind] = byName
	}

	if id, ok := byName[name]; ok {
		return id
	}

	id := identity.Derive("entity:" + kind + ":" + name)
	byName[name] = id
	return id
}

// Lookup returns the identifier registered for (kind, name), if any.
func (r *Registry) Lookup(kind, name string) (string, bool) {
	id, ok := r.entities[kind][name]
	return id, ok
}

// List returns a copy of the name-to-identifier mapping for a kind.
func (r *Registry) List(kind string) map[string]string {
	out := make(map[string]string, len(r.entities[kind]))
	for name, id := range r.entities[kind] {
		out[name] = id
	}
	return out
}

// Names returns the sorted names registered under a kind.
func (r *Registry) Names(kind string) []string {
	names := make([]string, 0, len(r.entities[kind]))
	for name := range r.entities[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) seedDefaults() {
	defaults := map[string][]string{
		KindLocation: {
			"Home", "Office", "Gym", "Coffee Shop", "Library", "Airport",
		},
		KindArtist: {
			"Radiohead", "Miles Davis", "Daft Punk", "Nina Simone", "Aphex Twin",
		},
		KindApplication: {
			"VSCode", "Chrome", "Slack", "Terminal", "Figma", "Spotify",
		},
		KindDevice: {
			"iPhone", "MacBook Pro", "iPad", "Pixel",
		},
		KindFileType: {
			"pdf", "docx", "xlsx", "png", "jpg", "md", "csv",
		},
		KindPlatform: {
			"Slack", "Zoom", "Teams", "Email",
		},
	}

	for kind, names := range defaults {
		for _, name := range names {
			r.Register(kind, name)
		}
	}
}
