// Package activity defines the activity domains under ablation test and the
// naming conventions that tie collections, truth records, and collectors
// together.
package activity

import (
	"fmt"
	"strings"
)

// Kind identifies one activity domain.
type Kind string

// The six activity kinds.
const (
	Location      Kind = "Location"
	Music         Kind = "Music"
	Task          Kind = "Task"
	Media         Kind = "Media"
	Storage       Kind = "Storage"
	Collaboration Kind = "Collaboration"
)

// CollectionPrefix is prepended to every ablation collection name.
const CollectionPrefix = "Ablation"

// CollectionSuffix is appended to every ablation collection name.
const CollectionSuffix = "Activity"

// All returns every activity kind in canonical order.
func All() []Kind {
	return []Kind{Location, Music, Task, Media, Storage, Collaboration}
}

// Collection returns the backing collection name for the kind,
// e.g. "AblationLocationActivity".
func (k Kind) Collection() string {
	return CollectionPrefix + string(k) + CollectionSuffix
}

// Token returns the collection-type token used in composite truth keys,
// e.g. "location_activity".
func (k Kind) Token() string {
	return strings.ToLower(string(k)) + "_activity"
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Parse resolves a kind from its name, collection name, or token.
func Parse(s string) (Kind, error) {
	for _, k := range All() {
		if strings.EqualFold(s, string(k)) || s == k.Collection() || s == k.Token() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown activity kind: %s", s)
}

// KindForCollection resolves the kind owning a collection name.
func KindForCollection(collection string) (Kind, bool) {
	for _, k := range All() {
		if k.Collection() == collection {
			return k, true
		}
	}
	return "", false
}

// TokenForCollection returns the composite-key token for a collection name.
// Unknown collections fall back to the collection name itself so that truth
// lookups against legacy collections still form a usable key.
func TokenForCollection(collection string) string {
	if k, ok := KindForCollection(collection); ok {
		return k.Token()
	}
	return collection
}

// Collections returns the collection names for the given kinds.
func Collections(kinds []Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Collection()
	}
	return names
}
