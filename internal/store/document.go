package store

import (
	"fmt"

	"github.com/google/uuid"
)

// SchemaVersion is the newest store schema this build understands.
// Files with a larger schema value were written by a newer tool and are
// rejected rather than partially understood.
const SchemaVersion = 1

// Namespace selects one of the two disjoint key spaces in the store.
// The same literal string may appear in both namespaces with different
// identifiers; they never collide with each other.
type Namespace string

const (
	// NamespaceTypeTag holds keys derived from type names.
	NamespaceTypeTag Namespace = "type-tag"
	// NamespaceCustomTag holds arbitrary caller-supplied tag strings.
	NamespaceCustomTag Namespace = "custom-tag"
)

// Keying identifies how type-tag keys are derived from types.
type Keying string

const (
	// KeyingQualified keys types by their full package path and name
	// ("example.com/geo.Point"). This is the default for new stores.
	KeyingQualified Keying = "qualified"

	// KeyingBare keys types by their bare name ("Point"). Two distinct
	// types sharing a name anywhere in the project receive the same
	// identifier under this scheme. Kept for compatibility with legacy
	// stores.
	KeyingBare Keying = "bare"
)

// Document is the decoded form of the persisted store.
//
// Both maps use canonical hyphenated UUID text on the wire via the uuid
// package's text marshaling. Key insertion order carries no meaning.
type Document struct {
	Schema     int                  `toml:"schema,omitempty"`
	Keying     Keying               `toml:"keying,omitempty"`
	CustomTags map[string]uuid.UUID `toml:"custom_tags"`
	TypeTags   map[string]uuid.UUID `toml:"type_tags"`
}

// NewDocument returns an empty document at the current schema version.
// The keying scheme is left unset; it is stamped on first insert.
func NewDocument() *Document {
	return &Document{
		Schema:     SchemaVersion,
		CustomTags: make(map[string]uuid.UUID),
		TypeTags:   make(map[string]uuid.UUID),
	}
}

// normalize ensures both maps are non-nil after decoding a file where
// one or both tables are absent.
func (d *Document) normalize() {
	if d.CustomTags == nil {
		d.CustomTags = make(map[string]uuid.UUID)
	}
	if d.TypeTags == nil {
		d.TypeTags = make(map[string]uuid.UUID)
	}
}

// table returns the mapping for the given namespace.
func (d *Document) table(ns Namespace) (map[string]uuid.UUID, error) {
	switch ns {
	case NamespaceCustomTag:
		return d.CustomTags, nil
	case NamespaceTypeTag:
		return d.TypeTags, nil
	default:
		return nil, fmt.Errorf("unknown namespace %q", ns)
	}
}

// Lookup returns the identifier recorded for (ns, key), if any.
func (d *Document) Lookup(ns Namespace, key string) (uuid.UUID, bool) {
	m, err := d.table(ns)
	if err != nil {
		return uuid.Nil, false
	}
	id, ok := m[key]
	return id, ok
}

// Insert records a new (ns, key) -> id mapping. The store is
// append-only: inserting a key that is already present is an error,
// even with the same identifier.
func (d *Document) Insert(ns Namespace, key string, id uuid.UUID) error {
	m, err := d.table(ns)
	if err != nil {
		return err
	}
	if existing, ok := m[key]; ok {
		return fmt.Errorf("key %q already present in %s namespace as %s", key, ns, existing)
	}
	m[key] = id
	return nil
}

// ContainsID reports whether id is already recorded under any key in
// either namespace. Used to detect the (vanishingly rare) case of a
// freshly minted identifier colliding with an existing one.
func (d *Document) ContainsID(id uuid.UUID) bool {
	for _, v := range d.CustomTags {
		if v == id {
			return true
		}
	}
	for _, v := range d.TypeTags {
		if v == id {
			return true
		}
	}
	return false
}

// Len returns the total number of entries across both namespaces.
func (d *Document) Len() int {
	return len(d.CustomTags) + len(d.TypeTags)
}

// EffectiveKeying returns the keying scheme the document's existing
// keys were written under. Files predating the keying header used the
// bare-name scheme.
func (d *Document) EffectiveKeying() Keying {
	if d.Keying == "" {
		return KeyingBare
	}
	return d.Keying
}
