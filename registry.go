package tagreg

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/tagreg/internal/logging"
	"github.com/muurk/tagreg/internal/store"
)

// Namespace selects one of the two disjoint key spaces; the same
// literal string may carry different identifiers in each.
type Namespace = store.Namespace

const (
	NamespaceTypeTag   = store.NamespaceTypeTag
	NamespaceCustomTag = store.NamespaceCustomTag
)

// Keying identifies how type-tag keys are derived from types.
type Keying = store.Keying

const (
	KeyingQualified = store.KeyingQualified
	KeyingBare      = store.KeyingBare
)

// maxMintAttempts bounds the retry loop when a freshly minted
// identifier collides with a recorded one.
const maxMintAttempts = 5

// Options configures a Registry. Path is the only required field.
type Options struct {
	// Path is the location of the store file. It is plain configuration;
	// the file is opened per resolution and never held open across calls.
	Path string

	// Keying selects the type-key derivation scheme. Zero value means
	// KeyingQualified.
	Keying Keying

	// LockTimeout bounds how long a resolution waits for the store lock.
	// Zero means store.DefaultLockTimeout.
	LockTimeout time.Duration

	// Logger receives debug events. Nil means the process logger from
	// internal/logging, which is silent unless TAGREG_LOG_LEVEL is set.
	Logger *zap.Logger
}

// Registry resolves keys to stable identifiers against one store file.
// Every resolution is a complete load-check-mint-persist transaction;
// a Registry holds no state that outlives a call and is safe for
// concurrent use, including from independent processes sharing the
// same store file.
type Registry struct {
	store  *store.Store
	keying Keying
	log    *zap.Logger

	// mintID produces candidate identifiers. Swapped out in tests to
	// force collisions.
	mintID func() uuid.UUID
}

// New returns a Registry over the store file at opts.Path. The file is
// not touched until the first resolution; it is created on the first
// insertion if absent.
func New(opts Options) (*Registry, error) {
	if opts.Path == "" {
		return nil, errors.New("tagreg: store path is required")
	}

	keying := opts.Keying
	if keying == "" {
		keying = KeyingQualified
	}
	if keying != KeyingQualified && keying != KeyingBare {
		return nil, fmt.Errorf("tagreg: unknown keying scheme %q", keying)
	}

	log := opts.Logger
	if log == nil {
		log = logging.GetLogger()
	}

	st := store.New(opts.Path)
	st.Logger = log
	if opts.LockTimeout > 0 {
		st.LockTimeout = opts.LockTimeout
	}

	return &Registry{
		store:  st,
		keying: keying,
		log:    log,
		mintID: uuid.New,
	}, nil
}

// Keying returns the configured type-key derivation scheme.
func (r *Registry) Keying() Keying {
	return r.keying
}

// StorePath returns the location of the underlying store file.
func (r *Registry) StorePath() string {
	return r.store.Path
}

// Resolve returns the identifier recorded for (ns, key), minting and
// durably recording a new one if the key has not been seen before.
// Repeated calls for the same key, in this or any later process, return
// the identical identifier.
func (r *Registry) Resolve(ns Namespace, key string) (uuid.UUID, error) {
	if err := validateKey(key); err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s %q in %s: %w", ns, key, r.store.Path, err)
	}

	id, minted, err := r.resolve(ns, key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s %q in %s: %w", ns, key, r.store.Path, err)
	}

	r.log.Debug("tag resolved",
		zap.String("namespace", string(ns)),
		zap.String("key", key),
		zap.String("id", id.String()),
		zap.Bool("minted", minted),
	)
	return id, nil
}

func (r *Registry) resolve(ns Namespace, key string) (uuid.UUID, bool, error) {
	// Fast path: shared lock, no write. Most resolutions after the first
	// build hit here.
	doc, err := r.store.Read()
	if err != nil {
		return uuid.Nil, false, err
	}
	if err := r.checkKeying(doc); err != nil {
		return uuid.Nil, false, err
	}
	if id, ok := doc.Lookup(ns, key); ok {
		return id, false, nil
	}

	// Slow path: the whole load-check-mint-save sequence runs under the
	// exclusive lock, with the lookup repeated because another process
	// may have inserted the key since the read above.
	var resolved uuid.UUID
	minted := false
	err = r.store.Update(func(doc *store.Document) (bool, error) {
		if err := r.checkKeying(doc); err != nil {
			return false, err
		}
		if id, ok := doc.Lookup(ns, key); ok {
			resolved = id
			return false, nil
		}

		id, err := r.mint(doc)
		if err != nil {
			return false, err
		}
		if err := doc.Insert(ns, key, id); err != nil {
			return false, err
		}

		// First write of a fresh or legacy store stamps the schema and
		// keying scheme it was written under.
		doc.Schema = store.SchemaVersion
		if doc.Keying == "" {
			doc.Keying = r.keying
		}

		resolved = id
		minted = true
		return true, nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return resolved, minted, nil
}

// ResolveTag resolves a custom tag for the given literal string.
func (r *Registry) ResolveTag(tag string) (uuid.UUID, error) {
	return r.Resolve(NamespaceCustomTag, tag)
}

// ResolveTypeName resolves a type tag for a caller-supplied type name.
// Under qualified keying the name is expected to be the fully qualified
// "pkg/path.TypeName" form; no validation beyond general key validity
// is applied, since external callers (code generators, other languages)
// have their own naming.
func (r *Registry) ResolveTypeName(name string) (uuid.UUID, error) {
	return r.Resolve(NamespaceTypeTag, name)
}

// ResolveType resolves a type tag for the dynamic type of v, deriving
// the key per the configured keying scheme. Pointers are unwrapped.
func (r *Registry) ResolveType(v any) (uuid.UUID, error) {
	key, err := TypeKeyOf(reflect.TypeOf(v), r.keying)
	if err != nil {
		return uuid.Nil, err
	}
	return r.Resolve(NamespaceTypeTag, key)
}

// ResolveTypeOf resolves a type tag for T without needing a value.
func ResolveTypeOf[T any](r *Registry) (uuid.UUID, error) {
	key, err := TypeKey[T](r.keying)
	if err != nil {
		return uuid.Nil, err
	}
	return r.Resolve(NamespaceTypeTag, key)
}

// Snapshot is a read-only copy of the registry state at one point in
// time. Mutating it has no effect on the store.
type Snapshot struct {
	Keying     Keying
	CustomTags map[string]uuid.UUID
	TypeTags   map[string]uuid.UUID
}

// Len returns the total number of entries across both namespaces.
func (s *Snapshot) Len() int {
	return len(s.CustomTags) + len(s.TypeTags)
}

// DuplicateIDs returns identifiers recorded under more than one key,
// mapped to the "namespace:key" entries sharing them. A healthy store
// returns an empty map; duplicates mean the store was edited by hand or
// merged badly.
func (s *Snapshot) DuplicateIDs() map[uuid.UUID][]string {
	seen := make(map[uuid.UUID][]string)
	for key, id := range s.CustomTags {
		seen[id] = append(seen[id], string(NamespaceCustomTag)+":"+key)
	}
	for key, id := range s.TypeTags {
		seen[id] = append(seen[id], string(NamespaceTypeTag)+":"+key)
	}
	dups := make(map[uuid.UUID][]string)
	for id, keys := range seen {
		if len(keys) > 1 {
			dups[id] = keys
		}
	}
	return dups
}

// InvalidKeys returns "namespace:key" entries whose key would be
// rejected by the registry: empty, blank, or containing control
// characters. Such entries can only enter the store by hand-editing.
func (s *Snapshot) InvalidKeys() []string {
	var bad []string
	for key := range s.CustomTags {
		if validateKey(key) != nil {
			bad = append(bad, string(NamespaceCustomTag)+":"+key)
		}
	}
	for key := range s.TypeTags {
		if validateKey(key) != nil {
			bad = append(bad, string(NamespaceTypeTag)+":"+key)
		}
	}
	sort.Strings(bad)
	return bad
}

// Load parses the persisted store without mutating it. A missing store
// yields an empty snapshot.
func (r *Registry) Load() (*Snapshot, error) {
	doc, err := r.store.Read()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Keying:     doc.EffectiveKeying(),
		CustomTags: make(map[string]uuid.UUID, len(doc.CustomTags)),
		TypeTags:   make(map[string]uuid.UUID, len(doc.TypeTags)),
	}
	for k, v := range doc.CustomTags {
		snap.CustomTags[k] = v
	}
	for k, v := range doc.TypeTags {
		snap.TypeTags[k] = v
	}
	return snap, nil
}

// Init creates an empty store stamped with the configured keying
// scheme. It fails if the store file already exists.
func (r *Registry) Init() error {
	if r.store.Exists() {
		return fmt.Errorf("store %s already exists", r.store.Path)
	}
	return r.store.Update(func(doc *store.Document) (bool, error) {
		doc.Schema = store.SchemaVersion
		doc.Keying = r.keying
		return true, nil
	})
}

// checkKeying refuses to mix keying schemes within one store. An empty
// store adopts the configured scheme; a populated store must match it.
// Legacy stores (no keying header) carry bare keys.
func (r *Registry) checkKeying(doc *store.Document) error {
	if doc.Keying == "" && doc.Len() == 0 {
		return nil
	}
	if effective := doc.EffectiveKeying(); effective != r.keying {
		return fmt.Errorf("%w: store uses %q, configured %q", ErrKeyingMismatch, effective, r.keying)
	}
	return nil
}

// mint produces an identifier not already recorded in doc, retrying a
// bounded number of times on collision.
func (r *Registry) mint(doc *store.Document) (uuid.UUID, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		id := r.mintID()
		if !doc.ContainsID(id) {
			return id, nil
		}
		r.log.Warn("minted identifier already recorded, retrying",
			zap.String("id", id.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return uuid.Nil, ErrCollisionExhausted
}

// validateKey rejects structurally invalid keys before any I/O.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	blank := true
	for _, c := range key {
		if unicode.IsControl(c) {
			return fmt.Errorf("%w: key contains control characters", ErrInvalidKey)
		}
		if !unicode.IsSpace(c) {
			blank = false
		}
	}
	if blank {
		return fmt.Errorf("%w: key is blank", ErrInvalidKey)
	}
	return nil
}
