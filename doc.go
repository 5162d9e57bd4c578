// Package tagreg assigns stable 128-bit identifiers to named program
// entities and persists the assignment in a small TOML file so the same
// entity keeps the same identifier across rebuilds, machines, and
// toolchain versions.
//
// Runtime type identity in Go (and most languages) is only stable
// within one compiled binary. When an identifier has to survive
// recompilation — message type tags on a wire protocol, persisted event
// kinds, plugin capability ids — it must live outside the binary.
// tagreg keeps it in a project-local registry file: the first
// resolution of a key mints a random v4 UUID and records it, every
// later resolution returns the recorded value.
//
// # Usage
//
//	reg, err := tagreg.New(tagreg.Options{Path: "tags.toml"})
//	if err != nil {
//	    return err
//	}
//
//	id, err := reg.ResolveTag("checkout.completed")   // custom tag
//	id, err = reg.ResolveType(Point{})                // type tag
//
// Resolution is idempotent and safe against concurrent resolutions from
// independent processes sharing the store file; see the internal/store
// package for the locking and atomic-replace protocol.
//
// # Keying Schemes
//
// Type-tag keys default to the fully qualified form
// "example.com/geo.Point", which is globally unique. Legacy stores
// written with bare type names ("Point") are still supported via
// KeyingBare, including their known defect: distinct types sharing a
// bare name anywhere in the project collide onto one identifier. A
// store is stamped with its scheme on first write and refuses to open
// under a conflicting configuration.
//
// # Errors
//
// All failures surface synchronously as wrapped sentinel errors:
// ErrStoreCorrupt, ErrStoreUnwritable, ErrCollisionExhausted,
// ErrInvalidKey, ErrKeyingMismatch. This is build-time infrastructure;
// callers are expected to abort on any of them.
package tagreg
