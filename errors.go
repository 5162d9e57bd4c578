package tagreg

import (
	"errors"

	"github.com/muurk/tagreg/internal/store"
)

var (
	// ErrStoreCorrupt is returned when the persisted store cannot be
	// parsed. Fatal: the build must halt rather than silently re-mint
	// identifiers the unreadable file already holds.
	ErrStoreCorrupt = store.ErrCorrupt

	// ErrStoreUnwritable is returned when persisting the store failed
	// (permissions, disk space, lock timeout). No partial write remains
	// visible to other readers.
	ErrStoreUnwritable = store.ErrUnwritable

	// ErrInvalidKey is returned for structurally invalid keys, before
	// any I/O is attempted.
	ErrInvalidKey = errors.New("invalid tag key")

	// ErrCollisionExhausted is returned when repeated freshly minted
	// identifiers collided with recorded ones beyond the retry bound.
	// With 122 random bits this indicates a broken entropy source, not
	// bad luck.
	ErrCollisionExhausted = errors.New("could not mint an unused identifier")

	// ErrKeyingMismatch is returned when a store stamped with one
	// keying scheme is opened under a conflicting configuration.
	ErrKeyingMismatch = errors.New("store keying scheme does not match configuration")
)
