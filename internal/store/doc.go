// Package store implements the persisted tag store: a single TOML file
// holding the key-to-identifier mappings for both tag namespaces.
//
// The file is the sole source of truth. Nothing is cached between calls
// and no file handle outlives a single operation, because independent
// build processes may be resolving tags against the same store
// concurrently.
//
// # File Format
//
// The store is a small TOML document:
//
//	schema = 1
//	keying = "qualified"
//
//	[custom_tags]
//	"my tag" = "8a6e0804-2bd0-4672-b79d-d97027f9071a"
//
//	[type_tags]
//	"example.com/geo.Point" = "b9adf525-4119-4f9e-88bc-d5c9e5a8b2f7"
//
// A file with no schema or keying header is a legacy store and is
// accepted; its keys are assumed to use the legacy bare-name keying.
//
// # Concurrency
//
// Cross-process safety uses an advisory lock on a sidecar file next to
// the store (the store file itself cannot carry the lock because every
// save replaces its inode via rename). Readers share the lock, writers
// hold it exclusively for the whole load-check-mutate-save sequence.
//
// # Crash Safety
//
// Saves are written to a temporary file in the store's directory,
// synced, then renamed over the store. A crash at any point leaves
// either the complete old contents or the complete new contents,
// never a truncated file.
package store
