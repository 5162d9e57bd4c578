// Package config loads the project configuration for the tagreg CLI.
//
// The configuration is a small YAML file, tagreg.yaml, committed at the
// project root. It names the store file and the type-keying scheme and
// is discovered by walking up from the working directory, so running
// tagreg from any subdirectory of a project resolves against the same
// store.
//
// # File Format
//
//	version: 1
//	store: tags.toml       # path relative to this file
//	keying: qualified      # or "bare" for legacy stores
//
// The file is optional. Without one, the store defaults to tags.toml in
// the working directory with qualified keying.
//
// Note this configures the tool, not the store itself; the store's own
// schema lives in the store file and is handled by internal/store.
package config
