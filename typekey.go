package tagreg

import (
	"fmt"
	"reflect"
)

// TypeKeyOf derives the registry key for t under the given keying
// scheme. Pointer types are unwrapped to their element type first.
//
// Qualified keying produces "full/pkg/path.TypeName", which is globally
// unique within a build. Bare keying produces just "TypeName" and is
// kept only for legacy stores; distinct types sharing a simple name
// collide onto one key under it.
//
// Unnamed types (slices, maps, anonymous structs) and, under qualified
// keying, types without a package path (builtins) cannot be keyed and
// yield ErrInvalidKey.
func TypeKeyOf(t reflect.Type, keying Keying) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: nil type", ErrInvalidKey)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		return "", fmt.Errorf("%w: unnamed type %s cannot be keyed", ErrInvalidKey, t)
	}

	switch keying {
	case KeyingBare:
		return name, nil
	case KeyingQualified, "":
		pkg := t.PkgPath()
		if pkg == "" {
			return "", fmt.Errorf("%w: type %s has no package path", ErrInvalidKey, name)
		}
		return pkg + "." + name, nil
	default:
		return "", fmt.Errorf("%w: unknown keying scheme %q", ErrInvalidKey, keying)
	}
}

// TypeKey derives the registry key for T under the given keying scheme.
// Unlike reflect.TypeOf on a value, it works for interface and nil-able
// types as well.
func TypeKey[T any](keying Keying) (string, error) {
	return TypeKeyOf(reflect.TypeOf((*T)(nil)).Elem(), keying)
}
