package tagreg

import (
	"errors"
	"reflect"
	"testing"

	"github.com/muurk/tagreg/internal/config"
	"github.com/muurk/tagreg/internal/store"
)

// Config shares its bare name with internal/config.Config; the two
// exercise the keying schemes' differing treatment of same-named types.
type Config struct{}

func TestTypeKeyQualified(t *testing.T) {
	key, err := TypeKey[Config](KeyingQualified)
	if err != nil {
		t.Fatalf("TypeKey() error = %v", err)
	}
	want := "github.com/muurk/tagreg.Config"
	if key != want {
		t.Errorf("TypeKey() = %q, want %q", key, want)
	}

	other, err := TypeKeyOf(reflect.TypeOf(config.Config{}), KeyingQualified)
	if err != nil {
		t.Fatalf("TypeKeyOf() error = %v", err)
	}
	if other == key {
		t.Error("qualified keys of same-named types from different packages should differ")
	}
}

func TestTypeKeyBareCollides(t *testing.T) {
	key, err := TypeKey[Config](KeyingBare)
	if err != nil {
		t.Fatalf("TypeKey() error = %v", err)
	}
	other, err := TypeKeyOf(reflect.TypeOf(config.Config{}), KeyingBare)
	if err != nil {
		t.Fatalf("TypeKeyOf() error = %v", err)
	}

	// The legacy defect: both reduce to "Config".
	if key != other {
		t.Errorf("bare keys should collide: %q vs %q", key, other)
	}
	if key != "Config" {
		t.Errorf("bare key = %q, want %q", key, "Config")
	}
}

func TestTypeKeyUnwrapsPointers(t *testing.T) {
	direct, err := TypeKey[store.Document](KeyingQualified)
	if err != nil {
		t.Fatalf("TypeKey() error = %v", err)
	}
	viaPointer, err := TypeKey[**store.Document](KeyingQualified)
	if err != nil {
		t.Fatalf("TypeKey() of pointer error = %v", err)
	}
	if direct != viaPointer {
		t.Errorf("pointer key = %q, want %q", viaPointer, direct)
	}
}

func TestTypeKeyRejectsUnkeyableTypes(t *testing.T) {
	if _, err := TypeKey[[]string](KeyingQualified); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("TypeKey of slice error = %v, want ErrInvalidKey", err)
	}
	if _, err := TypeKey[struct{ X int }](KeyingQualified); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("TypeKey of anonymous struct error = %v, want ErrInvalidKey", err)
	}
	if _, err := TypeKey[int](KeyingQualified); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("TypeKey of builtin error = %v, want ErrInvalidKey", err)
	}
	if _, err := TypeKeyOf(nil, KeyingQualified); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("TypeKeyOf(nil) error = %v, want ErrInvalidKey", err)
	}
}
