package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "tags.toml"))
}

func TestReadMissingFile(t *testing.T) {
	s := tempStore(t)

	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read() of missing file error = %v", err)
	}
	if doc.Len() != 0 {
		t.Errorf("Read() of missing file Len() = %v, want 0", doc.Len())
	}

	// Reading must not create the file
	if s.Exists() {
		t.Error("Read() should not create the store file")
	}
}

func TestUpdateWriteAndReadBack(t *testing.T) {
	s := tempStore(t)
	id := uuid.New()

	err := s.Update(func(doc *Document) (bool, error) {
		doc.Keying = KeyingQualified
		return true, doc.Insert(NamespaceCustomTag, "alpha", id)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got, ok := doc.Lookup(NamespaceCustomTag, "alpha")
	if !ok || got != id {
		t.Errorf("Lookup() after round-trip = (%v, %v), want (%v, true)", got, ok, id)
	}
	if doc.Schema != SchemaVersion {
		t.Errorf("Schema after round-trip = %v, want %v", doc.Schema, SchemaVersion)
	}
	if doc.Keying != KeyingQualified {
		t.Errorf("Keying after round-trip = %v, want %v", doc.Keying, KeyingQualified)
	}
}

func TestUpdateSkipsWriteWhenUnchanged(t *testing.T) {
	s := tempStore(t)

	err := s.Update(func(doc *Document) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// No change reported, so the file must not even be created
	if s.Exists() {
		t.Error("Update() without change should not create the store file")
	}
}

func TestReadCorruptFile(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path, []byte("not [ valid { toml"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := s.Read()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Read() of corrupt file error = %v, want ErrCorrupt", err)
	}
	if err != nil && !strings.Contains(err.Error(), s.Path) {
		t.Errorf("error should name the store path, got: %v", err)
	}
}

func TestReadUnsupportedSchema(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path, []byte("schema = 99\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := s.Read()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Read() of future-schema file error = %v, want ErrCorrupt", err)
	}
}

func TestReadLegacyFile(t *testing.T) {
	s := tempStore(t)
	legacy := `[custom_tags]
"old tag" = "8a6e0804-2bd0-4672-b79d-d97027f9071a"

[type_tags]
Point = "b9adf525-4119-4f9e-88bc-d5c9e5a8b2f7"
`
	if err := os.WriteFile(s.Path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read() of legacy file error = %v", err)
	}
	if doc.Schema != 0 {
		t.Errorf("legacy Schema = %v, want 0", doc.Schema)
	}
	if doc.EffectiveKeying() != KeyingBare {
		t.Errorf("legacy EffectiveKeying() = %v, want %v", doc.EffectiveKeying(), KeyingBare)
	}
	if doc.Len() != 2 {
		t.Errorf("legacy Len() = %v, want 2", doc.Len())
	}
	if !doc.ContainsID(uuid.MustParse("8a6e0804-2bd0-4672-b79d-d97027f9071a")) {
		t.Error("legacy custom tag value missing")
	}
}

func TestUpdateUnwritableLocation(t *testing.T) {
	// Parent directory does not exist, so the temp-file write must fail
	// and classify as unwritable.
	s := New(filepath.Join(t.TempDir(), "missing", "tags.toml"))

	err := s.Update(func(doc *Document) (bool, error) {
		return true, doc.Insert(NamespaceCustomTag, "a", uuid.New())
	})
	if !errors.Is(err, ErrUnwritable) {
		t.Errorf("Update() into missing directory error = %v, want ErrUnwritable", err)
	}
}

func TestUpdateLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)

	for i := 0; i < 3; i++ {
		err := s.Update(func(doc *Document) (bool, error) {
			return true, doc.Insert(NamespaceCustomTag, string(rune('a'+i)), uuid.New())
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestStrayTempFileIgnored(t *testing.T) {
	// A crash between temp write and rename leaves a stray temp file;
	// it must not affect reads.
	s := tempStore(t)
	id := uuid.New()

	err := s.Update(func(doc *Document) (bool, error) {
		return true, doc.Insert(NamespaceCustomTag, "alpha", id)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stray := s.Path + ".tmp-12345"
	if err := os.WriteFile(stray, []byte("partial ["), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read() with stray temp file error = %v", err)
	}
	if got, ok := doc.Lookup(NamespaceCustomTag, "alpha"); !ok || got != id {
		t.Errorf("Lookup() = (%v, %v), want (%v, true)", got, ok, id)
	}
}

func TestUpdateBlockedByHeldLock(t *testing.T) {
	s := tempStore(t)
	s.LockTimeout = 200 * time.Millisecond

	// Hold the exclusive lock from "another process"
	fl := flock.New(s.LockPath())
	locked, err := fl.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock() = (%v, %v), want (true, nil)", locked, err)
	}
	defer func() { _ = fl.Unlock() }()

	err = s.Update(func(doc *Document) (bool, error) {
		return true, doc.Insert(NamespaceCustomTag, "a", uuid.New())
	})
	if !errors.Is(err, ErrUnwritable) {
		t.Errorf("Update() under held lock error = %v, want ErrUnwritable", err)
	}
}

func TestReadSharesLock(t *testing.T) {
	s := tempStore(t)
	id := uuid.New()
	err := s.Update(func(doc *Document) (bool, error) {
		return true, doc.Insert(NamespaceCustomTag, "a", id)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// A concurrent reader holding the shared lock must not block Read
	fl := flock.New(s.LockPath())
	locked, err := fl.TryRLock()
	if err != nil || !locked {
		t.Fatalf("TryRLock() = (%v, %v), want (true, nil)", locked, err)
	}
	defer func() { _ = fl.Unlock() }()

	if _, err := s.Read(); err != nil {
		t.Errorf("Read() under shared lock error = %v", err)
	}
}

func BenchmarkRead(b *testing.B) {
	s := New(filepath.Join(b.TempDir(), "tags.toml"))
	err := s.Update(func(doc *Document) (bool, error) {
		for i := 0; i < 100; i++ {
			if err := doc.Insert(NamespaceCustomTag, string(rune('a'+i%26))+string(rune('0'+i/26)), uuid.New()); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		b.Fatalf("Update() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Read(); err != nil {
			b.Fatal(err)
		}
	}
}
