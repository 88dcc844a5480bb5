package cache

import (
	"path/filepath"
	"testing"
)

func TestHashSourceIsDeterministicAndContentSensitive(t *testing.T) {
	a := HashSource("while (1) {}")
	b := HashSource("while (1) {}")
	c := HashSource("while (1) { LED1 = true; }")
	if a != b {
		t.Error("HashSource is not deterministic for identical input")
	}
	if a == c {
		t.Error("HashSource did not change for different input")
	}
}

func TestLookupStoreRoundTrip(t *testing.T) {
	c := New()
	hash := HashSource("source")
	if _, ok := c.Lookup(hash); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	entry := Entry{Words: []uint64{1, 2}, VarData: []byte{0xff}, SwitchTable: []int{0, 1}, InstrCount: 2}
	c.Store(hash, entry)

	got, ok := c.Lookup(hash)
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if got.SourceHash != hash {
		t.Errorf("SourceHash = %q, want %q (Store should stamp it)", got.SourceHash, hash)
	}
	if got.InstrCount != 2 {
		t.Errorf("InstrCount = %d, want 2", got.InstrCount)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.cache")

	c := New()
	hash := HashSource("source")
	c.Store(hash, Entry{Words: []uint64{7}, InstrCount: 1})
	if err := c.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, ok := loaded.Lookup(hash)
	if !ok {
		t.Fatal("expected a hit after Save/Load round trip")
	}
	if got.InstrCount != 1 || len(got.Words) != 1 || got.Words[0] != 7 {
		t.Errorf("got %+v, want InstrCount=1, Words=[7]", got)
	}
}

func TestLoadMissingFileYieldsEmptyCache(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cache"))
	if err != nil {
		t.Fatalf("Load returned error for a missing file: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for a freshly created cache", c.Len())
	}
}
