package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"agent-world/internal/world"
)

func newManager(t *testing.T, store *world.Store, name string) *Manager {
	t.Helper()
	cfg := world.DefaultConfig()
	return NewManager(store, NewCodec(cfg), filepath.Join(t.TempDir(), name))
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	store := populatedStore(t)
	m := newManager(t, store, "world.json")

	info, err := m.Save("", true)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.Agents != 2 || info.Bytes == 0 {
		t.Errorf("Unexpected save info: %+v", info)
	}

	wantTick := store.Tick()
	store.Reset()
	if store.Tick() != 0 || len(store.Agents()) != 0 {
		t.Fatal("Reset did not clear the world")
	}

	loaded, err := m.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Tick != wantTick || loaded.Agents != 2 || loaded.Proofs != 2 {
		t.Errorf("Unexpected load info: %+v", loaded)
	}
	if store.Tick() != wantTick {
		t.Errorf("World tick not restored: got %d want %d", store.Tick(), wantTick)
	}
	if _, err := store.AdmitAgent("mallory", 0, "0xaaaa"); !errors.Is(err, world.ErrProofAlreadyUsed) {
		t.Errorf("Proof ledger must survive save/load, got %v", err)
	}
}

func TestManagerCompressedPath(t *testing.T) {
	store := populatedStore(t)
	m := newManager(t, store, "world.json.zst")

	info, err := m.Save("", false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The on-disk file is compressed, not the raw document.
	raw, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(raw) == 0 || raw[0] == '{' {
		t.Error("Expected a compressed snapshot on disk")
	}

	store.Reset()
	if _, err := m.Load(""); err != nil {
		t.Fatalf("Load of compressed snapshot failed: %v", err)
	}
	if len(store.Agents()) != 2 {
		t.Errorf("Expected 2 agents after compressed round trip, got %d", len(store.Agents()))
	}
}

func TestManagerLoadMissingFile(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	m := newManager(t, store, "nope.json")

	_, err := m.Load("")
	if !errors.Is(err, world.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing snapshot, got %v", err)
	}
}

func TestManagerLoadCorruptedLeavesWorldAlone(t *testing.T) {
	store := populatedStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	m := NewManager(store, NewCodec(world.DefaultConfig()), path)
	tickBefore := store.Tick()
	if _, err := m.Load(""); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Expected ErrCorrupted, got %v", err)
	}
	if store.Tick() != tickBefore || len(store.Agents()) != 2 {
		t.Error("A failed load must not mutate the live world")
	}
}

func TestManagerStatus(t *testing.T) {
	store := world.NewStore(world.DefaultConfig())
	m := newManager(t, store, "world.json")

	st := m.CurrentStatus()
	if st.Exists || st.LastSave != nil {
		t.Errorf("Fresh manager must report no snapshot: %+v", st)
	}

	if _, err := m.Save("", false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	st = m.CurrentStatus()
	if !st.Exists || st.SizeBytes == 0 || st.LastSave == nil {
		t.Errorf("Expected status to reflect the save: %+v", st)
	}
}
