package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"agent-world/internal/world"
)

// DefaultFileName is used when a save path points at a directory.
const DefaultFileName = "world.json"

// SaveInfo describes a completed save.
type SaveInfo struct {
	Path         string `json:"path"`
	Tick         uint64 `json:"tick"`
	Agents       int    `json:"agents"`
	Bytes        int    `json:"bytes"`
	IncludeTrace bool   `json:"include_trace"`
	SavedAt      int64  `json:"saved_at"`
}

// LoadInfo describes a completed load.
type LoadInfo struct {
	Path   string `json:"path"`
	Tick   uint64 `json:"tick"`
	Agents int    `json:"agents"`
	Proofs int    `json:"proofs"`
}

// Status is the persistence view exposed over the API.
type Status struct {
	DefaultPath string    `json:"default_path"`
	Exists      bool      `json:"exists"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	LastSave    *SaveInfo `json:"last_save,omitempty"`
}

// Manager saves and restores the world through the codec. Writes go to a
// temp file in the target directory and are renamed into place, so a crash
// mid-save never leaves a truncated snapshot at the real path. Paths ending
// in .zst are transparently compressed.
type Manager struct {
	mu          sync.Mutex
	store       *world.Store
	codec       *Codec
	defaultPath string
	lastSave    *SaveInfo
}

// NewManager wires a manager to its store. defaultPath may be empty, in
// which case DefaultFileName in the working directory is used.
func NewManager(store *world.Store, codec *Codec, defaultPath string) *Manager {
	if defaultPath == "" {
		defaultPath = DefaultFileName
	}
	return &Manager{store: store, codec: codec, defaultPath: defaultPath}
}

// resolve maps a caller-supplied path onto the target file. Empty means the
// default; a directory gets the default file name inside it.
func (m *Manager) resolve(path string) string {
	if path == "" {
		path = m.defaultPath
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	return path
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Save exports the world and writes it to path. The export itself is one
// consistent copy; the file write happens outside the world lock.
func (m *Manager) Save(path string, includeTrace bool) (SaveInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = m.resolve(path)
	st := m.store.ExportState(includeTrace)

	now := time.Now().Unix()
	data, err := m.codec.Encode(st, now)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return SaveInfo{}, err
	}

	info := SaveInfo{
		Path:         path,
		Tick:         st.Tick,
		Agents:       len(st.Agents),
		Bytes:        len(data),
		IncludeTrace: includeTrace,
		SavedAt:      now,
	}
	m.lastSave = &info
	m.store.AppendTrace(world.TraceEvent{Tag: world.TagPersistSave, Count: info.Agents, Text: path})
	log.Printf("snapshot: saved tick %d (%d agents, %d bytes) to %s", info.Tick, info.Agents, info.Bytes, path)
	return info, nil
}

// Load reads a snapshot and replaces the live world with it. A missing file
// is ErrNotFound; a file the codec cannot parse is ErrCorrupted. Either way
// the live world is untouched on failure.
func (m *Manager) Load(path string) (LoadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = m.resolve(path)
	data, err := readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LoadInfo{}, fmt.Errorf("snapshot %s: %w", path, world.ErrNotFound)
		}
		return LoadInfo{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	st, err := m.codec.Decode(data)
	if err != nil {
		return LoadInfo{}, err
	}

	m.store.RestoreState(st)
	info := LoadInfo{
		Path:   path,
		Tick:   st.Tick,
		Agents: len(st.Agents),
		Proofs: len(st.UsedProofs),
	}
	m.store.AppendTrace(world.TraceEvent{Tag: world.TagPersistLoad, Count: info.Agents, Text: path})
	log.Printf("snapshot: loaded tick %d (%d agents) from %s", info.Tick, info.Agents, path)
	return info, nil
}

// CurrentStatus reports the default target and the last completed save.
func (m *Manager) CurrentStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{DefaultPath: m.defaultPath, LastSave: m.lastSave}
	if info, err := os.Stat(m.resolve("")); err == nil && !info.IsDir() {
		st.Exists = true
		st.SizeBytes = info.Size()
	}
	return st
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if compressed(path) {
		enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			tmp.Close()
			return fmt.Errorf("init compressor: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			tmp.Close()
			return fmt.Errorf("write snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("flush compressor: %w", err)
		}
	} else if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return data, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("init decompressor: %w", err)
	}
	defer dec.Close()
	return io.ReadAll(dec)
}
