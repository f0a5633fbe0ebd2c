// Package checkpoint persists index build progress so an interrupted build
// can resume where it stopped.
//
// A checkpoint is two artifacts in one directory: a versioned index snapshot
// (index-<next>.snap) and a marker (meta.json) naming that snapshot together
// with its SHA-256 digest and the next position to embed. The snapshot is
// written before the marker, and both are written to a temporary file and
// renamed into place, so the marker always names a complete snapshot.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wikiqa/internal/logging"
	"wikiqa/internal/vecindex"
)

// ErrCorruptCheckpoint marks a checkpoint whose artifacts are unreadable or
// disagree with each other.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

const (
	markerName     = "meta.json"
	snapshotPrefix = "index-"
	snapshotSuffix = ".snap"
	formatVersion  = 1
	tempInfix      = ".tmp-"
)

// Meta is the marker content.
type Meta struct {
	Version           int       `json:"version"`
	NextPosition      int       `json:"next_position"`
	Dimension         int       `json:"dimension"`
	Snapshot          string    `json:"snapshot"`
	SnapshotSHA256    string    `json:"snapshot_sha256"`
	EmbeddingModel    string    `json:"embedding_model,omitempty"`
	CorpusFingerprint string    `json:"corpus_fingerprint,omitempty"`
	SavedAt           time.Time `json:"saved_at"`
}

// State is what Load hands back to the caller.
type State struct {
	Index        *vecindex.Flat
	NextPosition int
	// Meta is nil when no usable checkpoint was found.
	Meta *Meta
}

// Manager reads and writes the checkpoint in Dir.
type Manager struct {
	Dir string
}

// New returns a manager for dir.
func New(dir string) *Manager {
	return &Manager{Dir: dir}
}

func (m *Manager) markerPath() string { return filepath.Join(m.Dir, markerName) }

// Exists reports whether a marker is present, without validating it.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.markerPath())
	return err == nil
}

// Load returns the stored index and next position. With no checkpoint, or a
// corrupt one, it returns an empty index of dimension dim at position 0; a
// corrupt checkpoint is logged as a warning. A stored dimension different
// from a non-zero dim is returned as a vecindex.ErrDimensionMismatch error.
// With dim == 0 the stored dimension is accepted as is; if nothing is stored
// the returned Index is nil.
func (m *Manager) Load(dim int) (State, error) {
	st, err := m.Read()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return empty(dim)
	case errors.Is(err, ErrCorruptCheckpoint):
		logging.Warnf("ignoring checkpoint in %s, rebuilding from position 0: %v", m.Dir, err)
		return empty(dim)
	default:
		return State{}, err
	}

	if dim != 0 && st.Index.Dimension() != dim {
		return State{}, fmt.Errorf("checkpoint in %s: %w", m.Dir,
			&vecindex.DimensionError{Want: dim, Got: st.Index.Dimension()})
	}
	return st, nil
}

func empty(dim int) (State, error) {
	if dim == 0 {
		return State{}, nil
	}
	idx, err := vecindex.New(dim)
	if err != nil {
		return State{}, err
	}
	return State{Index: idx}, nil
}

// Read loads and validates the checkpoint. It returns an error wrapping
// os.ErrNotExist when there is no checkpoint at all, and one wrapping
// ErrCorruptCheckpoint when the artifacts are inconsistent.
func (m *Manager) Read() (State, error) {
	raw, err := os.ReadFile(m.markerPath())
	if errors.Is(err, os.ErrNotExist) {
		if orphans := m.snapshots(); len(orphans) > 0 {
			return State{}, fmt.Errorf("%w: snapshot %s has no marker", ErrCorruptCheckpoint, orphans[0])
		}
		return State{}, fmt.Errorf("no checkpoint in %s: %w", m.Dir, os.ErrNotExist)
	}
	if err != nil {
		// Permission and I/O failures say nothing about the checkpoint itself.
		return State{}, fmt.Errorf("read checkpoint marker: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return State{}, fmt.Errorf("%w: parse marker: %v", ErrCorruptCheckpoint, err)
	}
	if meta.Version != formatVersion {
		return State{}, fmt.Errorf("%w: unsupported marker version %d", ErrCorruptCheckpoint, meta.Version)
	}
	if meta.Snapshot == "" || filepath.Base(meta.Snapshot) != meta.Snapshot {
		return State{}, fmt.Errorf("%w: invalid snapshot name %q", ErrCorruptCheckpoint, meta.Snapshot)
	}

	data, err := os.ReadFile(filepath.Join(m.Dir, meta.Snapshot))
	if errors.Is(err, os.ErrNotExist) {
		return State{}, fmt.Errorf("%w: snapshot %s is missing", ErrCorruptCheckpoint, meta.Snapshot)
	}
	if err != nil {
		return State{}, fmt.Errorf("read snapshot %s: %w", meta.Snapshot, err)
	}
	if digest := sha256Hex(data); digest != meta.SnapshotSHA256 {
		return State{}, fmt.Errorf("%w: snapshot digest %s does not match marker %s", ErrCorruptCheckpoint, digest, meta.SnapshotSHA256)
	}
	idx, err := vecindex.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if idx.Len() != meta.NextPosition {
		return State{}, fmt.Errorf("%w: snapshot holds %d vectors, marker says %d", ErrCorruptCheckpoint, idx.Len(), meta.NextPosition)
	}
	if idx.Dimension() != meta.Dimension {
		return State{}, fmt.Errorf("%w: snapshot dimension %d, marker says %d", ErrCorruptCheckpoint, idx.Dimension(), meta.Dimension)
	}

	return State{Index: idx, NextPosition: meta.NextPosition, Meta: &meta}, nil
}

// Save persists idx as covering every position below nextPosition. Only the
// model and fingerprint fields of info are used; the rest is filled in.
func (m *Manager) Save(idx *vecindex.Flat, nextPosition int, info Meta) error {
	if idx.Len() != nextPosition {
		return fmt.Errorf("save checkpoint: index holds %d vectors but next position is %d", idx.Len(), nextPosition)
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	snapName := fmt.Sprintf("%s%d%s", snapshotPrefix, nextPosition, snapshotSuffix)
	if err := writeAtomic(filepath.Join(m.Dir, snapName), buf.Bytes()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	meta := Meta{
		Version:           formatVersion,
		NextPosition:      nextPosition,
		Dimension:         idx.Dimension(),
		Snapshot:          snapName,
		SnapshotSHA256:    sha256Hex(buf.Bytes()),
		EmbeddingModel:    info.EmbeddingModel,
		CorpusFingerprint: info.CorpusFingerprint,
		SavedAt:           time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	if err := writeAtomic(m.markerPath(), raw); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	for _, name := range m.snapshots() {
		if name == snapName {
			continue
		}
		if err := os.Remove(filepath.Join(m.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warnf("remove stale snapshot %s: %v", name, err)
		}
	}
	m.removeTemps()
	return nil
}

// Remove deletes the marker and every snapshot.
func (m *Manager) Remove() error {
	if err := os.Remove(m.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	for _, name := range m.snapshots() {
		if err := os.Remove(filepath.Join(m.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove snapshot %s: %w", name, err)
		}
	}
	m.removeTemps()
	return nil
}

// removeTemps deletes temp files left behind by a save that never finished.
// It runs only after the marker is in place, so no live save owns them.
func (m *Manager) removeTemps() {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), tempInfix) {
			continue
		}
		if err := os.Remove(filepath.Join(m.Dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warnf("remove leftover temp file %s: %v", e.Name(), err)
		}
	}
}

func (m *Manager) snapshots() []string {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotSuffix) {
			names = append(names, name)
		}
	}
	return names
}

// writeAtomic writes data to a temp file in the target directory, syncs it,
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+tempInfix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	if d, err := os.Open(filepath.Dir(path)); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
