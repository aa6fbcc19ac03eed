// Package recovery persists chunked snapshots of unsaved edits so a
// crashed session can be reconstructed on the next start. A snapshot is
// the only state that survives a session: the event log itself is never
// persisted. Small and new buffers snapshot their full content as a
// single chunk; chunked buffers snapshot only their modified regions, so
// recovering a large file never requires rewriting it wholesale.
package recovery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ninelines/scribe/internal/app"
	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/errs"
)

// ChunkMeta is one entry of a metadata file's chunk index.
type ChunkMeta struct {
	OffsetInFinal int64  `json:"offset_in_final"`
	OriginalLen   int64  `json:"original_len"` // 0 for pure insertions
	BytePath      string `json:"byte_path"`
}

// Metadata describes one buffer's recovery snapshot.
type Metadata struct {
	BufferID            string      `json:"buffer_id"`
	OriginalPath        string      `json:"original_path,omitempty"`
	BufferName          string      `json:"buffer_name,omitempty"`
	LineCount           uint32      `json:"line_count,omitempty"`
	OriginalFileSize    int64       `json:"original_file_size"`
	FinalSize           int64       `json:"final_size"`
	OriginalFileModTime time.Time   `json:"original_file_modified_time"`
	Chunks              []ChunkMeta `json:"chunk_index"`
}

// Chunk is one recovered modified region, returned by Load so the caller
// can apply it as an Insert/Replace event atop the on-disk baseline.
type Chunk struct {
	Offset      int64
	OriginalLen int64
	Content     []byte
}

// OutcomeKind discriminates Load results.
type OutcomeKind uint8

const (
	// NoRecovery: no snapshot exists for the id.
	NoRecovery OutcomeKind = iota
	// Recovered: full content restored (small or pathless buffer).
	Recovered
	// RecoveredChunks: modified regions restored; apply atop the original
	// file's current content.
	RecoveredChunks
	// OriginalFileModified: the source file changed since the snapshot was
	// taken, so the chunks cannot be trusted; manual reconciliation.
	OriginalFileModified
	// Corrupted: the metadata or a chunk file failed to parse or is
	// missing.
	Corrupted
)

func (k OutcomeKind) String() string {
	switch k {
	case NoRecovery:
		return "NoRecovery"
	case Recovered:
		return "Recovered"
	case RecoveredChunks:
		return "RecoveredChunks"
	case OriginalFileModified:
		return "OriginalFileModified"
	case Corrupted:
		return "Corrupted"
	default:
		return "Unknown"
	}
}

// Outcome is the result of loading one buffer's recovery snapshot.
// Exactly the fields relevant to Kind are populated.
type Outcome struct {
	Kind    OutcomeKind
	Meta    Metadata
	Content []byte  // Recovered
	Chunks  []Chunk // RecoveredChunks
	Path    string  // OriginalFileModified
	Reason  string  // Corrupted
}

// Store owns one recovery directory: the session lock, the per-buffer
// metadata files, and their chunk files. Single-writer: only one editor
// process holds the directory at a time, enforced by the session lock.
type Store struct {
	dir    string
	logger *app.Logger
}

// NewStore opens (creating if needed) the recovery directory at dir.
func NewStore(dir string, logger *app.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &errs.IoError{Path: dir, Cause: err}
	}
	if logger == nil {
		logger = app.NullLogger
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// FileID derives the stable recovery id for a file-backed buffer from its
// absolute path.
func FileID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return hashID(abs)
}

// ScratchID derives a fresh recovery id for a buffer with no backing
// file.
func ScratchID() string {
	return hashID("scratch:" + uuid.NewString())
}

func hashID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:8])
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta.json")
}

func (s *Store) chunkPath(id string, n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.chunk.%d", id, n))
}

// Snapshot writes a buffer's modified regions and metadata under id,
// replacing any previous snapshot for the same id. The metadata file is
// written last, so a snapshot torn before completion has no metadata and
// loads as NoRecovery rather than as truncated content.
func (s *Store) Snapshot(id string, meta Metadata, chunks []buffer.RecoveryChunk) error {
	if err := s.Discard(id); err != nil {
		return err
	}

	meta.BufferID = id
	meta.Chunks = meta.Chunks[:0]
	for n, c := range chunks {
		path := s.chunkPath(id, n)
		if err := os.WriteFile(path, c.NewBytes, 0o600); err != nil {
			return &errs.IoError{Path: path, Cause: err}
		}
		meta.Chunks = append(meta.Chunks, ChunkMeta{
			OffsetInFinal: c.Offset,
			OriginalLen:   c.OriginalLen,
			BytePath:      filepath.Base(path),
		})
	}

	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return fmt.Errorf("recovery: marshal metadata for %s: %w", id, err)
	}
	if err := os.WriteFile(s.metaPath(id), data, 0o600); err != nil {
		return &errs.IoError{Path: s.metaPath(id), Cause: err}
	}
	s.logger.Debug("recovery snapshot written for %s (%d chunks)", id, len(chunks))
	return nil
}

// Load reads the snapshot for id and classifies it. For a file-backed
// snapshot the original file must still exist with the recorded size and
// mtime; otherwise the chunks describe offsets into content that no
// longer exists and the outcome is OriginalFileModified.
func (s *Store) Load(id string) Outcome {
	data, err := os.ReadFile(s.metaPath(id))
	if os.IsNotExist(err) {
		return Outcome{Kind: NoRecovery}
	}
	if err != nil {
		return Outcome{Kind: Corrupted, Reason: err.Error()}
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Outcome{Kind: Corrupted, Meta: meta, Reason: "metadata: " + err.Error()}
	}

	if meta.OriginalPath != "" {
		info, err := os.Stat(meta.OriginalPath)
		if err != nil || info.Size() != meta.OriginalFileSize || !info.ModTime().Equal(meta.OriginalFileModTime) {
			return Outcome{Kind: OriginalFileModified, Meta: meta, Path: meta.OriginalPath}
		}
	}

	chunks := make([]Chunk, 0, len(meta.Chunks))
	for _, cm := range meta.Chunks {
		content, err := os.ReadFile(filepath.Join(s.dir, cm.BytePath))
		if err != nil {
			return Outcome{Kind: Corrupted, Meta: meta, Reason: fmt.Sprintf("chunk %s: %v", cm.BytePath, err)}
		}
		chunks = append(chunks, Chunk{Offset: cm.OffsetInFinal, OriginalLen: cm.OriginalLen, Content: content})
	}

	// A pathless snapshot is the buffer's full content in one chunk.
	if meta.OriginalPath == "" {
		if len(chunks) != 1 || chunks[0].Offset != 0 {
			return Outcome{Kind: Corrupted, Meta: meta, Reason: "full-content snapshot must hold exactly one chunk at offset 0"}
		}
		return Outcome{Kind: Recovered, Meta: meta, Content: chunks[0].Content}
	}
	return Outcome{Kind: RecoveredChunks, Meta: meta, Chunks: chunks}
}

// List returns the ids of every snapshot in the store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &errs.IoError{Path: s.dir, Cause: err}
	}
	var ids []string
	for _, e := range entries {
		if rest, ok := strings.CutSuffix(e.Name(), ".meta.json"); ok {
			ids = append(ids, rest)
		}
	}
	return ids, nil
}

// Discard removes the snapshot for id: the metadata first so a partial
// discard never leaves metadata pointing at deleted chunks.
func (s *Store) Discard(id string) error {
	if err := os.Remove(s.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return &errs.IoError{Path: s.metaPath(id), Cause: err}
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".chunk.*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return &errs.IoError{Path: m, Cause: err}
		}
	}
	return nil
}
