package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorruption is returned when the on-disk document cannot be parsed.
// The store refuses to serve rather than silently re-initializing, per
// the Corruption entry in the error taxonomy.
var ErrCorruption = errors.New("catalog: document is corrupt")

// Store owns the single in-memory Document and its durable backing
// file. All mutation happens under lock, and every writing caller must
// go through WithWrite so that the load->mutate->persist window is
// always serialized against both other writers and readers.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  *Document
}

// Open loads (or initializes) the document at path and returns a ready
// Store. A missing file is not an error: it is initialized with empty
// sections and version 1, matching spec.md's load() contract.
func Open(path string) (*Store, error) {
	doc, err := load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, doc: doc}, nil
}

func load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		doc := NewDocument()
		if err := persist(path, doc); err != nil {
			return nil, fmt.Errorf("catalog: initializing %s: %w", path, err)
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}

	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruption, path, err)
	}
	if doc.Files == nil {
		doc.Files = map[string]FileRecord{}
	}
	if doc.Chunks == nil {
		doc.Chunks = map[string]ChunkRecord{}
	}
	if doc.Membership == nil {
		doc.Membership = map[string]MembershipEntry{}
	}

	// The legacy bare-string membership form is normalized inside
	// MembershipEntry.UnmarshalJSON as part of the decode above. If that
	// normalization actually changed anything relative to what's on
	// disk, persist it now so subsequent loads see the structured form
	// directly; this keeps normalization idempotent and observable.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog: re-encoding %s: %w", path, err)
	}
	var onDisk bytes.Buffer
	if err := json.Compact(&onDisk, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruption, path, err)
	}
	if !bytes.Equal(onDisk.Bytes(), normalized) {
		if err := persist(path, doc); err != nil {
			return nil, fmt.Errorf("catalog: persisting normalized %s: %w", path, err)
		}
	}

	return doc, nil
}

// persist writes doc to a sibling temp path and atomically renames it
// over path, so readers always observe either the pre- or post-state,
// never a partial write.
func persist(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// WithRead runs fn under a shared lock against a live view of the
// document. fn must not retain doc beyond the call.
func (s *Store) WithRead(fn func(doc *Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// WithWrite runs fn under an exclusive lock and persists the document
// afterward unless fn returns an error, in which case nothing is
// written and the in-memory document is left as fn mutated it only if
// fn itself guarantees atomicity of its own edits (all catalog.Document
// mutators in this package do).
func (s *Store) WithWrite(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.doc); err != nil {
		return err
	}
	return persist(s.path, s.doc)
}
