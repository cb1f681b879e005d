// Package metadata owns the per-catalog JSON files: reference records plus
// the user-owned notes and thumbnail designations layered on top of them.
//
// Notes are keyed by object ID and image filename, never by full path, so
// they survive rescans and library moves. Every write rewrites the whole
// file through a temporary file and an atomic rename; a failed write leaves
// the previous file untouched.
package metadata

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/deepsky-go/internal/catalog"
	"github.com/tphakala/deepsky-go/internal/errors"
	"github.com/tphakala/deepsky-go/internal/visibility"
)

// ImageNote carries the structured per-image capture notes. All fields are
// optional; plain-string notes land in Text.
type ImageNote struct {
	Camera       string `json:"camera,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Filters      string `json:"filters,omitempty"`
	Exposure     string `json:"exposure,omitempty"`
	Bortle       int    `json:"bortle,omitempty"`
	Seeing       string `json:"seeing,omitempty"`
	Transparency string `json:"transparency,omitempty"`
	Text         string `json:"text,omitempty"`
}

// IsZero reports whether the note carries no content at all.
func (n ImageNote) IsZero() bool {
	return n == ImageNote{}
}

// UnmarshalJSON accepts both the structured form and a bare string, which
// older metadata files used for image notes.
func (n *ImageNote) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*n = ImageNote{Text: text}
		return nil
	}
	type alias ImageNote
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = ImageNote(a)
	return nil
}

// entry is one on-disk object record. Unknown fields are kept in raw and
// written back verbatim so external tooling never loses data on round-trip.
type entry struct {
	id  string
	raw map[string]json.RawMessage
}

// Store manages one catalog metadata file. Writers are serialized per store;
// reads of loaded state are safe for any number of concurrent readers as
// long as no write is in flight.
type Store struct {
	path    string
	catalog catalog.Catalog

	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	orphans map[string]bool // note-bearing IDs absent from the reference index
	log     *slog.Logger
}

// Load reads a catalog metadata file and merges it against the reference
// index. A missing file yields an empty store; a malformed file yields an
// empty store plus a metadata error so startup can continue with the anomaly
// flagged. Notes for object IDs no longer present in the index are preserved
// and flagged orphaned, never dropped.
func Load(path string, cat catalog.Catalog, index *catalog.Index, log *slog.Logger) (*Store, error) {
	store := &Store{
		path:    path,
		catalog: cat,
		byID:    make(map[string]*entry),
		orphans: make(map[string]bool),
		log:     log,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return store, errors.New(err).
			Category(errors.CategoryMetadata).
			Context("path", path).
			Build()
	}

	var rawEntries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawEntries); err != nil {
		return store, errors.Newf("malformed metadata file %s: %w", path, err).
			Category(errors.CategoryMetadata).
			Build()
	}

	for _, raw := range rawEntries {
		var id string
		if idRaw, ok := raw["id"]; ok {
			_ = json.Unmarshal(idRaw, &id)
		}
		if id == "" {
			continue
		}
		id = catalog.CanonicalID(id)
		if _, dup := store.byID[id]; dup {
			continue
		}
		e := &entry{id: id, raw: raw}
		store.entries = append(store.entries, e)
		store.byID[id] = e

		if index != nil && !index.Has(id) && hasNotes(raw) {
			store.orphans[id] = true
			if log != nil {
				log.Warn("preserving orphaned note", "catalog", string(cat), "object", id)
			}
		}
	}

	return store, nil
}

// hasNotes reports whether a raw record carries user-owned content worth
// preserving when its object is gone from the reference catalog.
func hasNotes(raw map[string]json.RawMessage) bool {
	if _, ok := raw["notes"]; ok {
		return true
	}
	if _, ok := raw["image_notes"]; ok {
		return true
	}
	return false
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Catalog returns the catalog this store belongs to.
func (s *Store) Catalog() catalog.Catalog { return s.catalog }

// Note returns the object-level note text.
func (s *Store) Note(objectID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[catalog.CanonicalID(objectID)]
	if !ok {
		return "", false
	}
	raw, ok := e.raw["notes"]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

// ImageNotes returns the per-image notes of an object, keyed by filename.
func (s *Store) ImageNotes(objectID string) map[string]ImageNote {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[catalog.CanonicalID(objectID)]
	if !ok {
		return nil
	}
	raw, ok := e.raw["image_notes"]
	if !ok {
		return nil
	}
	var notes map[string]ImageNote
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil
	}
	return notes
}

// Thumbnail returns the designated thumbnail filename of an object, or empty.
func (s *Store) Thumbnail(objectID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[catalog.CanonicalID(objectID)]
	if !ok {
		return ""
	}
	raw, ok := e.raw["thumbnail"]
	if !ok {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return ""
	}
	return name
}

// Orphans returns the note-bearing object IDs that are absent from the
// reference index, sorted.
func (s *Store) Orphans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.orphans))
	for id := range s.orphans {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsOrphaned reports whether the given ID carries notes without a matching
// reference record.
func (s *Store) IsOrphaned(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orphans[catalog.CanonicalID(objectID)]
}

// SaveNote stores the object-level note and persists the file. Empty text
// removes the note.
func (s *Store) SaveNote(objectID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensureEntry(objectID)
	if strings.TrimSpace(text) == "" {
		delete(e.raw, "notes")
	} else {
		data, err := json.Marshal(text)
		if err != nil {
			return errors.New(err).Category(errors.CategoryMetadata).Build()
		}
		e.raw["notes"] = data
	}
	return s.persistLocked()
}

// SaveImageNote stores a per-image note keyed by the image filename and
// persists the file. A zero note removes the entry.
func (s *Store) SaveImageNote(objectID, imageName string, note ImageNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensureEntry(objectID)

	var notes map[string]ImageNote
	if raw, ok := e.raw["image_notes"]; ok {
		_ = json.Unmarshal(raw, &notes)
	}
	if notes == nil {
		notes = make(map[string]ImageNote)
	}

	if note.IsZero() {
		delete(notes, imageName)
	} else {
		notes[imageName] = note
	}

	if len(notes) == 0 {
		delete(e.raw, "image_notes")
	} else {
		data, err := json.Marshal(notes)
		if err != nil {
			return errors.New(err).Category(errors.CategoryMetadata).Build()
		}
		e.raw["image_notes"] = data
	}
	return s.persistLocked()
}

// SaveThumbnail designates the thumbnail filename for an object and persists
// the file. The designation replaces any previous one, keeping the at most
// one thumbnail per object invariant.
func (s *Store) SaveThumbnail(objectID, imageName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensureEntry(objectID)
	if imageName == "" {
		delete(e.raw, "thumbnail")
	} else {
		data, err := json.Marshal(imageName)
		if err != nil {
			return errors.New(err).Category(errors.CategoryMetadata).Build()
		}
		e.raw["thumbnail"] = data
	}
	return s.persistLocked()
}

// StatusOf composes the capture state of an object from scan results and the
// visibility engine handed to it; the store itself never scans.
func (s *Store) StatusOf(obj *catalog.Object, captured bool, engine *visibility.Engine, now time.Time) visibility.Status {
	return engine.StatusOf(captured, engine.BestMonthsFor(obj), now)
}

// ensureEntry returns the entry for the ID, creating it if needed. Caller
// must hold the lock.
func (s *Store) ensureEntry(objectID string) *entry {
	id := catalog.CanonicalID(objectID)
	if e, ok := s.byID[id]; ok {
		return e
	}
	idData, _ := json.Marshal(id)
	e := &entry{id: id, raw: map[string]json.RawMessage{"id": idData}}
	s.entries = append(s.entries, e)
	s.byID[id] = e
	return e
}

// persistLocked rewrites the whole metadata file from in-memory state:
// temp file in the same directory, then atomic rename. Caller must hold the
// lock.
func (s *Store) persistLocked() error {
	out := make([]map[string]json.RawMessage, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.raw)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.New(err).Category(errors.CategoryMetadata).Build()
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).Category(errors.CategoryMetadata).Build()
	}

	tempFile, err := os.CreateTemp(dir, "metadata-*.json")
	if err != nil {
		return errors.New(err).Category(errors.CategoryMetadata).Build()
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.Newf("writing metadata temp file: %w", err).
			Category(errors.CategoryMetadata).
			Build()
	}
	if err := tempFile.Close(); err != nil {
		return errors.New(err).Category(errors.CategoryMetadata).Build()
	}

	// Same-directory rename is atomic; on failure the previous file is intact
	if err := os.Rename(tempName, s.path); err != nil {
		return errors.Newf("replacing metadata file %s: %w", s.path, err).
			Category(errors.CategoryMetadata).
			Build()
	}

	if s.log != nil {
		s.log.Debug("metadata saved", "catalog", string(s.catalog), "path", s.path)
	}
	return nil
}
