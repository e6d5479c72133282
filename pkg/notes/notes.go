// Package notes keeps user annotations attached to a comparison. A note is
// an arbitrary object carrying a string "id".
package notes

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// ErrUnknownNote is returned when a note id is not stored.
var ErrUnknownNote = errors.New("unknown note")

// Store holds notes in insertion order.
type Store struct {
	mu      sync.RWMutex
	byID    []string
	byHash  map[string]record.Value
	hover   bool
	hovered string
}

// New creates an empty note store.
func New() *Store {
	return &Store{byHash: make(map[string]record.Value)}
}

// Add stores note, replacing a note with the same id in place.
func (s *Store) Add(note record.Value) error {
	id, err := noteID(note)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[id]; !ok {
		s.byID = append(s.byID, id)
	}
	s.byHash[id] = note
	return nil
}

// Remove deletes the note with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNote, id)
	}
	delete(s.byHash, id)
	for i, existing := range s.byID {
		if existing == id {
			s.byID = append(s.byID[:i], s.byID[i+1:]...)
			break
		}
	}
	if s.hovered == id {
		s.hovered = ""
	}
	return nil
}

// Get returns the note with id.
func (s *Store) Get(id string) (record.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.byHash[id]
	return note, ok
}

// All returns the notes in insertion order.
func (s *Store) All() []record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.Value, 0, len(s.byID))
	for _, id := range s.byID {
		out = append(out, s.byHash[id])
	}
	return out
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Load replaces the notes with a {"byId": [...], "byHash": {...}} document.
// A member that is absent keeps the current value; ids without a note are
// dropped.
func (s *Store) Load(doc record.Value) error {
	ids, err := parseIDs(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.byID
	if ids != nil {
		byID = ids
	}
	byHash := s.byHash
	if raw, ok := doc.Field("byHash"); ok && raw.IsObject() {
		byHash = make(map[string]record.Value, raw.Len())
		for _, id := range raw.Keys() {
			note, _ := raw.Field(id)
			byHash[id] = note
		}
	}

	order := make([]string, 0, len(byID))
	seen := make(map[string]struct{}, len(byID))
	for _, id := range byID {
		if _, ok := byHash[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	s.byID = order
	s.byHash = byHash
	return nil
}

// Validate reports whether Load would accept doc, without touching any store.
func Validate(doc record.Value) error {
	_, err := parseIDs(doc)
	return err
}

// parseIDs returns the byId member, nil when it is absent.
func parseIDs(doc record.Value) ([]string, error) {
	if !doc.IsObject() {
		return nil, core.MalformedInput("notes must be an object")
	}
	raw, ok := doc.Field("byId")
	if !ok || !raw.IsArray() {
		return nil, nil
	}
	ids := make([]string, 0, raw.Len())
	for i, item := range raw.Items() {
		if item.Kind() != record.String {
			return nil, core.MalformedInput("notes byId[%d] is not a string", i)
		}
		ids = append(ids, item.Str())
	}
	return ids, nil
}

// Snapshot renders the notes as a {"byId", "byHash"} document.
func (s *Store) Snapshot() record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]record.Value, len(s.byID))
	byHash := record.NewObject()
	for i, id := range s.byID {
		ids[i] = record.StringValue(id)
		byHash = byHash.With(id, s.byHash[id])
	}
	return record.NewObject().
		With("byId", record.ArrayValue(ids...)).
		With("byHash", byHash)
}

// SetHover toggles whether notes are being hovered.
func (s *Store) SetHover(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover = on
}

// SetHovered records the note currently under the pointer.
func (s *Store) SetHovered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hovered = id
}

// Hover returns the hover flag and the hovered note id.
func (s *Store) Hover() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hover, s.hovered
}

func noteID(note record.Value) (string, error) {
	if !note.IsObject() {
		return "", core.MalformedInput("note must be an object")
	}
	id, ok := note.Field("id")
	if !ok || id.Kind() != record.String || id.Str() == "" {
		return "", core.MalformedInput("note requires a string id")
	}
	return id.Str(), nil
}
