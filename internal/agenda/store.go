package agenda

import (
	"errors"
	"sort"

	"hacktown/internal/model"
)

// NoSelectionMessage is shown when an action needs selected events and got none.
const NoSelectionMessage = "Nenhum evento selecionado"

// ErrNoSelection is returned by operations that require at least one event.
// It is a user-facing condition, not a failure.
var ErrNoSelection = errors.New(NoSelectionMessage)

// Store accumulates the events one session picked for its personal agenda.
// Duplicates may be held transiently; Materialize removes them. A Store is
// owned by a single session and is not safe for concurrent use.
type Store struct {
	// DefaultStart fills empty start times on Import. Empty means
	// model.DefaultStart.
	DefaultStart string

	order  model.DayOrder
	events []model.Event
}

// NewStore returns an empty Store that sorts by the given day labels.
func NewStore(days []string) *Store {
	return &Store{order: model.NewDayOrder(days)}
}

// Add appends events. Adding nothing is ErrNoSelection.
func (s *Store) Add(events ...model.Event) error {
	if len(events) == 0 {
		return ErrNoSelection
	}
	s.events = append(s.events, events...)
	return nil
}

// RemoveByKey drops every stored entry whose identity key matches one of
// events. It returns how many entries were removed. Removing nothing
// selected is ErrNoSelection.
func (s *Store) RemoveByKey(events ...model.Event) (int, error) {
	if len(events) == 0 {
		return 0, ErrNoSelection
	}
	keys := make(map[string]bool, len(events))
	for _, e := range events {
		keys[e.Key()] = true
	}
	return s.removeKeys(keys), nil
}

// RemoveKeys is RemoveByKey for callers that only hold identity keys.
func (s *Store) RemoveKeys(keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, ErrNoSelection
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return s.removeKeys(set), nil
}

func (s *Store) removeKeys(keys map[string]bool) int {
	kept := s.events[:0]
	removed := 0
	for _, e := range s.events {
		if keys[e.Key()] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.events[len(kept):])
	s.events = kept
	return removed
}

// Len returns the number of stored entries, duplicates included.
func (s *Store) Len() int { return len(s.events) }

// Materialize returns the stored events without duplicates, sorted by day in
// schedule order and then by start time.
func (s *Store) Materialize() []model.Event {
	seen := make(map[string]bool, len(s.events))
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return s.order.Less(out[i], out[j]) })
	return out
}

// Import parses an agenda spreadsheet and appends its rows. The blob is
// validated completely first; on error the store is unchanged.
func (s *Store) Import(blob []byte) (int, error) {
	events, err := ParseXLSX(blob, s.order, s.DefaultStart)
	if err != nil {
		return 0, err
	}
	s.events = append(s.events, events...)
	return len(events), nil
}

// Export serializes the materialized agenda as a spreadsheet.
func (s *Store) Export() ([]byte, error) {
	return ExportXLSX(s.Materialize())
}
