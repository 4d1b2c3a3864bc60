// Package selection tracks which listed files a user has marked for a bulk action.
package selection

import (
	"strings"
	"sync"
)

var keyEscaper = strings.NewReplacer(`\`, `\\`, "-", `\-`)

// Key builds the composite selection key "revisionID-trackID" for a file in a
// revision track. Hyphens and backslashes inside either ID are backslash-escaped
// so distinct pairs never share a key.
func Key(revisionID, trackID string) string {
	return keyEscaper.Replace(revisionID) + "-" + keyEscaper.Replace(trackID)
}

// Set is a thread-safe set of selection keys. Membership is by string equality,
// so it stays correct when the listing objects are rebuilt.
type Set struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSet creates a set holding the given keys.
func NewSet(keys ...string) *Set {
	s := &Set{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

func (s *Set) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

func (s *Set) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

// Toggle flips membership of key and reports whether it is now selected.
func (s *Set) Toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *Set) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]struct{})
}

// AllSelected reports whether every key of a non-empty listing is selected.
func (s *Set) AllSelected(listing []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allSelectedLocked(listing)
}

func (s *Set) allSelectedLocked(listing []string) bool {
	if len(listing) == 0 {
		return false
	}
	for _, k := range listing {
		if _, ok := s.keys[k]; !ok {
			return false
		}
	}
	return true
}

// SetAll applies a "select all" checkbox: checked selects every key of the
// current listing, unchecked empties the set.
func (s *Set) SetAll(checked bool, listing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAllLocked(checked, listing)
}

func (s *Set) setAllLocked(checked bool, listing []string) {
	s.keys = make(map[string]struct{}, len(listing))
	if !checked {
		return
	}
	for _, k := range listing {
		s.keys[k] = struct{}{}
	}
}

// ToggleAll switches between the empty set and the full key set of the live
// listing. It returns the new checkbox state.
func (s *Set) ToggleAll(listing []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	checked := !s.allSelectedLocked(listing)
	s.setAllLocked(checked, listing)
	return checked
}

// Ordered returns the selected keys in listing order.
func (s *Set) Ordered(listing []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for _, k := range listing {
		if _, ok := s.keys[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
