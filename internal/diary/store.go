// Package diary holds the in-memory entry store, the canonical ordered list
// of diary entries for the running session.
package diary

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/atinyakov/FoodDiary/internal/models"
)

var (
	// ErrNoProducts is returned when an entry has no products.
	ErrNoProducts = errors.New("entry must contain at least one product")
	// ErrDuplicateID is returned when an entry id is already in the store.
	ErrDuplicateID = errors.New("entry id already exists")
)

// Store is an ordered collection of entries, newest first.
// Every accessor returns copies; callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	entries []models.Entry
}

// NewStore returns a store holding a copy of entries.
func NewStore(entries ...models.Entry) *Store {
	s := &Store{}
	s.ReplaceAll(entries)
	return s
}

// Add prepends e to the store.
func (s *Store) Add(e models.Entry) error {
	if len(e.Products) == 0 {
		return ErrNoProducts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(e.ID) >= 0 {
		return ErrDuplicateID
	}
	s.entries = slices.Insert(s.entries, 0, e.Clone())
	return nil
}

// Update replaces products and the allergy flag of the entry with the given id,
// keeping its id and date. An unknown id or an empty product list is ignored
// and false is returned.
func (s *Store) Update(id string, products []string, hasAllergy bool) bool {
	if len(products) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries[i].Products = slices.Clone(products)
	s.entries[i].HasAllergy = hasAllergy
	return true
}

// Remove deletes the entry with the given id. An unknown id is ignored.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// ReplaceAll overwrites the store with entries in the given order.
// Entries without products and repeated ids are dropped; the number of
// dropped entries is returned.
func (s *Store) ReplaceAll(entries []models.Entry) int {
	next := make([]models.Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	dropped := 0
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup || len(e.Products) == 0 {
			dropped++
			continue
		}
		seen[e.ID] = struct{}{}
		next = append(next, e.Clone())
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
	return dropped
}

// List returns a copy of all entries in store order.
func (s *Store) List() []models.Entry {
	return s.Filter(models.FilterAll)
}

// Filter returns a copy of the entries matching f, in store order.
func (s *Store) Filter(f models.AllergyFilter) []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Match(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Entry{}, false
	}
	return s.entries[i].Clone(), true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// AllergyCount returns the number of entries followed by a reaction.
func (s *Store) AllergyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if e.HasAllergy {
			n++
		}
	}
	return n
}

// Products returns every distinct product name in first-seen order.
func (s *Store) Products() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	seen := make(map[string]struct{})
	for _, e := range s.entries {
		for _, p := range e.Products {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Suggest returns known products containing query, case-insensitively.
// An empty query yields no suggestions.
func (s *Store) Suggest(query string) []string {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}
	var out []string
	for _, p := range s.Products() {
		if strings.Contains(strings.ToLower(p), q) {
			out = append(out, p)
		}
	}
	return out
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.entries, func(e models.Entry) bool { return e.ID == id })
}
