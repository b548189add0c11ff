// Package store keeps the in-memory mirror of the library API state for one signed-in session.
package store

import (
	"sync"

	"github.com/Astemirdum/library-portal/portal/internal/model"
)

// Entity is anything the API addresses by id.
type Entity interface {
	Key() string
}

type Store struct {
	mu      sync.RWMutex
	version uint64

	Books *Collection[model.Book]
	Users *Collection[model.User]
	Loans *Collection[model.LoanRecord]

	profile *model.Profile
}

func New() *Store {
	s := &Store{}
	s.Books = newCollection[model.Book](s)
	s.Users = newCollection[model.User](s)
	s.Loans = newCollection[model.LoanRecord](s)
	return s
}

func (s *Store) SetProfile(p *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p != nil {
		cp := *p
		p = &cp
	}
	s.profile = p
	s.version++
}

func (s *Store) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

// Reset discards every collection and the profile.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Books.items = nil
	s.Users.items = nil
	s.Loans.items = nil
	s.profile = nil
	s.version++
}

// Version grows on every change of the store.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot is an immutable copy of the store taken for rendering.
type Snapshot struct {
	Version uint64
	Books   []model.Book
	Users   []model.User
	Loans   []model.LoanRecord
	Profile *model.Profile
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Version: s.version,
		Books:   clone(s.Books.items),
		Users:   clone(s.Users.items),
		Loans:   clone(s.Loans.items),
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
