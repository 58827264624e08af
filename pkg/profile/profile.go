// Package profile keeps the single logged-in customer used to prefill the
// checkout form.
package profile

import "sync"

type Profile struct {
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Avatar    string `json:"avatar"`
}

// Store holds at most one profile. It performs no validation.
type Store struct {
	mu      sync.RWMutex
	current *Profile
}

func NewStore() *Store {
	return &Store{}
}

// Login replaces the current profile.
func (s *Store) Login(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &p
}

func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns a copy of the logged-in profile, or nil.
func (s *Store) Current() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

func (s *Store) IsLoggedIn() bool {
	return s.Current() != nil
}
