package profile

import (
	"context"
	"strings"
	"sync"
)

// Store reads and partially updates user profiles.
type Store interface {
	Read(ctx context.Context, userID string) (Profile, error)
	Update(ctx context.Context, userID string, u Update) error
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items ...Profile) *MemoryStore {
	s := &MemoryStore{items: make(map[string]Profile, len(items))}
	for _, p := range items {
		p.MedicalConditions = Conditions(p.MedicalConditions)
		s.items[p.UserID] = p
	}
	return s
}

// Read returns a copy of the stored profile.
func (s *MemoryStore) Read(_ context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.MedicalConditions = Conditions(p.MedicalConditions)
	return p, nil
}

// Update applies u, creating the profile on first write.
func (s *MemoryStore) Update(_ context.Context, userID string, u Update) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[userID]
	if !ok {
		p = Profile{UserID: userID, PreferredLanguage: "english", MedicalConditions: []string{}}
	}
	s.items[userID] = p.Apply(u)
	return nil
}
