package turn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists completed conversation turns.
type Store interface {
	Create(ctx context.Context, userID string, t Turn) (Ref, error)
	List(ctx context.Context, userID string, limit int) ([]Record, error)
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make([]Record, 0, 16)}
}

// Create appends a new record. The follow-up slice is copied so later
// changes by the caller cannot reach the stored turn.
func (s *MemoryStore) Create(_ context.Context, userID string, t Turn) (Ref, error) {
	ref := Ref{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	t.FollowUpQuestions = CloneFollowUps(t.FollowUpQuestions)
	if t.FollowUpQuestions == nil {
		t.FollowUpQuestions = []FollowUp{}
	}

	s.mu.Lock()
	s.records = append(s.records, Record{Ref: ref, UserID: userID, Turn: t})
	s.mu.Unlock()

	return ref, nil
}

// List returns the newest records for a user, newest first.
func (s *MemoryStore) List(_ context.Context, userID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID != userID {
			continue
		}
		rec := s.records[i]
		rec.FollowUpQuestions = CloneFollowUps(rec.FollowUpQuestions)
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
