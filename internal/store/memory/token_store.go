package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]models.PushToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]models.PushToken)}
}

func (s *TokenStore) Upsert(_ context.Context, t models.PushToken, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[t.Key]; ok {
		at := now
		existing.LastUsedAt = &at
		s.tokens[t.Key] = existing
		return false, nil
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	s.tokens[t.Key] = t
	return true, nil
}

func (s *TokenStore) FindActive(_ context.Context, since time.Time) ([]models.PushToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PushToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		if t.CreatedAt.Before(since) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *TokenStore) Touch(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[key]
	if !ok {
		return store.ErrNotFound
	}
	t.LastUsedAt = &at
	s.tokens[key] = t
	return nil
}

// Get returns the stored token for key. Test helper.
func (s *TokenStore) Get(key string) (models.PushToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[key]
	return t, ok
}
