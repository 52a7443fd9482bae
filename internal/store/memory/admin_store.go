package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/google/uuid"
)

type AdminStore struct {
	mu     sync.RWMutex
	admins map[string]models.Admin
}

func NewAdminStore() *AdminStore {
	return &AdminStore{admins: make(map[string]models.Admin)}
}

func (s *AdminStore) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[strings.ToLower(username)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *AdminStore) Create(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(a.Username)
	if _, ok := s.admins[key]; ok {
		return store.ErrDuplicate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.admins[key] = *a
	return nil
}

// Replace overwrites a stored admin. Test helper.
func (s *AdminStore) Replace(a models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(a.Username)
	if _, ok := s.admins[key]; !ok {
		return store.ErrNotFound
	}
	s.admins[key] = a
	return nil
}
