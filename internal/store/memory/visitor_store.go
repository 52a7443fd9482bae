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

// VisitorStore keeps visitors in a map. Used by tests and local runs without Mongo.
type VisitorStore struct {
	mu       sync.RWMutex
	visitors map[primitive.ObjectID]models.Visitor
}

func NewVisitorStore() *VisitorStore {
	return &VisitorStore{visitors: make(map[primitive.ObjectID]models.Visitor)}
}

func (s *VisitorStore) Insert(_ context.Context, v *models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	if _, ok := s.visitors[v.ID]; ok {
		return store.ErrDuplicate
	}
	s.visitors[v.ID] = cloneVisitor(*v)
	return nil
}

func (s *VisitorStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneVisitor(v)
	return &out, nil
}

func (s *VisitorStore) FindAll(_ context.Context, newestFirst bool) ([]models.Visitor, error) {
	s.mu.RLock()
	out := make([]models.Visitor, 0, len(s.visitors))
	for _, v := range s.visitors {
		out = append(out, cloneVisitor(v))
	}
	s.mu.RUnlock()

	sortByCreated(out, newestFirst)
	return out, nil
}

func (s *VisitorStore) FindCreatedBetween(_ context.Context, start, end time.Time) ([]models.Visitor, error) {
	s.mu.RLock()
	var out []models.Visitor
	for _, v := range s.visitors {
		if v.CreatedAt.Before(start) || v.CreatedAt.After(end) {
			continue
		}
		out = append(out, cloneVisitor(v))
	}
	s.mu.RUnlock()

	sortByCreated(out, false)
	return out, nil
}

func (s *VisitorStore) Update(_ context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.ExpectStatus != nil && v.Status != *patch.ExpectStatus {
		return nil, store.ErrPreconditionFailed
	}
	if patch.ExpectNoCheckout && v.CheckoutTime != nil {
		return nil, store.ErrPreconditionFailed
	}
	patch.Apply(&v)
	s.visitors[id] = v
	out := cloneVisitor(v)
	return &out, nil
}

func (s *VisitorStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visitors[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.visitors, id)
	return nil
}

func sortByCreated(vs []models.Visitor, newestFirst bool) {
	sort.SliceStable(vs, func(i, j int) bool {
		if newestFirst {
			return vs[i].CreatedAt.After(vs[j].CreatedAt)
		}
		return vs[i].CreatedAt.Before(vs[j].CreatedAt)
	})
}

// cloneVisitor copies pointer fields so callers cannot mutate stored state.
func cloneVisitor(v models.Visitor) models.Visitor {
	if v.ApprovedBy != nil {
		s := *v.ApprovedBy
		v.ApprovedBy = &s
	}
	if v.RejectedBy != nil {
		s := *v.RejectedBy
		v.RejectedBy = &s
	}
	if v.CheckoutTime != nil {
		t := *v.CheckoutTime
		v.CheckoutTime = &t
	}
	return v
}
