package memory

import (
	"context"
	"sync"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStore struct {
	mu     sync.RWMutex
	events []models.VisitorEvent
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Append(_ context.Context, e *models.VisitorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	stored := *e
	stored.Visitor = nil
	s.events = append(s.events, stored)
	return nil
}

func (s *EventStore) ListByVisitor(_ context.Context, visitorID primitive.ObjectID) ([]models.VisitorEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VisitorEvent
	for _, e := range s.events {
		if e.VisitorID == visitorID {
			out = append(out, e)
		}
	}
	return out, nil
}
