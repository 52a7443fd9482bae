package mongodb

import (
	"context"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "visitor_events"

type EventStore struct {
	col *mongo.Collection
}

func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{col: db.Collection(eventsCollection)}
}

func (s *EventStore) Append(ctx context.Context, e *models.VisitorEvent) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, e)
	return err
}

func (s *EventStore) ListByVisitor(ctx context.Context, visitorID primitive.ObjectID) ([]models.VisitorEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"visitor_id": visitorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []models.VisitorEvent{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
