package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType names an entry in a visitor's audit trail.
type EventType string

const (
	EventCreated    EventType = "created"
	EventApproved   EventType = "approved"
	EventRejected   EventType = "rejected"
	EventCheckedOut EventType = "checked_out"
	EventDeleted    EventType = "deleted"
)

// VisitorEvent is an append-only record of something that happened to a visitor.
// It is also the payload of the live feed.
type VisitorEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VisitorID primitive.ObjectID `bson:"visitor_id" json:"visitorId"`
	Type      EventType          `bson:"type" json:"type"`
	From      VisitorStatus      `bson:"from,omitempty" json:"from,omitempty"`
	To        VisitorStatus      `bson:"to,omitempty" json:"to,omitempty"`
	Actor     string             `bson:"actor,omitempty" json:"actor,omitempty"`
	Override  bool               `bson:"override,omitempty" json:"override,omitempty"`
	At        time.Time          `bson:"at" json:"at"`

	// Snapshot of the visitor after the event; only sent on the live feed
	Visitor *Visitor `bson:"-" json:"visitor,omitempty"`
}

// EventTypeForStatus maps a decision status to its audit event type.
func EventTypeForStatus(s VisitorStatus) EventType {
	if s == StatusRejected {
		return EventRejected
	}
	return EventApproved
}
