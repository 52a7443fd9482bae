package store

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the id.
	ErrNotFound = errors.New("store: not found")
	// ErrPreconditionFailed is returned when a conditional update no longer matches.
	ErrPreconditionFailed = errors.New("store: precondition failed")
	// ErrDuplicate is returned on a unique key violation.
	ErrDuplicate = errors.New("store: duplicate key")
)

// VisitorStore persists visitor entries.
type VisitorStore interface {
	Insert(ctx context.Context, v *models.Visitor) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error)
	FindAll(ctx context.Context, newestFirst bool) ([]models.Visitor, error)
	// FindCreatedBetween returns visitors with start <= created_at <= end, oldest first.
	FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Visitor, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TokenStore persists push tokens.
type TokenStore interface {
	// Upsert inserts the token when its key is new. Otherwise it sets
	// last_used_at and reports created=false.
	Upsert(ctx context.Context, t models.PushToken, now time.Time) (created bool, err error)
	// FindActive returns tokens created at or after since.
	FindActive(ctx context.Context, since time.Time) ([]models.PushToken, error)
	Touch(ctx context.Context, key string, at time.Time) error
}

// EventStore is the append-only visitor audit trail.
type EventStore interface {
	Append(ctx context.Context, e *models.VisitorEvent) error
	ListByVisitor(ctx context.Context, visitorID primitive.ObjectID) ([]models.VisitorEvent, error)
}

// AdminStore holds admin accounts.
type AdminStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	Create(ctx context.Context, a *models.Admin) error
}
