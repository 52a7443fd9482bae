package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenRetention is how long a push token lives after it was first registered.
const TokenRetention = 90 * 24 * time.Hour

// PushToken is a browser/device token that receives new-visitor notifications.
type PushToken struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	// Key is the normalized form used for de-duplication. Token keeps the
	// original spelling because FCM tokens are case sensitive on delivery.
	Key   string `bson:"key" json:"-"`
	Token string `bson:"token" json:"token"`

	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	LastUsedAt *time.Time `bson:"last_used_at,omitempty" json:"lastUsedAt,omitempty"`
}

// NormalizeTokenKey trims and lower-cases a token for lookups.
func NormalizeTokenKey(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
