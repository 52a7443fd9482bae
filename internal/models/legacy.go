package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyVisitor reads both camelCase generations written by the old server:
// the first one had a single free-text reason, the second one stored
// company/personToMeet/purpose and a checkoutTime.
type LegacyVisitor struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Phone        string             `bson:"phone"`
	Company      string             `bson:"company"`
	PersonToMeet string             `bson:"personToMeet"`
	Purpose      string             `bson:"purpose"`
	Reason       string             `bson:"reason"`
	PhotoPath    string             `bson:"photoPath"`
	Status       string             `bson:"status"`
	ApprovedBy   *string            `bson:"approvedBy"`
	RejectedBy   *string            `bson:"rejectedBy"`
	CheckoutTime *time.Time         `bson:"checkoutTime"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// ToVisitor converts a legacy document into the current schema. Purpose wins
// over reason; fields the old form never asked for get the sentinel.
func (l LegacyVisitor) ToVisitor() Visitor {
	status := VisitorStatus(strings.ToLower(strings.TrimSpace(l.Status)))
	switch status {
	case StatusApproved, StatusRejected:
	default:
		status = StatusPending
	}

	v := Visitor{
		ID:           l.ID,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		Name:         strings.TrimSpace(l.Name),
		Phone:        strings.TrimSpace(l.Phone),
		Company:      orNotProvided(l.Company),
		PersonToMeet: orNotProvided(l.PersonToMeet),
		Purpose:      orNotProvided(l.Purpose),
		PhotoURL:     l.PhotoPath,
		Status:       status,
	}
	if v.Purpose == CompanyNotProvided {
		v.Purpose = orNotProvided(l.Reason)
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}

	// Only the attribution matching the status survives
	switch status {
	case StatusApproved:
		v.ApprovedBy = nonEmpty(l.ApprovedBy)
		if l.CheckoutTime != nil && !l.CheckoutTime.IsZero() {
			out := *l.CheckoutTime
			if out.Before(v.CreatedAt) {
				out = v.CreatedAt
			}
			v.CheckoutTime = &out
		}
	case StatusRejected:
		v.RejectedBy = nonEmpty(l.RejectedBy)
	}
	return v
}

// LegacyPushToken is a document from the old fcmtokens collection.
type LegacyPushToken struct {
	ID        primitive.ObjectID `bson:"_id"`
	Token     string             `bson:"token"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ToPushToken keys the token the same way the registry does. The stored
// token was already lowercased by the old schema.
func (l LegacyPushToken) ToPushToken() PushToken {
	token := strings.TrimSpace(l.Token)
	return PushToken{
		Key:       NormalizeTokenKey(token),
		Token:     token,
		CreatedAt: l.CreatedAt,
	}
}

func orNotProvided(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return CompanyNotProvided
	}
	return s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	out := strings.TrimSpace(*s)
	return &out
}
