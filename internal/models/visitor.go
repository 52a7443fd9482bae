package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VisitorStatus is the approval state of a visitor entry.
type VisitorStatus string

const (
	StatusPending  VisitorStatus = "pending"
	StatusApproved VisitorStatus = "approved"
	StatusRejected VisitorStatus = "rejected"
)

// CompanyNotProvided is stored when the visitor leaves the company field empty.
const CompanyNotProvided = "N/A"

// IsDecision reports whether s is a status an admin can set.
func (s VisitorStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Visitor is one registration at the gate and its approval/checkout state.
type Visitor struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`

	Name         string `bson:"name" json:"name"`
	Phone        string `bson:"phone" json:"phone"`
	Company      string `bson:"company" json:"company"`
	PersonToMeet string `bson:"person_to_meet" json:"personToMeet"`
	Purpose      string `bson:"purpose" json:"purpose"`

	// Photo bytes live on the image host; only the URL is kept here
	PhotoURL string `bson:"photo_url" json:"photoReference"`

	Status     VisitorStatus `bson:"status" json:"status"`
	ApprovedBy *string       `bson:"approved_by,omitempty" json:"approvedBy"`
	RejectedBy *string       `bson:"rejected_by,omitempty" json:"rejectedBy"`

	CheckoutTime *time.Time `bson:"checkout_time,omitempty" json:"checkoutTime"`
}

// CheckedOut reports whether the guard has recorded the visitor leaving.
func (v *Visitor) CheckedOut() bool {
	return v.CheckoutTime != nil
}

// VisitorPatch is a partial update applied by id. Nil fields are left untouched.
type VisitorPatch struct {
	// ExpectStatus makes the update conditional on the stored status
	ExpectStatus *VisitorStatus
	// ExpectNoCheckout makes the update conditional on no checkout being stored
	ExpectNoCheckout bool

	Status       *VisitorStatus
	ApprovedBy   *string // empty string clears the field
	RejectedBy   *string // empty string clears the field
	CheckoutTime *time.Time
	UpdatedAt    time.Time
}

// Apply mutates v in place. Stores without native partial updates use it.
func (p VisitorPatch) Apply(v *Visitor) {
	if p.Status != nil {
		v.Status = *p.Status
	}
	if p.ApprovedBy != nil {
		v.ApprovedBy = optional(*p.ApprovedBy)
	}
	if p.RejectedBy != nil {
		v.RejectedBy = optional(*p.RejectedBy)
	}
	if p.CheckoutTime != nil {
		t := *p.CheckoutTime
		v.CheckoutTime = &t
	}
	if !p.UpdatedAt.IsZero() {
		v.UpdatedAt = p.UpdatedAt
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
