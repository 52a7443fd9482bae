package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLegacyVisitorToVisitor(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	admin := "ravi"
	guard := "guard1"

	legacy := LegacyVisitor{
		ID:         primitive.NewObjectID(),
		Name:       "Asha",
		Phone:      "9876543210",
		Reason:     "Interview",
		PhotoPath:  "https://x/y.jpg",
		Status:     "approved",
		ApprovedBy: &admin,
		RejectedBy: &guard,
		CreatedAt:  created,
	}

	v := legacy.ToVisitor()

	assert.Equal(t, legacy.ID, v.ID)
	assert.Equal(t, "Interview", v.Purpose)
	assert.Equal(t, CompanyNotProvided, v.Company)
	assert.Equal(t, CompanyNotProvided, v.PersonToMeet)
	assert.Equal(t, "https://x/y.jpg", v.PhotoURL)
	assert.Equal(t, StatusApproved, v.Status)
	if assert.NotNil(t, v.ApprovedBy) {
		assert.Equal(t, "ravi", *v.ApprovedBy)
	}
	assert.Nil(t, v.RejectedBy, "attribution that contradicts the status is dropped")
	assert.Equal(t, created, v.UpdatedAt)
}

func TestLegacyVisitorUnknownStatusBecomesPending(t *testing.T) {
	v := LegacyVisitor{Status: "", Reason: ""}.ToVisitor()

	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, CompanyNotProvided, v.Purpose)
	assert.Nil(t, v.ApprovedBy)
	assert.Nil(t, v.RejectedBy)
}

func TestLegacyVisitorDecodesCamelCaseDocument(t *testing.T) {
	id := primitive.NewObjectID()
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	updated := created.Add(2 * time.Hour)
	checkout := created.Add(3 * time.Hour)

	raw, err := bson.Marshal(bson.M{
		"_id":          id,
		"name":         " Asha ",
		"phone":        "9876543210",
		"company":      "Acme",
		"personToMeet": "Ravi",
		"purpose":      "Interview",
		"photoPath":    "https://x/y.jpg",
		"status":       "approved",
		"approvedBy":   "ravi",
		"rejectedBy":   nil,
		"checkoutTime": checkout,
		"createdAt":    created,
		"updatedAt":    updated,
		"__v":          0,
	})
	require.NoError(t, err)

	var legacy LegacyVisitor
	require.NoError(t, bson.Unmarshal(raw, &legacy))
	v := legacy.ToVisitor()

	assert.Equal(t, id, v.ID)
	assert.Equal(t, "Asha", v.Name)
	assert.Equal(t, "Acme", v.Company)
	assert.Equal(t, "Ravi", v.PersonToMeet)
	assert.Equal(t, "Interview", v.Purpose)
	assert.Equal(t, "https://x/y.jpg", v.PhotoURL)
	assert.Equal(t, StatusApproved, v.Status)
	assert.True(t, created.Equal(v.CreatedAt))
	assert.True(t, updated.Equal(v.UpdatedAt))
	if assert.NotNil(t, v.ApprovedBy) {
		assert.Equal(t, "ravi", *v.ApprovedBy)
	}
	assert.Nil(t, v.RejectedBy)
	if assert.NotNil(t, v.CheckoutTime) {
		assert.True(t, checkout.Equal(*v.CheckoutTime))
	}

	// The converted document carries the snake_case fields the stores query on
	doc, err := bson.Marshal(v)
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(doc, &m))
	assert.Contains(t, m, "created_at")
	assert.Contains(t, m, "person_to_meet")
	assert.Contains(t, m, "checkout_time")
	assert.NotContains(t, m, "createdAt")
}

func TestLegacyVisitorDropsCheckoutUnlessApproved(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	early := created.Add(-time.Hour)

	pending := LegacyVisitor{Status: "pending", CreatedAt: created, CheckoutTime: &early}.ToVisitor()
	assert.Nil(t, pending.CheckoutTime)

	approved := LegacyVisitor{Status: "approved", CreatedAt: created, CheckoutTime: &early}.ToVisitor()
	if assert.NotNil(t, approved.CheckoutTime) {
		assert.Equal(t, created, *approved.CheckoutTime, "checkout is never before creation")
	}
}

func TestLegacyPushTokenToPushToken(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tok := LegacyPushToken{Token: " abc:def ", CreatedAt: created}.ToPushToken()

	assert.Equal(t, "abc:def", tok.Key)
	assert.Equal(t, "abc:def", tok.Token)
	assert.Equal(t, created, tok.CreatedAt)
}

func TestVisitorPatchApply(t *testing.T) {
	approver := "admin"
	v := Visitor{Status: StatusApproved, ApprovedBy: &approver}

	rejected := StatusRejected
	none := ""
	by := "guard1"
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	VisitorPatch{Status: &rejected, ApprovedBy: &none, RejectedBy: &by, UpdatedAt: now}.Apply(&v)

	assert.Equal(t, StatusRejected, v.Status)
	assert.Nil(t, v.ApprovedBy)
	if assert.NotNil(t, v.RejectedBy) {
		assert.Equal(t, "guard1", *v.RejectedBy)
	}
	assert.Equal(t, now, v.UpdatedAt)
}

func TestNormalizeTokenKey(t *testing.T) {
	assert.Equal(t, "abc:def", NormalizeTokenKey("  AbC:DeF \n"))
}
