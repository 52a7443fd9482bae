package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const visitorsCollection = "visitors"

type VisitorStore struct {
	col *mongo.Collection
}

func NewVisitorStore(db *mongo.Database) *VisitorStore {
	return &VisitorStore{col: db.Collection(visitorsCollection)}
}

func (s *VisitorStore) Insert(ctx context.Context, v *models.Visitor) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *VisitorStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	var v models.Visitor
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VisitorStore) FindAll(ctx context.Context, newestFirst bool) ([]models.Visitor, error) {
	order := 1
	if newestFirst {
		order = -1
	}
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: order}}))
}

func (s *VisitorStore) FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Visitor, error) {
	filter := bson.M{
		"created_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (s *VisitorStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Visitor, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	visitors := []models.Visitor{}
	if err = cursor.All(ctx, &visitors); err != nil {
		return nil, err
	}
	return visitors, nil
}

func (s *VisitorStore) Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error) {
	filter := bson.M{"_id": id}
	if patch.ExpectStatus != nil {
		filter["status"] = *patch.ExpectStatus
	}
	if patch.ExpectNoCheckout {
		// matches a missing or null field
		filter["checkout_time"] = nil
	}

	update := visitorUpdateDoc(patch)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var v models.Visitor
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if patch.ExpectStatus == nil && !patch.ExpectNoCheckout {
			return nil, store.ErrNotFound
		}
		// Tell a missing document apart from a lost race on the preconditions
		count, cerr := s.col.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if count == 0 {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrPreconditionFailed
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// visitorUpdateDoc turns a patch into $set/$unset operators.
func visitorUpdateDoc(p models.VisitorPatch) bson.M {
	set := bson.M{}
	unset := bson.M{}

	if p.Status != nil {
		set["status"] = *p.Status
	}
	setOrUnset(set, unset, "approved_by", p.ApprovedBy)
	setOrUnset(set, unset, "rejected_by", p.RejectedBy)
	if p.CheckoutTime != nil {
		set["checkout_time"] = *p.CheckoutTime
	}
	if !p.UpdatedAt.IsZero() {
		set["updated_at"] = p.UpdatedAt
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func setOrUnset(set, unset bson.M, field string, value *string) {
	if value == nil {
		return
	}
	if *value == "" {
		unset[field] = ""
		return
	}
	set[field] = *value
}

func (s *VisitorStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
