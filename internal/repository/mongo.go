package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmwise-api-server/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection      = "users"
	cropsCollection      = "crops"
	activitiesCollection = "activities"
	adviceCollection     = "ai_advice"
)

type MongoRepository struct {
	DB  *mongo.Database
	now func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{DB: db, now: time.Now}
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.DB.Client().Ping(ctx, readpref.Primary())
}

// --- users ---

func (r *MongoRepository) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = ""
	if err := u.Normalize(r.now()); err != nil {
		return models.User{}, err
	}
	if _, err := r.DB.Collection(usersCollection).InsertOne(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *MongoRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.DB.Collection(usersCollection).FindOne(ctx, bson.M{"id": id}).Decode(&u)
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	return u, nil
}

func (r *MongoRepository) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	if err := patch.Validate(); err != nil {
		return models.User{}, err
	}
	if err := r.set(ctx, usersCollection, id, patch, "user"); err != nil {
		return models.User{}, err
	}
	return r.GetUser(ctx, id)
}

// SaveUser inserts or replaces the user with u.ID.
func (r *MongoRepository) SaveUser(ctx context.Context, u models.User) error {
	if err := u.Normalize(r.now()); err != nil {
		return err
	}
	_, err := r.DB.Collection(usersCollection).ReplaceOne(ctx, bson.M{"id": u.ID}, u, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// --- crops ---

func (r *MongoRepository) CreateCrop(ctx context.Context, c models.Crop) (models.Crop, error) {
	if c.UserID == "" {
		return models.Crop{}, &models.ValidationError{Field: "user_id", Reason: "is required"}
	}
	c.ID = ""
	if err := c.Normalize(r.now()); err != nil {
		return models.Crop{}, err
	}
	if _, err := r.DB.Collection(cropsCollection).InsertOne(ctx, c); err != nil {
		return models.Crop{}, fmt.Errorf("insert crop: %w", err)
	}
	return c, nil
}

func (r *MongoRepository) GetCrop(ctx context.Context, id string) (models.Crop, error) {
	var c models.Crop
	err := r.DB.Collection(cropsCollection).FindOne(ctx, bson.M{"id": id}).Decode(&c)
	if err != nil {
		return models.Crop{}, notFound(err, "crop")
	}
	c.Activities = []models.Activity{}
	return c, nil
}

func (r *MongoRepository) ListCrops(ctx context.Context, userID string) ([]models.Crop, error) {
	cursor, err := r.DB.Collection(cropsCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query crops: %w", err)
	}
	defer cursor.Close(ctx)

	var crops []models.Crop
	if err := cursor.All(ctx, &crops); err != nil {
		return nil, fmt.Errorf("decode crops: %w", err)
	}
	if crops == nil {
		crops = []models.Crop{}
	}
	for i := range crops {
		crops[i].Activities = []models.Activity{}
	}
	return crops, nil
}

func (r *MongoRepository) UpdateCrop(ctx context.Context, id string, patch models.CropPatch) (models.Crop, error) {
	if err := patch.Validate(); err != nil {
		return models.Crop{}, err
	}
	if err := r.set(ctx, cropsCollection, id, patch, "crop"); err != nil {
		return models.Crop{}, err
	}
	return r.GetCrop(ctx, id)
}

// DeleteCrop removes the crop with its activities and advice.
func (r *MongoRepository) DeleteCrop(ctx context.Context, id string) error {
	res, err := r.DB.Collection(cropsCollection).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete crop: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("crop %s: %w", id, ErrNotFound)
	}
	if _, err := r.DB.Collection(activitiesCollection).DeleteMany(ctx, bson.M{"crop_id": id}); err != nil {
		return fmt.Errorf("delete crop activities: %w", err)
	}
	if _, err := r.DB.Collection(adviceCollection).DeleteMany(ctx, bson.M{"crop_id": id}); err != nil {
		return fmt.Errorf("delete crop advice: %w", err)
	}
	return nil
}

// SaveCrop inserts or replaces the crop with c.ID. Activities are not part of
// the crop document.
func (r *MongoRepository) SaveCrop(ctx context.Context, c models.Crop) error {
	if err := c.Normalize(r.now()); err != nil {
		return err
	}
	_, err := r.DB.Collection(cropsCollection).ReplaceOne(ctx, bson.M{"id": c.ID}, c, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save crop: %w", err)
	}
	return nil
}

// --- activities ---

// CreateActivity stores a and moves the crop's last_activity to a.Date.
func (r *MongoRepository) CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	if _, err := r.DB.Collection(activitiesCollection).InsertOne(ctx, a); err != nil {
		return models.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	_, err := r.DB.Collection(cropsCollection).UpdateOne(ctx,
		bson.M{"id": a.CropID},
		bson.M{"$set": bson.M{"last_activity": a.Date, "updated_at": r.now()}},
	)
	if err != nil {
		return models.Activity{}, fmt.Errorf("update crop last_activity: %w", err)
	}
	return a, nil
}

// ListActivities returns the crop's activities, newest first.
func (r *MongoRepository) ListActivities(ctx context.Context, cropID string) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.DB.Collection(activitiesCollection).Find(ctx, bson.M{"crop_id": cropID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer cursor.Close(ctx)

	var acts []models.Activity
	if err := cursor.All(ctx, &acts); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	return acts, nil
}

// --- advice ---

func (r *MongoRepository) SaveAdvice(ctx context.Context, a models.Advice) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	if _, err := r.DB.Collection(adviceCollection).InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert advice: %w", err)
	}
	return nil
}

// set applies patch as a $set on the document with the given id. An empty
// patch only checks that the document exists.
func (r *MongoRepository) set(ctx context.Context, collection, id string, patch any, kind string) error {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		count, err := r.DB.Collection(collection).CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return fmt.Errorf("count %s: %w", kind, err)
		}
		if count == 0 {
			return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
		}
		return nil
	}
	fields["updated_at"] = r.now()

	res, err := r.DB.Collection(collection).UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func notFound(err error, kind string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", kind, err)
}

var _ Repository = (*MongoRepository)(nil)
