// server/internal/database/seeder.go
package database

import (
	"context"
	"log"
	"time"

	"farmwise-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DemoUserID = "demo-user-123"
	DemoCropID = "demo-crop-456"
)

// DemoUser is the sample farmer shown when the app runs in demo mode.
func DemoUser() models.User {
	return models.User{
		ID:       DemoUserID,
		Name:     "Demo Farmer",
		Location: models.Location{District: "Thiruvananthapuram", Taluk: "Neyyattinkara"},
		Crops:    []string{"Rice", "Coconut", "Banana"},
	}
}

// DemoCrop is the sample crop belonging to DemoUser.
func DemoCrop() models.Crop {
	return models.Crop{
		ID:           DemoCropID,
		UserID:       DemoUserID,
		Name:         "Rice",
		CurrentStage: models.StageGrowing,
		HealthStatus: models.HealthGood,
		Activities:   []models.Activity{},
	}
}

// SeedDemo inserts the demo farmer and crop unless they already exist.
func SeedDemo(ctx context.Context, db *mongo.Database) error {
	userCollection := db.Collection("users")

	count, err := userCollection.CountDocuments(ctx, bson.M{"id": DemoUserID})
	if err != nil {
		return err
	}
	if count > 0 {
		log.Println("Demo farmer already exists. Seeding skipped.")
		return nil
	}

	log.Println("Demo farmer not found. Seeding...")
	now := time.Now()

	user := DemoUser()
	user.CreatedAt = now
	if _, err := userCollection.InsertOne(ctx, user); err != nil {
		return err
	}

	crop := DemoCrop()
	crop.CreatedAt = now
	if _, err := db.Collection("crops").InsertOne(ctx, crop); err != nil {
		return err
	}

	log.Println("Demo farmer seeded successfully.")
	return nil
}
