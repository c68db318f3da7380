// Package repository persists users, crops, activities and advice in MongoDB.
package repository

import (
	"context"
	"errors"

	"farmwise-api-server/internal/models"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("database not available")
)

// Repository is the durable store. Handlers only see this interface so the
// service keeps working when MongoDB is not configured.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	SaveUser(ctx context.Context, u models.User) error

	CreateCrop(ctx context.Context, c models.Crop) (models.Crop, error)
	GetCrop(ctx context.Context, id string) (models.Crop, error)
	ListCrops(ctx context.Context, userID string) ([]models.Crop, error)
	UpdateCrop(ctx context.Context, id string, patch models.CropPatch) (models.Crop, error)
	DeleteCrop(ctx context.Context, id string) error
	SaveCrop(ctx context.Context, c models.Crop) error

	CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error)
	ListActivities(ctx context.Context, cropID string) ([]models.Activity, error)

	SaveAdvice(ctx context.Context, a models.Advice) error
}
