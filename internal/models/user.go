package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User struct matches the document in MongoDB
type User struct {
	ID             string     `bson:"id" json:"id"`
	Name           string     `bson:"name" json:"name"`
	Phone          string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Location       Location   `bson:"location" json:"location"`
	Crops          []string   `bson:"crops" json:"crops"`
	FarmSize       string     `bson:"farm_size,omitempty" json:"farm_size,omitempty"`
	IrrigationType string     `bson:"irrigation_type,omitempty" json:"irrigation_type,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Normalize fills generated fields and checks the required ones.
func (u *User) Normalize(now time.Time) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Crops == nil {
		u.Crops = []string{}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	return nil
}

// UserPatch carries the user fields a PUT may change.
type UserPatch struct {
	Name           *string   `bson:"name,omitempty" json:"name,omitempty"`
	Phone          *string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Location       *Location `bson:"location,omitempty" json:"location,omitempty"`
	Crops          []string  `bson:"crops,omitempty" json:"crops,omitempty"`
	FarmSize       *string   `bson:"farm_size,omitempty" json:"farm_size,omitempty"`
	IrrigationType *string   `bson:"irrigation_type,omitempty" json:"irrigation_type,omitempty"`
}

func (p UserPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}
