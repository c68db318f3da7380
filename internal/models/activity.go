package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityWatering    ActivityType = "watering"
	ActivityFertilizer  ActivityType = "fertilizer"
	ActivityPesticide   ActivityType = "pesticide"
	ActivityHarvesting  ActivityType = "harvesting"
	ActivityPlanting    ActivityType = "planting"
	ActivityObservation ActivityType = "observation"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityWatering, ActivityFertilizer, ActivityPesticide, ActivityHarvesting, ActivityPlanting, ActivityObservation:
		return true
	}
	return false
}

// Activity is one logged farm action. It is never edited after creation.
type Activity struct {
	ID          string       `bson:"id" json:"id"`
	CropID      string       `bson:"crop_id" json:"crop_id"`
	Type        ActivityType `bson:"type" json:"type"`
	Description string       `bson:"description" json:"description"`
	Date        time.Time    `bson:"date" json:"date"`
	Quantity    string       `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
	ImageURL    string       `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
}

// ActivityInput is what a farmer submits from the log form.
type ActivityInput struct {
	CropID      string       `json:"crop_id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Date        *time.Time   `json:"date,omitempty"`
	Quantity    string       `json:"quantity,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
}

// NewActivity validates in and builds an Activity for cropID.
// The date defaults to now when the form left it blank.
func NewActivity(cropID string, in ActivityInput, now time.Time) (Activity, error) {
	if strings.TrimSpace(cropID) == "" {
		return Activity{}, &ValidationError{Field: "crop_id", Reason: "is required"}
	}
	if !in.Type.Valid() {
		return Activity{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown activity type %q", in.Type)}
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Activity{}, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	return Activity{
		ID:          uuid.NewString(),
		CropID:      cropID,
		Type:        in.Type,
		Description: desc,
		Date:        date,
		Quantity:    strings.TrimSpace(in.Quantity),
		Notes:       strings.TrimSpace(in.Notes),
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
	}, nil
}

// Summary renders "type (description)" for prompts.
func (a Activity) Summary() string {
	return fmt.Sprintf("%s (%s)", a.Type, a.Description)
}
