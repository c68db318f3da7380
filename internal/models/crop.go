// server/internal/models/crop.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CropStage is the growth stage of a crop.
type CropStage string

const (
	StagePlanted   CropStage = "planted"
	StageGrowing   CropStage = "growing"
	StageFlowering CropStage = "flowering"
	StageFruiting  CropStage = "fruiting"
	StageMature    CropStage = "mature"
)

func (s CropStage) Valid() bool {
	switch s {
	case StagePlanted, StageGrowing, StageFlowering, StageFruiting, StageMature:
		return true
	}
	return false
}

// HealthStatus is the farmer's assessment of a crop.
type HealthStatus string

const (
	HealthGood     HealthStatus = "good"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

func (h HealthStatus) Valid() bool {
	switch h {
	case HealthGood, HealthWarning, HealthCritical:
		return true
	}
	return false
}

type Crop struct {
	ID           string       `bson:"id" json:"id"`
	UserID       string       `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Name         string       `bson:"name" json:"name"`
	ImageURL     string       `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CurrentStage CropStage    `bson:"current_stage" json:"current_stage"`
	HealthStatus HealthStatus `bson:"health_status" json:"health_status"`
	PlantingDate *time.Time   `bson:"planting_date,omitempty" json:"planting_date,omitempty"`
	LastActivity *time.Time   `bson:"last_activity,omitempty" json:"last_activity,omitempty"`
	// Activities are kept newest first. MongoDB stores them in their own collection.
	Activities []Activity `bson:"-" json:"activities"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Normalize fills defaults and validates the enums.
func (c *Crop) Normalize(now time.Time) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if c.CurrentStage == "" {
		c.CurrentStage = StagePlanted
	}
	if !c.CurrentStage.Valid() {
		return &ValidationError{Field: "current_stage", Reason: fmt.Sprintf("unknown stage %q", c.CurrentStage)}
	}
	if c.HealthStatus == "" {
		c.HealthStatus = HealthGood
	}
	if !c.HealthStatus.Valid() {
		return &ValidationError{Field: "health_status", Reason: fmt.Sprintf("unknown health status %q", c.HealthStatus)}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.Activities == nil {
		c.Activities = []Activity{}
	}
	return nil
}

// Clone copies the crop including its activity slice.
func (c Crop) Clone() Crop {
	out := c
	out.Activities = append([]Activity(nil), c.Activities...)
	if out.Activities == nil {
		out.Activities = []Activity{}
	}
	return out
}

// ContextSentence describes the crop for the chat assistant.
func (c Crop) ContextSentence() string {
	planted := "an unknown date"
	if c.PlantingDate != nil {
		planted = c.PlantingDate.Format("2006-01-02")
	}
	return fmt.Sprintf("The farmer is asking about their %s crop, planted on %s, current stage: %s.",
		c.Name, planted, c.CurrentStage)
}

// CropPatch carries the crop fields a PUT may change.
type CropPatch struct {
	Name         *string       `bson:"name,omitempty" json:"name,omitempty"`
	ImageURL     *string       `bson:"image_url,omitempty" json:"image_url,omitempty"`
	PlantingDate *time.Time    `bson:"planting_date,omitempty" json:"planting_date,omitempty"`
	CurrentStage *CropStage    `bson:"current_stage,omitempty" json:"current_stage,omitempty"`
	HealthStatus *HealthStatus `bson:"health_status,omitempty" json:"health_status,omitempty"`
}

func (p CropPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.CurrentStage != nil && !p.CurrentStage.Valid() {
		return &ValidationError{Field: "current_stage", Reason: fmt.Sprintf("unknown stage %q", *p.CurrentStage)}
	}
	if p.HealthStatus != nil && !p.HealthStatus.Valid() {
		return &ValidationError{Field: "health_status", Reason: fmt.Sprintf("unknown health status %q", *p.HealthStatus)}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p CropPatch) IsEmpty() bool {
	return p.Name == nil && p.ImageURL == nil && p.PlantingDate == nil && p.CurrentStage == nil && p.HealthStatus == nil
}
