// server/internal/models/common.go
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Location is where a farmer's plots are. Coordinates are [lon, lat].
type Location struct {
	District    string    `bson:"district" json:"district"`
	Taluk       string    `bson:"taluk,omitempty" json:"taluk,omitempty"`
	Coordinates []float64 `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// PlaceName returns the district, falling back to def when none was given.
func (l Location) PlaceName(def string) string {
	if d := strings.TrimSpace(l.District); d != "" {
		return d
	}
	return def
}

// String renders "district, taluk" for prompts.
func (l Location) String() string {
	parts := make([]string, 0, 2)
	if d := strings.TrimSpace(l.District); d != "" {
		parts = append(parts, d)
	}
	if t := strings.TrimSpace(l.Taluk); t != "" {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "Kerala"
	}
	return strings.Join(parts, ", ")
}
