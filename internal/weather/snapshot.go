package weather

import (
	"errors"
	"fmt"

	"farmwise-api-server/internal/upstream"
)

// UnavailableSummary is what prompts and screens show when weather failed.
const UnavailableSummary = "Weather data unavailable"

// Snapshot is the current weather at a place. Temperature is whole °C and
// Condition is lower-case.
type Snapshot struct {
	Temperature int     `json:"temperature"`
	Humidity    int     `json:"humidity"`
	Condition   string  `json:"condition"`
	WindKph     float64 `json:"wind_kph"`
	Place       string  `json:"place,omitempty"`
	LocalTime   string  `json:"local_time,omitempty"`
}

// Summary is a one-line description used in advice prompts.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("%d°C, humidity %d%%, %s, wind %.1f km/h", s.Temperature, s.Humidity, s.Condition, s.WindKph)
}

// Map is the snapshot as a loose document for persistence.
func (s Snapshot) Map() map[string]any {
	return map[string]any{
		"temperature": s.Temperature,
		"humidity":    s.Humidity,
		"condition":   s.Condition,
		"wind_kph":    s.WindKph,
		"place":       s.Place,
	}
}

// Result is either a snapshot or a tagged error, never both.
type Result struct {
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    bool      `json:"error"`
	Message  string    `json:"message,omitempty"`

	err error
}

func Ok(s Snapshot) Result { return Result{Snapshot: &s} }

func Failed(err error) Result {
	return Result{Error: true, Message: describe(err), err: err}
}

// Available reports whether a snapshot is present.
func (r Result) Available() bool { return !r.Error && r.Snapshot != nil }

// Err returns the underlying failure, if any.
func (r Result) Err() error { return r.err }

func (r Result) Summary() string {
	if !r.Available() {
		return UnavailableSummary
	}
	return r.Snapshot.Summary()
}

func describe(err error) string {
	var se *upstream.StatusError
	switch {
	case errors.Is(err, upstream.ErrNotConfigured):
		return err.Error()
	case errors.As(err, &se):
		return fmt.Sprintf("weather service returned %d %s", se.StatusCode, se.Status)
	case errors.Is(err, upstream.ErrCircuitOpen):
		return "weather service temporarily unavailable"
	default:
		return "could not fetch weather: " + err.Error()
	}
}
