package models

import "time"

// ChatMessage is one transcript entry. Image is only a preview reference and
// never leaves the session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsBot     bool      `json:"isBot"`
	Timestamp time.Time `json:"timestamp"`
	Image     string    `json:"image,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// Advice is a persisted advice reply.
type Advice struct {
	ID          string         `bson:"id" json:"id"`
	CropID      string         `bson:"crop_id,omitempty" json:"crop_id,omitempty"`
	CropName    string         `bson:"crop_name" json:"crop_name"`
	AdviceText  string         `bson:"advice_text" json:"advice_text"`
	WeatherData map[string]any `bson:"weather_data,omitempty" json:"weather_data,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
}
