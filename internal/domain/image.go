package domain

import "time"

// ImageRecord is one entry of a user's generated-image library. Records are
// immutable once created.
type ImageRecord struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"modelId"`
	AspectRatio string    `json:"aspectRatio"`
	Resolution  string    `json:"resolution"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
