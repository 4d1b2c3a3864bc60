// pkg/core/feedback.go
package core

import "time"

// Feedback is a persisted comment anchored to a track image by normalized coordinates.
// NormalX and NormalY are fractions of the rendered width and height, in [0,1].
type Feedback struct {
	ID        string    `json:"id" yaml:"id"`
	TrackID   string    `json:"trackId" yaml:"trackId"`
	NormalX   float64   `json:"normalX" yaml:"normalX"`
	NormalY   float64   `json:"normalY" yaml:"normalY"`
	Content   string    `json:"content" yaml:"content"`
	Reply     *string   `json:"reply,omitempty" yaml:"reply,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// CreateFeedbackRequest is sent when a transient pin is confirmed.
type CreateFeedbackRequest struct {
	RevisionID string  `json:"revisionId"`
	TrackID    string  `json:"trackId"`
	NormalX    float64 `json:"normalX"`
	NormalY    float64 `json:"normalY"`
	Content    string  `json:"content"`
}
