package pin

import (
	"math"
	"sort"

	"github.com/onemorerev/client/pkg/core"
)

// MatchTolerance is the largest normalized distance, exclusive, at which a click
// reopens an existing feedback instead of starting a new one.
const MatchTolerance = 0.01

// Pin is the view model for a feedback marker or an unsaved annotation.
// X and Y are pixels at the last rendering and are never persisted.
type Pin struct {
	ID      string  `json:"id" yaml:"id"`
	TrackID string  `json:"trackId" yaml:"trackId"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	NormalX float64 `json:"normalX" yaml:"normalX"`
	NormalY float64 `json:"normalY" yaml:"normalY"`
	IsNew   bool    `json:"isNew" yaml:"isNew"`
}

// Matches reports whether feedback f sits at the given normalized position on trackID.
func Matches(f core.Feedback, trackID string, normalX, normalY float64) bool {
	return f.TrackID == trackID &&
		math.Abs(f.NormalX-normalX) < MatchTolerance &&
		math.Abs(f.NormalY-normalY) < MatchTolerance
}

// FindFeedback returns the first feedback matching the position.
func FindFeedback(feedbacks []core.Feedback, trackID string, normalX, normalY float64) (core.Feedback, bool) {
	for _, f := range feedbacks {
		if Matches(f, trackID, normalX, normalY) {
			return f, true
		}
	}
	return core.Feedback{}, false
}

// FromFeedback builds the persisted pin for a feedback at the given rendering.
func FromFeedback(f core.Feedback, size Size) Pin {
	x, y := Denormalize(f.NormalX, f.NormalY, size)
	return Pin{
		ID:      f.ID,
		TrackID: f.TrackID,
		X:       x,
		Y:       y,
		NormalX: f.NormalX,
		NormalY: f.NormalY,
	}
}

// DeriveViewPins maps every feedback to a persisted pin and appends the unsaved pin, if any.
// Pixel coordinates come from sizes keyed by track ID; unknown tracks render at zero.
func DeriveViewPins(feedbacks []core.Feedback, unsaved *Pin, sizes map[string]Size) []Pin {
	pins := make([]Pin, 0, len(feedbacks)+1)
	for _, f := range feedbacks {
		pins = append(pins, FromFeedback(f, sizes[f.TrackID]))
	}
	if unsaved != nil {
		p := *unsaved
		p.IsNew = true
		if size, ok := sizes[p.TrackID]; ok {
			p.X, p.Y = Denormalize(p.NormalX, p.NormalY, size)
		}
		pins = append(pins, p)
	}
	return pins
}

// MergeFeedbacks unions locally known feedback with a server listing.
// The server copy wins on ID collisions; the result is ordered by creation time.
func MergeFeedbacks(local, server []core.Feedback) []core.Feedback {
	byID := make(map[string]core.Feedback, len(local)+len(server))
	for _, f := range local {
		byID[f.ID] = f
	}
	for _, f := range server {
		byID[f.ID] = f
	}

	merged := make([]core.Feedback, 0, len(byID))
	for _, f := range byID {
		merged = append(merged, f)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}
