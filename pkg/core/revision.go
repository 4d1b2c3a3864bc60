// pkg/core/revision.go
package core

import (
	"fmt"
	"time"
)

// RevisionStatus is the backend-owned lifecycle state of a revision.
type RevisionStatus string

const (
	StatusPrepare   RevisionStatus = "prepare"
	StatusSubmitted RevisionStatus = "submitted"
	StatusReviewed  RevisionStatus = "reviewed"
)

// ParseRevisionStatus validates a status string received from the backend or the command line.
func ParseRevisionStatus(s string) (RevisionStatus, error) {
	switch st := RevisionStatus(s); st {
	case StatusPrepare, StatusSubmitted, StatusReviewed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown revision status %q", s)
	}
}

func (s RevisionStatus) String() string {
	return string(s)
}

// CanTransition reports whether the backend accepts a move from s to next.
// The client only uses this to reject obviously invalid requests early.
func (s RevisionStatus) CanTransition(next RevisionStatus) bool {
	switch s {
	case StatusPrepare:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusReviewed
	default:
		return false
	}
}

// RevisionSummary is the compact form embedded in project listings.
type RevisionSummary struct {
	ID        string         `json:"id" yaml:"id"`
	Number    int            `json:"number" yaml:"number"`
	Status    RevisionStatus `json:"status" yaml:"status"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
}

// Revision is a versioned snapshot of a project's deliverables.
type Revision struct {
	ID        string         `json:"id" yaml:"id"`
	ProjectID string         `json:"projectId" yaml:"projectId"`
	Number    int            `json:"number" yaml:"number"`
	Status    RevisionStatus `json:"status" yaml:"status"`
	Tracks    []Track        `json:"tracks" yaml:"tracks"`
	Feedbacks []Feedback     `json:"feedbacks" yaml:"feedbacks"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
}

// Track looks up a track by ID.
func (r Revision) Track(id string) (Track, bool) {
	for _, t := range r.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// Track is a named deliverable slot within a revision.
type Track struct {
	ID         string      `json:"id" yaml:"id"`
	RevisionID string      `json:"revisionId" yaml:"revisionId"`
	Name       string      `json:"name" yaml:"name"`
	LatestFile *TrackFile  `json:"latestFile,omitempty" yaml:"latestFile,omitempty"`
	History    []TrackFile `json:"history,omitempty" yaml:"history,omitempty"`
}

// TrackFile is a stored upload. Filename is the backend storage name used by the file endpoint.
type TrackFile struct {
	Filename     string    `json:"filename" yaml:"filename"`
	OriginalName string    `json:"originalName,omitempty" yaml:"originalName,omitempty"`
	ContentType  string    `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Size         int64     `json:"size,omitempty" yaml:"size,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt" yaml:"uploadedAt"`
}

// FileUpload carries file bytes as base64 inside a JSON payload.
type FileUpload struct {
	TrackID     string `json:"trackId,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content"` // base64
}
