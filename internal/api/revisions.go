package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/onemorerev/client/pkg/core"
)

type revisionRequest struct {
	RevisionID string `json:"revisionId"`
}

type submitRequest struct {
	RevisionID string            `json:"revisionId"`
	Files      []core.FileUpload `json:"files"`
}

type newRevisionRequest struct {
	ProjectID string `json:"projectId"`
}

type createTrackRequest struct {
	RevisionID string           `json:"revisionId"`
	Name       string           `json:"name"`
	File       *core.FileUpload `json:"file,omitempty"`
}

// RevisionInfo returns a revision with its tracks and feedback.
func (c *Client) RevisionInfo(ctx context.Context, revisionID string) (core.Revision, error) {
	var rev core.Revision
	err := c.do(ctx, http.MethodGet, "/revision/info", url.Values{"revisionId": {revisionID}}, nil, &rev)
	return rev, err
}

// SharedRevision resolves a revision from a guest access code.
func (c *Client) SharedRevision(ctx context.Context, accessCode string) (core.Revision, error) {
	var rev core.Revision
	err := c.do(ctx, http.MethodGet, "/revision/shared", url.Values{"accessCode": {accessCode}}, nil, &rev)
	return rev, err
}

// SubmitRevision uploads the staged files and moves the revision to submitted.
func (c *Client) SubmitRevision(ctx context.Context, revisionID string, files []core.FileUpload) (core.Revision, error) {
	var rev core.Revision
	err := c.do(ctx, http.MethodPost, "/revision/submit", nil, submitRequest{RevisionID: revisionID, Files: files}, &rev)
	return rev, err
}

// NewRevision opens the next revision of a project.
func (c *Client) NewRevision(ctx context.Context, projectID string) (core.Revision, error) {
	var rev core.Revision
	err := c.do(ctx, http.MethodPost, "/revision/new", nil, newRevisionRequest{ProjectID: projectID}, &rev)
	return rev, err
}

// ReviewDone marks a submitted revision as reviewed.
func (c *Client) ReviewDone(ctx context.Context, revisionID string) (core.Revision, error) {
	var rev core.Revision
	err := c.do(ctx, http.MethodPost, "/revision/review-done", nil, revisionRequest{RevisionID: revisionID}, &rev)
	return rev, err
}

// CreateTrack adds a named deliverable to a revision, optionally with its first file.
func (c *Client) CreateTrack(ctx context.Context, revisionID, name string, file *core.FileUpload) (core.Track, error) {
	var track core.Track
	err := c.do(ctx, http.MethodPost, "/track/create", nil, createTrackRequest{RevisionID: revisionID, Name: name, File: file}, &track)
	return track, err
}

// CreateFeedback stores a feedback anchored at normalized coordinates.
func (c *Client) CreateFeedback(ctx context.Context, req core.CreateFeedbackRequest) (core.Feedback, error) {
	var fb core.Feedback
	err := c.do(ctx, http.MethodPost, "/feedback/create", nil, req, &fb)
	return fb, err
}
