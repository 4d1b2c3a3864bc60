package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/onemorerev/client/pkg/core"
)

// ListProjects returns the projects of the logged-in user.
func (c *Client) ListProjects(ctx context.Context) ([]core.Project, error) {
	var projects []core.Project
	err := c.do(ctx, http.MethodGet, "/project/list", nil, nil, &projects)
	return projects, err
}

// ListSharedProjects is the secondary listing of projects shared with the user.
func (c *Client) ListSharedProjects(ctx context.Context) ([]core.Project, error) {
	var projects []core.Project
	err := c.do(ctx, http.MethodGet, "/project/shared", nil, nil, &projects)
	return projects, err
}

// ProjectInfo returns a single project with its revisions and payments.
func (c *Client) ProjectInfo(ctx context.Context, projectID string) (core.Project, error) {
	var project core.Project
	err := c.do(ctx, http.MethodGet, "/project/info", url.Values{"projectId": {projectID}}, nil, &project)
	return project, err
}

// CreateProject creates a project and returns it as stored by the backend.
func (c *Client) CreateProject(ctx context.Context, req core.CreateProjectRequest) (core.Project, error) {
	var project core.Project
	err := c.do(ctx, http.MethodPost, "/project/create", nil, req, &project)
	return project, err
}

// ProjectHistory lists every uploaded file across the project's revisions.
func (c *Client) ProjectHistory(ctx context.Context, projectID string) ([]core.HistoryEntry, error) {
	var entries []core.HistoryEntry
	err := c.do(ctx, http.MethodGet, "/project/history", url.Values{"projectId": {projectID}}, nil, &entries)
	return entries, err
}
