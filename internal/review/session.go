// Package review holds the state of one opened revision: its tracks, the
// annotation board, and the batch of files staged for submission.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onemorerev/client/internal/api"
	"github.com/onemorerev/client/internal/cache"
	"github.com/onemorerev/client/internal/fallback"
	"github.com/onemorerev/client/internal/pin"
	"github.com/onemorerev/client/internal/selection"
	"github.com/onemorerev/client/internal/storage"
	"github.com/onemorerev/client/pkg/core"
)

// Origins of a loaded revision.
const (
	OriginPrimary   = "revision"
	OriginShared    = "shared"
	OriginSnapshot  = "snapshot"
	sharedKeyPrefix = "code:"
)

var (
	// ErrNoRevision is returned by Open without a revision ID or access code.
	ErrNoRevision = errors.New("revision id or access code required")
	// ErrWrongStatus is returned when an action does not fit the revision status.
	ErrWrongStatus = errors.New("action not allowed in current revision status")
	// ErrUnknownTrack is returned when staging a file for a track the revision lacks.
	ErrUnknownTrack = errors.New("unknown track")
)

// Client is the part of the API the session uses.
type Client interface {
	RevisionInfo(ctx context.Context, revisionID string) (core.Revision, error)
	SharedRevision(ctx context.Context, accessCode string) (core.Revision, error)
	SubmitRevision(ctx context.Context, revisionID string, files []core.FileUpload) (core.Revision, error)
	ReviewDone(ctx context.Context, revisionID string) (core.Revision, error)
	NewRevision(ctx context.Context, projectID string) (core.Revision, error)
	CreateFeedback(ctx context.Context, req core.CreateFeedbackRequest) (core.Feedback, error)
}

// Options selects the revision to open.
type Options struct {
	RevisionID string
	AccessCode string
	// Snapshots, when set, stores every loaded revision and serves as the
	// last fallback.
	Snapshots storage.Backend
	Logger    *slog.Logger
}

// Session is one opened revision.
type Session struct {
	client    Client
	snapshots storage.Backend
	logger    *slog.Logger

	mu         sync.Mutex
	revision   core.Revision
	origin     string
	accessCode string

	board *pin.Board
	// Files is the batch staged for the next submit.
	Files *cache.TrackFiles
}

// Open loads the revision: by ID first, then through the access code, then
// from the last stored snapshot.
func Open(ctx context.Context, client Client, opts Options) (*Session, error) {
	if opts.RevisionID == "" && opts.AccessCode == "" {
		return nil, ErrNoRevision
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sources []fallback.Source[core.Revision]
	if opts.RevisionID != "" {
		sources = append(sources, fallback.Source[core.Revision]{
			Name:  OriginPrimary,
			Fetch: func(ctx context.Context) (core.Revision, error) { return client.RevisionInfo(ctx, opts.RevisionID) },
		})
	}
	if opts.AccessCode != "" {
		sources = append(sources, fallback.Source[core.Revision]{
			Name:  OriginShared,
			Fetch: func(ctx context.Context) (core.Revision, error) { return client.SharedRevision(ctx, opts.AccessCode) },
		})
	}
	if opts.Snapshots != nil {
		key := snapshotKey(opts.RevisionID, opts.AccessCode)
		sources = append(sources, fallback.Source[core.Revision]{
			Name: OriginSnapshot,
			Fetch: func(ctx context.Context) (core.Revision, error) {
				var rev core.Revision
				_, err := opts.Snapshots.Load(ctx, storage.KindRevision, key, &rev)
				return rev, err
			},
		})
	}

	res, err := fallback.Load(ctx, logger, sources...)
	if err != nil {
		return nil, fmt.Errorf("open revision: %w", err)
	}

	s := &Session{
		client:     client,
		snapshots:  opts.Snapshots,
		logger:     logger,
		accessCode: opts.AccessCode,
		Files:      cache.NewTrackFiles(),
	}
	s.reset(res.Value, res.Origin)
	if res.Origin != OriginSnapshot {
		s.saveSnapshot(ctx, res.Value)
	}
	return s, nil
}

func snapshotKey(revisionID, accessCode string) string {
	if revisionID != "" {
		return revisionID
	}
	return sharedKeyPrefix + accessCode
}

func (s *Session) reset(rev core.Revision, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = rev
	s.origin = origin
	s.board = pin.NewBoard(rev.ID, rev.Status, s.accessCode, rev.Feedbacks)
}

func (s *Session) saveSnapshot(ctx context.Context, rev core.Revision) {
	if s.snapshots == nil {
		return
	}
	keys := []string{rev.ID}
	if s.accessCode != "" {
		keys = append(keys, sharedKeyPrefix+s.accessCode)
	}
	for _, key := range keys {
		if err := s.snapshots.Save(ctx, storage.KindRevision, key, rev); err != nil {
			s.logger.Warn("Failed to store revision snapshot", "revision", rev.ID, "error", err)
		}
	}
}

// Revision returns the current revision.
func (s *Session) Revision() core.Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Origin names the source the revision was loaded from.
func (s *Session) Origin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin
}

// Stale reports whether the revision came from a stored snapshot.
func (s *Session) Stale() bool {
	return s.Origin() == OriginSnapshot
}

// apply replaces the revision with a backend response, keeping local feedback.
func (s *Session) apply(ctx context.Context, rev core.Revision) {
	s.mu.Lock()
	s.revision = rev
	s.origin = OriginPrimary
	board := s.board
	s.mu.Unlock()

	board.SetStatus(rev.Status)
	board.Refresh(rev.Feedbacks)
	s.saveSnapshot(ctx, rev)
}

// Reload fetches the revision again and merges its feedback into the board.
func (s *Session) Reload(ctx context.Context) error {
	rev, err := s.client.RevisionInfo(ctx, s.Revision().ID)
	if err != nil {
		return err
	}
	s.apply(ctx, rev)
	return nil
}

// Stage encodes the file at path for trackID. Staging again for the same
// track replaces the earlier file.
func (s *Session) Stage(trackID, path string) (core.FileUpload, error) {
	rev := s.Revision()
	if rev.Status != core.StatusPrepare {
		return core.FileUpload{}, fmt.Errorf("%w: revision is %s", ErrWrongStatus, rev.Status)
	}
	if _, ok := rev.Track(trackID); !ok {
		return core.FileUpload{}, fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
	}
	up, err := api.EncodeFile(trackID, path)
	if err != nil {
		return core.FileUpload{}, err
	}
	s.Files.Put(trackID, up)
	return up, nil
}

// Unstage drops every staged file whose selection key is in set and returns
// the removed track IDs.
func (s *Session) Unstage(set *selection.Set) []string {
	revID := s.Revision().ID
	var removed []string
	for _, up := range s.Files.Uploads() {
		if set.Has(selection.Key(revID, up.TrackID)) {
			s.Files.Remove(up.TrackID)
			removed = append(removed, up.TrackID)
		}
	}
	return removed
}

// Submit sends the staged files and moves the revision to submitted. The
// batch is cleared only when the backend accepts it.
func (s *Session) Submit(ctx context.Context) (core.Revision, error) {
	rev := s.Revision()
	if !rev.Status.CanTransition(core.StatusSubmitted) {
		return rev, fmt.Errorf("%w: revision is %s", ErrWrongStatus, rev.Status)
	}
	updated, err := s.client.SubmitRevision(ctx, rev.ID, s.Files.Uploads())
	if err != nil {
		return rev, err
	}
	s.Files.Reset()
	s.apply(ctx, updated)
	return updated, nil
}

// MarkReviewed closes the review of a submitted revision.
func (s *Session) MarkReviewed(ctx context.Context) (core.Revision, error) {
	rev := s.Revision()
	if !rev.Status.CanTransition(core.StatusReviewed) {
		return rev, fmt.Errorf("%w: revision is %s", ErrWrongStatus, rev.Status)
	}
	updated, err := s.client.ReviewDone(ctx, rev.ID)
	if err != nil {
		return rev, err
	}
	s.apply(ctx, updated)
	return updated, nil
}

// CreateNext opens the following revision of the project and switches the
// session to it.
func (s *Session) CreateNext(ctx context.Context) (core.Revision, error) {
	rev := s.Revision()
	if rev.Status != core.StatusReviewed {
		return rev, fmt.Errorf("%w: revision is %s", ErrWrongStatus, rev.Status)
	}
	next, err := s.client.NewRevision(ctx, rev.ProjectID)
	if err != nil {
		return rev, err
	}
	s.Files.Reset()
	s.reset(next, OriginPrimary)
	s.saveSnapshot(ctx, next)
	return next, nil
}

// Annotate clicks on a track image and, when that places a new pin, saves it
// with content. A click on existing feedback only reopens it.
func (s *Session) Annotate(ctx context.Context, trackID string, click pin.Point, rect pin.Rect, content string) (pin.Pin, pin.ClickResult, error) {
	board := s.Board()
	p, result, err := board.Click(trackID, click, rect)
	if err != nil || result == pin.Reopened {
		return p, result, err
	}
	saved, err := board.Commit(ctx, content, s.client)
	return saved, result, err
}

// Board returns the annotation board of the current revision.
func (s *Session) Board() *pin.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}
