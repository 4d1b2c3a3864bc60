package pin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onemorerev/client/pkg/core"
)

var (
	// ErrNotReviewable is returned when a new pin is requested outside a guest review.
	ErrNotReviewable = errors.New("revision is not open for review")
	// ErrNoUnsavedPin is returned by Commit when there is nothing to save.
	ErrNoUnsavedPin = errors.New("no unsaved pin")
	// ErrEmptyContent is returned by Commit for blank comments.
	ErrEmptyContent = errors.New("feedback content is empty")
)

// ClickResult says what a click on the image did.
type ClickResult int

const (
	// Placed means a new transient pin was created.
	Placed ClickResult = iota
	// Reopened means the click landed on saved feedback, which is now open read-only.
	Reopened
)

func (r ClickResult) String() string {
	if r == Reopened {
		return "reopened"
	}
	return "placed"
}

// FeedbackCreator persists a confirmed annotation.
type FeedbackCreator interface {
	CreateFeedback(ctx context.Context, req core.CreateFeedbackRequest) (core.Feedback, error)
}

// Board holds the annotation state of one revision view.
// At most one unsaved pin exists at any time.
type Board struct {
	mu         sync.Mutex
	revisionID string
	status     core.RevisionStatus
	accessCode string
	feedbacks  []core.Feedback
	unsaved    *Pin
	opened     *core.Feedback

	now func() time.Time
}

// NewBoard creates a board for a revision with its server-fetched feedback.
func NewBoard(revisionID string, status core.RevisionStatus, accessCode string, feedbacks []core.Feedback) *Board {
	return &Board{
		revisionID: revisionID,
		status:     status,
		accessCode: accessCode,
		feedbacks:  MergeFeedbacks(nil, feedbacks),
		now:        time.Now,
	}
}

// Reviewable reports whether new pins may be placed: a guest access code is
// present and the revision is awaiting review.
func (b *Board) Reviewable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reviewableLocked()
}

func (b *Board) reviewableLocked() bool {
	return strings.TrimSpace(b.accessCode) != "" && b.status == core.StatusSubmitted
}

// SetStatus reflects a status returned by the backend.
func (b *Board) SetStatus(status core.RevisionStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Click handles a click on a rendered track image. A click on saved feedback
// reopens it; otherwise a new transient pin replaces any previous unsaved one.
func (b *Board) Click(trackID string, click Point, rect Rect) (Pin, ClickResult, error) {
	nx, ny, err := Normalize(click, rect)
	if err != nil {
		return Pin{}, Placed, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := FindFeedback(b.feedbacks, trackID, nx, ny); ok {
		opened := f
		b.opened = &opened
		return FromFeedback(f, rect.Size()), Reopened, nil
	}

	if !b.reviewableLocked() {
		return Pin{}, Placed, ErrNotReviewable
	}

	x, y := Denormalize(nx, ny, rect.Size())
	p := Pin{
		ID:      uuid.NewString(),
		TrackID: trackID,
		X:       x,
		Y:       y,
		NormalX: nx,
		NormalY: ny,
		IsNew:   true,
	}
	b.unsaved = &p
	b.opened = nil
	return p, Placed, nil
}

// Commit sends the unsaved pin with its content to the backend. On success the
// pin is promoted to the server ID and merged into the feedback list. On failure
// the pin stays unsaved so the caller can retry or cancel.
func (b *Board) Commit(ctx context.Context, content string, creator FeedbackCreator) (Pin, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Pin{}, ErrEmptyContent
	}

	b.mu.Lock()
	if b.unsaved == nil {
		b.mu.Unlock()
		return Pin{}, ErrNoUnsavedPin
	}
	pending := *b.unsaved
	req := core.CreateFeedbackRequest{
		RevisionID: b.revisionID,
		TrackID:    pending.TrackID,
		NormalX:    pending.NormalX,
		NormalY:    pending.NormalY,
		Content:    content,
	}
	b.mu.Unlock()

	saved, err := creator.CreateFeedback(ctx, req)
	if err != nil {
		return pending, fmt.Errorf("save feedback: %w", err)
	}

	fb := core.Feedback{
		ID:        saved.ID,
		TrackID:   pending.TrackID,
		NormalX:   pending.NormalX,
		NormalY:   pending.NormalY,
		Content:   content,
		Reply:     saved.Reply,
		CreatedAt: saved.CreatedAt,
	}
	if fb.ID == "" {
		fb.ID = pending.ID
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedbacks = MergeFeedbacks(b.feedbacks, []core.Feedback{fb})
	if b.unsaved != nil && b.unsaved.ID == pending.ID {
		b.unsaved = nil
	}

	promoted := pending
	promoted.ID = fb.ID
	promoted.IsNew = false
	return promoted, nil
}

// Cancel discards an unsaved pin, or closes reopened feedback without touching it.
func (b *Board) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened != nil {
		b.opened = nil
		return
	}
	b.unsaved = nil
}

// Refresh merges a newly fetched feedback listing into the board.
func (b *Board) Refresh(server []core.Feedback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedbacks = MergeFeedbacks(b.feedbacks, server)
}

// Pins derives the current view pins.
func (b *Board) Pins(sizes map[string]Size) []Pin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return DeriveViewPins(b.feedbacks, b.unsaved, sizes)
}

// Feedbacks returns a copy of the known feedback.
func (b *Board) Feedbacks() []core.Feedback {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Feedback, len(b.feedbacks))
	copy(out, b.feedbacks)
	return out
}

// Unsaved returns the transient pin, if one exists.
func (b *Board) Unsaved() (Pin, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsaved == nil {
		return Pin{}, false
	}
	return *b.unsaved, true
}

// Opened returns the feedback currently open for reading.
func (b *Board) Opened() (core.Feedback, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened == nil {
		return core.Feedback{}, false
	}
	return *b.opened, true
}
