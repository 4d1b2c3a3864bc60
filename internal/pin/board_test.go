package pin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemorerev/client/pkg/core"
)

type fakeCreator struct {
	calls []core.CreateFeedbackRequest
	resp  core.Feedback
	err   error
}

func (f *fakeCreator) CreateFeedback(_ context.Context, req core.CreateFeedbackRequest) (core.Feedback, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

var viewRect = Rect{Width: 400, Height: 300}

func TestBoard_Reviewable(t *testing.T) {
	assert.True(t, NewBoard("r1", core.StatusSubmitted, "code", nil).Reviewable())
	assert.False(t, NewBoard("r1", core.StatusSubmitted, "", nil).Reviewable())
	assert.False(t, NewBoard("r1", core.StatusPrepare, "code", nil).Reviewable())
	assert.False(t, NewBoard("r1", core.StatusReviewed, "code", nil).Reviewable())
}

func TestBoard_ClickNotReviewableCreatesNoPin(t *testing.T) {
	b := NewBoard("r1", core.StatusPrepare, "", nil)

	_, _, err := b.Click("t1", Point{X: 100, Y: 150}, viewRect)
	assert.ErrorIs(t, err, ErrNotReviewable)

	_, ok := b.Unsaved()
	assert.False(t, ok)
	assert.Empty(t, b.Pins(nil))
}

func TestBoard_SecondClickReplacesUnsavedPin(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", nil)

	first, res, err := b.Click("t1", Point{X: 100, Y: 150}, viewRect)
	require.NoError(t, err)
	assert.Equal(t, Placed, res)
	assert.True(t, first.IsNew)

	second, _, err := b.Click("t1", Point{X: 300, Y: 30}, viewRect)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	pins := b.Pins(nil)
	require.Len(t, pins, 1)
	assert.Equal(t, second.ID, pins[0].ID)
	assert.Equal(t, 0.75, pins[0].NormalX)
	assert.Equal(t, 0.1, pins[0].NormalY)
}

func TestBoard_ClickOnFeedbackReopens(t *testing.T) {
	existing := core.Feedback{ID: "f1", TrackID: "t1", NormalX: 0.25, NormalY: 0.5, Content: "bigger logo"}
	b := NewBoard("r1", core.StatusReviewed, "", []core.Feedback{existing})

	p, res, err := b.Click("t1", Point{X: 101, Y: 151}, viewRect)
	require.NoError(t, err)
	assert.Equal(t, Reopened, res)
	assert.Equal(t, "f1", p.ID)
	assert.False(t, p.IsNew)

	opened, ok := b.Opened()
	require.True(t, ok)
	assert.Equal(t, "bigger logo", opened.Content)

	b.Cancel()
	_, ok = b.Opened()
	assert.False(t, ok)
	assert.Len(t, b.Feedbacks(), 1, "closing a reopened pin deletes nothing")
}

func TestBoard_CommitPromotesPin(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", nil)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	creator := &fakeCreator{resp: core.Feedback{ID: "srv-1", CreatedAt: created}}

	placed, _, err := b.Click("t1", Point{X: 100, Y: 150}, viewRect)
	require.NoError(t, err)

	promoted, err := b.Commit(context.Background(), "  move the title  ", creator)
	require.NoError(t, err)
	assert.Equal(t, "srv-1", promoted.ID)
	assert.False(t, promoted.IsNew)
	assert.Equal(t, placed.NormalX, promoted.NormalX)

	require.Len(t, creator.calls, 1)
	assert.Equal(t, core.CreateFeedbackRequest{
		RevisionID: "r1", TrackID: "t1", NormalX: 0.25, NormalY: 0.5, Content: "move the title",
	}, creator.calls[0])

	_, ok := b.Unsaved()
	assert.False(t, ok)

	fbs := b.Feedbacks()
	require.Len(t, fbs, 1)
	assert.Equal(t, "srv-1", fbs[0].ID)
	assert.Equal(t, "move the title", fbs[0].Content)
	assert.Equal(t, created, fbs[0].CreatedAt)
}

func TestBoard_CommitFailureKeepsPin(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", nil)
	creator := &fakeCreator{err: errors.New("boom")}

	placed, _, err := b.Click("t1", Point{X: 100, Y: 150}, viewRect)
	require.NoError(t, err)

	_, err = b.Commit(context.Background(), "note", creator)
	require.Error(t, err)

	p, ok := b.Unsaved()
	require.True(t, ok)
	assert.Equal(t, placed.ID, p.ID)
	assert.True(t, p.IsNew)
	assert.Empty(t, b.Feedbacks())

	b.Cancel()
	_, ok = b.Unsaved()
	assert.False(t, ok)
}

func TestBoard_CommitValidation(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", nil)
	creator := &fakeCreator{}

	_, err := b.Commit(context.Background(), "note", creator)
	assert.ErrorIs(t, err, ErrNoUnsavedPin)

	_, _, err = b.Click("t1", Point{X: 10, Y: 10}, viewRect)
	require.NoError(t, err)
	_, err = b.Commit(context.Background(), "   ", creator)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Empty(t, creator.calls)
}

func TestBoard_RefreshMergesServerFeedback(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", []core.Feedback{{ID: "a", TrackID: "t1"}})
	b.Refresh([]core.Feedback{{ID: "b", TrackID: "t1", CreatedAt: time.Now()}})
	assert.Len(t, b.Feedbacks(), 2)
}

func TestBoard_CancelDiscardsUnsavedPin(t *testing.T) {
	b := NewBoard("r1", core.StatusSubmitted, "code", nil)
	_, _, err := b.Click("t1", Point{X: 100, Y: 150}, viewRect)
	require.NoError(t, err)

	b.Cancel()

	_, ok := b.Unsaved()
	assert.False(t, ok)
	assert.Empty(t, b.Pins(nil))
}
