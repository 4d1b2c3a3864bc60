package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDownloader struct {
	mu    sync.Mutex
	order []string
	times []time.Time
	fail  map[string]bool
}

func (r *recordingDownloader) Download(_ context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, it.Key)
	r.times = append(r.times, time.Now())
	if r.fail[it.Key] {
		return errors.New("unavailable")
	}
	return nil
}

func TestFilter_KeepsListingOrder(t *testing.T) {
	items := []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	got := Filter(items, NewSet("c", "a"))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "c", got[1].Key)
}

func TestBulkDownloader_RunsInOrderWithDelay(t *testing.T) {
	rec := &recordingDownloader{}
	b := &BulkDownloader{Downloader: rec, Delay: 20 * time.Millisecond}

	n, err := b.Run(context.Background(), []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, rec.order)

	for i := 1; i < len(rec.times); i++ {
		assert.GreaterOrEqual(t, rec.times[i].Sub(rec.times[i-1]), 20*time.Millisecond)
	}
}

func TestBulkDownloader_ContinuesAfterFailure(t *testing.T) {
	rec := &recordingDownloader{fail: map[string]bool{"b": true}}
	b := &BulkDownloader{Downloader: rec}

	n, err := b.Run(context.Background(), []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: unavailable")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c"}, rec.order)
}

func TestBulkDownloader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	b := &BulkDownloader{
		Downloader: DownloaderFunc(func(context.Context, Item) error {
			calls++
			cancel()
			return nil
		}),
		Delay: time.Second,
	}

	n, err := b.Run(ctx, []Item{{Key: "a"}, {Key: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}
