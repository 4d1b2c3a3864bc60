package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultDelay spaces consecutive downloads so they are not treated as a burst.
const DefaultDelay = 500 * time.Millisecond

// Item is one downloadable entry of a listing.
type Item struct {
	Key      string
	Filename string // backend storage name
	Name     string // name to save as
}

// Downloader fetches and stores a single item.
type Downloader interface {
	Download(ctx context.Context, item Item) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, item Item) error

func (f DownloaderFunc) Download(ctx context.Context, item Item) error {
	return f(ctx, item)
}

// Filter keeps the selected items, preserving listing order.
func Filter(items []Item, set *Set) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if set.Has(it.Key) {
			out = append(out, it)
		}
	}
	return out
}

// BulkDownloader runs one download per item with a fixed pause in between.
type BulkDownloader struct {
	Downloader Downloader
	Delay      time.Duration
	Logger     *slog.Logger
}

// Run downloads items in order. A failed item is logged and the batch continues;
// the joined errors are returned along with the number of successful downloads.
func (b *BulkDownloader) Run(ctx context.Context, items []Item) (int, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		errs []error
		ok   int
	)
	for i, it := range items {
		if i > 0 && b.Delay > 0 {
			timer := time.NewTimer(b.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ok, errors.Join(append(errs, ctx.Err())...)
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return ok, errors.Join(append(errs, err)...)
		}

		if err := b.Downloader.Download(ctx, it); err != nil {
			logger.Warn("Download failed", "key", it.Key, "file", it.Filename, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", it.Key, err))
			continue
		}
		ok++
		logger.Debug("Downloaded", "key", it.Key, "file", it.Filename)
	}
	return ok, errors.Join(errs...)
}
