// Package fallback loads a value from an ordered list of sources, returning
// the first one that succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSources is returned when Load is called without sources.
var ErrNoSources = errors.New("no sources")

// Source is one way of obtaining a value.
type Source[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Result is the loaded value together with the source it came from.
type Result[T any] struct {
	Value  T
	Origin string
	// Errors from the sources tried before Origin.
	Skipped []error
}

// Degraded reports whether the value came from a later source.
func (r Result[T]) Degraded() bool {
	return len(r.Skipped) > 0
}

// Static returns a source that always yields v.
func Static[T any](name string, v T) Source[T] {
	return Source[T]{
		Name:  name,
		Fetch: func(context.Context) (T, error) { return v, nil },
	}
}

// Load tries each source in order. Failures are logged and the next source is
// tried. When every source fails the joined error is returned. A cancelled
// context stops the chain.
func Load[T any](ctx context.Context, logger *slog.Logger, sources ...Source[T]) (Result[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(sources) == 0 {
		return Result[T]{}, ErrNoSources
	}

	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return Result[T]{Skipped: errs}, errors.Join(append(errs, err)...)
		}
		v, err := src.Fetch(ctx)
		if err == nil {
			if len(errs) > 0 {
				logger.Info("Loaded from fallback source", "source", src.Name, "skipped", len(errs))
			}
			return Result[T]{Value: v, Origin: src.Name, Skipped: errs}, nil
		}
		logger.Warn("Source failed", "source", src.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
	}
	return Result[T]{Skipped: errs}, errors.Join(errs...)
}
