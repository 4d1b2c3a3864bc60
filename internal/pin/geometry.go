// Package pin implements the normalized-coordinate annotation model used by the
// revision viewer: placing comment pins on rendered images, matching clicks to
// saved feedback, and deriving view pins from server feedback.
package pin

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

var (
	// ErrEmptyRect is returned when the rendered image has no area.
	ErrEmptyRect = errors.New("image rect has zero width or height")
	// ErrOutsideRect is returned when a click falls outside the image rect.
	ErrOutsideRect = errors.New("click is outside the image rect")
)

// Point is a position in viewport pixels.
type Point struct {
	X float64
	Y float64
}

// XY converts the point to a simplefeatures coordinate.
func (p Point) XY() geom.XY {
	return geom.XY{X: p.X, Y: p.Y}
}

// Rect is the bounding rectangle of a rendered image in viewport pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Envelope returns the rect as a simplefeatures envelope. It fails for
// non-finite corners.
func (r Rect) Envelope() (geom.Envelope, error) {
	return geom.NewEnvelope([]geom.XY{
		{X: r.Left, Y: r.Top},
		{X: r.Left + r.Width, Y: r.Top + r.Height},
	})
}

// Size returns the rendered dimensions of the rect.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Size is the rendered width and height of an image.
type Size struct {
	Width  float64
	Height float64
}

// Normalize converts a viewport click into coordinates relative to the image rect.
// Both results lie in [0,1] for any click inside the rect.
func Normalize(click Point, rect Rect) (normalX, normalY float64, err error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return 0, 0, ErrEmptyRect
	}
	env, err := rect.Envelope()
	if err != nil {
		return 0, 0, fmt.Errorf("image rect: %w", err)
	}
	if !env.Contains(click.XY()) {
		return 0, 0, ErrOutsideRect
	}

	local := click.XY().Sub(geom.XY{X: rect.Left, Y: rect.Top})
	normalX = clamp01(local.X / rect.Width)
	normalY = clamp01(local.Y / rect.Height)
	return normalX, normalY, nil
}

// Denormalize returns the pixel position of normalized coordinates at the given rendering.
func Denormalize(normalX, normalY float64, size Size) (x, y float64) {
	return normalX * size.Width, normalY * size.Height
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
