// Package geometry maps points between view space (top-left origin, pixels at some render
// scale) and document space (bottom-left origin, points).
//
// The package is stateless. Page rotation is never folded into the view transform: annotation
// anchors live in the already-rotated view of a page. ToPageSpace and FromPageSpace are only
// used by export to land a displayed-orientation point on the unrotated page.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidScale is returned for a zero, negative or non-finite scale or dimension.
var ErrInvalidScale = errors.New("invalid scale")

// Point is a 2D coordinate. Its unit depends on the space it lives in.
type Point struct {
	X float64
	Y float64
}

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Common page sizes in points.
var (
	A4     = Size{Width: 595.28, Height: 841.89}
	Letter = Size{Width: 612, Height: 792}
)

// Scale multiplies both dimensions by f.
func (s Size) Scale(f float64) Size {
	return Size{Width: s.Width * f, Height: s.Height * f}
}

// Rotated returns the size of the page as displayed under the given rotation.
func (s Size) Rotated(rotation int) Size {
	switch NormalizeRotation(rotation) {
	case 90, 270:
		return Size{Width: s.Height, Height: s.Width}
	default:
		return s
	}
}

// Valid reports whether both dimensions are finite and positive.
func (s Size) Valid() bool {
	return positive(s.Width) && positive(s.Height)
}

// NormalizeRotation maps any angle in degrees into [0,360).
func NormalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Mapping relates one page in points to the canvas it was rendered on, in pixels.
// The two axes are scaled independently since the export canvas may differ from the preview.
type Mapping struct {
	Page   Size
	Canvas Size
}

// NewMapping returns the mapping for a page rendered at renderScale pixels per point.
func NewMapping(page Size, renderScale float64) (Mapping, error) {
	if !positive(renderScale) {
		return Mapping{}, fmt.Errorf("%w: render scale %v", ErrInvalidScale, renderScale)
	}
	m := Mapping{Page: page, Canvas: page.Scale(renderScale)}
	return m, m.validate()
}

func (m Mapping) validate() error {
	if !m.Page.Valid() {
		return fmt.Errorf("%w: page size %vx%v", ErrInvalidScale, m.Page.Width, m.Page.Height)
	}
	if !m.Canvas.Valid() {
		return fmt.Errorf("%w: canvas size %vx%v", ErrInvalidScale, m.Canvas.Width, m.Canvas.Height)
	}
	return nil
}

// Ratio returns points per pixel along each axis.
func (m Mapping) Ratio() (rx, ry float64) {
	return m.Page.Width / m.Canvas.Width, m.Page.Height / m.Canvas.Height
}

// Factor is the mean points-per-pixel ratio, used to scale font sizes and stroke widths.
func (m Mapping) Factor() float64 {
	rx, ry := m.Ratio()
	return (rx + ry) / 2
}

// ToDocumentSpace converts a view-space point into document space.
func (m Mapping) ToDocumentSpace(view Point) (Point, error) {
	if err := m.validate(); err != nil {
		return Point{}, err
	}
	rx, ry := m.Ratio()
	return Point{
		X: view.X * rx,
		Y: m.Page.Height - view.Y*ry,
	}, nil
}

// ToViewSpace converts a document-space point into view space.
func (m Mapping) ToViewSpace(doc Point) (Point, error) {
	if err := m.validate(); err != nil {
		return Point{}, err
	}
	rx, ry := m.Ratio()
	return Point{
		X: doc.X / rx,
		Y: (m.Page.Height - doc.Y) / ry,
	}, nil
}

// ToDocumentSpace is the single-scale form: canvasHeightPixels must equal
// pageHeightPoints*renderScale for the result to be an exact inverse of ToViewSpace.
func ToDocumentSpace(view Point, renderScale, pageHeightPoints, canvasHeightPixels float64) (Point, error) {
	m, err := uniform(renderScale, pageHeightPoints, canvasHeightPixels)
	if err != nil {
		return Point{}, err
	}
	return m.ToDocumentSpace(view)
}

// ToViewSpace is the inverse of ToDocumentSpace.
func ToViewSpace(doc Point, renderScale, pageHeightPoints, canvasHeightPixels float64) (Point, error) {
	m, err := uniform(renderScale, pageHeightPoints, canvasHeightPixels)
	if err != nil {
		return Point{}, err
	}
	return m.ToViewSpace(doc)
}

// uniform builds a mapping whose x axis follows renderScale and whose y axis follows the
// page/canvas height ratio.
func uniform(renderScale, pageHeight, canvasHeight float64) (Mapping, error) {
	if !positive(renderScale) {
		return Mapping{}, fmt.Errorf("%w: render scale %v", ErrInvalidScale, renderScale)
	}
	return Mapping{
		Page:   Size{Width: 1, Height: pageHeight},
		Canvas: Size{Width: renderScale, Height: canvasHeight},
	}, nil
}

// ToPageSpace maps a point given in the displayed (rotated) document space of a page onto the
// page's unrotated user space. unrotated is the page's MediaBox size.
func ToPageSpace(p Point, rotation int, unrotated Size) Point {
	w, h := unrotated.Width, unrotated.Height
	switch NormalizeRotation(rotation) {
	case 90:
		return Point{X: w - p.Y, Y: p.X}
	case 180:
		return Point{X: w - p.X, Y: h - p.Y}
	case 270:
		return Point{X: p.Y, Y: h - p.X}
	default:
		return p
	}
}

// FromPageSpace is the inverse of ToPageSpace.
func FromPageSpace(p Point, rotation int, unrotated Size) Point {
	w, h := unrotated.Width, unrotated.Height
	switch NormalizeRotation(rotation) {
	case 90:
		return Point{X: p.Y, Y: w - p.X}
	case 180:
		return Point{X: w - p.X, Y: h - p.Y}
	case 270:
		return Point{X: h - p.Y, Y: p.X}
	default:
		return p
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}
