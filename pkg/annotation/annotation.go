// Package annotation owns the flat marks a user places on logical pages: text runs, crosses,
// check marks and rectangles.
//
// Anchors are stored in view-space pixels at the preview scale the marks were placed at. The
// store never rescales them; conversion to document space happens at export.
package annotation

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

var (
	// ErrNotFound is returned for an id that is not (or no longer) in the store.
	ErrNotFound = errors.New("annotation not found")
	// ErrWrongKind is returned when a text-only operation targets another kind.
	ErrWrongKind = errors.New("wrong annotation kind")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("invalid annotation page")
	// ErrInvalidStyle is returned when a style fails validation.
	ErrInvalidStyle = errors.New("invalid annotation style")
	// ErrEmptyText is returned when a text annotation is created without text.
	ErrEmptyText = errors.New("empty annotation text")
)

// Kind is the closed set of annotation types.
type Kind int

const (
	Text Kind = iota + 1
	Cross
	Check
	Rectangle
)

var kindNames = map[Kind]string{
	Text:      "text",
	Cross:     "cross",
	Check:     "check",
	Rectangle: "rectangle",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// Style holds the visual attributes of a mark, in view-space pixels.
type Style struct {
	Color         color.RGBA
	SizePx        float64 `validate:"gt=0,lte=1000"`
	StrokeWidthPx float64 `validate:"gte=0,lte=100"`
}

// DefaultStyle is red, 16px, 2px strokes.
var DefaultStyle = Style{Color: color.RGBA{R: 220, G: 38, B: 38, A: 255}, SizePx: 16, StrokeWidthPx: 2}

var validate = validator.New()

// Validate checks the numeric bounds of the style.
func (s Style) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return nil
}

// Annotation is one mark anchored to a logical page.
//
// Anchor meaning depends on Kind: the baseline start of a Text run, the center of a Cross or
// Check, the top-left corner of a Rectangle.
type Annotation struct {
	ID     int
	Page   int
	Kind   Kind
	Anchor geometry.Point
	Text   string
	Style  Style
	// Extent is the box of a Rectangle. Zero means a SizePx square.
	Extent geometry.Size
}

// Box returns the rectangle extent, falling back to a square of SizePx.
func (a Annotation) Box() geometry.Size {
	if a.Extent.Valid() {
		return a.Extent
	}
	return geometry.Size{Width: a.Style.SizePx, Height: a.Style.SizePx}
}

// Bounds returns the view-space box covered by the mark as (min, max) corners.
func (a Annotation) Bounds() (geometry.Point, geometry.Point) {
	size := a.Style.SizePx
	switch a.Kind {
	case Text:
		// Helvetica averages a bit over half an em per glyph.
		w := 0.55 * size * float64(utf8.RuneCountInString(a.Text))
		return geometry.Point{X: a.Anchor.X, Y: a.Anchor.Y - size},
			geometry.Point{X: a.Anchor.X + w, Y: a.Anchor.Y + 0.25*size}
	case Rectangle:
		box := a.Box()
		return a.Anchor, geometry.Point{X: a.Anchor.X + box.Width, Y: a.Anchor.Y + box.Height}
	default:
		half := size / 2
		return geometry.Point{X: a.Anchor.X - half, Y: a.Anchor.Y - half},
			geometry.Point{X: a.Anchor.X + half, Y: a.Anchor.Y + half}
	}
}

// Contains reports whether a view-space point falls on the mark.
func (a Annotation) Contains(p geometry.Point) bool {
	lo, hi := a.Bounds()
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}
