package pdf

import (
	"errors"
	"image/color"
)

var (
	// ErrCorruptDocument is returned when input bytes cannot be parsed as a PDF.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrUnsupportedImageFormat is returned for images that are neither PNG nor JPEG.
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	// ErrPageIndex is returned for page indices outside the document.
	ErrPageIndex = errors.New("page index out of range")
	// ErrForeignHandle is returned when a handle from another service is passed in.
	ErrForeignHandle = errors.New("handle not created by this service")
	// ErrClosed is returned for handles that were closed.
	ErrClosed = errors.New("document closed")
	// ErrEmptyDocument is returned when saving a document without pages.
	ErrEmptyDocument = errors.New("document has no pages")
	// ErrTokenUsed is returned when the same page token is added twice.
	ErrTokenUsed = errors.New("page token already added")
)

// Font is one of the standard 14 fonts usable without embedding.
type Font string

const (
	Helvetica    Font = "Helvetica"
	ZapfDingbats Font = "ZapfDingbats"
)

// CheckGlyph is the ZapfDingbats code of a heavy check mark.
const CheckGlyph = "4"

// TextParams describes a text run. X/Y is the baseline start, Angle rotates the run
// counter-clockwise around it.
type TextParams struct {
	Text  string
	X     float64
	Y     float64
	Size  float64
	Angle int
	Font  Font
	Color color.Color
}

// LineParams describes a stroked line segment.
type LineParams struct {
	X1, Y1 float64
	X2, Y2 float64
	Width  float64
	Color  color.Color
}

// RectParams describes a stroked rectangle given by its lower-left corner.
type RectParams struct {
	X, Y          float64
	Width, Height float64
	StrokeWidth   float64
	Color         color.Color
}

// ImageParams places an embedded image so that its box, lower-left corner at X/Y, is
// Width x Height. Angle turns the image counterclockwise in steps of 90 degrees inside that
// box; a page shown with /Rotate n needs Angle n for the image to read upright.
type ImageParams struct {
	Image  ImageToken
	X, Y   float64
	Width  float64
	Height float64
	Angle  int
}

// TextItem is one positioned text run, in document space.
type TextItem struct {
	Text   string
	X      float64
	Y      float64
	Height float64
}

// PageText is the text of one page.
type PageText struct {
	PageNumber int
	Items      []TextItem
}

// String joins the runs of a page, starting a new line whenever the baseline changes.
func (p PageText) String() string {
	return joinItems(p.Items)
}

