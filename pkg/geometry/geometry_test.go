package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestNewMapping(t *testing.T) {
	m, err := NewMapping(A4, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, A4.Width*1.5, m.Canvas.Width, tolerance)
	assert.InDelta(t, A4.Height*1.5, m.Canvas.Height, tolerance)
	assert.InDelta(t, 1/1.5, m.Factor(), tolerance)

	for _, scale := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewMapping(A4, scale)
		assert.ErrorIs(t, err, ErrInvalidScale, "scale %v", scale)
	}

	_, err = NewMapping(Size{Width: 0, Height: 10}, 1)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestToDocumentSpace(t *testing.T) {
	m, err := NewMapping(Letter, 2)
	require.NoError(t, err)

	// top-left of the canvas is the top-left of the page
	p, err := m.ToDocumentSpace(Point{X: 0, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, p.X, tolerance)
	assert.InDelta(t, 792, p.Y, tolerance)

	// bottom-right pixel lands on the bottom-right corner
	p, err = m.ToDocumentSpace(Point{X: 1224, Y: 1584})
	require.NoError(t, err)
	assert.InDelta(t, 612, p.X, tolerance)
	assert.InDelta(t, 0, p.Y, tolerance)

	p, err = m.ToDocumentSpace(Point{X: 100, Y: 200})
	require.NoError(t, err)
	assert.InDelta(t, 50, p.X, tolerance)
	assert.InDelta(t, 692, p.Y, tolerance)
}

func TestIndependentAxes(t *testing.T) {
	m := Mapping{Page: Size{Width: 600, Height: 800}, Canvas: Size{Width: 300, Height: 1600}}
	p, err := m.ToDocumentSpace(Point{X: 30, Y: 160})
	require.NoError(t, err)
	assert.InDelta(t, 60, p.X, tolerance)
	assert.InDelta(t, 720, p.Y, tolerance)
}

func TestRoundTrip(t *testing.T) {
	points := []Point{{0, 0}, {12.5, 7.25}, {300, 411}, {1e4, -3}, {-20, 5000}}
	scales := []float64{0.1, 0.3, 1, 1.5, 2, 7.77}
	pages := []Size{A4, Letter, {Width: 200, Height: 1000}}

	for _, page := range pages {
		for _, s := range scales {
			m, err := NewMapping(page, s)
			require.NoError(t, err)
			for _, p := range points {
				doc, err := m.ToDocumentSpace(p)
				require.NoError(t, err)
				back, err := m.ToViewSpace(doc)
				require.NoError(t, err)
				assert.InDelta(t, p.X, back.X, 1e-6)
				assert.InDelta(t, p.Y, back.Y, 1e-6)

				doc2, err := ToDocumentSpace(p, s, page.Height, page.Height*s)
				require.NoError(t, err)
				back2, err := ToViewSpace(doc2, s, page.Height, page.Height*s)
				require.NoError(t, err)
				assert.InDelta(t, p.X, back2.X, 1e-6)
				assert.InDelta(t, p.Y, back2.Y, 1e-6)
			}
		}
	}
}

func TestFunctionFormMatchesMapping(t *testing.T) {
	doc, err := ToDocumentSpace(Point{X: 150, Y: 300}, 1.5, 842, 842*1.5)
	require.NoError(t, err)
	assert.InDelta(t, 100, doc.X, tolerance)
	assert.InDelta(t, 642, doc.Y, tolerance)

	_, err = ToDocumentSpace(Point{}, 0, 842, 842)
	assert.ErrorIs(t, err, ErrInvalidScale)
	_, err = ToViewSpace(Point{}, -2, 842, 842)
	assert.ErrorIs(t, err, ErrInvalidScale)
	_, err = ToViewSpace(Point{}, 1, 842, 0)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestNormalizeRotation(t *testing.T) {
	tests := map[int]int{0: 0, 90: 90, 360: 0, 450: 90, -90: 270, -360: 0, 720: 0, -450: 270}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRotation(in), "rotation %d", in)
	}
}

func TestRotated(t *testing.T) {
	s := Size{Width: 100, Height: 200}
	assert.Equal(t, s, s.Rotated(0))
	assert.Equal(t, Size{Width: 200, Height: 100}, s.Rotated(90))
	assert.Equal(t, s, s.Rotated(180))
	assert.Equal(t, Size{Width: 200, Height: 100}, s.Rotated(-90))
}

func TestPageSpaceCorners(t *testing.T) {
	page := Size{Width: 100, Height: 200}

	// Under /Rotate 90 the unrotated bottom-left corner is shown top-left.
	displayed := page.Rotated(90)
	got := ToPageSpace(Point{X: 0, Y: displayed.Height}, 90, page)
	assert.InDelta(t, 0, got.X, tolerance)
	assert.InDelta(t, 0, got.Y, tolerance)

	// 180: displayed bottom-left is the unrotated top-right.
	got = ToPageSpace(Point{X: 0, Y: 0}, 180, page)
	assert.Equal(t, Point{X: 100, Y: 200}, got)

	// 270: unrotated bottom-left is shown bottom-right.
	displayed = page.Rotated(270)
	got = ToPageSpace(Point{X: displayed.Width, Y: 0}, 270, page)
	assert.InDelta(t, 0, got.X, tolerance)
	assert.InDelta(t, 0, got.Y, tolerance)
}

func TestPageSpaceRoundTrip(t *testing.T) {
	page := Size{Width: 612, Height: 792}
	for _, rot := range []int{0, 90, 180, 270, -90, 450} {
		for _, p := range []Point{{0, 0}, {10, 20}, {300.5, 611}, {791, 1}} {
			back := FromPageSpace(ToPageSpace(p, rot, page), rot, page)
			assert.InDelta(t, p.X, back.X, tolerance, "rotation %d", rot)
			assert.InDelta(t, p.Y, back.Y, tolerance, "rotation %d", rot)
		}
	}
}
