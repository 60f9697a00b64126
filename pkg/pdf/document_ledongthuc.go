package pdf

import (
	"bytes"
	"fmt"
	"math"

	lpdf "github.com/ledongthuc/pdf"
)

// glyph is a single positioned text run as reported by the reader libraries
type glyph struct {
	s        string
	x, y     float64
	w        float64
	fontSize float64
}

// extractWithLedongthuc reads the text of every page with ledongthuc/pdf
func extractWithLedongthuc(data []byte) (pages []PageText, err error) {
	// the reader panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("ledongthuc reader panic: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with ledongthuc: %w", err)
	}

	n := r.NumPage()
	pages = make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		pt := PageText{PageNumber: i}
		if !page.V.IsNull() {
			content := page.Content()
			glyphs := make([]glyph, 0, len(content.Text))
			for _, t := range content.Text {
				glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: t.W, fontSize: t.FontSize})
			}
			pt.Items = groupGlyphs(glyphs)
		}
		pages = append(pages, pt)
	}
	return pages, nil
}

// groupGlyphs merges consecutive glyphs sharing a baseline into runs
func groupGlyphs(glyphs []glyph) []TextItem {
	var items []TextItem
	var end float64
	for _, g := range glyphs {
		if g.s == "" {
			continue
		}
		if n := len(items); n > 0 {
			last := &items[n-1]
			gap := g.x - end
			size := glyphSize(g)
			if math.Abs(last.Y-g.y) < 0.5 && last.Height == g.fontSize && gap > -size && gap < size*0.3 {
				if gap > size*0.15 {
					last.Text += " "
				}
				last.Text += g.s
				end = g.x + g.w
				continue
			}
		}
		items = append(items, TextItem{Text: g.s, X: g.x, Y: g.y, Height: g.fontSize})
		end = g.x + g.w
	}
	return items
}

// glyphSize is the font size of g. Text drawn with a rotated matrix reports size 0, so its
// advance width stands in for the size.
func glyphSize(g glyph) float64 {
	if g.fontSize > 0 {
		return g.fontSize
	}
	if g.w > 0 {
		return g.w * 2
	}
	return 10
}
