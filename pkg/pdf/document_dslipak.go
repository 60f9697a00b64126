package pdf

import (
	"bytes"
	"fmt"

	dpdf "github.com/dslipak/pdf"
)

// extractWithDslipak is the fallback reader for files ledongthuc/pdf rejects
func extractWithDslipak(data []byte) (pages []PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("dslipak reader panic: %v", r)
		}
	}()

	r, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with dslipak: %w", err)
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
