package pdf

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
)

// ExtractText returns the text of every page. ledongthuc/pdf is tried first and
// dslipak/pdf is used when it fails.
func ExtractText(ctx context.Context, data []byte) ([]PageText, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.ExtractText")
	defer span.Finish()

	if !IsPDF(data) {
		return nil, ErrCorruptDocument
	}

	pages, err := extractWithLedongthuc(data)
	if err == nil {
		span.SetTag("reader", "ledongthuc")
		return pages, nil
	}
	logger.Debug("ledongthuc extraction failed, falling back to dslipak", "error", err)

	pages, fallbackErr := extractWithDslipak(data)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, fallbackErr)
	}
	span.SetTag("reader", "dslipak")
	return pages, nil
}

// TextExtractor is a TextSource over the bytes of one document.
// Extraction runs once, on first use.
type TextExtractor struct {
	data []byte

	once  sync.Once
	pages []PageText
	err   error
}

// NewTextExtractor creates a TextSource for data
func NewTextExtractor(data []byte) *TextExtractor {
	return &TextExtractor{data: data}
}

// TextContent returns the text runs of the page at 0-based index
func (e *TextExtractor) TextContent(ctx context.Context, index int) ([]TextItem, error) {
	e.once.Do(func() {
		e.pages, e.err = ExtractText(ctx, e.data)
	})
	if e.err != nil {
		return nil, e.err
	}
	if index < 0 || index >= len(e.pages) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrPageIndex, index, len(e.pages))
	}
	return e.pages[index].Items, nil
}

func joinItems(items []TextItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			if math.Abs(items[i-1].Y-it.Y) >= 0.5 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(it.Text)
	}
	return b.String()
}
