package session

import (
	"context"
	"fmt"

	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/export"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/render"
)

// Split cuts the current order after page k into two documents. Annotations go with the
// part their page ends up in.
func (s *Session) Split(ctx context.Context, k int) (Output, Output, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "session.Split")
	defer span.Finish()

	unlock, err := s.acquire()
	if err != nil {
		return Output{}, Output{}, err
	}
	defer unlock()

	first, second, err := s.state.SplitAt(k)
	if err != nil {
		return Output{}, Output{}, err
	}
	a, err := s.export.Export(ctx, s.doc, first, s.window(1, k))
	if err != nil {
		return Output{}, Output{}, fmt.Errorf("failed to export part 1: %w", err)
	}
	b, err := s.export.Export(ctx, s.doc, second, s.window(k+1, s.state.Len()))
	if err != nil {
		return Output{}, Output{}, fmt.Errorf("failed to export part 2: %w", err)
	}

	nameA, nameB := export.SplitNames(s.name)
	logger.Info("document split", "at", k, "first", nameA, "second", nameB)
	return Output{Name: nameA, Data: a}, Output{Name: nameB, Data: b}, nil
}

// Extract writes pages [from, to] of the current order as a new document.
func (s *Session) Extract(ctx context.Context, from, to int) (Output, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "session.Extract")
	defer span.Finish()

	unlock, err := s.acquire()
	if err != nil {
		return Output{}, err
	}
	defer unlock()

	part, err := s.state.ExtractRange(from, to)
	if err != nil {
		return Output{}, err
	}
	data, err := s.export.Export(ctx, s.doc, part, s.window(from, to))
	if err != nil {
		return Output{}, err
	}
	return Output{Name: export.ExtractName(s.name, from, to), Data: data}, nil
}

// SaveOrganized writes the reorganized pages without annotations.
func (s *Session) SaveOrganized(ctx context.Context) (Output, error) {
	return s.save(ctx, "session.SaveOrganized", export.OrganizedName(s.name), false)
}

// SaveWithBlanks writes the current order including inserted blank pages.
func (s *Session) SaveWithBlanks(ctx context.Context) (Output, error) {
	return s.save(ctx, "session.SaveWithBlanks", export.BlanksName(s.name), false)
}

// SaveAnnotated writes the current order with every annotation burned in.
func (s *Session) SaveAnnotated(ctx context.Context) (Output, error) {
	return s.save(ctx, "session.SaveAnnotated", export.AnnotatedName(s.name), true)
}

func (s *Session) save(ctx context.Context, op, name string, annotated bool) (Output, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, op)
	defer span.Finish()

	unlock, err := s.acquire()
	if err != nil {
		return Output{}, err
	}
	defer unlock()

	var store *annotation.Store
	if annotated {
		store = s.store
	}
	data, err := s.export.Export(ctx, s.doc, s.state, store)
	if err != nil {
		logger.Error("export failed", "name", name, "error", err)
		return Output{}, err
	}
	logger.Info("document exported", "name", name, "pages", s.state.Len(), "bytes", len(data))
	return Output{Name: name, Data: data}, nil
}

// Sign places a PNG or JPEG image on page. topLeft and widthPx are view-space values at the
// preview scale.
func (s *Session) Sign(ctx context.Context, page int, img []byte, topLeft geometry.Point, widthPx float64) (Output, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "session.Sign")
	defer span.Finish()

	unlock, err := s.acquire()
	if err != nil {
		return Output{}, err
	}
	defer unlock()

	data, err := s.export.Stamp(ctx, s.doc, s.state, page, img, topLeft, widthPx)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: export.SignedName(s.name), Data: data}, nil
}

// Text returns the text of every logical page in order. Blank pages yield no items.
func (s *Session) Text(ctx context.Context) ([]pdf.PageText, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "session.Text")
	defer span.Finish()

	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]pdf.PageText, 0, s.state.Len())
	for page := 1; page <= s.state.Len(); page++ {
		items, err := s.render.Text(ctx, s.state, page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", page, err)
		}
		out = append(out, pdf.PageText{PageNumber: page, Items: items})
	}
	return out, nil
}

// View renders one logical page with its annotations. A zero scale means the preview scale.
func (s *Session) View(ctx context.Context, page int, scale float64) (render.View, error) {
	unlock, err := s.acquire()
	if err != nil {
		return render.View{}, err
	}
	defer unlock()

	if scale == 0 {
		scale = s.cfg.PreviewScale
	}
	return s.render.Page(ctx, s.state, s.store, page, scale)
}

// Thumbnails renders every logical page at the thumbnail scale.
func (s *Session) Thumbnails(ctx context.Context) ([]render.View, error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.render.Thumbnails(ctx, s.state, s.cfg.ThumbnailScale)
}

// window returns the annotations of pages [from, to] renumbered to start at 1.
func (s *Session) window(from, to int) *annotation.Store {
	store := s.store.Clone()
	store.Remap(func(page int) (int, bool) {
		if page < from || page > to {
			return 0, false
		}
		return page - from + 1, true
	})
	return store
}

// Merge concatenates whole documents in the given order.
func Merge(ctx context.Context, svc pdf.DocumentService, inputs [][]byte, opts ...export.Option) (Output, error) {
	data, err := export.New(svc, opts...).Merge(ctx, inputs)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: export.MergedName, Data: data}, nil
}
