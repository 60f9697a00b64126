// Package export turns a page order and its annotations into a new document through a
// pdf.DocumentService.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pageorder"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

// ErrTooFewInputs is returned by Merge for less than two documents.
var ErrTooFewInputs = errors.New("merge needs at least two documents")

// Orchestrator assembles output documents.
type Orchestrator struct {
	svc          pdf.DocumentService
	previewScale float64
	workers      int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPreviewScale sets the render scale annotation anchors were captured at
func WithPreviewScale(scale float64) Option {
	return func(o *Orchestrator) { o.previewScale = scale }
}

// WithWorkers bounds concurrent document loads in Merge
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// New creates an orchestrator on top of svc
func New(svc pdf.DocumentService, opts ...Option) *Orchestrator {
	o := &Orchestrator{svc: svc, previewScale: 1, workers: 4}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Export writes the pages of state in order, with their final rotation, and burns in the
// annotations of store (which may be nil). Neither state nor store is modified.
func (o *Orchestrator) Export(ctx context.Context, src pdf.Document, state pageorder.State, store *annotation.Store) ([]byte, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "export.Export")
	defer span.Finish()
	span.SetTag("pages", state.Len())

	out, err := o.build(ctx, src, state, store)
	if err != nil {
		return nil, err
	}
	defer o.svc.Close(out)

	return o.save(ctx, out)
}

// Stamp exports state and places an image on one logical page. topLeft and widthPx are in
// view space at the preview scale; the height follows the image's aspect ratio.
func (o *Orchestrator) Stamp(ctx context.Context, src pdf.Document, state pageorder.State, page int, img []byte, topLeft geometry.Point, widthPx float64) ([]byte, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "export.Stamp")
	defer span.Finish()

	if mt := mimetype.Detect(img); !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, fmt.Errorf("%w: %s", pdf.ErrUnsupportedImageFormat, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pdf.ErrUnsupportedImageFormat, err)
	}
	if cfg.Width == 0 || widthPx <= 0 {
		return nil, fmt.Errorf("%w: width %v", geometry.ErrInvalidScale, widthPx)
	}
	if _, err := state.At(page); err != nil {
		return nil, err
	}

	out, err := o.build(ctx, src, state, nil)
	if err != nil {
		return nil, err
	}
	defer o.svc.Close(out)

	pp, err := o.placement(src, state, page)
	if err != nil {
		return nil, err
	}
	heightPx := widthPx * float64(cfg.Height) / float64(cfg.Width)
	ll, size, err := pp.box(topLeft, geometry.Size{Width: widthPx, Height: heightPx})
	if err != nil {
		return nil, err
	}

	tok, err := o.svc.EmbedImage(ctx, out, img)
	if err != nil {
		return nil, fmt.Errorf("failed to embed image: %w", err)
	}
	params := pdf.ImageParams{
		Image:  tok,
		X:      ll.X,
		Y:      ll.Y,
		Width:  size.Width,
		Height: size.Height,
		Angle:  pp.rotation,
	}
	if err := o.svc.DrawImage(ctx, out, page-1, params); err != nil {
		return nil, fmt.Errorf("failed to draw image: %w", err)
	}
	return o.save(ctx, out)
}

// Merge concatenates all pages of every input, in order.
func (o *Orchestrator) Merge(ctx context.Context, inputs [][]byte) ([]byte, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "export.Merge")
	defer span.Finish()
	span.SetTag("inputs", len(inputs))

	if len(inputs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewInputs, len(inputs))
	}

	docs := make([]pdf.Document, len(inputs))
	defer func() {
		for _, d := range docs {
			if d != nil {
				o.svc.Close(d)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, data := range inputs {
		g.Go(func() error {
			d, err := o.svc.Load(gctx, data)
			if err != nil {
				return fmt.Errorf("input %d: %w", i+1, err)
			}
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out, err := o.svc.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	defer o.svc.Close(out)

	for i, d := range docs {
		indices := make([]int, d.PageCount())
		for j := range indices {
			indices[j] = j
		}
		tokens, err := o.svc.CopyPages(ctx, out, d, indices)
		if err != nil {
			return nil, fmt.Errorf("failed to copy pages of input %d: %w", i+1, err)
		}
		for _, tok := range tokens {
			if err := o.svc.AddPage(ctx, out, tok); err != nil {
				return nil, fmt.Errorf("failed to add page of input %d: %w", i+1, err)
			}
		}
	}
	return o.save(ctx, out)
}

// build creates the output document for state. On error the partial output is closed.
func (o *Orchestrator) build(ctx context.Context, src pdf.Document, state pageorder.State, store *annotation.Store) (out pdf.Document, err error) {
	if state.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to export", pageorder.ErrInvalidRange)
	}

	doc, err := o.svc.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	defer func() {
		if err != nil {
			o.svc.Close(doc)
		}
	}()

	var tokens []pdf.PageToken
	if indices := state.SourceIndices(); len(indices) > 0 {
		tokens, err = o.svc.CopyPages(ctx, doc, src, indices)
		if err != nil {
			return nil, fmt.Errorf("failed to copy pages: %w", err)
		}
	}

	next := 0
	for i, ref := range state.Pages() {
		if ref.Blank {
			err = o.svc.AddBlankPage(ctx, doc, ref.Size)
		} else {
			err = o.svc.AddPage(ctx, doc, tokens[next])
			next++
		}
		if err != nil {
			return nil, fmt.Errorf("failed to add page %d: %w", i+1, err)
		}
		if err = o.svc.SetRotation(ctx, doc, i, ref.Rotation); err != nil {
			return nil, fmt.Errorf("failed to rotate page %d: %w", i+1, err)
		}
	}

	if store == nil {
		return doc, nil
	}
	for page := 1; page <= state.Len(); page++ {
		marks := store.ByPage(page)
		if len(marks) == 0 {
			continue
		}
		pp, perr := o.placement(src, state, page)
		if perr != nil {
			return nil, perr
		}
		for _, a := range marks {
			if err = o.burn(ctx, doc, page-1, pp, a); err != nil {
				return nil, fmt.Errorf("failed to draw annotation %d on page %d: %w", a.ID, page, err)
			}
		}
	}
	return doc, nil
}

func (o *Orchestrator) save(ctx context.Context, out pdf.Document) ([]byte, error) {
	data, err := o.svc.Save(ctx, out)
	if err != nil {
		logger.Error("failed to save document", "error", err)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return data, nil
}

// placement returns the transform chain of a logical page
func (o *Orchestrator) placement(src pdf.Document, state pageorder.State, page int) (pagePlacement, error) {
	ref, err := state.At(page)
	if err != nil {
		return pagePlacement{}, err
	}
	size := ref.Size
	if !ref.Blank {
		if size, err = src.PageSize(ref.SourceIndex); err != nil {
			return pagePlacement{}, fmt.Errorf("failed to get size of source page %d: %w", ref.SourceIndex+1, err)
		}
	}
	m, err := geometry.NewMapping(size.Rotated(ref.Rotation), o.previewScale)
	if err != nil {
		return pagePlacement{}, err
	}
	return pagePlacement{mapping: m, rotation: ref.Rotation, size: size}, nil
}
