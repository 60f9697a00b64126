// Package render produces the raster view of a logical page together with the annotations
// to overlay on it.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pageorder"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

var (
	// ErrNoRasterizer is returned when a source page is requested without a Rasterizer.
	ErrNoRasterizer = errors.New("no rasterizer configured")
	// ErrNoTextSource is returned by Text without a TextSource.
	ErrNoTextSource = errors.New("no text source configured")
)

// Rasterizer draws a source page at the given scale with the given clockwise rotation.
type Rasterizer interface {
	Render(ctx context.Context, sourceIndex int, scale float64, rotation int) (image.Image, error)
}

// View is a rendered logical page.
type View struct {
	Page  int
	Image image.Image
	// Size is the canvas size in pixels
	Size        geometry.Size
	Blank       bool
	Annotations []annotation.Annotation
}

// Orchestrator renders the pages of one source document.
type Orchestrator struct {
	doc     pdf.Document
	raster  Rasterizer
	text    pdf.TextSource
	workers int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRasterizer sets the page rasterizer
func WithRasterizer(r Rasterizer) Option {
	return func(o *Orchestrator) { o.raster = r }
}

// WithTextSource sets where page text comes from
func WithTextSource(t pdf.TextSource) Option {
	return func(o *Orchestrator) { o.text = t }
}

// WithWorkers bounds the number of pages rendered at once by Thumbnails
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// New creates an orchestrator for doc
func New(doc pdf.Document, opts ...Option) *Orchestrator {
	o := &Orchestrator{doc: doc, workers: 4}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Page renders a logical page. Annotations are returned as stored: anchors are in view space
// at the scale they were placed with and are not adjusted to scale.
func (o *Orchestrator) Page(ctx context.Context, state pageorder.State, store *annotation.Store, page int, scale float64) (View, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "render.Page")
	defer span.Finish()
	span.SetTag("page", page)

	v, err := o.render(ctx, state, page, scale)
	if err != nil {
		return View{}, err
	}
	if store != nil {
		v.Annotations = store.ByPage(page)
	}
	return v, nil
}

// Thumbnails renders every logical page concurrently. Views are returned in logical order
// and carry no annotations.
func (o *Orchestrator) Thumbnails(ctx context.Context, state pageorder.State, scale float64) ([]View, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "render.Thumbnails")
	defer span.Finish()
	span.SetTag("pages", state.Len())

	views := make([]View, state.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range views {
		page := i + 1
		g.Go(func() error {
			v, err := o.render(ctx, state, page, scale)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			views[page-1] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// Text returns the text runs of a logical page. Blank pages have none.
func (o *Orchestrator) Text(ctx context.Context, state pageorder.State, page int) ([]pdf.TextItem, error) {
	ref, err := state.At(page)
	if err != nil {
		return nil, err
	}
	if ref.Blank {
		return nil, nil
	}
	if o.text == nil {
		return nil, ErrNoTextSource
	}
	return o.text.TextContent(ctx, ref.SourceIndex)
}

func (o *Orchestrator) render(ctx context.Context, state pageorder.State, page int, scale float64) (View, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return View{}, fmt.Errorf("%w: %v", geometry.ErrInvalidScale, scale)
	}
	ref, err := state.At(page)
	if err != nil {
		return View{}, err
	}

	if ref.Blank {
		size := ref.Size.Rotated(ref.Rotation).Scale(scale)
		logger.Debug("rendering blank page", "page", page, "width", size.Width, "height", size.Height)
		return View{Page: page, Image: Blank(size), Size: size, Blank: true}, nil
	}

	if o.raster == nil {
		return View{}, ErrNoRasterizer
	}
	pageSize, err := o.doc.PageSize(ref.SourceIndex)
	if err != nil {
		return View{}, err
	}
	size := pageSize.Rotated(ref.Rotation).Scale(scale)

	img, err := o.raster.Render(ctx, ref.SourceIndex, scale, ref.Rotation)
	if err != nil {
		return View{}, fmt.Errorf("failed to render source page %d: %w", ref.SourceIndex+1, err)
	}
	return View{Page: page, Image: Fit(img, size), Size: size}, nil
}

// Blank returns a white canvas of size, rounded up to whole pixels.
func Blank(size geometry.Size) *image.RGBA {
	w, h := pixels(size)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return canvas
}

// Fit rescales img to size unless it already has those pixel dimensions.
func Fit(img image.Image, size geometry.Size) image.Image {
	w, h := pixels(size)
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func pixels(size geometry.Size) (int, int) {
	return int(math.Ceil(size.Width - 1e-9)), int(math.Ceil(size.Height - 1e-9))
}
