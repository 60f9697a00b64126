// Package session is one open editing session: the loaded source document, its logical
// page order and the annotations placed on it.
//
// A Session serializes its operations. A call that arrives while another one is still
// running fails with ErrBusy instead of queueing, and every mutation either commits as a
// whole or leaves the session untouched.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/config"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/export"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pageorder"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/render"
)

var (
	// ErrBusy is returned when an operation overlaps a running one.
	ErrBusy = errors.New("session busy")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session closed")
)

// Output is a produced document and the file name to offer it under.
type Output struct {
	Name string
	Data []byte
}

// Session is one open document with its page order and annotations.
type Session struct {
	mu     sync.Mutex
	closed bool

	svc  pdf.DocumentService
	cfg  *config.Config
	name string
	doc  pdf.Document

	state pageorder.State
	store *annotation.Store
	drag  annotation.Drag
	style annotation.Style

	render *render.Orchestrator
	export *export.Orchestrator
}

type options struct {
	raster render.Rasterizer
	text   pdf.TextSource
}

// Option configures Open
type Option func(*options)

// WithRasterizer sets the renderer used for page views
func WithRasterizer(r render.Rasterizer) Option {
	return func(o *options) { o.raster = r }
}

// WithTextSource replaces the built-in text extraction
func WithTextSource(t pdf.TextSource) Option {
	return func(o *options) { o.text = t }
}

// Open loads data as a new session. name is the file name outputs are derived from and cfg
// may be nil for defaults.
func Open(ctx context.Context, svc pdf.DocumentService, data []byte, name string, cfg *config.Config, opts ...Option) (*Session, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "session.Open")
	defer span.Finish()

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	style, err := cfg.Style()
	if err != nil {
		return nil, fmt.Errorf("invalid default style: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.text == nil {
		o.text = pdf.NewTextExtractor(data)
	}

	doc, err := svc.Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	rotations := make([]int, doc.PageCount())
	for i := range rotations {
		if rotations[i], err = doc.PageRotation(i); err != nil {
			svc.Close(doc)
			return nil, fmt.Errorf("failed to read rotation of page %d: %w", i+1, err)
		}
	}
	state, err := pageorder.New(doc.PageCount(), rotations)
	if err != nil {
		svc.Close(doc)
		return nil, err
	}

	s := &Session{
		svc:   svc,
		cfg:   cfg,
		name:  name,
		doc:   doc,
		state: state,
		store: annotation.NewStore(),
		style: style,
		render: render.New(doc,
			render.WithRasterizer(o.raster),
			render.WithTextSource(o.text),
			render.WithWorkers(cfg.MaxRenderWorkers)),
		export: export.New(svc,
			export.WithPreviewScale(cfg.PreviewScale),
			export.WithWorkers(cfg.MaxRenderWorkers)),
	}
	logger.Info("session opened", "name", name, "pages", state.Len())
	return s, nil
}

// Close releases the source document. Later calls fail with ErrClosed.
func (s *Session) Close() error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	s.closed = true
	s.drag.Cancel()
	if err := s.svc.Close(s.doc); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	logger.Debug("session closed", "name", s.name)
	return nil
}

func (s *Session) acquire() (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	return s.mu.Unlock, nil
}

// Name returns the file name the session was opened with
func (s *Session) Name() string {
	return s.name
}

// State returns the current page order.
func (s *Session) State() (pageorder.State, error) {
	unlock, err := s.acquire()
	if err != nil {
		return pageorder.State{}, err
	}
	defer unlock()
	return s.state, nil
}

// Annotations returns a snapshot of all annotations in creation order.
func (s *Session) Annotations() ([]annotation.Annotation, error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.store.All(), nil
}

// Move moves pages [from, to] so they start at insertAt.
func (s *Session) Move(from, to, insertAt int) error {
	return s.reorder("move", 0, func(st pageorder.State) (pageorder.State, error) {
		return st.Move(from, to, insertAt)
	})
}

// Swap exchanges two pages.
func (s *Session) Swap(a, b int) error {
	return s.reorder("swap", 0, func(st pageorder.State) (pageorder.State, error) {
		return st.Swap(a, b)
	})
}

// Rotate turns a page by the configured rotation step.
func (s *Session) Rotate(page int) error {
	return s.RotateBy(page, s.cfg.RotationStep)
}

// RotateBy turns a page by delta degrees, a multiple of 90.
func (s *Session) RotateBy(page, delta int) error {
	return s.reorder("rotate", 0, func(st pageorder.State) (pageorder.State, error) {
		return st.Rotate(page, delta)
	})
}

// Delete removes a page. Its annotations follow the configured orphan policy.
func (s *Session) Delete(page int) error {
	return s.reorder("delete", page, func(st pageorder.State) (pageorder.State, error) {
		return st.Delete(page)
	})
}

// InsertBlank inserts a blank page of the configured size after afterPage (0 = in front).
func (s *Session) InsertBlank(afterPage int) error {
	return s.InsertBlankSized(afterPage, s.cfg.BlankSize())
}

// InsertBlankSized inserts a blank page of the given size.
func (s *Session) InsertBlankSized(afterPage int, size geometry.Size) error {
	return s.reorder("insert-blank", 0, func(st pageorder.State) (pageorder.State, error) {
		return st.InsertBlank(afterPage, size)
	})
}

// reorder applies a page order operation and carries the annotations along. deleted is the
// page removed by the operation, 0 if none.
func (s *Session) reorder(op string, deleted int, fn func(pageorder.State) (pageorder.State, error)) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	next, err := fn(s.state)
	if err != nil {
		logger.Debug("page operation rejected", "op", op, "error", err)
		return err
	}

	positions := pageorder.PositionMap(s.state, next)
	store := s.store.Clone()
	dropped := store.Remap(func(page int) (int, bool) {
		if p, ok := positions[page]; ok {
			return p, true
		}
		if page == deleted && s.cfg.OrphanPolicy == annotation.ReassignOrphans {
			return min(deleted, next.Len()), true
		}
		return 0, false
	})
	for _, id := range dropped {
		logger.Warn("annotation dropped with its page", "id", id, "page", deleted)
		s.cancelDragOf(id)
	}

	s.state, s.store = next, store
	logger.Debug("page order changed", "op", op, "pages", next.Len(), "annotations", store.Len())
	return nil
}
