package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
)

// ErrTooLarge is returned by Load for inputs above the configured size limit.
var ErrTooLarge = errors.New("document too large")

// blankTemplate is a one-page document with an empty content stream.
// Its MediaBox is rewritten for every blank page.
const blankTemplate = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>\nendobj\n" +
	"4 0 obj\n<< /Length 0 >>\nstream\n\nendstream\nendobj\n" +
	"xref\n0 5\n" +
	"0000000000 65535 f \n" +
	"0000000009 00000 n \n" +
	"0000000058 00000 n \n" +
	"0000000115 00000 n \n" +
	"0000000219 00000 n \n" +
	"trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n268\n%%EOF\n"

// PDFCPUService implements DocumentService with pdfcpu.
//
// Every document is kept as a list of single-page pdfcpu contexts. Pages of a loaded
// document are only split out of the source bytes when they are first modified or copied,
// and the page list is merged back into one file on Save.
type PDFCPUService struct {
	conf     *model.Configuration
	maxBytes int64
}

// ServiceOption configures a PDFCPUService
type ServiceOption func(*PDFCPUService)

// WithMaxDocumentBytes rejects inputs larger than n bytes. Zero disables the limit.
func WithMaxDocumentBytes(n int64) ServiceOption {
	return func(s *PDFCPUService) {
		s.maxBytes = n
	}
}

// NewPDFCPUService creates a new service
func NewPDFCPUService(opts ...ServiceOption) *PDFCPUService {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	s := &PDFCPUService{conf: conf}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pdfcpuDocument implements Document
type pdfcpuDocument struct {
	owner  *PDFCPUService
	pages  []*pdfcpuPage
	closed bool
}

func (d *pdfcpuDocument) PageCount() int {
	return len(d.pages)
}

func (d *pdfcpuDocument) PageSize(index int) (geometry.Size, error) {
	p, err := d.page(index)
	if err != nil {
		return geometry.Size{}, err
	}
	return p.size, nil
}

func (d *pdfcpuDocument) PageRotation(index int) (int, error) {
	p, err := d.page(index)
	if err != nil {
		return 0, err
	}
	return p.rotation, nil
}

func (d *pdfcpuDocument) page(index int) (*pdfcpuPage, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrPageIndex, index, len(d.pages))
	}
	return d.pages[index], nil
}

type pageToken struct {
	dst  *pdfcpuDocument
	page *pdfcpuPage
	used bool
}

type pdfcpuImage struct {
	owner  *pdfcpuDocument
	data   []byte
	ext    string
	width  int
	height int
}

func (s *PDFCPUService) document(doc Document) (*pdfcpuDocument, error) {
	d, ok := doc.(*pdfcpuDocument)
	if !ok || d == nil || d.owner != s {
		return nil, ErrForeignHandle
	}
	if d.closed {
		return nil, ErrClosed
	}
	return d, nil
}

// Load parses a PDF held in memory
func (s *PDFCPUService) Load(ctx context.Context, data []byte) (Document, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.Load")
	defer span.Finish()
	span.SetTag("bytes", len(data))

	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, len(data), s.maxBytes)
	}
	if !IsPDF(data) {
		return nil, fmt.Errorf("%w: input is %s", ErrCorruptDocument, mimetype.Detect(data).String())
	}

	pc, err := s.readContext(data)
	if err != nil {
		return nil, err
	}

	src := bytes.Clone(data)
	d := &pdfcpuDocument{owner: s, pages: make([]*pdfcpuPage, 0, pc.PageCount)}
	for i := 1; i <= pc.PageCount; i++ {
		size, origin, rotation, err := pageGeometry(pc, i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrCorruptDocument, i, err)
		}
		d.pages = append(d.pages, &pdfcpuPage{
			src:      src,
			number:   i,
			single:   pc.PageCount == 1,
			size:     size,
			origin:   origin,
			rotation: rotation,
		})
	}

	span.SetTag("pages", len(d.pages))
	logger.Debug("document loaded", "pages", len(d.pages), "bytes", len(data))
	return d, nil
}

// Create returns an empty document
func (s *PDFCPUService) Create(ctx context.Context) (Document, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.Create")
	defer span.Finish()

	return &pdfcpuDocument{owner: s}, nil
}

// CopyPages copies pages of src. The copies are independent of src and can be added to dst once.
func (s *PDFCPUService) CopyPages(ctx context.Context, dst, src Document, indices []int) ([]PageToken, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.CopyPages")
	defer span.Finish()
	span.SetTag("pages", len(indices))

	to, err := s.document(dst)
	if err != nil {
		return nil, err
	}
	from, err := s.document(src)
	if err != nil {
		return nil, err
	}

	tokens := make([]PageToken, 0, len(indices))
	for _, i := range indices {
		p, err := from.page(i)
		if err != nil {
			return nil, err
		}
		cp, err := p.clone(s.config())
		if err != nil {
			return nil, fmt.Errorf("failed to copy page %d: %w", i+1, err)
		}
		tokens = append(tokens, &pageToken{dst: to, page: cp})
	}
	return tokens, nil
}

// AddPage appends a page copied with CopyPages
func (s *PDFCPUService) AddPage(ctx context.Context, dst Document, page PageToken) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.AddPage")
	defer span.Finish()

	d, err := s.document(dst)
	if err != nil {
		return err
	}
	t, ok := page.(*pageToken)
	if !ok || t.dst != d {
		return ErrForeignHandle
	}
	if t.used {
		return ErrTokenUsed
	}
	t.used = true
	d.pages = append(d.pages, t.page)
	return nil
}

// AddBlankPage appends an empty page
func (s *PDFCPUService) AddBlankPage(ctx context.Context, dst Document, size geometry.Size) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.AddBlankPage")
	defer span.Finish()

	d, err := s.document(dst)
	if err != nil {
		return err
	}
	if !size.Valid() {
		return fmt.Errorf("invalid page size %vx%v", size.Width, size.Height)
	}
	p, err := s.blankPage(size)
	if err != nil {
		return fmt.Errorf("failed to create blank page: %w", err)
	}
	d.pages = append(d.pages, p)
	return nil
}

func (s *PDFCPUService) blankPage(size geometry.Size) (*pdfcpuPage, error) {
	pc, err := s.readContext([]byte(blankTemplate))
	if err != nil {
		return nil, err
	}
	pageDict, _, _, err := pc.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	pageDict["MediaBox"] = types.NewRectangle(0, 0, size.Width, size.Height).Array()
	return &pdfcpuPage{ctx: pc, size: size}, nil
}

// RemovePage deletes a page
func (s *PDFCPUService) RemovePage(ctx context.Context, doc Document, index int) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.RemovePage")
	defer span.Finish()

	d, err := s.document(doc)
	if err != nil {
		return err
	}
	if _, err := d.page(index); err != nil {
		return err
	}
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	return nil
}

// SetRotation sets the rotation of a page. Degrees must be a multiple of 90.
func (s *PDFCPUService) SetRotation(ctx context.Context, doc Document, index int, degrees int) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.SetRotation")
	defer span.Finish()

	d, err := s.document(doc)
	if err != nil {
		return err
	}
	p, err := d.page(index)
	if err != nil {
		return err
	}
	if degrees%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90", degrees)
	}
	p.rotation = geometry.NormalizeRotation(degrees)
	return nil
}

// DrawText draws a text run with one of the standard fonts
func (s *PDFCPUService) DrawText(ctx context.Context, doc Document, index int, p TextParams) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.DrawText")
	defer span.Finish()

	page, err := s.drawTarget(doc, index)
	if err != nil {
		return err
	}
	if p.Size <= 0 {
		return fmt.Errorf("invalid font size %v", p.Size)
	}
	return page.drawText(p)
}

// DrawLine strokes a line segment
func (s *PDFCPUService) DrawLine(ctx context.Context, doc Document, index int, p LineParams) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.DrawLine")
	defer span.Finish()

	page, err := s.drawTarget(doc, index)
	if err != nil {
		return err
	}
	page.drawLine(p)
	return nil
}

// DrawRectangle strokes a rectangle
func (s *PDFCPUService) DrawRectangle(ctx context.Context, doc Document, index int, p RectParams) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.DrawRectangle")
	defer span.Finish()

	page, err := s.drawTarget(doc, index)
	if err != nil {
		return err
	}
	page.drawRectangle(p)
	return nil
}

func (s *PDFCPUService) drawTarget(doc Document, index int) (*pdfcpuPage, error) {
	d, err := s.document(doc)
	if err != nil {
		return nil, err
	}
	p, err := d.page(index)
	if err != nil {
		return nil, err
	}
	if err := p.materialize(s.config()); err != nil {
		return nil, fmt.Errorf("failed to prepare page %d: %w", index+1, err)
	}
	return p, nil
}

// EmbedImage accepts PNG and JPEG data
func (s *PDFCPUService) EmbedImage(ctx context.Context, doc Document, data []byte) (ImageToken, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.EmbedImage")
	defer span.Finish()

	d, err := s.document(doc)
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImageFormat, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImageFormat)
	}

	span.SetTag("mime", mt.String())
	return &pdfcpuImage{
		owner:  d,
		data:   bytes.Clone(data),
		ext:    mt.Extension(),
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

// DrawImage places an embedded image. The image keeps its aspect ratio and is
// fitted into Width x Height; a zero Height fits the width only.
func (s *PDFCPUService) DrawImage(ctx context.Context, doc Document, index int, p ImageParams) error {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.DrawImage")
	defer span.Finish()

	d, err := s.document(doc)
	if err != nil {
		return err
	}
	img, ok := p.Image.(*pdfcpuImage)
	if !ok || img.owner != d {
		return ErrForeignHandle
	}
	if p.Width <= 0 {
		return fmt.Errorf("invalid image width %v", p.Width)
	}
	page, err := s.drawTarget(doc, index)
	if err != nil {
		return err
	}
	return page.stamp(img, p, s.config())
}

// Save serializes doc into a single PDF
func (s *PDFCPUService) Save(ctx context.Context, doc Document) ([]byte, error) {
	span, _ := ddTracer.StartSpanFromContext(ctx, "pdf.Save")
	defer span.Finish()

	d, err := s.document(doc)
	if err != nil {
		return nil, err
	}
	if len(d.pages) == 0 {
		return nil, ErrEmptyDocument
	}
	span.SetTag("pages", len(d.pages))

	files := make([]io.ReadSeeker, 0, len(d.pages))
	var single []byte
	for i, p := range d.pages {
		b, err := p.bytes(s.config())
		if err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
		single = b
		files = append(files, bytes.NewReader(b))
	}
	if len(files) == 1 {
		return single, nil
	}

	var out bytes.Buffer
	if err := api.MergeRaw(files, &out, false, s.config()); err != nil {
		return nil, fmt.Errorf("failed to merge pages: %w", err)
	}
	return out.Bytes(), nil
}

// Close releases doc. Closing twice is a no-op.
func (s *PDFCPUService) Close(doc Document) error {
	d, ok := doc.(*pdfcpuDocument)
	if !ok || d == nil || d.owner != s {
		return ErrForeignHandle
	}
	d.closed = true
	d.pages = nil
	return nil
}

// config returns a private copy of the configuration; pdfcpu's api functions write to it
func (s *PDFCPUService) config() *model.Configuration {
	c := *s.conf
	return &c
}

func (s *PDFCPUService) readContext(data []byte) (*model.Context, error) {
	pc, err := api.ReadContext(bytes.NewReader(data), s.config())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if err := api.ValidateContext(pc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return pc, nil
}

// pageGeometry returns MediaBox size, MediaBox origin and rotation of page number i
func pageGeometry(pc *model.Context, i int) (geometry.Size, geometry.Point, int, error) {
	pageDict, _, attrs, err := pc.PageDict(i, false)
	if err != nil {
		return geometry.Size{}, geometry.Point{}, 0, err
	}
	if pageDict == nil {
		return geometry.Size{}, geometry.Point{}, 0, errors.New("missing page dictionary")
	}

	size := geometry.Letter
	var origin geometry.Point
	if attrs != nil && attrs.MediaBox != nil {
		size = geometry.Size{Width: attrs.MediaBox.Width(), Height: attrs.MediaBox.Height()}
		origin = geometry.Point{X: attrs.MediaBox.LL.X, Y: attrs.MediaBox.LL.Y}
	}

	rotation := 0
	if attrs != nil && attrs.Rotate != 0 {
		rotation = attrs.Rotate
	} else if rot, ok := pageDict["Rotate"].(types.Integer); ok {
		rotation = int(rot)
	}
	return size, origin, geometry.NormalizeRotation(rotation), nil
}

// IsPDF reports whether data looks like a PDF file
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is("application/pdf")
}
