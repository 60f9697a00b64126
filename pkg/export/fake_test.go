package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

var errInjected = errors.New("injected failure")

type fakePage struct {
	label    string
	size     geometry.Size
	rotation int
}

type fakeDoc struct {
	pages  []fakePage
	closed bool
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageSize(i int) (geometry.Size, error) {
	if i < 0 || i >= len(d.pages) {
		return geometry.Size{}, pdf.ErrPageIndex
	}
	return d.pages[i].size, nil
}

func (d *fakeDoc) PageRotation(i int) (int, error) {
	if i < 0 || i >= len(d.pages) {
		return 0, pdf.ErrPageIndex
	}
	return d.pages[i].rotation, nil
}

type drawCall struct {
	page int
	text *pdf.TextParams
	line *pdf.LineParams
	rect *pdf.RectParams
	img  *pdf.ImageParams
}

// fakeService records calls and serializes a document as "label@rotation" per page
type fakeService struct {
	mu     sync.Mutex
	failOn string

	created   []*fakeDoc
	copyCalls [][]int
	draws     []drawCall
}

// newSource returns a document whose pages are labelled prefix0, prefix1, ...
func newSource(prefix string, sizes ...geometry.Size) *fakeDoc {
	d := &fakeDoc{}
	for i, s := range sizes {
		d.pages = append(d.pages, fakePage{label: prefix + strconv.Itoa(i), size: s})
	}
	return d
}

func (s *fakeService) fail(op string) error {
	if s.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

// Load accepts "prefix:count"
func (s *fakeService) Load(_ context.Context, data []byte) (pdf.Document, error) {
	if err := s.fail("Load"); err != nil {
		return nil, err
	}
	prefix, count, ok := strings.Cut(string(data), ":")
	n, err := strconv.Atoi(count)
	if !ok || err != nil || n < 1 {
		return nil, pdf.ErrCorruptDocument
	}
	sizes := make([]geometry.Size, n)
	for i := range sizes {
		sizes[i] = geometry.A4
	}
	return newSource(prefix, sizes...), nil
}

func (s *fakeService) Create(context.Context) (pdf.Document, error) {
	if err := s.fail("Create"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &fakeDoc{}
	s.created = append(s.created, d)
	return d, nil
}

func (s *fakeService) CopyPages(_ context.Context, _, src pdf.Document, indices []int) ([]pdf.PageToken, error) {
	if err := s.fail("CopyPages"); err != nil {
		return nil, err
	}
	s.copyCalls = append(s.copyCalls, indices)
	d := src.(*fakeDoc)
	out := make([]pdf.PageToken, 0, len(indices))
	for _, i := range indices {
		out = append(out, d.pages[i])
	}
	return out, nil
}

func (s *fakeService) AddPage(_ context.Context, dst pdf.Document, page pdf.PageToken) error {
	if err := s.fail("AddPage"); err != nil {
		return err
	}
	d := dst.(*fakeDoc)
	d.pages = append(d.pages, page.(fakePage))
	return nil
}

func (s *fakeService) AddBlankPage(_ context.Context, dst pdf.Document, size geometry.Size) error {
	if err := s.fail("AddBlankPage"); err != nil {
		return err
	}
	d := dst.(*fakeDoc)
	d.pages = append(d.pages, fakePage{label: "blank", size: size})
	return nil
}

func (s *fakeService) RemovePage(_ context.Context, doc pdf.Document, index int) error {
	d := doc.(*fakeDoc)
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	return nil
}

func (s *fakeService) SetRotation(_ context.Context, doc pdf.Document, index int, degrees int) error {
	if err := s.fail("SetRotation"); err != nil {
		return err
	}
	doc.(*fakeDoc).pages[index].rotation = degrees
	return nil
}

func (s *fakeService) DrawText(_ context.Context, _ pdf.Document, index int, p pdf.TextParams) error {
	if err := s.fail("DrawText"); err != nil {
		return err
	}
	s.draws = append(s.draws, drawCall{page: index, text: &p})
	return nil
}

func (s *fakeService) DrawLine(_ context.Context, _ pdf.Document, index int, p pdf.LineParams) error {
	if err := s.fail("DrawLine"); err != nil {
		return err
	}
	s.draws = append(s.draws, drawCall{page: index, line: &p})
	return nil
}

func (s *fakeService) DrawRectangle(_ context.Context, _ pdf.Document, index int, p pdf.RectParams) error {
	if err := s.fail("DrawRectangle"); err != nil {
		return err
	}
	s.draws = append(s.draws, drawCall{page: index, rect: &p})
	return nil
}

func (s *fakeService) EmbedImage(_ context.Context, _ pdf.Document, data []byte) (pdf.ImageToken, error) {
	if err := s.fail("EmbedImage"); err != nil {
		return nil, err
	}
	return len(data), nil
}

func (s *fakeService) DrawImage(_ context.Context, _ pdf.Document, index int, p pdf.ImageParams) error {
	if err := s.fail("DrawImage"); err != nil {
		return err
	}
	s.draws = append(s.draws, drawCall{page: index, img: &p})
	return nil
}

func (s *fakeService) Save(_ context.Context, doc pdf.Document) ([]byte, error) {
	if err := s.fail("Save"); err != nil {
		return nil, err
	}
	d := doc.(*fakeDoc)
	parts := make([]string, len(d.pages))
	for i, p := range d.pages {
		parts[i] = fmt.Sprintf("%s@%d", p.label, p.rotation)
	}
	return []byte(strings.Join(parts, ",")), nil
}

func (s *fakeService) Close(doc pdf.Document) error {
	doc.(*fakeDoc).closed = true
	return nil
}

func (s *fakeService) allClosed() bool {
	for _, d := range s.created {
		if !d.closed {
			return false
		}
	}
	return true
}
