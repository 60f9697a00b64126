package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pageorder"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

type fakeDoc struct {
	sizes []geometry.Size
}

func (d fakeDoc) PageCount() int { return len(d.sizes) }

func (d fakeDoc) PageSize(i int) (geometry.Size, error) {
	if i < 0 || i >= len(d.sizes) {
		return geometry.Size{}, pdf.ErrPageIndex
	}
	return d.sizes[i], nil
}

func (d fakeDoc) PageRotation(int) (int, error) { return 0, nil }

type call struct {
	source   int
	scale    float64
	rotation int
}

// fakeRasterizer returns a gray image of the exact canvas size, or a 10x10 one when sloppy
type fakeRasterizer struct {
	doc    fakeDoc
	sloppy bool
	fail   int

	mu    sync.Mutex
	calls []call
}

func (r *fakeRasterizer) Render(_ context.Context, source int, scale float64, rotation int) (image.Image, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{source, scale, rotation})
	r.mu.Unlock()

	if source == r.fail {
		return nil, errors.New("boom")
	}
	w, h := 10, 10
	if !r.sloppy {
		w, h = pixels(r.doc.sizes[source].Rotated(rotation).Scale(scale))
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img, nil
}

type fakeText map[int][]pdf.TextItem

func (f fakeText) TextContent(_ context.Context, i int) ([]pdf.TextItem, error) {
	return f[i], nil
}

func setup(t *testing.T) (fakeDoc, pageorder.State) {
	t.Helper()
	doc := fakeDoc{sizes: []geometry.Size{{Width: 100, Height: 200}, {Width: 300, Height: 100}}}
	state, err := pageorder.New(2, []int{0, 90})
	require.NoError(t, err)
	return doc, state
}

func TestPageDelegatesToRasterizer(t *testing.T) {
	doc, state := setup(t)
	r := &fakeRasterizer{doc: doc, fail: -1}
	o := New(doc, WithRasterizer(r))

	store := annotation.NewStore()
	id, err := store.Create(2, annotation.Cross, geometry.Point{X: 5, Y: 5}, "", annotation.DefaultStyle)
	require.NoError(t, err)

	v, err := o.Page(context.Background(), state, store, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Page)
	assert.False(t, v.Blank)
	// 300x100 rotated by 90 at scale 2
	assert.Equal(t, geometry.Size{Width: 200, Height: 600}, v.Size)
	assert.Equal(t, image.Rect(0, 0, 200, 600), v.Image.Bounds())
	require.Len(t, v.Annotations, 1)
	assert.Equal(t, id, v.Annotations[0].ID)

	require.Len(t, r.calls, 1)
	assert.Equal(t, call{source: 1, scale: 2, rotation: 90}, r.calls[0])
}

func TestPageBlankSkipsRasterizer(t *testing.T) {
	doc, state := setup(t)
	state, err := state.InsertBlank(0, geometry.Size{Width: 50, Height: 80})
	require.NoError(t, err)
	state, err = state.Rotate(1, 90)
	require.NoError(t, err)

	r := &fakeRasterizer{doc: doc, fail: -1}
	o := New(doc, WithRasterizer(r))

	v, err := o.Page(context.Background(), state, nil, 1, 1.5)
	require.NoError(t, err)
	assert.True(t, v.Blank)
	assert.Equal(t, image.Rect(0, 0, 120, 75), v.Image.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, v.Image.At(3, 3))
	assert.Empty(t, r.calls)
}

func TestPageErrors(t *testing.T) {
	doc, state := setup(t)
	o := New(doc)
	ctx := context.Background()

	_, err := o.Page(ctx, state, nil, 1, 1)
	assert.ErrorIs(t, err, ErrNoRasterizer)
	_, err = o.Page(ctx, state, nil, 1, 0)
	assert.ErrorIs(t, err, geometry.ErrInvalidScale)
	_, err = o.Page(ctx, state, nil, 3, 1)
	assert.ErrorIs(t, err, pageorder.ErrInvalidRange)
}

func TestFitRescalesSloppyRasters(t *testing.T) {
	doc, state := setup(t)
	o := New(doc, WithRasterizer(&fakeRasterizer{doc: doc, sloppy: true, fail: -1}))

	v, err := o.Page(context.Background(), state, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 200), v.Image.Bounds())
}

func TestThumbnails(t *testing.T) {
	doc, state := setup(t)
	state, err := state.InsertBlank(1, geometry.A4)
	require.NoError(t, err)

	r := &fakeRasterizer{doc: doc, fail: -1}
	o := New(doc, WithRasterizer(r), WithWorkers(2))

	views, err := o.Thumbnails(context.Background(), state, 0.5)
	require.NoError(t, err)
	require.Len(t, views, 3)
	for i, v := range views {
		assert.Equal(t, i+1, v.Page)
	}
	assert.False(t, views[0].Blank)
	assert.True(t, views[1].Blank)
	assert.Equal(t, geometry.Size{Width: 50, Height: 150}, views[2].Size)
	assert.Len(t, r.calls, 2)

	r.fail = 1
	_, err = o.Thumbnails(context.Background(), state, 0.5)
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	doc, state := setup(t)
	state, err := state.Swap(1, 2)
	require.NoError(t, err)
	state, err = state.InsertBlank(2, geometry.A4)
	require.NoError(t, err)

	src := fakeText{0: {{Text: "first"}}, 1: {{Text: "second"}}}
	o := New(doc, WithTextSource(src))
	ctx := context.Background()

	items, err := o.Text(ctx, state, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", items[0].Text)

	items, err = o.Text(ctx, state, 3)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = New(doc).Text(ctx, state, 1)
	assert.ErrorIs(t, err, ErrNoTextSource)
}
