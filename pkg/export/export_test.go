package export

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pageorder"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

const eps = 1e-6

func TestExportOrderAndRotation(t *testing.T) {
	svc := &fakeService{}
	src := newSource("p", geometry.A4, geometry.A4, geometry.A4)

	state, err := pageorder.New(3, []int{0, 0, 90})
	require.NoError(t, err)
	state, err = state.Move(3, 3, 1)
	require.NoError(t, err)
	state, err = state.Rotate(2, 90)
	require.NoError(t, err)
	state, err = state.InsertBlank(1, geometry.Letter)
	require.NoError(t, err)

	out, err := New(svc).Export(context.Background(), src, state, nil)
	require.NoError(t, err)
	assert.Equal(t, "p2@90,blank@0,p0@90,p1@0", string(out))

	require.Len(t, svc.copyCalls, 1)
	assert.Equal(t, []int{2, 0, 1}, svc.copyCalls[0])
	assert.True(t, svc.allClosed())
}

func TestExportBurnsAnnotations(t *testing.T) {
	svc := &fakeService{}
	src := newSource("p", geometry.A4)
	state, err := pageorder.New(1, nil)
	require.NoError(t, err)

	store := annotation.NewStore()
	_, err = store.Create(1, annotation.Text, geometry.Point{X: 150, Y: 300}, "Hallo", annotation.DefaultStyle)
	require.NoError(t, err)
	_, err = store.Create(1, annotation.Cross, geometry.Point{X: 30, Y: 30}, "", annotation.DefaultStyle)
	require.NoError(t, err)
	_, err = store.Create(1, annotation.Check, geometry.Point{X: 60, Y: 60}, "", annotation.DefaultStyle)
	require.NoError(t, err)

	_, err = New(svc, WithPreviewScale(1.5)).Export(context.Background(), src, state, store)
	require.NoError(t, err)
	require.Len(t, svc.draws, 4)

	text := svc.draws[0].text
	require.NotNil(t, text)
	assert.Equal(t, "Hallo", text.Text)
	assert.Equal(t, pdf.Helvetica, text.Font)
	assert.InDelta(t, 100, text.X, eps)
	assert.InDelta(t, geometry.A4.Height-200, text.Y, eps)
	assert.InDelta(t, 16/1.5, text.Size, eps)
	assert.Equal(t, 0, text.Angle)
	assert.Equal(t, annotation.DefaultStyle.Color, text.Color)

	// cross centered at (30,30) px with 16px arms: (22,22)-(38,38) and (22,38)-(38,22)
	first, second := svc.draws[1].line, svc.draws[2].line
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.InDelta(t, 22/1.5, first.X1, eps)
	assert.InDelta(t, geometry.A4.Height-22/1.5, first.Y1, eps)
	assert.InDelta(t, 38/1.5, first.X2, eps)
	assert.InDelta(t, geometry.A4.Height-38/1.5, first.Y2, eps)
	assert.InDelta(t, geometry.A4.Height-38/1.5, second.Y1, eps)
	assert.InDelta(t, 2/1.5, first.Width, eps)

	check := svc.draws[3].text
	require.NotNil(t, check)
	assert.Equal(t, pdf.CheckGlyph, check.Text)
	assert.Equal(t, pdf.ZapfDingbats, check.Font)

	// the store is only read
	assert.Equal(t, 3, store.Len())
}

func TestExportRectangleOnRotatedPage(t *testing.T) {
	svc := &fakeService{}
	src := newSource("p", geometry.Size{Width: 600, Height: 800})
	state, err := pageorder.New(1, []int{90})
	require.NoError(t, err)

	store := annotation.NewStore()
	_, err = store.CreateRectangle(1, geometry.Point{X: 100, Y: 50}, geometry.Size{Width: 40, Height: 20}, annotation.DefaultStyle)
	require.NoError(t, err)
	_, err = store.Create(1, annotation.Text, geometry.Point{X: 100, Y: 50}, "gedreht", annotation.DefaultStyle)
	require.NoError(t, err)

	_, err = New(svc, WithPreviewScale(1)).Export(context.Background(), src, state, store)
	require.NoError(t, err)
	require.Len(t, svc.draws, 2)

	rect := svc.draws[0].rect
	require.NotNil(t, rect)
	assert.InDelta(t, 50, rect.X, eps)
	assert.InDelta(t, 100, rect.Y, eps)
	assert.InDelta(t, 20, rect.Width, eps)
	assert.InDelta(t, 40, rect.Height, eps)

	text := svc.draws[1].text
	require.NotNil(t, text)
	assert.Equal(t, 90, text.Angle)
	assert.InDelta(t, 50, text.X, eps)
	assert.InDelta(t, 100, text.Y, eps)
}

func TestExportAnnotationsFollowBlankSize(t *testing.T) {
	svc := &fakeService{}
	src := newSource("p", geometry.A4)
	state, err := pageorder.New(1, nil)
	require.NoError(t, err)
	state, err = state.InsertBlank(1, geometry.Size{Width: 200, Height: 100})
	require.NoError(t, err)

	store := annotation.NewStore()
	_, err = store.Create(2, annotation.Text, geometry.Point{X: 0, Y: 100}, "unten", annotation.DefaultStyle)
	require.NoError(t, err)

	_, err = New(svc).Export(context.Background(), src, state, store)
	require.NoError(t, err)
	require.Len(t, svc.draws, 1)
	assert.Equal(t, 1, svc.draws[0].page)
	assert.InDelta(t, 0, svc.draws[0].text.Y, eps)
}

func TestExportFailurePropagates(t *testing.T) {
	for _, op := range []string{"Create", "CopyPages", "AddPage", "AddBlankPage", "SetRotation", "DrawLine", "Save"} {
		t.Run(op, func(t *testing.T) {
			svc := &fakeService{failOn: op}
			src := newSource("p", geometry.A4, geometry.A4)
			state, err := pageorder.New(2, nil)
			require.NoError(t, err)
			state, err = state.InsertBlank(2, geometry.A4)
			require.NoError(t, err)
			before := state.Pages()

			store := annotation.NewStore()
			_, err = store.Create(1, annotation.Cross, geometry.Point{X: 10, Y: 10}, "", annotation.DefaultStyle)
			require.NoError(t, err)

			_, err = New(svc).Export(context.Background(), src, state, store)
			assert.ErrorIs(t, err, errInjected)
			assert.Equal(t, before, state.Pages())
			assert.Equal(t, 1, store.Len())
			assert.True(t, svc.allClosed())
		})
	}
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	o := New(svc)

	out, err := o.Merge(ctx, [][]byte{[]byte("a:2"), []byte("b:1"), []byte("c:2")})
	require.NoError(t, err)
	assert.Equal(t, "a0@0,a1@0,b0@0,c0@0,c1@0", string(out))

	_, err = o.Merge(ctx, [][]byte{[]byte("a:2")})
	assert.ErrorIs(t, err, ErrTooFewInputs)

	_, err = o.Merge(ctx, [][]byte{[]byte("a:2"), []byte("garbage")})
	assert.ErrorIs(t, err, pdf.ErrCorruptDocument)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestStamp(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	src := newSource("p", geometry.A4, geometry.A4)
	state, err := pageorder.New(2, nil)
	require.NoError(t, err)
	o := New(svc, WithPreviewScale(1))

	out, err := o.Stamp(ctx, src, state, 2, pngBytes(t, 50, 25), geometry.Point{X: 10, Y: 20}, 100)
	require.NoError(t, err)
	assert.Equal(t, "p0@0,p1@0", string(out))

	require.Len(t, svc.draws, 1)
	img := svc.draws[0].img
	require.NotNil(t, img)
	assert.Equal(t, 1, svc.draws[0].page)
	assert.InDelta(t, 10, img.X, eps)
	assert.InDelta(t, geometry.A4.Height-70, img.Y, eps)
	assert.InDelta(t, 100, img.Width, eps)
	assert.InDelta(t, 50, img.Height, eps)

	_, err = o.Stamp(ctx, src, state, 1, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), geometry.Point{}, 100)
	assert.ErrorIs(t, err, pdf.ErrUnsupportedImageFormat)
	_, err = o.Stamp(ctx, src, state, 3, pngBytes(t, 5, 5), geometry.Point{}, 100)
	assert.ErrorIs(t, err, pageorder.ErrInvalidRange)
	_, err = o.Stamp(ctx, src, state, 1, pngBytes(t, 5, 5), geometry.Point{}, 0)
	assert.ErrorIs(t, err, geometry.ErrInvalidScale)
}

func TestStampOnRotatedPage(t *testing.T) {
	svc := &fakeService{}
	src := newSource("p", geometry.Size{Width: 600, Height: 800})
	state, err := pageorder.New(1, []int{90})
	require.NoError(t, err)

	_, err = New(svc, WithPreviewScale(1)).Stamp(context.Background(), src, state, 1, pngBytes(t, 50, 25), geometry.Point{X: 100, Y: 50}, 40)
	require.NoError(t, err)

	require.Len(t, svc.draws, 1)
	img := svc.draws[0].img
	require.NotNil(t, img)
	assert.Equal(t, 90, img.Angle)
	assert.InDelta(t, 50, img.X, eps)
	assert.InDelta(t, 100, img.Y, eps)
	assert.InDelta(t, 20, img.Width, eps)
	assert.InDelta(t, 40, img.Height, eps)
}
