package export

import (
	"context"
	"fmt"
	"math"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

// pagePlacement maps view-space pixels of a displayed page onto the unrotated user space of
// the output page: view -> displayed document space (mapping) -> page space (rotation).
type pagePlacement struct {
	mapping  geometry.Mapping
	rotation int
	size     geometry.Size
}

func (pp pagePlacement) point(view geometry.Point) (geometry.Point, error) {
	doc, err := pp.mapping.ToDocumentSpace(view)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.ToPageSpace(doc, pp.rotation, pp.size), nil
}

// box maps a view-space box given by its top-left corner to its lower-left corner and size
// in page space. Rotations are multiples of 90 degrees so the box stays axis aligned.
func (pp pagePlacement) box(topLeft geometry.Point, size geometry.Size) (geometry.Point, geometry.Size, error) {
	a, err := pp.point(topLeft)
	if err != nil {
		return geometry.Point{}, geometry.Size{}, err
	}
	b, err := pp.point(geometry.Point{X: topLeft.X + size.Width, Y: topLeft.Y + size.Height})
	if err != nil {
		return geometry.Point{}, geometry.Size{}, err
	}
	ll := geometry.Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	return ll, geometry.Size{Width: math.Abs(a.X - b.X), Height: math.Abs(a.Y - b.Y)}, nil
}

// check glyph metrics relative to the font size, used to center it on the anchor
const (
	checkHalfWidth = 0.42
	checkBaseline  = 0.35
)

// burn draws one annotation onto page index of out
func (o *Orchestrator) burn(ctx context.Context, out pdf.Document, index int, pp pagePlacement, a annotation.Annotation) error {
	factor := pp.mapping.Factor()
	size := a.Style.SizePx * factor
	stroke := a.Style.StrokeWidthPx * factor

	switch a.Kind {
	case annotation.Text:
		p, err := pp.point(a.Anchor)
		if err != nil {
			return err
		}
		return o.svc.DrawText(ctx, out, index, pdf.TextParams{
			Text:  a.Text,
			X:     p.X,
			Y:     p.Y,
			Size:  size,
			Angle: pp.rotation,
			Font:  pdf.Helvetica,
			Color: a.Style.Color,
		})

	case annotation.Cross:
		half := a.Style.SizePx / 2
		c := a.Anchor
		segments := [][2]geometry.Point{
			{{X: c.X - half, Y: c.Y - half}, {X: c.X + half, Y: c.Y + half}},
			{{X: c.X - half, Y: c.Y + half}, {X: c.X + half, Y: c.Y - half}},
		}
		for _, seg := range segments {
			p1, err := pp.point(seg[0])
			if err != nil {
				return err
			}
			p2, err := pp.point(seg[1])
			if err != nil {
				return err
			}
			err = o.svc.DrawLine(ctx, out, index, pdf.LineParams{
				X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y,
				Width: stroke,
				Color: a.Style.Color,
			})
			if err != nil {
				return err
			}
		}
		return nil

	case annotation.Check:
		origin := geometry.Point{
			X: a.Anchor.X - checkHalfWidth*a.Style.SizePx,
			Y: a.Anchor.Y + checkBaseline*a.Style.SizePx,
		}
		p, err := pp.point(origin)
		if err != nil {
			return err
		}
		return o.svc.DrawText(ctx, out, index, pdf.TextParams{
			Text:  pdf.CheckGlyph,
			X:     p.X,
			Y:     p.Y,
			Size:  size,
			Angle: pp.rotation,
			Font:  pdf.ZapfDingbats,
			Color: a.Style.Color,
		})

	case annotation.Rectangle:
		ll, box, err := pp.box(a.Anchor, a.Box())
		if err != nil {
			return err
		}
		return o.svc.DrawRectangle(ctx, out, index, pdf.RectParams{
			X:           ll.X,
			Y:           ll.Y,
			Width:       box.Width,
			Height:      box.Height,
			StrokeWidth: stroke,
			Color:       a.Style.Color,
		})
	}
	return fmt.Errorf("%w: %v", annotation.ErrWrongKind, a.Kind)
}
