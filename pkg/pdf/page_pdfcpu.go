package pdf

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

// fontResources maps the standard fonts to the resource names used on our pages
var fontResources = map[Font]string{
	Helvetica:    "PdfdeskHelv",
	ZapfDingbats: "PdfdeskZaDb",
}

// pdfcpuPage is one page of a pdfcpuDocument.
//
// A page is either backed by raw bytes (src, number) or materialized into its own
// single-page context. The page dictionary of a materialized page always has /Rotate 0;
// the effective rotation lives in the rotation field and is written on serialization
// only, so drawing and stamping work in unrotated user space.
type pdfcpuPage struct {
	src    []byte
	number int
	single bool

	ctx *model.Context

	size     geometry.Size
	origin   geometry.Point
	rotation int

	ops   bytes.Buffer
	fonts map[Font]bool
}

func (p *pdfcpuPage) materialize(conf *model.Configuration) error {
	if p.ctx != nil {
		return nil
	}

	data := p.src
	if !p.single {
		var buf bytes.Buffer
		if err := api.Collect(bytes.NewReader(p.src), &buf, []string{strconv.Itoa(p.number)}, conf); err != nil {
			return fmt.Errorf("failed to collect page %d: %w", p.number, err)
		}
		data = buf.Bytes()
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("failed to read page context: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return fmt.Errorf("invalid page context: %w", err)
	}
	pageDict, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		return fmt.Errorf("failed to get page dictionary: %w", err)
	}
	pageDict["Rotate"] = types.Integer(0)

	p.ctx = ctx
	p.src, p.number, p.single = nil, 1, true
	return nil
}

// write serializes the page with the given rotation. A materialized page is turned back
// into a byte-backed one since a context is not reused after writing.
func (p *pdfcpuPage) write(rotation int, conf *model.Configuration) ([]byte, error) {
	if err := p.materialize(conf); err != nil {
		return nil, err
	}
	if err := p.flush(); err != nil {
		return nil, err
	}

	pageDict, _, _, err := p.ctx.PageDict(1, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dictionary: %w", err)
	}
	pageDict["Rotate"] = types.Integer(0)

	var buf bytes.Buffer
	if err := api.WriteContext(p.ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write page: %w", err)
	}
	p.ctx = nil
	p.src, p.number, p.single = buf.Bytes(), 1, true

	if rotation == 0 {
		return p.src, nil
	}

	// rotation is applied to a throwaway context so the stored bytes keep /Rotate 0
	ctx, err := api.ReadContext(bytes.NewReader(p.src), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read page context: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("invalid page context: %w", err)
	}
	if pageDict, _, _, err = ctx.PageDict(1, false); err != nil {
		return nil, fmt.Errorf("failed to get page dictionary: %w", err)
	}
	pageDict["Rotate"] = types.Integer(rotation)

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to write page: %w", err)
	}
	return out.Bytes(), nil
}

// bytes returns the page as a one-page PDF including its rotation
func (p *pdfcpuPage) bytes(conf *model.Configuration) ([]byte, error) {
	return p.write(p.rotation, conf)
}

// clone returns an independent copy sharing no mutable state with p
func (p *pdfcpuPage) clone(conf *model.Configuration) (*pdfcpuPage, error) {
	if p.ctx != nil || p.ops.Len() > 0 {
		if _, err := p.write(0, conf); err != nil {
			return nil, err
		}
	}
	cp := &pdfcpuPage{
		src:      p.src,
		number:   p.number,
		single:   p.single,
		size:     p.size,
		origin:   p.origin,
		rotation: p.rotation,
	}
	if len(p.fonts) > 0 {
		cp.fonts = make(map[Font]bool, len(p.fonts))
		for f := range p.fonts {
			cp.fonts[f] = true
		}
	}
	return cp, nil
}

// flush appends the pending drawing operators to the page contents as
//
//	q <original contents> Q <ours>
//
// so a graphics state left open by the original content cannot leak into ours.
func (p *pdfcpuPage) flush() error {
	if p.ops.Len() == 0 {
		return nil
	}

	pageDict, _, _, err := p.ctx.PageDict(1, false)
	if err != nil {
		return fmt.Errorf("failed to get page dictionary: %w", err)
	}

	pre, err := p.contentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	var ours bytes.Buffer
	ours.WriteString("Q\n")
	if p.origin != (geometry.Point{}) {
		fmt.Fprintf(&ours, "1 0 0 1 %s %s cm\n", num(p.origin.X), num(p.origin.Y))
	}
	ours.Write(p.ops.Bytes())
	post, err := p.contentStream(ours.Bytes())
	if err != nil {
		return err
	}

	contents := types.Array{*pre}
	switch c := pageDict["Contents"].(type) {
	case types.IndirectRef:
		contents = append(contents, c)
	case types.Array:
		contents = append(contents, c...)
	}
	pageDict["Contents"] = append(contents, *post)

	p.ops.Reset()
	return nil
}

func (p *pdfcpuPage) contentStream(buf []byte) (*types.IndirectRef, error) {
	sd, err := p.ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create content stream: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode content stream: %w", err)
	}
	ref, err := p.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("failed to add content stream: %w", err)
	}
	return ref, nil
}

// ensureFont registers a standard font in the page resources and returns its resource name
func (p *pdfcpuPage) ensureFont(f Font) (string, error) {
	name, ok := fontResources[f]
	if !ok {
		return "", fmt.Errorf("unsupported font %q", f)
	}
	if p.fonts[f] {
		return name, nil
	}

	pageDict, _, attrs, err := p.ctx.PageDict(1, false)
	if err != nil {
		return "", fmt.Errorf("failed to get page dictionary: %w", err)
	}
	res, err := p.dict(pageDict["Resources"])
	if err != nil {
		return "", fmt.Errorf("invalid resources: %w", err)
	}
	if res == nil {
		res = types.Dict{}
		if attrs != nil {
			for k, v := range attrs.Resources {
				res[k] = v
			}
		}
		pageDict["Resources"] = res
	}
	fonts, err := p.dict(res["Font"])
	if err != nil {
		return "", fmt.Errorf("invalid font resources: %w", err)
	}
	if fonts == nil {
		fonts = types.Dict{}
		res["Font"] = fonts
	}

	fd := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(string(f)),
	}
	if f == Helvetica {
		fd["Encoding"] = types.Name("WinAnsiEncoding")
	}
	fonts[name] = fd

	if p.fonts == nil {
		p.fonts = map[Font]bool{}
	}
	p.fonts[f] = true
	return name, nil
}

func (p *pdfcpuPage) dict(o types.Object) (types.Dict, error) {
	if o == nil {
		return nil, nil
	}
	o, err := p.ctx.Dereference(o)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	d, ok := o.(types.Dict)
	if !ok {
		return nil, fmt.Errorf("expected dictionary, got %T", o)
	}
	return d, nil
}

func (p *pdfcpuPage) drawText(t TextParams) error {
	font := t.Font
	if font == "" {
		font = Helvetica
	}
	name, err := p.ensureFont(font)
	if err != nil {
		return err
	}

	rad := float64(t.Angle) * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	fmt.Fprintf(&p.ops, "q %s rg BT /%s %s Tf %s %s %s %s %s %s Tm (%s) Tj ET Q\n",
		rgb(t.Color), name, num(t.Size),
		num(cos), num(sin), num(-sin), num(cos), num(t.X), num(t.Y),
		encodeText(t.Text, font))
	return nil
}

func (p *pdfcpuPage) drawLine(l LineParams) {
	fmt.Fprintf(&p.ops, "q %s RG %s w %s %s m %s %s l S Q\n",
		rgb(l.Color), num(lineWidth(l.Width)), num(l.X1), num(l.Y1), num(l.X2), num(l.Y2))
}

func (p *pdfcpuPage) drawRectangle(r RectParams) {
	fmt.Fprintf(&p.ops, "q %s RG %s w %s %s %s %s re S Q\n",
		rgb(r.Color), num(lineWidth(r.StrokeWidth)), num(r.X), num(r.Y), num(r.Width), num(r.Height))
}

// stamp places an image with pdfcpu's image watermarking, positioned from the lower-left corner
func (p *pdfcpuPage) stamp(img *pdfcpuImage, params ImageParams, conf *model.Configuration) error {
	angle := geometry.NormalizeRotation(params.Angle)
	w, h := float64(img.width), float64(img.height)
	if angle == 90 || angle == 270 {
		w, h = h, w
	}
	scale := params.Width / w
	if params.Height > 0 {
		scale = math.Min(scale, params.Height/h)
	}

	f, err := os.CreateTemp("", "pdfdesk-*"+img.ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(img.data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	desc := fmt.Sprintf("scale:%.6f abs, pos:bl, rot:%d, op:1", scale, watermarkRotation(angle))
	wm, err := pdfcpu.ParseImageWatermarkDetails(f.Name(), desc, true, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse image watermark: %w", err)
	}
	wm.Dx = params.X
	wm.Dy = params.Y

	in, err := p.write(0, conf)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(in), &out, nil, wm, conf); err != nil {
		return fmt.Errorf("failed to stamp image: %w", err)
	}
	p.src = out.Bytes()
	return nil
}

// watermarkRotation maps a normalized angle onto pdfcpu's -180..180 range
func watermarkRotation(angle int) int {
	if angle > 180 {
		return angle - 360
	}
	return angle
}

// encodeText turns s into the body of a PDF literal string for font f.
// Helvetica uses WinAnsiEncoding; runes without a code point become '?'.
func encodeText(s string, f Font) string {
	var b strings.Builder
	for _, r := range s {
		c := byte('?')
		if f == Helvetica {
			if e, ok := charmap.Windows1252.EncodeRune(r); ok {
				c = e
			}
		} else if r < 0x80 {
			c = byte(r)
		}

		switch {
		case c == '(' || c == ')' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func rgb(c color.Color) string {
	if c == nil {
		return "0 0 0"
	}
	r, g, b, _ := c.RGBA()
	return num(float64(r)/0xffff) + " " + num(float64(g)/0xffff) + " " + num(float64(b)/0xffff)
}

func lineWidth(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

// num formats v with at most four decimals
func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
