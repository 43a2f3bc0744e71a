// SPDX-License-Identifier: Unlicense OR MIT

// Package raster implements a minimal 8 bit software raster for
// inspecting layout results. It is a debugging aid, not a text
// renderer.
package raster

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/opentype/api"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/vector"
)

// tracer traces with key 'layout.raster'.
func tracer() tracing.Trace {
	return tracing.Select("layout.raster")
}

// Bitmap is an 8 bit coverage buffer, y down, one byte per pixel.
type Bitmap struct {
	W, H int
	Pix  []uint8
}

// NewBitmap returns a cleared w by h bitmap.
func NewBitmap(w, h int) *Bitmap {
	return &Bitmap{W: w, H: h, Pix: make([]uint8, w*h)}
}

// WritePnm serializes the bitmap as a binary PGM image. The output is
// deterministic byte for byte.
func (b *Bitmap) WritePnm(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n255\n", b.W, b.H); err != nil {
		return err
	}
	_, err := w.Write(b.Pix)
	return err
}

// DrawGlyph blends mask into the bitmap with the mask's top left
// corner at (x, y), keeping the maximum coverage per pixel. Pixels
// outside the bitmap clip away.
func (b *Bitmap) DrawGlyph(mask *image.Alpha, x, y int) {
	r := mask.Bounds()
	for my := 0; my < r.Dy(); my++ {
		dy := y + my
		if dy < 0 || dy >= b.H {
			continue
		}
		off := mask.PixOffset(r.Min.X, r.Min.Y+my)
		row := mask.Pix[off : off+r.Dx()]
		for mx, v := range row {
			dx := x + mx
			if dx < 0 || dx >= b.W || v == 0 {
				continue
			}
			if p := &b.Pix[dy*b.W+dx]; v > *p {
				*p = v
			}
		}
	}
}

// Render rasterizes one glyph outline of face at ppem pixels per em.
// The returned point places the mask relative to the glyph pen
// position, y down. Glyphs without outline data report ok false.
func Render(face font.Face, gid font.GID, ppem float32) (mask *image.Alpha, offset image.Point, ok bool) {
	outline, ok := face.GlyphData(gid).(api.GlyphOutline)
	if !ok || len(outline.Segments) == 0 {
		tracer().Debugf("glyph %d has no outline data", gid)
		return nil, image.Point{}, false
	}
	scale := ppem / float32(face.Upem())

	// Control points bound their curves, so they bound the outline.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	walkOutline(outline, scale, func(x, y float32) {
		minX = math.Min(minX, float64(x))
		minY = math.Min(minY, float64(y))
		maxX = math.Max(maxX, float64(x))
		maxY = math.Max(maxY, float64(y))
	})
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	w, h := int(math.Ceil(maxX))-x0, int(math.Ceil(maxY))-y0
	if w <= 0 || h <= 0 {
		return nil, image.Point{}, false
	}

	vr := vector.NewRasterizer(w, h)
	dx, dy := float32(x0), float32(y0)
	open := false
	for _, seg := range outline.Segments {
		switch seg.Op {
		case api.SegmentOpMoveTo:
			if open {
				vr.ClosePath()
			}
			vr.MoveTo(seg.Args[0].X*scale-dx, -seg.Args[0].Y*scale-dy)
			open = true
		case api.SegmentOpLineTo:
			vr.LineTo(seg.Args[0].X*scale-dx, -seg.Args[0].Y*scale-dy)
		case api.SegmentOpQuadTo:
			vr.QuadTo(
				seg.Args[0].X*scale-dx, -seg.Args[0].Y*scale-dy,
				seg.Args[1].X*scale-dx, -seg.Args[1].Y*scale-dy,
			)
		case api.SegmentOpCubeTo:
			vr.CubeTo(
				seg.Args[0].X*scale-dx, -seg.Args[0].Y*scale-dy,
				seg.Args[1].X*scale-dx, -seg.Args[1].Y*scale-dy,
				seg.Args[2].X*scale-dx, -seg.Args[2].Y*scale-dy,
			)
		default:
			panic("unsupported segment op")
		}
	}
	if open {
		vr.ClosePath()
	}
	mask = image.NewAlpha(image.Rect(0, 0, w, h))
	vr.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask, image.Pt(x0, y0), true
}

// walkOutline visits every control point of the outline in scaled,
// y down coordinates.
func walkOutline(outline api.GlyphOutline, scale float32, visit func(x, y float32)) {
	for _, seg := range outline.Segments {
		nargs := 1
		switch seg.Op {
		case api.SegmentOpQuadTo:
			nargs = 2
		case api.SegmentOpCubeTo:
			nargs = 3
		}
		for i := 0; i < nargs; i++ {
			visit(seg.Args[i].X*scale, -seg.Args[i].Y*scale)
		}
	}
}
