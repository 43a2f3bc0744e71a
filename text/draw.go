// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"fmt"
	"io"
	"math"

	"github.com/glyphrun/layout/raster"
)

// Dump writes a one line per glyph listing of the last layout call
// to w, for debugging.
func (l *Layout) Dump(w io.Writer) {
	fmt.Fprintf(w, "layout: %d glyphs, advance %g\n", len(l.glyphs), l.total)
	for i, g := range l.glyphs {
		fmt.Fprintf(w, "  glyph %d: face %d gid %d (%g, %g)\n",
			i, g.FaceIndex, g.ID, g.X, g.Y)
	}
}

// Draw renders the glyphs of the last layout call into b, with the
// pen origin at (x0, y0) and glyphs rasterized at size pixels per em.
// Obfuscated glyph ids map through the codebook first, so the raster
// shows the real text to the codebook holder.
func (l *Layout) Draw(b *raster.Bitmap, x0, y0 int, size float32) {
	for _, g := range l.glyphs {
		id := g.ID
		if l.obfuscated && l.codebook != nil {
			id = l.codebook.Glyph(id)
		}
		face := l.faces[g.FaceIndex].Face
		if face == nil {
			continue
		}
		mask, offset, ok := raster.Render(face, id, size)
		if !ok {
			continue
		}
		x := x0 + int(math.Round(float64(g.X))) + offset.X
		y := y0 + int(math.Round(float64(g.Y))) + offset.Y
		b.DrawGlyph(mask, x, y)
	}
}
