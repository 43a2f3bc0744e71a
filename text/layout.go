// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"golang.org/x/exp/slices"

	"github.com/glyphrun/layout/f32"
	"github.com/glyphrun/layout/font"
)

// Layout converts windows of UTF-16 encoded text into positioned
// glyphs. The zero value is ready to use after SetFontCollection.
//
// A Layout must be confined to a single goroutine. Distinct Layouts
// may run concurrently; they meet only in the shared word cache.
type Layout struct {
	fc    FontCollection
	cache *Cache

	faces    []font.FakedFont
	glyphs   []Glyph
	advances []float32
	total    float32
	bounds   f32.Rectangle

	codebook     *Codebook
	codebookColl uint32
	codebookFont font.Font
	external     bool // codebook injected, never regenerated
	obfuscated   bool // last layout took the obfuscated path
}

// NewLayout returns an empty Layout.
func NewLayout() *Layout {
	return &Layout{}
}

// SetFontCollection sets the collection used to resolve styles.
func (l *Layout) SetFontCollection(fc FontCollection) {
	l.fc = fc
}

// SetCache routes this Layout's shaped words through c instead of the
// process-wide cache. A nil c restores the shared instance.
func (l *Layout) SetCache(c *Cache) {
	l.cache = c
}

// Reset discards the glyphs, advances, bounds and face table of the
// last layout call. The collection, an injected cache and the
// codebook survive.
func (l *Layout) Reset() {
	l.faces = l.faces[:0]
	l.glyphs = l.glyphs[:0]
	l.advances = l.advances[:0]
	l.total = 0
	l.bounds = f32.Rectangle{}
	l.obfuscated = false
}

// findFace returns the face table index of f, appending it on first
// sight. Indices are stable until Reset.
func (l *Layout) findFace(f font.FakedFont) int {
	for i, have := range l.faces {
		if have == f {
			return i
		}
	}
	l.faces = append(l.faces, f)
	return len(l.faces) - 1
}

// LayoutText lays out the window [start, start+count) of units.
// Text outside the window participates in bidi resolution but
// produces no output. The call resets any previous result; identical
// inputs produce identical output, bit for bit.
func (l *Layout) LayoutText(units []uint16, start, count int, flags Flags, style font.Font, paint Paint) error {
	return l.layout(units, start, count, flags, style, paint, false)
}

// LayoutEncrypted lays out the window like LayoutText but emits
// codebook-substituted glyph ids: one glyph per code unit, with real
// advances and positions. See Codebook.
func (l *Layout) LayoutEncrypted(units []uint16, start, count int, flags Flags, style font.Font, paint Paint) error {
	return l.layout(units, start, count, flags, style, paint, true)
}

func (l *Layout) layout(units []uint16, start, count int, flags Flags, style font.Font, paint Paint, obfuscated bool) error {
	l.Reset()
	if l.fc == nil {
		return ErrNoFontCollection
	}
	// count is checked against the remainder so that start+count
	// cannot overflow.
	if start < 0 || start > len(units) || count < 0 || count > len(units)-start {
		return ErrInvalidWindow
	}
	l.advances = growFloats(l.advances, count)
	if count == 0 {
		return nil
	}
	ctx := layoutContext{
		l:          l,
		fc:         l.fc,
		style:      style,
		paint:      paint,
		flags:      flags,
		sx:         paint.scaleX(),
		ls:         paint.LetterSpacing,
		obfuscated: obfuscated,
		units:      units,
		uStart:     start,
		uCount:     count,
		cache:      l.currentCache(),
		engine:     currentEngine(),
		breaker:    currentBreaker(),
		advances:   l.advances,
	}
	if obfuscated {
		base := l.fc.Base(style)
		if base.Face == nil {
			return ErrFontUnavailable
		}
		if err := l.ensureCodebook(base, style); err != nil {
			return err
		}
		ctx.baseFaked = base
		ctx.codebook = l.codebook
	}
	ctx.runes, ctx.ru2cu = decodeUTF16(units)
	ctx.snapWindow()
	if err := ctx.run(); err != nil {
		return err
	}
	l.total = ctx.total
	l.bounds = ctx.bounds
	l.obfuscated = obfuscated
	return nil
}

func (l *Layout) currentCache() *Cache {
	if l.cache != nil {
		return l.cache
	}
	return defaultCache()
}

// GlyphCount returns the number of glyphs produced by the last
// layout call.
func (l *Layout) GlyphCount() int {
	return len(l.glyphs)
}

// Font returns the resolved font of glyph i.
func (l *Layout) Font(i int) font.FakedFont {
	return l.faces[l.glyphs[i].FaceIndex]
}

// Fakery returns the synthetic styling of glyph i.
func (l *Layout) Fakery(i int) font.Fakery {
	return l.faces[l.glyphs[i].FaceIndex].Fakery
}

// GlyphID returns the glyph id of glyph i.
func (l *Layout) GlyphID(i int) font.GID {
	return l.glyphs[i].ID
}

// X returns the horizontal pen position of glyph i.
func (l *Layout) X(i int) float32 {
	return l.glyphs[i].X
}

// Y returns the vertical pen position of glyph i.
func (l *Layout) Y(i int) float32 {
	return l.glyphs[i].Y
}

// Glyphs appends the positioned glyphs to dst and returns it.
func (l *Layout) Glyphs(dst []Glyph) []Glyph {
	return append(dst[:0], l.glyphs...)
}

// Faces returns the face table of the last layout call. The result
// is shared; callers must not mutate it.
func (l *Layout) Faces() []font.FakedFont {
	return l.faces
}

// Advance returns the total advance of the window.
func (l *Layout) Advance() float32 {
	return l.total
}

// Advances appends the per code unit advances to dst and returns it.
// The result always holds exactly one entry per window code unit.
func (l *Layout) Advances(dst []float32) []float32 {
	return append(dst[:0], l.advances...)
}

// CharAdvance returns the advance of window code unit i. A unit that
// trails its cluster reports zero.
func (l *Layout) CharAdvance(i int) float32 {
	return l.advances[i]
}

// Bounds returns the ink bounds of the window relative to the pen
// origin, y down. Layouts without ink report the empty rectangle.
func (l *Layout) Bounds() f32.Rectangle {
	return l.bounds
}

// growFloats resizes s to n zeroed entries, reusing its capacity.
func growFloats(s []float32, n int) []float32 {
	s = slices.Grow(s[:0], n)[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}
