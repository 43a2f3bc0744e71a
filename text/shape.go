// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"sort"
	"unicode"
	"unicode/utf16"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/glyphrun/layout/f32"
	"github.com/glyphrun/layout/font"
)

// layoutContext carries the scratch state of one layout or measure
// call.
type layoutContext struct {
	l  *Layout // nil when measuring
	fc FontCollection

	style font.Font
	paint Paint
	flags Flags
	sx    float32 // effective horizontal scale
	ls    float32 // letter spacing per cluster

	obfuscated bool
	codebook   *Codebook
	baseFaked  font.FakedFont

	units []uint16
	runes []rune
	// ru2cu maps every rune to its leading code unit, with a final
	// sentinel entry holding len(units).
	ru2cu []int

	// window, in code units and in runes
	uStart, uCount int
	rStart, rEnd   int

	cache   *Cache
	engine  Engine
	breaker WordBreaker

	// results
	advances []float32 // len uCount, window-relative
	pen      float32
	total    float32
	bounds   f32.Rectangle
}

// decodeUTF16 decodes units into runes and records the leading code
// unit of every rune. An unpaired surrogate decodes to U+FFFD and
// occupies a single code unit.
func decodeUTF16(units []uint16) (runes []rune, ru2cu []int) {
	runes = make([]rune, 0, len(units))
	ru2cu = make([]int, 0, len(units)+1)
	for i := 0; i < len(units); {
		r := rune(units[i])
		ru2cu = append(ru2cu, i)
		switch {
		case !utf16.IsSurrogate(r):
			runes = append(runes, r)
			i++
		case r < 0xdc00 && i+1 < len(units) && units[i+1] >= 0xdc00 && units[i+1] < 0xe000:
			runes = append(runes, utf16.DecodeRune(r, rune(units[i+1])))
			i += 2
		default:
			runes = append(runes, unicode.ReplacementChar)
			i++
		}
	}
	ru2cu = append(ru2cu, len(units))
	return runes, ru2cu
}

// snapWindow converts the code unit window into a rune window. A rune
// belongs to the window exactly when its leading code unit does.
func (ctx *layoutContext) snapWindow() {
	leaders := ctx.ru2cu[:len(ctx.runes)]
	ctx.rStart = sort.SearchInts(leaders, ctx.uStart)
	ctx.rEnd = sort.SearchInts(leaders, ctx.uStart+ctx.uCount)
}

func (ctx *layoutContext) run() error {
	runs := segmentBidi(ctx.runes, ctx.rStart, ctx.rEnd-ctx.rStart, ctx.flags)
	tracer().Debugf("window [%d,%d) resolved to %d direction runs", ctx.uStart, ctx.uStart+ctx.uCount, len(runs))
	for _, r := range runs {
		if err := ctx.layoutRun(r); err != nil {
			return err
		}
	}
	return nil
}

// layoutRun splits one direction run into word spans and lays them
// out. Right-to-left runs consume their words in reverse logical
// order so the merged glyph stream stays visual.
func (ctx *layoutContext) layoutRun(r bidiRun) error {
	spanRunes := ctx.runes[r.start : r.start+r.length]
	breaks := ctx.breaker.Breaks(spanRunes)
	if r.rtl {
		for i := len(breaks) - 1; i >= 0; i-- {
			start := 0
			if i > 0 {
				start = breaks[i-1]
			}
			if breaks[i] <= start {
				continue
			}
			if err := ctx.layoutWord(r.start+start, r.start+breaks[i], true); err != nil {
				return err
			}
		}
		return nil
	}
	start := 0
	for _, end := range breaks {
		if end > start {
			if err := ctx.layoutWord(r.start+start, r.start+end, false); err != nil {
				return err
			}
		}
		start = end
	}
	return nil
}

// layoutWord resolves the word [ra, rb) through the cache, shaping on
// a miss, and merges the entry at the current pen.
func (ctx *layoutContext) layoutWord(ra, rb int, rtl bool) error {
	ua, ub := ctx.ru2cu[ra], ctx.ru2cu[rb]
	if ub-ua > maxCachedWordUnits {
		e, err := ctx.shapeWord(ra, rb, rtl)
		if err != nil {
			return err
		}
		ctx.appendEntry(e, ua)
		return nil
	}
	key := wordKey{
		text:       unitsKey(ctx.units[ua:ub]),
		rtl:        rtl,
		obfuscated: ctx.obfuscated,
		style:      ctx.style,
		paint:      ctx.paint,
		collection: ctx.fc.ID(),
	}
	e, ok := ctx.cache.get(key)
	if !ok {
		fresh, err := ctx.shapeWord(ra, rb, rtl)
		if err != nil {
			return err
		}
		e = ctx.cache.add(key, fresh)
	}
	ctx.appendEntry(e, ua)
	return nil
}

// shapeWord itemizes and shapes the word [ra, rb) in isolation,
// producing a pen-relative entry.
func (ctx *layoutContext) shapeWord(ra, rb int, rtl bool) (*wordEntry, error) {
	wordRunes := ctx.runes[ra:rb]
	ua := ctx.ru2cu[ra]
	e := &wordEntry{advances: make([]float32, ctx.ru2cu[rb]-ua)}

	var items []font.Run
	if ctx.obfuscated {
		items = ctx.fc.ItemizeUniform(len(wordRunes), ctx.style)
	} else {
		items = ctx.fc.Itemize(wordRunes, ctx.style)
	}

	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}
	var pen float32
	shapeItem := func(item font.Run) error {
		if item.Faked.Face == nil {
			return ErrFontUnavailable
		}
		faceIx := e.face(item.Faked)
		in := shaping.Input{
			Text:      wordRunes,
			RunStart:  item.Start,
			RunEnd:    item.End,
			Direction: dir,
			Face:      item.Faked.Face,
			Size:      floatToFixed(ctx.paint.Size),
			Script:    spanScript(wordRunes[item.Start:item.End]),
		}
		if ctx.paint.Language != "" {
			in.Language = language.NewLanguage(ctx.paint.Language)
		}
		out := ctx.engine.Shape(in)
		for i := 0; i < len(out.Glyphs); {
			cluster := out.Glyphs[i].ClusterIndex
			var adv float32
			for ; i < len(out.Glyphs) && out.Glyphs[i].ClusterIndex == cluster; i++ {
				g := out.Glyphs[i]
				gx := pen + adv + fixedToFloat(g.XOffset)*ctx.sx
				gy := -fixedToFloat(g.YOffset)
				e.glyphs = append(e.glyphs, Glyph{
					FaceIndex: faceIx,
					ID:        g.GlyphID,
					X:         gx,
					Y:         gy,
				})
				if b := glyphBounds(g); !b.Empty() {
					b.Min.X *= ctx.sx
					b.Max.X *= ctx.sx
					e.bounds = e.bounds.Union(b.Add(f32.Pt(gx, gy)))
				}
				adv += fixedToFloat(g.XAdvance) * ctx.sx
			}
			// The cluster advance lands on the cluster's leading code
			// unit; trailing units keep zero.
			e.advances[ctx.ru2cu[ra+cluster]-ua] += adv + ctx.ls
			pen += adv + ctx.ls
		}
		return nil
	}
	if rtl {
		for i := len(items) - 1; i >= 0; i-- {
			if err := shapeItem(items[i]); err != nil {
				return nil, err
			}
		}
	} else {
		for _, item := range items {
			if err := shapeItem(item); err != nil {
				return nil, err
			}
		}
	}
	e.width = pen
	if ctx.obfuscated {
		// The obfuscated path keeps the real measurements but emits
		// per unit glyphs at append time; the shaped stream is not
		// retained.
		e.glyphs = nil
		e.faces = nil
		e.bounds = f32.Rectangle{}
	}
	return e, nil
}

// appendEntry merges one shaped word at the current pen: advances
// into their window slots, glyphs remapped onto the layout's face
// table, bounds translated.
func (ctx *layoutContext) appendEntry(e *wordEntry, ua int) {
	for i, a := range e.advances {
		if u := ua + i - ctx.uStart; u >= 0 && u < ctx.uCount {
			ctx.advances[u] += a
		}
	}
	if ctx.l != nil {
		if ctx.obfuscated {
			ctx.appendObfuscated(e, ua)
		} else {
			for _, g := range e.glyphs {
				ctx.l.glyphs = append(ctx.l.glyphs, Glyph{
					FaceIndex: ctx.l.findFace(e.faces[g.FaceIndex]),
					ID:        g.ID,
					X:         ctx.pen + g.X,
					Y:         g.Y,
				})
			}
			if !e.bounds.Empty() {
				ctx.bounds = ctx.bounds.Union(e.bounds.Add(f32.Pt(ctx.pen, 0)))
			}
		}
	}
	ctx.pen += e.width
	ctx.total += e.width
}

// appendObfuscated emits one glyph per in-window code unit of the
// entry: printable ASCII maps through the codebook slots, anything
// else the missing glyph. X positions are prefix sums of the real
// advances, so widths match the plain path exactly.
func (ctx *layoutContext) appendObfuscated(e *wordEntry, ua int) {
	faceIx := ctx.l.findFace(ctx.baseFaked)
	x := ctx.pen
	for i, a := range e.advances {
		if u := ua + i - ctx.uStart; u >= 0 && u < ctx.uCount {
			var id font.GID
			if cu := ctx.units[ua+i]; cu >= 0x20 && cu <= 0x7e {
				id = ctx.codebook.slotOf(cu)
			}
			ctx.l.glyphs = append(ctx.l.glyphs, Glyph{
				FaceIndex: faceIx,
				ID:        id,
				X:         x,
			})
		}
		x += a
	}
}

// spanScript returns the script of the first non-Common rune.
func spanScript(runes []rune) language.Script {
	for _, r := range runes {
		if s := language.LookupScript(r); s != language.Common {
			return s
		}
	}
	return language.Common
}

// glyphBounds returns the bounds of a glyph relative to its origin,
// y down.
func glyphBounds(g shaping.Glyph) f32.Rectangle {
	bounds := f32.Rectangle{
		Min: f32.Pt(fixedToFloat(g.XBearing), -fixedToFloat(g.YBearing)),
	}
	bounds.Max = bounds.Min.Add(f32.Pt(fixedToFloat(g.Width), -fixedToFloat(g.Height)))
	return bounds
}

func fixedToFloat(i fixed.Int26_6) float32 {
	return float32(i) / 64.0
}

func floatToFixed(f float32) fixed.Int26_6 {
	return fixed.Int26_6(f * 64)
}
