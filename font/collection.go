// SPDX-License-Identifier: Unlicense OR MIT

package font

import (
	"errors"
	"sync/atomic"
	"unicode"

	"github.com/go-text/typesetting/font"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'layout.font'.
func tracer() tracing.Trace {
	return tracing.Select("layout.font")
}

// collectionIDs numbers collections process-wide for cache keying.
var collectionIDs uint32

// A Collection is an immutable, ordered set of font faces with style
// matching and per-rune fallback. Order is fallback priority: among
// equally good style matches the earlier face wins.
//
// A Collection hands out stable face handles. Resolving the same rune
// and style twice yields equal FakedFont values, never merely
// equivalent ones.
type Collection struct {
	id      uint32
	entries []entry
}

type entry struct {
	fnt  Font
	face font.Face
}

// NewCollection builds a fallback collection from faces, which must
// contain at least one entry. The face handle of every entry is
// resolved once, here.
func NewCollection(faces []FontFace) (*Collection, error) {
	if len(faces) == 0 {
		return nil, errors.New("font: collection requires at least one face")
	}
	c := &Collection{
		id:      atomic.AddUint32(&collectionIDs, 1),
		entries: make([]entry, 0, len(faces)),
	}
	for _, ff := range faces {
		if ff.Face == nil {
			return nil, errors.New("font: collection face without handle")
		}
		c.entries = append(c.entries, entry{fnt: ff.Font, face: ff.Face.Face()})
	}
	tracer().Debugf("font collection #%d holds %d faces", c.id, len(c.entries))
	return c, nil
}

// ID returns a process-unique identifier for the collection. Cache keys
// derived from resolutions against this collection embed it.
func (c *Collection) ID() uint32 {
	return c.id
}

// Base returns the face a style resolves to before any coverage is
// known. The uniform itemization of content-blind layout uses it for
// every rune.
func (c *Collection) Base(style Font) FakedFont {
	return c.faked(c.match(style, -1), style)
}

// Itemize splits runes into maximal runs of a single resolved font.
// Combining marks, format controls and variation selectors continue
// the run of their base character; a rune no face covers stays with
// the current run and shapes to the missing-glyph placeholder.
func (c *Collection) Itemize(runes []rune, style Font) []Run {
	if len(runes) == 0 {
		return nil
	}
	var runs []Run
	cur := -1
	start := 0
	for i, r := range runes {
		if cur >= 0 && continuesRun(r) {
			continue
		}
		next := c.match(style, r)
		if next < 0 {
			if cur < 0 {
				cur = c.match(style, -1)
			}
			continue
		}
		if cur < 0 {
			cur = next
			continue
		}
		if next != cur {
			runs = append(runs, Run{Faked: c.faked(cur, style), Start: start, End: i})
			start = i
			cur = next
		}
	}
	return append(runs, Run{Faked: c.faked(cur, style), Start: start, End: len(runes)})
}

// ItemizeUniform returns a single n-rune run on the base face for
// style, without consulting any content.
func (c *Collection) ItemizeUniform(n int, style Font) []Run {
	if n <= 0 {
		return nil
	}
	return []Run{{Faked: c.Base(style), Start: 0, End: n}}
}

// match returns the index of the style-closest entry among those
// covering r. A negative r disables the coverage requirement, in which
// case match always succeeds. Returns -1 when no entry covers r.
func (c *Collection) match(style Font, r rune) int {
	best := -1
	bestDist := 0
	for i, e := range c.entries {
		if r >= 0 {
			if _, ok := e.face.NominalGlyph(r); !ok {
				continue
			}
		}
		d := styleDistance(style, e.fnt)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (c *Collection) faked(i int, style Font) FakedFont {
	e := c.entries[i]
	return FakedFont{Font: e.fnt, Face: e.face, Fakery: computeFakery(style, e.fnt)}
}

// computeFakery derives the synthetic adjustments needed when the
// matched face is lighter or more upright than the requested style.
func computeFakery(lookup, actual Font) Fakery {
	var f Fakery
	if lookup.Weight >= SemiBold && actual.Weight < SemiBold {
		f |= FakeBold
	}
	if lookup.Style == Italic && actual.Style == Regular {
		f |= FakeItalic
	}
	return f
}

// styleDistance orders candidate faces for a style request. Lower is
// better. Typeface, variant and slant mismatches dominate weight
// distance so the bands never overlap. An empty lookup typeface means
// the default typeface and matches any face.
func styleDistance(lookup, cf Font) int {
	d := weightDistance(lookup.Weight, cf.Weight)
	if cf.Style != lookup.Style {
		d += 1 << 10
	}
	if cf.Variant != lookup.Variant {
		d += 1 << 11
	}
	if lookup.Typeface != "" && cf.Typeface != lookup.Typeface {
		d += 1 << 12
	}
	return d
}

// weightDistance returns the distance value between two font weights.
func weightDistance(wa Weight, wb Weight) int {
	// Avoid dealing with negative Weight values.
	a := int(wa) + 400
	b := int(wb) + 400
	diff := a - b
	if diff < 0 {
		return -diff
	}
	return diff
}

// IsVariationSelector reports whether r is a Unicode variation
// selector (U+FE00..U+FE0F or U+E0100..U+E01EF).
func IsVariationSelector(r rune) bool {
	return r >= 0xFE00 && r <= 0xFE0F || r >= 0xE0100 && r <= 0xE01EF
}

// continuesRun reports whether r attaches to the run of the preceding
// rune regardless of coverage. Splitting before such a rune would
// break a shaping cluster.
func continuesRun(r rune) bool {
	return unicode.Is(unicode.Mn, r) ||
		unicode.Is(unicode.Mc, r) ||
		unicode.Is(unicode.Me, r) ||
		unicode.Is(unicode.Cf, r) ||
		IsVariationSelector(r)
}
