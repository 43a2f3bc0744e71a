// SPDX-License-Identifier: Unlicense OR MIT

// Package shape provides an alternative shaping engine backed by the
// textlayout HarfBuzz port. Install it with text.SetEngine for
// callers that need shaping behavior bit-compatible with textlayout
// based renderers.
package shape

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	hbtt "github.com/benoitkugler/textlayout/fonts/truetype"
	hb "github.com/benoitkugler/textlayout/harfbuzz"
	hblang "github.com/benoitkugler/textlayout/language"
	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/math/fixed"

	"github.com/glyphrun/layout/font"
)

// tracer traces with key 'layout.shape'.
func tracer() tracing.Trace {
	return tracing.Select("layout.shape")
}

// Engine shapes runs with benoitkugler/textlayout. It implements
// text.Engine and is safe for concurrent use.
//
// Faces register at construction by reparsing their source bytes;
// runs on faces the Engine does not know fall back to the default
// go-text shaper. Output carries glyph ids, clusters, advances and
// offsets; glyph extents stay zero, so ink bounds come out empty
// under this engine.
type Engine struct {
	mu    sync.Mutex
	fonts map[gofont.Font]*hbFont
	pool  sync.Pool
}

// hbFont serializes access to one shared HarfBuzz font.
type hbFont struct {
	mu   sync.Mutex
	font *hb.Font
}

// New builds an Engine over the given faces. Every face must retain
// its source bytes, as font/opentype faces do.
func New(faces ...font.FontFace) (*Engine, error) {
	e := &Engine{
		fonts: make(map[gofont.Font]*hbFont, len(faces)),
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}
	for _, ff := range faces {
		src, ok := ff.Face.(interface{ Source() []byte })
		if !ok {
			return nil, fmt.Errorf("shape: face %q does not retain source bytes", ff.Font.Typeface)
		}
		parsed, err := hbtt.Parse(bytes.NewReader(src.Source()), true)
		if err != nil {
			return nil, fmt.Errorf("shape: reparsing %q: %w", ff.Font.Typeface, err)
		}
		key, ok := faceKey(ff.Face.Face())
		if !ok {
			return nil, fmt.Errorf("shape: face %q is not an opentype face", ff.Font.Typeface)
		}
		e.fonts[key] = &hbFont{font: hb.NewFont(parsed)}
	}
	tracer().Debugf("engine registered %d faces", len(e.fonts))
	return e, nil
}

// faceKey identifies a face handle by its underlying font, which is
// stable across handles of the same parsed face.
func faceKey(face gofont.Face) (gofont.Font, bool) {
	if face != nil && face.Font != nil {
		return face.Font, true
	}
	return nil, false
}

func (e *Engine) Shape(in shaping.Input) shaping.Output {
	var hf *hbFont
	if key, ok := faceKey(in.Face); ok {
		e.mu.Lock()
		hf = e.fonts[key]
		e.mu.Unlock()
	}
	if hf == nil {
		sh := e.pool.Get().(*shaping.HarfbuzzShaper)
		out := sh.Shape(in)
		e.pool.Put(sh)
		return out
	}

	rtl := in.Direction == di.DirectionRTL
	buf := hb.NewBuffer()
	buf.ClusterLevel = hb.MonotoneCharacters
	buf.Props = hb.SegmentProperties{
		Language:  hblang.NewLanguage(string(in.Language)),
		Script:    hblang.Script(uint32(in.Script)),
		Direction: hb.LeftToRight,
	}
	if rtl {
		buf.Props.Direction = hb.RightToLeft
	}
	buf.AddRunes(in.Text, in.RunStart, in.RunEnd-in.RunStart)
	hf.mu.Lock()
	buf.Shape(hf.font, nil)
	hf.mu.Unlock()

	// Positions come out in font units; fixed positions want pixels
	// at the requested size.
	scale := float64(in.Size) / 64 / float64(in.Face.Upem())
	var out shaping.Output
	out.Glyphs = make([]shaping.Glyph, len(buf.Info))
	for i := range buf.Info {
		info, pos := buf.Info[i], buf.Pos[i]
		out.Glyphs[i] = shaping.Glyph{
			GlyphID:      gofont.GID(info.Glyph),
			ClusterIndex: info.Cluster,
			XAdvance:     scalePos(pos.XAdvance, scale),
			YAdvance:     scalePos(pos.YAdvance, scale),
			XOffset:      scalePos(pos.XOffset, scale),
			YOffset:      scalePos(pos.YOffset, scale),
		}
	}
	fillClusterCounts(out.Glyphs, in.RunEnd, rtl)
	return out
}

func scalePos(v int32, scale float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(float64(v) * scale * 64))
}

// fillClusterCounts annotates every glyph with the size of its
// cluster in glyphs and runes, matching the default engine's output.
func fillClusterCounts(glyphs []shaping.Glyph, runEnd int, rtl bool) {
	for i := 0; i < len(glyphs); {
		cluster := glyphs[i].ClusterIndex
		j := i
		for j < len(glyphs) && glyphs[j].ClusterIndex == cluster {
			j++
		}
		next := runEnd
		if rtl {
			if i > 0 {
				next = glyphs[i-1].ClusterIndex
			}
		} else if j < len(glyphs) {
			next = glyphs[j].ClusterIndex
		}
		for k := i; k < j; k++ {
			glyphs[k].RuneCount = next - cluster
			glyphs[k].GlyphCount = j - i
		}
		i = j
	}
}
