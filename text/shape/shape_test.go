// SPDX-License-Identifier: Unlicense OR MIT

package shape

import (
	"reflect"
	"testing"

	nsareg "eliasnaur.com/font/noto/sans/arabic/regular"
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/glyphrun/layout/font"
	"github.com/glyphrun/layout/font/opentype"
	"github.com/glyphrun/layout/text"
)

var _ text.Engine = (*Engine)(nil)

func testInput(face opentype.Face, runes []rune, dir di.Direction) shaping.Input {
	return shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      face.Face(),
		Size:      fixed.I(16),
		Script:    language.LookupScript(runes[0]),
	}
}

// TestEngineMatchesDefault ensures that a registered face shapes to
// the same glyphs as the default engine, with advances agreeing to
// within rounding.
func TestEngineMatchesDefault(t *testing.T) {
	ltrFace, _ := opentype.Parse(goregular.TTF)
	eng, err := New(font.FontFace{Font: font.Font{Typeface: "Go"}, Face: ltrFace})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := testInput(ltrFace, []rune("Shaping parity"), di.DirectionLTR)
	got := eng.Shape(in)
	var ref shaping.HarfbuzzShaper
	want := ref.Shape(in)

	if len(got.Glyphs) != len(want.Glyphs) {
		t.Fatalf("unexpected glyph count: %d, expected %d", len(got.Glyphs), len(want.Glyphs))
	}
	for i, g := range got.Glyphs {
		w := want.Glyphs[i]
		if g.GlyphID != w.GlyphID {
			t.Errorf("glyph %d: id %d, expected %d", i, g.GlyphID, w.GlyphID)
		}
		if g.ClusterIndex != w.ClusterIndex {
			t.Errorf("glyph %d: cluster %d, expected %d", i, g.ClusterIndex, w.ClusterIndex)
		}
		if g.GlyphCount != w.GlyphCount || g.RuneCount != w.RuneCount {
			t.Errorf("glyph %d: cluster sizes %d/%d, expected %d/%d",
				i, g.GlyphCount, g.RuneCount, w.GlyphCount, w.RuneCount)
		}
		if !fixedNear(g.XAdvance, w.XAdvance) {
			t.Errorf("glyph %d: x advance %v, expected %v", i, g.XAdvance, w.XAdvance)
		}
		if !fixedNear(g.XOffset, w.XOffset) || !fixedNear(g.YOffset, w.YOffset) {
			t.Errorf("glyph %d: offset (%v, %v), expected (%v, %v)",
				i, g.XOffset, g.YOffset, w.XOffset, w.YOffset)
		}
	}
}

// TestEngineUnknownFace ensures that faces not registered with the
// Engine take the default shaping path unchanged.
func TestEngineUnknownFace(t *testing.T) {
	eng, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ltrFace, _ := opentype.Parse(goregular.TTF)
	in := testInput(ltrFace, []rune("fallback"), di.DirectionLTR)
	got := eng.Shape(in)
	var ref shaping.HarfbuzzShaper
	want := ref.Shape(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallback output differs from the default engine")
	}
}

func TestEngineRTL(t *testing.T) {
	rtlFace, _ := opentype.Parse(nsareg.TTF)
	eng, err := New(font.FontFace{Font: font.Font{Typeface: "Noto Sans Arabic"}, Face: rtlFace})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runes := []rune("سماء")
	out := eng.Shape(testInput(rtlFace, runes, di.DirectionRTL))
	if len(out.Glyphs) == 0 {
		t.Fatalf("no glyphs shaped")
	}
	runeTotal := 0
	for i, g := range out.Glyphs {
		if g.XAdvance <= 0 {
			t.Errorf("glyph %d: unexpected advance %v", i, g.XAdvance)
		}
		if i > 0 && g.ClusterIndex > out.Glyphs[i-1].ClusterIndex {
			t.Errorf("glyph %d: clusters increase in an rtl run", i)
		}
		if i == 0 || g.ClusterIndex != out.Glyphs[i-1].ClusterIndex {
			runeTotal += g.RuneCount
		}
	}
	if runeTotal != len(runes) {
		t.Errorf("cluster rune counts sum to %d, expected %d", runeTotal, len(runes))
	}
}

// TestEngineInstalled ensures that the engine slots into the layout
// pipeline and produces metrics close to the default engine.
func TestEngineInstalled(t *testing.T) {
	ltrFace, _ := opentype.Parse(goregular.TTF)
	faces := []font.FontFace{{Font: font.Font{Typeface: "Go"}, Face: ltrFace}}
	eng, err := New(faces...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fc, err := font.NewCollection(faces)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	units := u16("Engine swap")

	l := text.NewLayout()
	l.SetFontCollection(fc)
	l.SetCache(text.NewCache())
	if err := l.LayoutText(units, 0, len(units), text.DirLTR, font.Font{}, text.Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	def := l.Advance()

	text.SetEngine(eng)
	defer text.SetEngine(nil)
	l.SetCache(text.NewCache())
	if err := l.LayoutText(units, 0, len(units), text.DirLTR, font.Font{}, text.Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.Advance(); got < def-0.5 || got > def+0.5 {
		t.Errorf("unexpected total advance %g, expected about %g", got, def)
	}
	for i := 0; i < len(units); i++ {
		if a := l.CharAdvance(i); a <= 0 {
			t.Errorf("unexpected advance for unit %d: %g", i, a)
		}
	}
}

func u16(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		units = append(units, uint16(r))
	}
	return units
}

func fixedNear(a, b fixed.Int26_6) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 2
}
