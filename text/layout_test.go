// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"slices"
	"testing"
	"unicode/utf16"

	nsareg "eliasnaur.com/font/noto/sans/arabic/regular"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/glyphrun/layout/font"
	"github.com/glyphrun/layout/font/opentype"
)

// u16 encodes s as UTF-16 code units.
func u16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func testCollection(t *testing.T) *font.Collection {
	t.Helper()
	ltrFace, _ := opentype.Parse(goregular.TTF)
	rtlFace, _ := opentype.Parse(nsareg.TTF)
	fc, err := font.NewCollection([]font.FontFace{
		{Font: font.Font{Typeface: "Go"}, Face: ltrFace},
		{Font: font.Font{Typeface: "Noto Sans Arabic"}, Face: rtlFace},
	})
	if err != nil {
		t.Fatalf("building collection: %v", err)
	}
	return fc
}

func testLayout(t *testing.T) *Layout {
	t.Helper()
	l := NewLayout()
	l.SetFontCollection(testCollection(t))
	return l
}

func TestLayoutSimple(t *testing.T) {
	l := testLayout(t)
	units := u16("Hello")
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 5 {
		t.Errorf("unexpected glyph count: %d, expected 5", got)
	}
	for i := 1; i < l.GlyphCount(); i++ {
		if l.X(i) <= l.X(i-1) {
			t.Errorf("glyph %d does not advance: x %g after %g", i, l.X(i), l.X(i-1))
		}
	}
	var sum float32
	for i := 0; i < len(units); i++ {
		a := l.CharAdvance(i)
		if a <= 0 {
			t.Errorf("unexpected advance for unit %d: %g", i, a)
		}
		sum += a
	}
	if total := l.Advance(); !near(total, sum) {
		t.Errorf("total advance %g does not match advance sum %g", total, sum)
	}
	if b := l.Bounds(); b.Empty() || b.Min.Y >= 0 {
		t.Errorf("unexpected ink bounds: %+v", b)
	}
}

func TestLayoutEmpty(t *testing.T) {
	l := testLayout(t)
	if err := l.LayoutText(nil, 0, 0, DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 0 {
		t.Errorf("unexpected glyph count for empty text: %d", got)
	}
	if got := l.Advance(); got != 0 {
		t.Errorf("unexpected advance for empty text: %g", got)
	}
	if got := len(l.Advances(nil)); got != 0 {
		t.Errorf("unexpected advance slice length: %d", got)
	}
	if b := l.Bounds(); !b.Empty() {
		t.Errorf("unexpected bounds for empty text: %+v", b)
	}
}

func TestLayoutErrors(t *testing.T) {
	units := u16("abc")
	var unset Layout
	if err := unset.LayoutText(units, 0, 3, DirLTR, font.Font{}, Paint{Size: 16}); err != ErrNoFontCollection {
		t.Errorf("layout without collection: %v, expected %v", err, ErrNoFontCollection)
	}
	l := testLayout(t)
	for _, tc := range []struct {
		name         string
		start, count int
	}{
		{"negative start", -1, 2},
		{"negative count", 0, -1},
		{"past end", 2, 2},
	} {
		if err := l.LayoutText(units, tc.start, tc.count, DirLTR, font.Font{}, Paint{Size: 16}); err != ErrInvalidWindow {
			t.Errorf("%s: %v, expected %v", tc.name, err, ErrInvalidWindow)
		}
	}
}

// TestLayoutDeterminism ensures that identical inputs produce
// identical output, whether the words come from the cache or from
// the shaper.
func TestLayoutDeterminism(t *testing.T) {
	fc := testCollection(t)
	units := u16("The quick سماء brown fox")
	lay := func(l *Layout) ([]Glyph, []float32, float32) {
		t.Helper()
		if err := l.LayoutText(units, 0, len(units), DirDefaultLTR, font.Font{}, Paint{Size: 14}); err != nil {
			t.Fatalf("LayoutText: %v", err)
		}
		return l.Glyphs(nil), l.Advances(nil), l.Advance()
	}
	warm := NewLayout()
	warm.SetFontCollection(fc)
	g1, a1, t1 := lay(warm)

	cached := NewLayout()
	cached.SetFontCollection(fc)
	g2, a2, t2 := lay(cached)

	cold := NewLayout()
	cold.SetFontCollection(fc)
	cold.SetCache(NewCache())
	g3, a3, t3 := lay(cold)

	for i, tc := range []struct {
		glyphs   []Glyph
		advances []float32
		total    float32
	}{{g2, a2, t2}, {g3, a3, t3}} {
		if !slices.Equal(g1, tc.glyphs) {
			t.Errorf("layout %d: glyph streams differ", i)
		}
		if !slices.Equal(a1, tc.advances) {
			t.Errorf("layout %d: advances differ", i)
		}
		if t1 != tc.total {
			t.Errorf("layout %d: total %g, expected %g", i, tc.total, t1)
		}
	}
}

func TestLayoutReuse(t *testing.T) {
	l := testLayout(t)
	first := u16("alpha beta")
	if err := l.LayoutText(first, 0, len(first), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	g1, a1 := l.Glyphs(nil), l.Advances(nil)

	other := u16("unrelated words entirely")
	if err := l.LayoutText(other, 0, len(other), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if err := l.LayoutText(first, 0, len(first), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if !slices.Equal(g1, l.Glyphs(nil)) {
		t.Errorf("glyphs differ after reuse")
	}
	if !slices.Equal(a1, l.Advances(nil)) {
		t.Errorf("advances differ after reuse")
	}
}

// TestLayoutClusterAdvances ensures that a combining sequence carries
// its advance on the leading code unit, with trailing units at zero.
func TestLayoutClusterAdvances(t *testing.T) {
	l := testLayout(t)
	units := u16("é")
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if a := l.CharAdvance(0); a <= 0 {
		t.Errorf("unexpected cluster advance: %g", a)
	}
	if a := l.CharAdvance(1); a != 0 {
		t.Errorf("unexpected advance on combining mark: %g", a)
	}
	if total := l.Advance(); total != l.CharAdvance(0) {
		t.Errorf("total %g, expected cluster advance %g", total, l.CharAdvance(0))
	}
	if got := l.GlyphCount(); got < 1 || got > 2 {
		t.Errorf("unexpected glyph count: %d", got)
	}
	if b := l.Bounds(); b.Empty() {
		t.Errorf("unexpected empty bounds")
	}
}

func TestLayoutSurrogatePair(t *testing.T) {
	l := testLayout(t)
	units := []uint16{0xd83d, 0xde00} // U+1F600
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 1 {
		t.Errorf("unexpected glyph count: %d, expected 1", got)
	}
	if id := l.GlyphID(0); id != 0 {
		t.Errorf("unexpected glyph for uncovered rune: %d, expected 0", id)
	}
	if a := l.CharAdvance(1); a != 0 {
		t.Errorf("unexpected advance on trailing surrogate: %g", a)
	}
}

func TestLayoutUnpairedSurrogate(t *testing.T) {
	l := testLayout(t)
	units := []uint16{'A', 0xd800, 'B'}
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := len(l.Advances(nil)); got != 3 {
		t.Fatalf("unexpected advance count: %d, expected 3", got)
	}
	for i := 0; i < 3; i++ {
		if a := l.CharAdvance(i); a <= 0 {
			t.Errorf("unexpected advance for unit %d: %g", i, a)
		}
	}
}

func TestLayoutUncoveredRune(t *testing.T) {
	l := testLayout(t)
	units := u16("ก") // THAI CHARACTER KO KAI, covered by no face
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 1 {
		t.Fatalf("unexpected glyph count: %d, expected 1", got)
	}
	if id := l.GlyphID(0); id != 0 {
		t.Errorf("unexpected glyph for uncovered rune: %d, expected 0", id)
	}
}

// TestLayoutFallback ensures that runs resolve to the face covering
// their runes, not only to the first face of the collection.
func TestLayoutFallback(t *testing.T) {
	l := testLayout(t)
	units := u16("aا")
	if err := l.LayoutText(units, 0, len(units), DirDefaultLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 2 {
		t.Fatalf("unexpected glyph count: %d, expected 2", got)
	}
	if tf := l.Font(0).Font.Typeface; tf != "Go" {
		t.Errorf("unexpected face for latin glyph: %q", tf)
	}
	if tf := l.Font(1).Font.Typeface; tf != "Noto Sans Arabic" {
		t.Errorf("unexpected face for arabic glyph: %q", tf)
	}
	if got := len(l.Faces()); got != 2 {
		t.Errorf("unexpected face table size: %d, expected 2", got)
	}
}

func TestLayoutMixedDirection(t *testing.T) {
	l := testLayout(t)
	units := u16("ab ابج cd")
	if err := l.LayoutText(units, 0, len(units), DirDefaultLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != len(units) {
		t.Fatalf("unexpected glyph count: %d, expected %d", got, len(units))
	}
	for i := 0; i < len(units); i++ {
		if a := l.CharAdvance(i); a <= 0 {
			t.Errorf("unexpected advance for unit %d: %g", i, a)
		}
	}
	// The glyph stream is visual, so pen positions never go backward.
	for i := 1; i < l.GlyphCount(); i++ {
		if l.X(i) < l.X(i-1)-0.01 {
			t.Errorf("glyph %d moves backward: x %g after %g", i, l.X(i), l.X(i-1))
		}
	}
	for i := 3; i < 6; i++ {
		if tf := l.Font(i).Font.Typeface; tf != "Noto Sans Arabic" {
			t.Errorf("unexpected face for glyph %d: %q", i, tf)
		}
	}
}

func TestLayoutWindow(t *testing.T) {
	l := testLayout(t)
	units := u16("abcdef")
	if err := l.LayoutText(units, 2, 3, DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.GlyphCount(); got != 3 {
		t.Errorf("unexpected glyph count: %d, expected 3", got)
	}
	if got := len(l.Advances(nil)); got != 3 {
		t.Fatalf("unexpected advance count: %d, expected 3", got)
	}
	for i := 0; i < 3; i++ {
		if a := l.CharAdvance(i); a <= 0 {
			t.Errorf("unexpected advance for unit %d: %g", i, a)
		}
	}
	// Window positions are relative to the window start.
	if x := l.X(0); x != 0 {
		t.Errorf("unexpected first pen position: %g", x)
	}
}

func TestLayoutLetterSpacing(t *testing.T) {
	l := testLayout(t)
	units := u16("abc")
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	plain := l.Advance()
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16, LetterSpacing: 2}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if spaced := l.Advance(); !near(spaced, plain+3*2) {
		t.Errorf("unexpected spaced advance: %g, expected %g", spaced, plain+3*2)
	}
}

func TestLayoutScaleX(t *testing.T) {
	l := testLayout(t)
	units := u16("scale me")
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	plain, plainAdv := l.Advance(), l.Advances(nil)
	if err := l.LayoutText(units, 0, len(units), DirLTR, font.Font{}, Paint{Size: 16, ScaleX: 2}); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if got := l.Advance(); got != 2*plain {
		t.Errorf("unexpected scaled advance: %g, expected %g", got, 2*plain)
	}
	for i, a := range l.Advances(nil) {
		if a != 2*plainAdv[i] {
			t.Errorf("unexpected scaled advance for unit %d: %g, expected %g", i, a, 2*plainAdv[i])
		}
	}
}

// near reports whether two advances agree within rounding noise.
func near(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}

func FuzzLayoutText(f *testing.F) {
	ltrFace, _ := opentype.Parse(goregular.TTF)
	rtlFace, _ := opentype.Parse(nsareg.TTF)
	fc, err := font.NewCollection([]font.FontFace{
		{Font: font.Font{Typeface: "Go"}, Face: ltrFace},
		{Font: font.Font{Typeface: "Noto Sans Arabic"}, Face: rtlFace},
	})
	if err != nil {
		f.Fatal(err)
	}
	f.Add("د عرمثال dstي met لم aqل جدmوpمg lرe dرd  لو عل ميrةsdiduntut lab renنيتذدagلaaiua.", 0, 40, uint32(2))
	f.Add("Hello, world", 2, 5, uint32(0))
	f.Add("é\U0001F600", 0, 4, uint32(4))
	f.Fuzz(func(t *testing.T, txt string, start, count int, flags uint32) {
		units := u16(txt)
		l := NewLayout()
		l.SetFontCollection(fc)
		err := l.LayoutText(units, start, count, Flags(flags), font.Font{}, Paint{Size: 14})
		if err != nil {
			if err != ErrInvalidWindow {
				t.Fatalf("LayoutText: %v", err)
			}
			if start >= 0 && start <= len(units) && count >= 0 && count <= len(units)-start {
				t.Fatalf("window error for valid window [%d, %d) of %d units", start, start+count, len(units))
			}
			return
		}
		advances := l.Advances(nil)
		if len(advances) != count {
			t.Fatalf("advance count %d, expected %d", len(advances), count)
		}
		var sum float32
		for i, a := range advances {
			if a != a || a < 0 {
				t.Fatalf("invalid advance for unit %d: %g", i, a)
			}
			sum += a
		}
		if total := l.Advance(); total-sum > 0.5 || sum-total > 0.5 {
			t.Errorf("total advance %g does not match advance sum %g", total, sum)
		}
		// Identical inputs produce identical output.
		again := NewLayout()
		again.SetFontCollection(fc)
		if err := again.LayoutText(units, start, count, Flags(flags), font.Font{}, Paint{Size: 14}); err != nil {
			t.Fatalf("LayoutText: %v", err)
		}
		if !slices.Equal(l.Glyphs(nil), again.Glyphs(nil)) {
			t.Errorf("glyph streams differ for identical inputs")
		}
		if !slices.Equal(advances, again.Advances(nil)) {
			t.Errorf("advances differ for identical inputs")
		}
	})
}
