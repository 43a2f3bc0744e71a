// SPDX-License-Identifier: Unlicense OR MIT

/*
Package font provides types describing font faces, their style
attributes, and the fallback collection that resolves which face
renders each unit of text.
*/
package font

import "github.com/go-text/typesetting/font"

// A FontFace is a Font and a matching Face.
type FontFace struct {
	Font Font
	Face Face
}

// GID is the index of a glyph within a face.
type GID = font.GID

// Style is the font style.
type Style int

// Weight is a font weight, in CSS units subtracted 400 so the zero value
// is normal text weight.
type Weight int

// Font specify a particular typeface variant, style and weight.
type Font struct {
	Typeface Typeface
	Variant  Variant
	Style    Style
	// Weight is the text weight. If zero, Normal is used instead.
	Weight Weight
}

// Face is an opaque handle to a typeface. The concrete implementation depends
// upon the kind of font and shaper in use.
type Face interface {
	Face() font.Face
}

// Typeface identifies a particular typeface design. The empty
// string denotes the default typeface.
type Typeface string

// Variant denotes a typeface variant such as "Mono" or "Smallcaps".
type Variant string

// Fakery is the set of synthetic adjustments applied to a face when no
// face in a collection matches the requested style exactly.
type Fakery uint8

const (
	// FakeBold requests synthetic emboldening at raster time.
	FakeBold Fakery = 1 << iota
	// FakeItalic requests synthetic slanting at raster time.
	FakeItalic
)

// Bold reports whether synthetic emboldening is requested.
func (f Fakery) Bold() bool { return f&FakeBold != 0 }

// Italic reports whether synthetic slanting is requested.
func (f Fakery) Italic() bool { return f&FakeItalic != 0 }

func (f Fakery) String() string {
	switch f & (FakeBold | FakeItalic) {
	case FakeBold:
		return "FakeBold"
	case FakeItalic:
		return "FakeItalic"
	case FakeBold | FakeItalic:
		return "FakeBold|FakeItalic"
	default:
		return "None"
	}
}

// A FakedFont is a concrete shapeable face together with the synthetic
// style adjustments needed to satisfy the style it was selected for.
//
// FakedFont values from the same Collection are comparable: resolving the
// same rune and style twice yields equal values, never merely equivalent
// ones, so they may serve as deduplication keys.
type FakedFont struct {
	// Font describes the matched face, not the requested style.
	Font Font
	// Face is the shaping handle of the matched face.
	Face   font.Face
	Fakery Fakery
}

// A Run is a maximal span of runes resolved to a single faked font.
// Start and End are rune indices into the itemized sequence, End exclusive.
type Run struct {
	Faked FakedFont
	Start int
	End   int
}

const (
	Regular Style = iota
	Italic
)

const (
	Thin       Weight = -300
	ExtraLight Weight = -200
	Light      Weight = -100
	Normal     Weight = 0
	Medium     Weight = 100
	SemiBold   Weight = 200
	Bold       Weight = 300
	ExtraBold  Weight = 400
	Black      Weight = 500
)

func (s Style) String() string {
	switch s {
	case Regular:
		return "Regular"
	case Italic:
		return "Italic"
	default:
		panic("invalid Style")
	}
}

func (w Weight) String() string {
	switch w {
	case Thin:
		return "Thin"
	case ExtraLight:
		return "ExtraLight"
	case Light:
		return "Light"
	case Normal:
		return "Normal"
	case Medium:
		return "Medium"
	case SemiBold:
		return "SemiBold"
	case Bold:
		return "Bold"
	case ExtraBold:
		return "ExtraBold"
	case Black:
		return "Black"
	default:
		panic("invalid Weight")
	}
}
