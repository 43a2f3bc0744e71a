// SPDX-License-Identifier: Unlicense OR MIT

// Package text converts UTF-16 encoded text into positioned glyphs.
//
// A Layout resolves a window of a code unit buffer through bidi
// segmentation, font fallback and shaping into glyphs, per code unit
// advances and ink bounds. Shaped words are cached process-wide;
// see Cache and PurgeCaches.
package text

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"

	"github.com/glyphrun/layout/font"
)

// tracer traces with key 'layout.text'.
func tracer() tracing.Trace {
	return tracing.Select("layout.text")
}

// Flags select the direction policy of a layout call in their low
// bits; the remaining bits are reserved.
type Flags uint32

const (
	// DirLTR lays out with a left-to-right paragraph base.
	DirLTR Flags = iota
	// DirRTL lays out with a right-to-left paragraph base.
	DirRTL
	// DirDefaultLTR derives the base from the first strong character,
	// defaulting to left-to-right.
	DirDefaultLTR
	// DirDefaultRTL derives the base from the first strong character,
	// defaulting to right-to-left.
	DirDefaultRTL
	// DirForceLTR treats the whole window as a single left-to-right run.
	DirForceLTR
	// DirForceRTL treats the whole window as a single right-to-left run.
	DirForceRTL

	// DirectionMask covers the direction policy bits of Flags.
	DirectionMask Flags = 0x7
)

// Paint carries the scalar styling of a layout call. Every field
// participates in word cache keys.
type Paint struct {
	// Size is the text size in pixels per em.
	Size float32
	// ScaleX scales advances and glyph positions horizontally.
	// Zero is treated as 1.
	ScaleX float32
	// SkewX is the synthetic oblique shear. It distinguishes cache
	// entries but does not alter advances.
	SkewX float32
	// LetterSpacing is extra advance added after every cluster,
	// in pixels.
	LetterSpacing float32
	// Language tags the text for shaping, as a BCP 47 tag ("en",
	// "ar"). Empty leaves the shaper default in effect.
	Language string
	// Flags are extra paint bits. They only distinguish cache entries.
	Flags uint32
}

// scaleX returns the effective horizontal scale.
func (p Paint) scaleX() float32 {
	if p.ScaleX == 0 {
		return 1
	}
	return p.ScaleX
}

// Glyph is a single positioned glyph of a Layout.
type Glyph struct {
	// FaceIndex indexes the faces of the Layout that produced the
	// glyph.
	FaceIndex int
	// ID identifies the glyph within its face. 0 is the missing
	// glyph.
	ID font.GID
	// X and Y position the glyph origin relative to the start of the
	// window, with y growing downward.
	X float32
	Y float32
}

var (
	// ErrNoFontCollection reports a layout call before
	// SetFontCollection.
	ErrNoFontCollection = errors.New("text: no font collection")
	// ErrInvalidWindow reports a window that does not fit the code
	// unit buffer.
	ErrInvalidWindow = errors.New("text: window out of range")
	// ErrFontUnavailable reports that no usable face could be
	// resolved.
	ErrFontUnavailable = errors.New("text: no usable font face")
)

// FontCollection resolves style requests to concrete faces.
// *font.Collection implements it; tests may substitute their own.
// Implementations must be safe for concurrent use and must report a
// process-unique ID.
type FontCollection interface {
	// Itemize splits runes into maximal runs of a single resolved
	// font, in logical order, covering the whole slice.
	Itemize(runes []rune, style font.Font) []font.Run
	// ItemizeUniform resolves n runes to the base font of style
	// without inspecting content.
	ItemizeUniform(n int, style font.Font) []font.Run
	// Base returns the face a style resolves to before fallback.
	Base(style font.Font) font.FakedFont
	// ID identifies the collection in cache keys.
	ID() uint32
}

// Init has no effect.
//
// Deprecated: earlier versions required explicit startup. All state
// is now initialized lazily.
func Init() {}
