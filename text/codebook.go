// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	mathrand "math/rand"
	"time"

	"golang.org/x/exp/slices"

	gofont "github.com/go-text/typesetting/font"

	"github.com/glyphrun/layout/font"
)

// CodebookSize is the number of substitutable code units, the
// printable ASCII range 0x20 through 0x7e.
const CodebookSize = 95

const codebookMin = 0x20

// Codebook carries the glyph substitution of the obfuscated layout
// path. Every printable ASCII unit maps to a slot id in
// [1, CodebookSize]; the table maps slot ids back to the real glyph
// ids of the face the codebook was built for. Slot id 0 is the
// missing glyph and is emitted for units outside the printable range.
//
// A Codebook is immutable after construction and safe to share
// between readers.
type Codebook struct {
	table [CodebookSize]font.GID // slot-1 -> real glyph id
	slots [CodebookSize]font.GID // unit-0x20 -> slot id
}

// NewCodebook builds a codebook for face with a fresh random slot
// permutation. Units the face has no glyph for map to the missing
// glyph.
func NewCodebook(face gofont.Face) (*Codebook, error) {
	if face == nil {
		return nil, errors.New("text: codebook needs a face")
	}
	cb := new(Codebook)
	rng := mathrand.New(mathrand.NewSource(codebookSeed()))
	for i, o := range rng.Perm(CodebookSize) {
		gid, ok := face.NominalGlyph(rune(codebookMin + i))
		if !ok {
			gid = 0
		}
		cb.slots[i] = font.GID(o + 1)
		cb.table[o] = gid
	}
	return cb, nil
}

// codebookSeed draws entropy for the slot permutation, falling back
// to the clock when the system source is unavailable.
func codebookSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(b[:]))
	}
	return time.Now().UnixNano()
}

// Table returns a copy of the substitution table: entry o-1 holds
// the real glyph id behind slot id o.
func (c *Codebook) Table() []font.GID {
	return slices.Clone(c.table[:])
}

// Size returns the number of table entries.
func (c *Codebook) Size() int {
	return CodebookSize
}

// Glyph maps an obfuscated glyph id back to its real glyph id. Ids
// outside the slot range pass through unchanged.
func (c *Codebook) Glyph(o font.GID) font.GID {
	if o == 0 || int(o) > CodebookSize {
		return o
	}
	return c.table[o-1]
}

// slotOf returns the slot id of a printable ASCII unit.
func (c *Codebook) slotOf(u uint16) font.GID {
	return c.slots[u-codebookMin]
}

// SetCodebook injects an externally built codebook. Injected
// codebooks are never regenerated, not even when the collection or
// style changes. A nil cb returns the Layout to generated codebooks.
func (l *Layout) SetCodebook(cb *Codebook) {
	l.codebook = cb
	l.external = cb != nil
}

// GlyphCodebook returns a copy of the substitution table of the
// active codebook, or nil before the first obfuscated layout.
func (l *Layout) GlyphCodebook() []font.GID {
	if l.codebook == nil {
		return nil
	}
	return l.codebook.Table()
}

// CodebookSize returns the table size of the active codebook, or 0
// before the first obfuscated layout.
func (l *Layout) CodebookSize() int {
	if l.codebook == nil {
		return 0
	}
	return l.codebook.Size()
}

// ensureCodebook builds the codebook on first use and rebuilds it
// when the collection or style changes. Injected codebooks stay.
func (l *Layout) ensureCodebook(base font.FakedFont, style font.Font) error {
	if l.external && l.codebook != nil {
		return nil
	}
	collID := l.fc.ID()
	if l.codebook != nil && l.codebookColl == collID && l.codebookFont == style {
		return nil
	}
	cb, err := NewCodebook(base.Face)
	if err != nil {
		return err
	}
	l.codebook = cb
	l.codebookColl = collID
	l.codebookFont = style
	return nil
}
