// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"io"

	"github.com/glyphrun/layout/font"
)

// Measure computes the total advance of the window [start,
// start+count) of units without retaining glyphs. When advances is
// non-nil its first count entries receive the per code unit advances;
// a shorter slice returns io.ErrShortBuffer.
//
// Measure shares the process-wide word cache, so measuring then
// laying out the same text shapes each word once. For identical
// inputs the total and advances equal those of Layout.LayoutText.
func Measure(fc FontCollection, units []uint16, start, count int, flags Flags, style font.Font, paint Paint, advances []float32) (float32, error) {
	if fc == nil {
		return 0, ErrNoFontCollection
	}
	if start < 0 || start > len(units) || count < 0 || count > len(units)-start {
		return 0, ErrInvalidWindow
	}
	if advances != nil && len(advances) < count {
		return 0, io.ErrShortBuffer
	}
	var dst []float32
	if advances != nil {
		dst = advances[:count]
		for i := range dst {
			dst[i] = 0
		}
	} else {
		dst = make([]float32, count)
	}
	if count == 0 {
		return 0, nil
	}
	ctx := layoutContext{
		fc:       fc,
		style:    style,
		paint:    paint,
		flags:    flags,
		sx:       paint.scaleX(),
		ls:       paint.LetterSpacing,
		units:    units,
		uStart:   start,
		uCount:   count,
		cache:    defaultCache(),
		engine:   currentEngine(),
		breaker:  currentBreaker(),
		advances: dst,
	}
	ctx.runes, ctx.ru2cu = decodeUTF16(units)
	ctx.snapWindow()
	if err := ctx.run(); err != nil {
		return 0, err
	}
	return ctx.total, nil
}
