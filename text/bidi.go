// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/unicode/bidi"
)

// bidiRun is a maximal single-direction span of the paragraph, in
// rune offsets.
type bidiRun struct {
	start  int
	length int
	rtl    bool
}

// segmentBidi resolves runes into direction runs and clips them to
// the window [winStart, winStart+winLen). Runs come out in visual
// order, covering the window exactly. The whole rune slice
// participates in resolution so that context outside the window
// steers direction inside it.
func segmentBidi(runes []rune, winStart, winLen int, flags Flags) []bidiRun {
	if winLen <= 0 {
		return nil
	}
	switch flags & DirectionMask {
	case DirForceLTR:
		return []bidiRun{{start: winStart, length: winLen}}
	case DirForceRTL:
		return []bidiRun{{start: winStart, length: winLen, rtl: true}}
	}

	baseRTL := baseDirection(runes, flags)

	// Explicit policies pin the paragraph level by prepending a
	// directional mark for analysis only. The mark occupies rune
	// offset zero; offset shifts run positions back afterwards.
	text := string(runes)
	offset := 0
	var opts []bidi.Option
	switch flags & DirectionMask {
	case DirLTR:
		text = "‎" + text
		offset = 1
	case DirRTL:
		text = "‏" + text
		offset = 1
	case DirDefaultLTR:
		opts = append(opts, bidi.DefaultDirection(bidi.LeftToRight))
	case DirDefaultRTL:
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	}

	var p bidi.Paragraph
	if _, err := p.SetString(text, opts...); err != nil {
		return []bidiRun{{start: winStart, length: winLen, rtl: baseRTL}}
	}
	ordering, err := p.Order()
	if err != nil {
		return []bidiRun{{start: winStart, length: winLen, rtl: baseRTL}}
	}

	// Ordering reports runs in logical order. Lengths derive from the
	// run contents so that offsets stay in runes.
	var runs []bidiRun
	pos := -offset
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		n := utf8.RuneCountInString(run.String())
		start, end := pos, pos+n
		pos = end
		if start < winStart {
			start = winStart
		}
		if winEnd := winStart + winLen; end > winEnd {
			end = winEnd
		}
		if end <= start {
			continue
		}
		runs = append(runs, bidiRun{
			start:  start,
			length: end - start,
			rtl:    run.Direction() == bidi.RightToLeft,
		})
	}
	// The resolver stops at the first paragraph separator. Any window
	// tail beyond it keeps the base direction.
	if winEnd := winStart + winLen; pos < winEnd {
		start := pos
		if start < winStart {
			start = winStart
		}
		runs = append(runs, bidiRun{start: start, length: winEnd - start, rtl: baseRTL})
	}
	if len(runs) == 0 {
		return []bidiRun{{start: winStart, length: winLen, rtl: baseRTL}}
	}
	// Logical and visual order agree for a left-to-right base. For a
	// right-to-left base the run sequence reverses.
	if baseRTL {
		slices.Reverse(runs)
	}
	return runs
}

// baseDirection resolves the paragraph base direction of a policy:
// explicit policies name it, default policies take the first strong
// character.
func baseDirection(runes []rune, flags Flags) bool {
	switch flags & DirectionMask {
	case DirRTL, DirForceRTL:
		return true
	case DirLTR, DirForceLTR:
		return false
	}
	for _, r := range runes {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return false
		case bidi.R, bidi.AL:
			return true
		}
	}
	return flags&DirectionMask == DirDefaultRTL
}
