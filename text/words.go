// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/npillmayer/uax/segment"
	"github.com/npillmayer/uax/uax29"
)

// WordBreaker splits runs into the word spans the cache operates on.
// Implementations must be safe for concurrent use.
type WordBreaker interface {
	// Breaks returns the exclusive end offset of every word span of
	// runes, in increasing order, the last one equal to len(runes).
	Breaks(runes []rune) []int
}

// uaxBreaker finds word boundaries per UAX#29.
type uaxBreaker struct{}

func (uaxBreaker) Breaks(runes []rune) []int {
	seg := segment.NewSegmenter(uax29.NewWordBreaker(1))
	seg.Init(strings.NewReader(string(runes)))
	var breaks []int
	off := 0
	for seg.Next() {
		off += utf8.RuneCount(seg.Bytes())
		breaks = append(breaks, off)
	}
	// Spans must cover the input.
	if n := len(runes); len(breaks) == 0 || breaks[len(breaks)-1] != n {
		breaks = append(breaks, n)
	}
	return breaks
}

var (
	breakerMu sync.Mutex
	breaker   WordBreaker
)

func currentBreaker() WordBreaker {
	breakerMu.Lock()
	defer breakerMu.Unlock()
	if breaker == nil {
		breaker = uaxBreaker{}
	}
	return breaker
}

// SetWordBreaker replaces the process-wide word breaker. A nil b
// restores the default UAX#29 breaker. Cached words found under the
// previous breaker remain cached.
func SetWordBreaker(b WordBreaker) {
	breakerMu.Lock()
	breaker = b
	breakerMu.Unlock()
}
