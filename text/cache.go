// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"hash/maphash"
	"sync"

	"github.com/glyphrun/layout/f32"
	"github.com/glyphrun/layout/font"
)

const (
	cacheShards = 16
	// cacheMaxEntries bounds the total number of cached words.
	cacheMaxEntries = 5000
	shardMaxEntries = cacheMaxEntries / cacheShards
	// maxCachedWordUnits is the longest span, in code units, worth
	// caching. Longer spans shape directly.
	maxCachedWordUnits = 128
)

// wordKey identifies one shaped word. Two layout calls that produce
// the same key are guaranteed the same shaped output.
type wordKey struct {
	// text is the span's code units, packed little-endian.
	text       string
	rtl        bool
	obfuscated bool
	style      font.Font
	paint      Paint
	collection uint32
}

// wordEntry is an immutable shaped word. Glyph positions are
// pen-relative to the word start; FaceIndex values index faces.
// Advances are per code unit of the span. Entries obtained from a
// Cache stay valid after eviction or Purge.
type wordEntry struct {
	next, prev *wordEntry
	key        wordKey

	glyphs   []Glyph
	faces    []font.FakedFont
	advances []float32
	width    float32
	bounds   f32.Rectangle
}

// face returns the entry-local index of f, appending it on first use.
func (e *wordEntry) face(f font.FakedFont) int {
	for i, have := range e.faces {
		if have == f {
			return i
		}
	}
	e.faces = append(e.faces, f)
	return len(e.faces) - 1
}

type cacheShard struct {
	mu         sync.Mutex
	m          map[wordKey]*wordEntry
	head, tail *wordEntry
}

// Cache holds shaped words keyed by content, direction, style and
// paint. It is safe for concurrent use; entries are immutable once
// published. The process-wide instance serves every Layout that has
// not injected its own with SetCache.
type Cache struct {
	seed   maphash.Seed
	shards [cacheShards]cacheShard
}

// NewCache returns an empty cache with its own keyspace.
func NewCache() *Cache {
	return &Cache{seed: maphash.MakeSeed()}
}

func (c *Cache) shard(k *wordKey) *cacheShard {
	return &c.shards[maphash.String(c.seed, k.text)%cacheShards]
}

// get returns the resident entry for k, refreshing its age.
func (c *Cache) get(k wordKey) (*wordEntry, bool) {
	s := c.shard(&k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[k]; ok {
		s.remove(e)
		s.insert(e)
		return e, true
	}
	return nil, false
}

// add publishes e under k and returns the resident entry. The first
// writer wins: when k is already present the existing entry returns
// and e is dropped.
func (c *Cache) add(k wordKey, e *wordEntry) *wordEntry {
	s := c.shard(&k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[k]; ok {
		s.remove(cur)
		s.insert(cur)
		return cur
	}
	if s.m == nil {
		s.m = make(map[wordKey]*wordEntry)
		s.head = new(wordEntry)
		s.tail = new(wordEntry)
		s.head.prev = s.tail
		s.tail.next = s.head
	}
	e.key = k
	s.m[k] = e
	s.insert(e)
	if len(s.m) > shardMaxEntries {
		oldest := s.tail.next
		s.remove(oldest)
		delete(s.m, oldest.key)
	}
	return e
}

func (s *cacheShard) remove(e *wordEntry) {
	e.next.prev = e.prev
	e.prev.next = e.next
}

func (s *cacheShard) insert(e *wordEntry) {
	e.next = s.head
	e.prev = s.head.prev
	e.prev.next = e
	e.next.prev = e
}

// Purge empties the cache. In-flight readers keep any entries they
// already obtained.
func (c *Cache) Purge() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.m = nil
		s.head = nil
		s.tail = nil
		s.mu.Unlock()
	}
}

// size reports the number of resident entries.
func (c *Cache) size() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}

var (
	sharedCacheOnce sync.Once
	sharedCache     *Cache
)

func defaultCache() *Cache {
	sharedCacheOnce.Do(func() {
		sharedCache = NewCache()
	})
	return sharedCache
}

// PurgeCaches empties the process-wide word cache. It may be called
// at any time, including concurrently with layout calls.
func PurgeCaches() {
	defaultCache().Purge()
	tracer().Debugf("shaped word cache purged")
}

// unitsKey packs code units into a key string.
func unitsKey(units []uint16) string {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return string(b)
}
