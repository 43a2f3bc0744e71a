// SPDX-License-Identifier: Unlicense OR MIT

package text

import (
	"sync"

	"github.com/go-text/typesetting/shaping"
)

// Engine shapes a single run of text into positioned glyphs.
// Implementations must be safe for concurrent use.
type Engine interface {
	Shape(shaping.Input) shaping.Output
}

// pooledEngine shapes with go-text's HarfBuzz port. HarfbuzzShaper
// reuses internal buffers and is not safe for concurrent use, so
// instances are pooled.
type pooledEngine struct {
	pool sync.Pool
}

func newPooledEngine() *pooledEngine {
	return &pooledEngine{
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}
}

func (e *pooledEngine) Shape(in shaping.Input) shaping.Output {
	sh := e.pool.Get().(*shaping.HarfbuzzShaper)
	out := sh.Shape(in)
	e.pool.Put(sh)
	return out
}

var (
	engineMu sync.Mutex
	engine   Engine
)

func currentEngine() Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engine == nil {
		engine = newPooledEngine()
	}
	return engine
}

// SetEngine replaces the process-wide shaping engine. eng must be
// safe for concurrent use. A nil eng restores the default HarfBuzz
// engine. Cached words shaped by the previous engine remain cached;
// callers that need a clean slate should also call PurgeCaches.
func SetEngine(eng Engine) {
	engineMu.Lock()
	engine = eng
	engineMu.Unlock()
}
