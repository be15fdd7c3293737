// Package requestgen issues request-generation tokens so a fetch that was
// superseded by a newer one for the same key cannot overwrite newer state.
package requestgen

import (
	"errors"
	"sync"
)

// ErrSuperseded is returned by controllers when a fetch finished after a newer
// one for the same key had started; its result was discarded.
var ErrSuperseded = errors.New("requestgen: superseded by a newer request")

// Token identifies one fetch for one key.
type Token struct {
	key string
	gen uint64
}

// Tracker hands out increasing generations per key. The zero value is ready
// to use.
type Tracker struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// Begin starts a new fetch for key and supersedes every earlier token for it.
func (t *Tracker) Begin(key string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens == nil {
		t.gens = make(map[string]uint64)
	}
	t.gens[key]++
	return Token{key: key, gen: t.gens[key]}
}

// Current reports whether tok is still the latest fetch for its key.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tok.gen != 0 && t.gens[tok.key] == tok.gen
}

// Invalidate supersedes any in-flight fetch for key without starting one.
func (t *Tracker) Invalidate(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens == nil {
		t.gens = make(map[string]uint64)
	}
	t.gens[key]++
}
