// Package execguard guards long-running operations against interleaving
// across await boundaries: stale completions are discarded by comparing
// generation tokens, and per-key flags prevent a second commit or pull from
// being issued while one is outstanding. Nothing here cancels a request;
// superseded results simply stop being applied.
package execguard

import (
	"sync"

	"github.com/google/uuid"
)

// Guard tracks the current execution token and in-flight flag per key.
// Keys are caller-defined, typically "commit/<tabID>" or "pull/<tabID>".
type Guard struct {
	mu       sync.Mutex
	current  map[string]string
	inflight map[string]bool
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{
		current:  make(map[string]string),
		inflight: make(map[string]bool),
	}
}

// Begin stores a fresh execution token as current for the key and returns
// it. Any token handed out earlier for the same key becomes stale.
func (g *Guard) Begin(key string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	token := uuid.New().String()
	g.current[key] = token
	return token
}

// Current reports whether token is still the current execution for key.
// A completion whose token is no longer current must not apply its result.
func (g *Guard) Current(key, token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[key] == token
}

// Invalidate discards the current token for a key, so any outstanding
// completion for it is dropped. Used when a tab or dialog closes.
func (g *Guard) Invalidate(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.current, key)
}

// TryAcquire sets the in-flight flag for a key. It returns false when an
// operation is already outstanding.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[key] {
		return false
	}
	g.inflight[key] = true
	return true
}

// Release clears the in-flight flag for a key.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

// InFlight reports whether an operation is outstanding for a key.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[key]
}
