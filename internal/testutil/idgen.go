package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates sequential identifiers with a fixed prefix.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same FixedIDGenerator produces byte-identical
// identifiers. Production code uses UUID generation behind the same
// interface.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator producing "<prefix>-1",
// "<prefix>-2", and so on. An empty prefix defaults to "id".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// NewID returns the next identifier in sequence.
//
// Implements engagement.IDGenerator.
func (g *FixedIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
