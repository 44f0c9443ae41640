package testutil

import (
	"strconv"
	"sync"
	"time"
)

// ProtectionTime is the instant FixedClock starts at.
var ProtectionTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a manually driven hs.Clock. Safe for concurrent use, since
// sweeps and watchers read it from their own goroutines.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to ProtectionTime.
func FixedClock() *StubClock {
	return NewStubClock(ProtectionTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// StubIDGenerator hands out backup name tokens "id-1", "id-2", ... so that
// artifact paths are predictable in tests.
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "id-" + strconv.Itoa(g.next)
}

// Issued reports how many tokens have been handed out.
func (g *StubIDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
