package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// IDSource mints identifiers guaranteed unique against the live graph. Id
// allocation is an explicit dependency of every operation that creates nodes
// or edges; there is no package-level counter.
type IDSource interface {
	NewID(prefix string) string
}

// UUIDSource mints random identifiers. Collisions against any live graph are
// negligible, which makes repeated template inserts safe without bookkeeping.
type UUIDSource struct{}

// NewID returns a fresh identifier carrying a human-readable prefix.
func (UUIDSource) NewID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// SequenceSource mints deterministic identifiers for tests and replay.
type SequenceSource struct {
	Prefix string
	next   int
}

// NewID returns the next identifier in the sequence.
func (s *SequenceSource) NewID(prefix string) string {
	s.next++
	if s.Prefix != "" {
		prefix = s.Prefix + "-" + prefix
	}
	return fmt.Sprintf("%s-%d", prefix, s.next)
}
