// Package particle defines particle records and the cursor abstraction engines iterate with.
package particle

import (
	"context"
	"fmt"
	"io"

	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

// Particle is an identified spectrum. Immutable once stored.
type Particle struct {
	ID       int64
	Spectrum *spectrum.Vector
}

// Meta holds per-particle acquisition attributes that predicates filter on.
type Meta struct {
	DataType     string
	Filename     string
	AcquiredAt   int64
	Size         float64
	LaserPower   float64
	ScatterDelay int64
}

// Record is a particle with its attributes, as produced by importers.
type Record struct {
	Particle
	Meta Meta
}

// Strategy selects how a cursor materializes a collection.
type Strategy string

const (
	// StrategyMemory loads every particle of the collection eagerly.
	StrategyMemory Strategy = "memory"
	// StrategyDisk pages particles from storage with bounded memory.
	StrategyDisk Strategy = "disk"
)

// IsValid checks if the strategy is supported.
func (s Strategy) IsValid() bool {
	return s == StrategyMemory || s == StrategyDisk
}

// ParseStrategy resolves a strategy name. Empty stays empty so the caller's
// configured default applies.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return "", nil
	}
	st := Strategy(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown cursor strategy %q", s)
	}
	return st, nil
}

// Cursor is a one-pass sequence of particles. Next returns io.EOF after the last particle.
// Reset restarts from the beginning; it is the only way to revisit a particle.
// Close releases any storage handle and is safe to call more than once.
type Cursor interface {
	Next(ctx context.Context) (Particle, error)
	Reset(ctx context.Context) error
	Close() error
}

// SliceCursor iterates an in-process slice of particles.
type SliceCursor struct {
	items []Particle
	pos   int
}

var _ Cursor = (*SliceCursor)(nil)

// NewSliceCursor creates a cursor over items. The slice is not copied.
func NewSliceCursor(items []Particle) *SliceCursor {
	return &SliceCursor{items: items}
}

// Next returns the next particle or io.EOF.
func (c *SliceCursor) Next(ctx context.Context) (Particle, error) {
	if err := ctx.Err(); err != nil {
		return Particle{}, err
	}
	if c.pos >= len(c.items) {
		return Particle{}, io.EOF
	}
	p := c.items[c.pos]
	c.pos++
	return p, nil
}

// Reset rewinds to the first particle.
func (c *SliceCursor) Reset(_ context.Context) error {
	c.pos = 0
	return nil
}

// Close is a no-op.
func (c *SliceCursor) Close() error { return nil }

// Each drains cur from its current position, calling fn for every particle.
func Each(ctx context.Context, cur Cursor, fn func(Particle) error) error {
	for {
		p, err := cur.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}
