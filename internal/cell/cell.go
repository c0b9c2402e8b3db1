// Package cell holds the latest published frame for concurrent readers.
package cell

import "sync/atomic"

// Cell is a single-value container with one writer and many readers.
// Frames are immutable strings, so a read is always a complete frame.
type Cell struct {
	name  string
	frame atomic.Value // string
	seq   atomic.Uint64
}

// New returns an empty cell.
func New(name string) *Cell {
	return &Cell{name: name}
}

// Name identifies the view the cell carries.
func (c *Cell) Name() string {
	return c.name
}

// Publish replaces the current frame. Subsequent reads observe it.
func (c *Cell) Publish(frame string) {
	c.frame.Store(frame)
	c.seq.Add(1)
}

// Read returns the current frame, and false if nothing was published yet.
func (c *Cell) Read() (string, bool) {
	v, ok := c.frame.Load().(string)
	return v, ok
}

// Published reports how many frames were published so far.
func (c *Cell) Published() uint64 {
	return c.seq.Load()
}
