// Package cell implements a single grid site (spec component C4): an
// optional bot, two clamped substrate scalars, and the should_die latch the
// Field's death sweep consumes.
package cell

import "github.com/pthm-cable/cyberfield/bot"

// Cell holds at most one bot plus its grass and organic substrate levels,
// both always in [0,255].
type Cell struct {
	Bot       *bot.Bot
	ShouldDie bool
	grass     float64
	organic   float64
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Grass returns the cell's grass level.
func (c *Cell) Grass() float64 {
	return c.grass
}

// SetGrass clamps v to [0,255] and stores it.
func (c *Cell) SetGrass(v float64) {
	c.grass = clamp255(v)
}

// Organic returns the cell's organic level.
func (c *Cell) Organic() float64 {
	return c.organic
}

// SetOrganic clamps v to [0,255] and stores it.
func (c *Cell) SetOrganic(v float64) {
	c.organic = clamp255(v)
}

// HasBot reports whether the cell currently hosts a bot.
func (c *Cell) HasBot() bool {
	return c.Bot != nil
}

// IsAlive reports whether the cell hosts a bot that hasn't been marked for
// the death sweep.
func (c *Cell) IsAlive() bool {
	return c.Bot != nil && !c.ShouldDie
}

// Place installs b as this cell's bot. The caller (the Field) is
// responsible for ensuring the cell was empty; Place panics on a double
// occupancy, mirroring the source's debug-build assertion (spec.md §4.4,
// §7 — a programmer precondition violation, undefined in release, aborted
// here instead of silently overwriting).
func (c *Cell) Place(b *bot.Bot) {
	if c.Bot != nil {
		panic("cell: Place called on an occupied cell")
	}
	c.Bot = b
	c.ShouldDie = false
}

// Remove clears the cell's bot and should_die latch.
func (c *Cell) Remove() {
	c.Bot = nil
	c.ShouldDie = false
}

// MarkShouldDie sets the death-sweep latch.
func (c *Cell) MarkShouldDie() {
	c.ShouldDie = true
}

// Sweep removes the bot if the cell is latched for death, reporting
// whether it did so.
func (c *Cell) Sweep() bool {
	if !c.ShouldDie {
		return false
	}
	c.Remove()
	return true
}

// Reset clears the cell's bot and sets grass/organic to the given levels,
// used by Field.Clear.
func (c *Cell) Reset(grass, organic float64) {
	c.Bot = nil
	c.ShouldDie = false
	c.SetGrass(grass)
	c.SetOrganic(organic)
}
