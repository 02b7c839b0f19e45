// Package field implements the world (spec component C6): a row-major grid
// of cells, the per-tick pipeline (decide, apply with conflict resolution,
// substrate update, diffusion, optional energy repair, deferred death
// sweep), and the statistics/observer surface external callers use.
package field

import (
	"fmt"

	"github.com/pthm-cable/cyberfield/bot"
	"github.com/pthm-cable/cyberfield/cell"
	"github.com/pthm-cable/cyberfield/mtrand"
	"github.com/pthm-cable/cyberfield/rotation"
	"github.com/pthm-cable/cyberfield/species"
	"github.com/pthm-cable/cyberfield/topology"
)

// Observer receives synchronous notifications from the Apply and
// death-sweep phases. Implementations must not mutate Field state; the
// only permitted side effect is updating UI-side shadow state.
type Observer interface {
	HandleBotMoved(from, to [2]int)
	HandleBotDied(at [2]int)
}

// Field owns the grid, its topology, the seeded RNG every bit of
// randomness in a tick draws from, and the tunable Settings bundle.
type Field struct {
	width, height int
	topo          *topology.Topology
	cells         []cell.Cell
	rng           *mtrand.Rand
	epoch         int
	settings      bot.Settings
	observer      Observer
}

// New constructs a width x height field seeded deterministically from
// seed, laid out on a TORUS topology (callers needing another shape call
// SetTopology after construction).
func New(width, height int, seed uint64) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("field: invalid dimensions %dx%d", width, height)
	}
	torus, err := topology.New(topology.Torus, width, height)
	if err != nil {
		return nil, err
	}
	f := &Field{
		width:    width,
		height:   height,
		topo:     torus,
		cells:    make([]cell.Cell, width*height),
		rng:      mtrand.New(seed),
		settings: bot.DefaultSettings(),
	}
	f.Clear()
	return f, nil
}

// Width returns the grid width.
func (f *Field) Width() int { return f.width }

// Height returns the grid height.
func (f *Field) Height() int { return f.height }

// Epoch returns the current tick counter.
func (f *Field) Epoch() int { return f.epoch }

func (f *Field) index(x, y int) int { return y*f.width + x }

// At returns a pointer to the cell at (x,y). Out-of-range coordinates are a
// programmer precondition violation (spec.md §7) and panic.
func (f *Field) At(x, y int) *cell.Cell {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		panic(fmt.Sprintf("field: At(%d,%d) out of range for %dx%d grid", x, y, f.width, f.height))
	}
	return &f.cells[f.index(x, y)]
}

// Topology returns the field's current topology.
func (f *Field) Topology() *topology.Topology { return f.topo }

// SetTopology replaces the field's topology. The replacement must already
// be constructed for this field's exact width and height.
func (f *Field) SetTopology(t *topology.Topology) error {
	if t.Width() != f.width || t.Height() != f.height {
		return fmt.Errorf("field: topology dimensions %dx%d do not match field %dx%d", t.Width(), t.Height(), f.width, f.height)
	}
	f.topo = t
	return nil
}

// Settings returns the field's current tuning bundle.
func (f *Field) Settings() bot.Settings { return f.settings }

// SetSettings replaces the field's tuning bundle.
func (f *Field) SetSettings(s bot.Settings) { f.settings = s }

// SetObserver registers obs to receive bot-moved / bot-died notifications.
// Pass nil to stop observing.
func (f *Field) SetObserver(obs Observer) { f.observer = obs }

// RNG exposes the field's Mersenne Twister to the bot package via the
// bot.World interface.
func (f *Field) RNG() bot.Source { return f.rng }

// Normalize delegates to the field's topology, satisfying bot.World.
func (f *Field) Normalize(x, y, rot int) (int, int, int, bool) {
	return f.topo.Normalize(x, y, rot)
}

// Grass satisfies bot.World: it reads the grass level at (x,y).
func (f *Field) Grass(x, y int) float64 { return f.At(x, y).Grass() }

// SetGrass satisfies bot.World.
func (f *Field) SetGrass(x, y int, v float64) { f.At(x, y).SetGrass(v) }

// Organic satisfies bot.World.
func (f *Field) Organic(x, y int) float64 { return f.At(x, y).Organic() }

// SetOrganic satisfies bot.World.
func (f *Field) SetOrganic(x, y int, v float64) { f.At(x, y).SetOrganic(v) }

// BotAt satisfies bot.World: it reports the occupant of (x,y), if any.
func (f *Field) BotAt(x, y int) (*species.Species, float64, bool) {
	c := f.At(x, y)
	if !c.HasBot() {
		return nil, 0, false
	}
	return c.Bot.Species, c.Bot.Energy, true
}

// Clear removes every bot, resets every cell's grass to 255 and organic to
// 0, and resets the epoch to 0.
func (f *Field) Clear() {
	for i := range f.cells {
		f.cells[i].Reset(255, 0)
	}
	f.epoch = 0
}

// RandomFill clears the field, then independently places a freshly minted
// random bot in each cell with probability density.
func (f *Field) RandomFill(density float64) {
	f.Clear()
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			if f.rng.Float64() >= density {
				continue
			}
			sp := species.Random(f.rng)
			rot := int(f.rng.Uint64() % 8)
			b := bot.New(sp, x, y, rot, f.settings.StartEnergy)
			f.At(x, y).Place(b)
		}
	}
}

// ComputeStatistics returns the live population and the sum of every live
// bot's energy.
func (f *Field) ComputeStatistics() (population int, totalEnergy float64) {
	for i := range f.cells {
		c := &f.cells[i]
		if c.IsAlive() {
			population++
			totalEnergy += c.Bot.Energy
		}
	}
	return population, totalEnergy
}

func maxFloat(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

// conservedEnergy computes the total-energy quantity the optional
// preserve_energy repair step holds constant: grass, organic valued via
// organic_grass_ratio, and live bot energy valued via died_organic_ratio *
// organic_grass_ratio (spec.md §4.6 step 5). Bots latched for the death
// sweep are not counted, since the repair runs before the sweep removes them.
func (f *Field) conservedEnergy() float64 {
	var t float64
	for i := range f.cells {
		c := &f.cells[i]
		t += c.Grass() + f.settings.OrganicGrassRatio*c.Organic()
		if c.IsAlive() {
			t += c.Bot.Energy * f.settings.DiedOrganicRatio * f.settings.OrganicGrassRatio
		}
	}
	return t
}

// Update runs one full tick: decide, apply with conflict resolution,
// substrate update, diffusion, optional energy repair, deferred death
// sweep, then increments the epoch.
func (f *Field) Update() {
	var totalBefore float64
	if f.settings.PreserveEnergy {
		totalBefore = f.conservedEnergy()
	}

	decisions := f.decideAll()
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			f.applyTarget(x, y, decisions)
		}
	}

	f.updateSubstrate()
	f.diffuse()

	if f.settings.PreserveEnergy {
		f.repairEnergy(totalBefore)
	}

	f.sweepDeaths()
	f.epoch++
}

// decideAll runs every live bot's Decide step, in row-major order, into a
// flat per-cell decision array. No bot's Decide observes another bot's
// mutation within this phase: each only ever touches its own cell.
func (f *Field) decideAll() []bot.Decision {
	decisions := make([]bot.Decision, f.width*f.height)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			idx := f.index(x, y)
			c := &f.cells[idx]
			if c.HasBot() {
				decisions[idx] = c.Bot.Decide(f)
			} else {
				decisions[idx] = bot.Decision{Action: bot.Skip, Direction: -1}
			}
		}
	}
	return decisions
}

// applyTarget resolves every neighbour that might move, multiply or attack
// into (x,y), then the cell's own decision if it chose to die, per
// spec.md §4.6 step 2.
func (f *Field) applyTarget(x, y int, decisions []bot.Decision) {
	idx := f.index(x, y)
	target := &f.cells[idx]

	startRotation := int(f.rng.Uint64() % 8)
	for r := startRotation; r < startRotation+8; r++ {
		dx, dy := rotation.Offset(r % 8)
		nx, ny, rs, ok := f.topo.Normalize(x+dx, y+dy, r)
		if !ok {
			continue
		}
		srcIdx := f.index(nx, ny)
		source := &f.cells[srcIdx]
		if !source.IsAlive() {
			continue
		}
		d := decisions[srcIdx]
		if !rotation.IsOpposite(d.Direction, rs) {
			continue
		}
		delta := (r % 8) - rs

		switch d.Action {
		case bot.Move:
			if target.HasBot() {
				continue
			}
			b := source.Bot
			source.Remove()
			b.Rotation = rotation.Norm(b.Rotation + delta)
			b.X, b.Y = x, y
			target.Place(b)
			if f.observer != nil {
				f.observer.HandleBotMoved([2]int{nx, ny}, [2]int{x, y})
			}

		case bot.Multiply:
			if target.HasBot() {
				decisions[srcIdx].Organic += f.settings.UsedEnergyOrganicRatio * f.settings.StartEnergy
				continue
			}
			childSpecies := species.Mutant(source.Bot.Species, f.rng, f.epoch, f.settings.MutationChance)
			dir := rotation.Norm(d.Direction + delta)
			child := bot.New(childSpecies, x, y, dir, f.settings.StartEnergy)
			target.Place(child)

		case bot.Attack:
			if !target.IsAlive() {
				continue
			}
			victimEnergy := maxFloat(target.Bot.Energy, 0)
			source.Bot.Energy += f.settings.KillGainRatio * victimEnergy
			decisions[srcIdx].Organic += f.settings.KillOrganicRatio * (1 - f.settings.KillGainRatio) * victimEnergy
			target.MarkShouldDie()
			source.Bot.Kills++
		}
	}

	if decisions[idx].Action == bot.Die && target.IsAlive() {
		victimEnergy := maxFloat(target.Bot.Energy, 0)
		target.MarkShouldDie()
		decisions[idx].Organic += f.settings.DiedOrganicRatio * victimEnergy
	}

	target.SetOrganic(target.Organic() + decisions[idx].Organic)
}

// updateSubstrate runs the per-cell spoil / decay / regrowth arithmetic of
// spec.md §4.6 step 3.
func (f *Field) updateSubstrate() {
	s := f.settings
	for i := range f.cells {
		c := &f.cells[i]

		c.SetOrganic(c.Organic() * (1 - s.OrganicSpoil))

		c.SetOrganic(c.Organic() + s.GrassDeath*s.DeadGrassOrganicRatio*c.Grass())
		c.SetGrass(c.Grass() * (1 - s.GrassDeath))

		c.SetGrass(c.Grass() + s.GrassGrowth*s.OrganicGrassRatio*c.Organic())
		c.SetOrganic(c.Organic() * (1 - s.GrassGrowth))
	}
}

// diffuse spreads grass and organic to each cell's 8 topology-normalised
// neighbours, reading from a pre-diffusion snapshot so contributions don't
// compound within a single pass (spec.md §4.6 step 4).
func (f *Field) diffuse() {
	n := len(f.cells)
	snapGrass := make([]float64, n)
	snapOrganic := make([]float64, n)
	newGrass := make([]float64, n)
	newOrganic := make([]float64, n)
	for i := range f.cells {
		snapGrass[i] = f.cells[i].Grass()
		snapOrganic[i] = f.cells[i].Organic()
		newGrass[i] = snapGrass[i]
		newOrganic[i] = snapOrganic[i]
	}

	s := f.settings
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			idx := f.index(x, y)
			for r := 0; r < rotation.Count; r++ {
				dx, dy := rotation.Offset(r)
				nx, ny, _, ok := f.topo.Normalize(x+dx, y+dy, 0)
				if !ok {
					continue
				}
				nidx := f.index(nx, ny)

				g := s.GrassSpread * snapGrass[idx]
				newGrass[idx] -= g
				newGrass[nidx] += g

				o := s.OrganicSpread * snapOrganic[idx]
				newOrganic[idx] -= o
				newOrganic[nidx] += o
			}
		}
	}

	for i := range f.cells {
		f.cells[i].SetGrass(newGrass[i])
		f.cells[i].SetOrganic(newOrganic[i])
	}
}

// repairEnergy renormalises organic so the conserved quantity matches
// totalBefore, clamped into range by Cell.SetOrganic (spec.md §4.6 step 5).
func (f *Field) repairEnergy(totalBefore float64) {
	area := float64(f.width * f.height)
	t := f.conservedEnergy()
	delta := -(t - totalBefore) / (area * f.settings.OrganicGrassRatio)
	for i := range f.cells {
		c := &f.cells[i]
		c.SetOrganic(c.Organic() + delta)
	}
}

// sweepDeaths removes every should_die bot and notifies the observer
// (spec.md §4.6 step 6).
func (f *Field) sweepDeaths() {
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			c := f.At(x, y)
			if !c.ShouldDie {
				continue
			}
			c.Sweep()
			if f.observer != nil {
				f.observer.HandleBotDied([2]int{x, y})
			}
		}
	}
}
