// Package bot implements the per-cell bytecode VM (spec component C5): a
// 256-word genome interpreted as a tiny fetch-execute program that decides,
// once per tick, whether a bot moves, turns, eats, attacks, reproduces or
// dies. Decide is pure with respect to other bots — it only ever touches
// its own position's substrate and reads neighbouring occupancy — so the
// Field can run every live bot's Decide in the same deterministic order
// every replay.
package bot

import (
	"github.com/pthm-cable/cyberfield/rotation"
	"github.com/pthm-cable/cyberfield/species"
)

// Opcodes, dispatched on genome word mod 16. Values outside this set are
// NOPs that simply advance the instruction pointer.
const (
	opMove = iota + 1
	opRotate
	opJmp
	opEat
	opSkip
	opDie
	opMultiply
	opAttack
	opTestEmpty
	opTestEnemy
	opTestAlly
	opTestEnergy
	opTestGrass
	opTestOrganic
)

// Action is the decision a bot's Decide step produces for the Field's
// Apply phase to resolve.
type Action int

const (
	Skip Action = iota
	Move
	Multiply
	Die
	Attack
)

// Decision is the sole output of a bot's tick: an action, an optional
// direction (-1 when not applicable), and organic matter released back
// into the acting cell during resolution.
type Decision struct {
	Action    Action
	Direction int
	Organic   float64
}

// Settings is the field-wide tuning bundle every bot's VM and the Field's
// substrate pipeline read from. All fields are runtime-tunable; none are
// persisted by this package. Names mirror the table in spec.md §3.
type Settings struct {
	Lifetime               int     `yaml:"lifetime"`
	MutationChance         float64 `yaml:"mutation_chance"`
	EnergyGain             float64 `yaml:"energy_gain"`
	MultiplyCost           float64 `yaml:"multiply_cost"`
	StartEnergy            float64 `yaml:"start_energy"`
	InstructionCost        float64 `yaml:"instruction_cost"`
	KillGainRatio          float64 `yaml:"kill_gain_ratio"`
	EatEfficiency          float64 `yaml:"eat_efficiency"`
	GrassGrowth            float64 `yaml:"grass_growth"`
	GrassSpread            float64 `yaml:"grass_spread"`
	EatLong                bool    `yaml:"eat_long"`
	UsedEnergyOrganicRatio float64 `yaml:"used_energy_organic_ratio"`
	EatenOrganicRatio      float64 `yaml:"eaten_organic_ratio"`
	KillOrganicRatio       float64 `yaml:"kill_organic_ratio"`
	DiedOrganicRatio       float64 `yaml:"died_organic_ratio"`
	OrganicGrassRatio      float64 `yaml:"organic_grass_ratio"`
	OrganicSpread          float64 `yaml:"organic_spread"`
	OrganicSpoil           float64 `yaml:"organic_spoil"`
	GrassDeath             float64 `yaml:"grass_death"`
	DeadGrassOrganicRatio  float64 `yaml:"dead_grass_organic_ratio"`
	PreserveEnergy         bool    `yaml:"preserve_energy"`
}

// DefaultSettings returns the table of defaults from spec.md §3.
func DefaultSettings() Settings {
	return Settings{
		Lifetime:               256,
		MutationChance:         0.001,
		EnergyGain:             10,
		MultiplyCost:           20,
		StartEnergy:            10,
		InstructionCost:        0.1,
		KillGainRatio:          0.5,
		EatEfficiency:          0.5,
		GrassGrowth:            0.05,
		GrassSpread:            0.1,
		EatLong:                true,
		UsedEnergyOrganicRatio: 0.5,
		EatenOrganicRatio:      0.5,
		KillOrganicRatio:       0.5,
		DiedOrganicRatio:       0.25,
		OrganicGrassRatio:      5,
		OrganicSpread:          0.1,
		OrganicSpoil:           0.05,
		GrassDeath:             0.05,
		DeadGrassOrganicRatio:  0.5,
		PreserveEnergy:         false,
	}
}

// Source is the minimal RNG surface the VM consumes; satisfied by
// *mtrand.Rand.
type Source interface {
	Uint64() uint64
	Float64() float64
}

// World is the read/write surface a Bot needs from its Field during its
// own Decide step: its own cell's substrate, neighbouring occupancy for the
// TEST_* opcodes, and topology normalization for decode_coords. The Field
// implements this directly; Decide never reaches any other bot's state.
type World interface {
	Settings() Settings
	RNG() Source
	Normalize(x, y, rotation int) (nx, ny, nrotation int, ok bool)
	Grass(x, y int) float64
	SetGrass(x, y int, v float64)
	Organic(x, y int) float64
	SetOrganic(x, y int, v float64)
	BotAt(x, y int) (occupant *species.Species, energy float64, ok bool)
}

// Bot is a single automaton occupying one cell. It is owned exclusively by
// that cell; the (X,Y) here is kept in sync by the Field on every move.
type Bot struct {
	IP       uint8
	Age      int
	Energy   float64
	Kills    int
	Eats     int
	X, Y     int
	Rotation int
	Species  *species.Species
}

// New creates a newborn bot at (x,y) with the given species, rotation and
// starting energy. Age and IP start at zero.
func New(sp *species.Species, x, y, rotation int, energy float64) *Bot {
	return &Bot{X: x, Y: y, Rotation: rotation, Energy: energy, Species: sp}
}

// Decide runs one tick of the bytecode VM and returns the resulting
// Decision. It may mutate this bot's own energy, rotation and IP, and its
// own cell's grass/organic via w — but nothing belonging to any other bot.
func (b *Bot) Decide(w World) Decision {
	s := w.Settings()

	b.Age++
	if b.Age > s.Lifetime {
		return Decision{Action: Die, Direction: -1}
	}

	decision := Decision{Action: Skip, Direction: -1}
	running := true

	for running && b.Energy > 0 {
		word := b.Species.Gene(int(b.IP))
		opcode := int(word % 16)

		switch opcode {
		case opMove:
			decision.Action = Move
			decision.Direction = b.decodeRotation(w, b.gene(1))
			running = false
			b.IP += 2

		case opRotate:
			b.Rotation = b.decodeRotation(w, b.gene(1))
			b.IP += 2

		case opJmp:
			b.IP = uint8(b.decodeAddress(w, b.gene(1)))

		case opEat:
			grass := w.Grass(b.X, b.Y)
			eaten := s.EatEfficiency * grass
			if eaten > s.EnergyGain {
				eaten = s.EnergyGain
			}
			consumed := eaten / s.EatEfficiency
			w.SetGrass(b.X, b.Y, grass-consumed)
			b.Energy += eaten
			decision.Organic += s.EatenOrganicRatio * (consumed - eaten)
			b.Eats++
			if s.EatLong {
				decision.Action = Skip
				running = false
			}
			b.IP++

		case opSkip:
			decision.Action = Skip
			running = false
			b.IP++

		case opDie:
			decision.Action = Die
			running = false
			b.IP++

		case opMultiply:
			if b.Energy > s.MultiplyCost {
				decision.Action = Multiply
				decision.Direction = b.decodeRotation(w, b.gene(1))
				b.Energy -= s.MultiplyCost
				decision.Organic += (s.MultiplyCost - s.StartEnergy) * s.UsedEnergyOrganicRatio
				running = false
			}
			b.IP += 2

		case opAttack:
			decision.Action = Attack
			decision.Direction = b.decodeRotation(w, b.gene(1))
			running = false
			b.IP += 2

		case opTestEmpty, opTestEnemy, opTestAlly:
			nx, ny, ok := b.decodeCoords(w, b.gene(3))
			truthy := false
			if ok {
				occupant, _, hasBot := w.BotAt(nx, ny)
				switch opcode {
				case opTestEmpty:
					truthy = !hasBot
				case opTestEnemy:
					truthy = hasBot && species.Difference(b.Species, occupant) != 0
				case opTestAlly:
					truthy = hasBot && species.Difference(b.Species, occupant) == 0
				}
			}
			if truthy {
				b.IP = uint8(b.decodeAddress(w, b.gene(1)))
			} else {
				b.IP = uint8(b.decodeAddress(w, b.gene(2)))
			}

		case opTestEnergy, opTestGrass, opTestOrganic:
			threshold := b.gene(3)
			var truthy bool
			switch opcode {
			case opTestEnergy:
				truthy = b.Energy >= float64(threshold)
			case opTestGrass:
				truthy = w.Grass(b.X, b.Y) >= float64(threshold%256)
			case opTestOrganic:
				truthy = w.Organic(b.X, b.Y) >= float64(threshold%256)
			}
			if truthy {
				b.IP = uint8(b.decodeAddress(w, b.gene(1)))
			} else {
				b.IP = uint8(b.decodeAddress(w, b.gene(2)))
			}

		default:
			b.IP++
		}

		if opcode != opDie {
			decision.Organic += b.useEnergy(s.InstructionCost, s.UsedEnergyOrganicRatio)
		}
		b.IP = uint8(int(b.IP) % 256)
	}

	decision.Organic += b.useEnergy(1.0, s.UsedEnergyOrganicRatio)
	if b.Energy <= 0 {
		if decision.Action == Multiply {
			decision.Organic += s.StartEnergy * s.DiedOrganicRatio
		}
		decision.Action = Die
	}

	return decision
}

// gene reads genome[IP+offset], wrapping the index mod 256 as IP itself
// does; a mid-instruction operand fetch never indexes out of range.
func (b *Bot) gene(offset int) uint16 {
	idx := (int(b.IP) + offset) % 256
	return b.Species.Gene(idx)
}

// useEnergy decrements the bot's energy by e, clamped at 0, and returns the
// organic matter released by the energy actually spent.
func (b *Bot) useEnergy(e, usedEnergyOrganicRatio float64) float64 {
	before := b.Energy
	b.Energy -= e
	if b.Energy < 0 {
		b.Energy = 0
	}
	spent := e
	if before < spent {
		spent = before
	}
	if spent < 0 {
		spent = 0
	}
	return spent * usedEnergyOrganicRatio
}

// decodeRotation reads the top bits of w: bit 4 set means "relative to own
// rotation", bit 3 set means "absolute", neither set means a fresh uniform
// draw from the Field's RNG.
func (b *Bot) decodeRotation(w World, word uint16) int {
	switch {
	case word&(1<<4) != 0:
		return (b.Rotation + int(word%8)) % 8
	case word&(1<<3) != 0:
		return int(word % 8)
	default:
		return int(w.RNG().Uint64() % 8)
	}
}

// decodeAddress reads the top bits of w: bit 9 set means "relative to the
// current IP", bit 8 set means "absolute", neither set means a fresh
// uniform draw.
func (b *Bot) decodeAddress(w World, word uint16) int {
	switch {
	case word&(1<<9) != 0:
		return (int(b.IP) + int(word%256)) % 256
	case word&(1<<8) != 0:
		return int(word % 256)
	default:
		return int(w.RNG().Uint64() % 256)
	}
}

// decodeCoords resolves the neighbour cell a TEST_* opcode inspects: own
// position offset by decode_rotation(word), passed through the topology.
// The rotation fed to Normalize is irrelevant here since only the folded
// coordinate (not the folded rotation) is used by the caller.
func (b *Bot) decodeCoords(w World, word uint16) (x, y int, ok bool) {
	r := b.decodeRotation(w, word)
	dx, dy := rotation.Offset(r)
	nx, ny, _, ok := w.Normalize(b.X+dx, b.Y+dy, 0)
	return nx, ny, ok
}
