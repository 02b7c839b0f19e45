package bot

import (
	"testing"

	"github.com/pthm-cable/cyberfield/mtrand"
	"github.com/pthm-cable/cyberfield/species"
)

// fakeWorld is a minimal single-cell-aware World used to exercise Decide in
// isolation, without a real Field.
type fakeWorld struct {
	settings Settings
	rng      *mtrand.Rand
	grass    map[[2]int]float64
	organic  map[[2]int]float64
	bots     map[[2]int]*species.Species
	energies map[[2]int]float64
}

func newFakeWorld(seed uint64) *fakeWorld {
	return &fakeWorld{
		settings: DefaultSettings(),
		rng:      mtrand.New(seed),
		grass:    map[[2]int]float64{},
		organic:  map[[2]int]float64{},
		bots:     map[[2]int]*species.Species{},
		energies: map[[2]int]float64{},
	}
}

func (w *fakeWorld) Settings() Settings { return w.settings }
func (w *fakeWorld) RNG() Source        { return w.rng }

func (w *fakeWorld) Normalize(x, y, rotation int) (int, int, int, bool) {
	if x < 0 || x >= 8 || y < 0 || y >= 8 {
		return x, y, rotation, false
	}
	return x, y, rotation, true
}

func (w *fakeWorld) Grass(x, y int) float64         { return w.grass[[2]int{x, y}] }
func (w *fakeWorld) SetGrass(x, y int, v float64)   { w.grass[[2]int{x, y}] = v }
func (w *fakeWorld) Organic(x, y int) float64       { return w.organic[[2]int{x, y}] }
func (w *fakeWorld) SetOrganic(x, y int, v float64) { w.organic[[2]int{x, y}] = v }

func (w *fakeWorld) BotAt(x, y int) (*species.Species, float64, bool) {
	sp, ok := w.bots[[2]int{x, y}]
	if !ok {
		return nil, 0, false
	}
	return sp, w.energies[[2]int{x, y}], true
}

func genomeWith(values ...uint16) *species.Species {
	sp := &species.Species{A: 0xFF}
	for i, v := range values {
		sp.Genome[i] = v
	}
	return sp
}

func TestDecideLifetimeForcesDeath(t *testing.T) {
	s := DefaultSettings()
	b := New(genomeWith(), 1, 1, 0, 100)
	b.Age = s.Lifetime
	d := b.Decide(newFakeWorld(1))
	if d.Action != Die || d.Direction != -1 {
		t.Fatalf("Decide() = %+v, want forced Die", d)
	}
}

func TestDecideMove(t *testing.T) {
	// opcode 1 = MOVE; operand word with bit3 set (absolute rotation) = 2.
	b := New(genomeWith(1, 1<<3|2), 1, 1, 0, 100)
	d := b.Decide(newFakeWorld(1))
	if d.Action != Move || d.Direction != 2 {
		t.Fatalf("Decide() = %+v, want Move dir=2", d)
	}
	if b.IP != 2 {
		t.Fatalf("IP = %d, want 2", b.IP)
	}
	wantEnergy := 100 - DefaultSettings().InstructionCost - 1.0
	if diff := b.Energy - wantEnergy; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Energy = %v, want %v", b.Energy, wantEnergy)
	}
}

func TestDecideDie(t *testing.T) {
	b := New(genomeWith(6), 1, 1, 0, 10)
	d := b.Decide(newFakeWorld(1))
	if d.Action != Die {
		t.Fatalf("Decide() = %+v, want Die", d)
	}
}

func TestDecideEatLongStopsLoop(t *testing.T) {
	b := New(genomeWith(4), 1, 1, 0, 50)
	w := newFakeWorld(1)
	w.SetGrass(1, 1, 100)
	d := b.Decide(w)
	if d.Action != Skip {
		t.Fatalf("Decide() action = %v, want Skip (eat_long)", d.Action)
	}
	if b.Eats != 1 {
		t.Fatalf("Eats = %d, want 1", b.Eats)
	}
	if b.Energy <= 50 {
		t.Fatalf("Energy did not increase from eating: %v", b.Energy)
	}
	if w.Grass(1, 1) >= 100 {
		t.Fatalf("Grass did not decrease from eating: %v", w.Grass(1, 1))
	}
}

func TestDecideMultiplyInsufficientEnergyNoAction(t *testing.T) {
	s := DefaultSettings()
	// A failed MULTIPLY does not stop the loop, so a SKIP at genome[2] ends
	// the tick right after it.
	b := New(genomeWith(7, 1<<3, 5), 1, 1, 0, s.MultiplyCost-1)
	d := b.Decide(newFakeWorld(1))
	if d.Action != Die && d.Action != Skip {
		t.Fatalf("unexpected action %v with insufficient multiply energy", d.Action)
	}
	if b.IP != 3 {
		t.Fatalf("IP = %d, want 3 (multiply always advances by 2, then SKIP by 1)", b.IP)
	}
}

func TestDecideMultiplySucceeds(t *testing.T) {
	s := DefaultSettings()
	b := New(genomeWith(7, 1<<3|3), 1, 1, 0, s.MultiplyCost+10)
	d := b.Decide(newFakeWorld(1))
	if d.Action != Multiply || d.Direction != 3 {
		t.Fatalf("Decide() = %+v, want Multiply dir=3", d)
	}
}

func TestDecideTestEmptyBranches(t *testing.T) {
	// opcode 9 = TEST_EMPTY; IP+1 = jump-if-true target (absolute, bit8),
	// IP+2 = jump-if-false target (absolute, bit8), IP+3 = coords word
	// (rotation 0 -> offset (0,1), absolute via bit3). A test opcode does not
	// stop the loop, so both targets hold a SKIP that ends the tick.
	trueTarget := uint16(1<<8 | 10)
	falseTarget := uint16(1<<8 | 20)
	coordsWord := uint16(1<<3 | 0)
	sp := genomeWith(9, trueTarget, falseTarget, coordsWord)
	sp.Genome[10] = 5
	sp.Genome[20] = 5
	b := New(sp, 1, 1, 0, 50)
	w := newFakeWorld(1)
	d := b.Decide(w)
	_ = d
	if b.IP != 11 {
		t.Fatalf("IP = %d, want 11 (neighbour empty: jump to 10, then SKIP)", b.IP)
	}

	b2 := New(sp, 1, 1, 0, 50)
	w2 := newFakeWorld(1)
	w2.bots[[2]int{1, 2}] = &species.Species{A: 0xFF}
	b2.Decide(w2)
	if b2.IP != 21 {
		t.Fatalf("IP = %d, want 21 (neighbour occupied: jump to 20, then SKIP)", b2.IP)
	}
}

func TestUseEnergyClampsAtZero(t *testing.T) {
	b := New(genomeWith(), 0, 0, 0, 0.05)
	released := b.useEnergy(0.1, 0.5)
	if b.Energy != 0 {
		t.Fatalf("Energy = %v, want 0", b.Energy)
	}
	if diff := released - 0.025; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("released = %v, want 0.025", released)
	}
}
