// Package species implements the shared bytecode-plus-colour identity of a
// bot lineage: a 256-word genome interpreted by the bot VM, and a 24-bit
// RGB colour used purely for display. Species is immutable by convention —
// callers never mutate a *Species in place, they derive a new one.
package species

import "math"

// GenomeLength is the fixed number of 16-bit instruction words in a genome.
const GenomeLength = 256

// Species is the shared genetic identity of a bot lineage. Multiple bots
// may reference the same *Species; ownership is by sharing, not by value.
type Species struct {
	// Colour channels, alpha always 0xFF. The serialize package packs them
	// as 0xRRGGBBAA, matching SFML's Color::toInteger order.
	R, G, B, A uint8
	Genome     [GenomeLength]uint16
	// Epoch is the Field tick at which this species was minted: 0 for a
	// species minted by Random (typically before any tick has run), or the
	// Field's current epoch for a species minted by Mutant.
	Epoch int
}

// source is the minimal RNG surface species needs; satisfied by *mtrand.Rand.
type source interface {
	Uint64() uint64
	Float64() float64
}

// Random creates a new species with a uniformly random colour (opaque
// alpha) and genome. Epoch starts at 0: Random mints founder species,
// called before any tick has run.
func Random(rng source) *Species {
	s := &Species{
		R:     uint8(rng.Uint64()),
		G:     uint8(rng.Uint64()),
		B:     uint8(rng.Uint64()),
		A:     0xFF,
		Epoch: 0,
	}
	for i := range s.Genome {
		s.Genome[i] = uint16(rng.Uint64())
	}
	return s
}

// Mutant derives a mutant of s: each gene independently mutates with
// probability p, in which case it is replaced with a fresh random word and
// each colour channel nudges by ±1 (saturating at 0/255) per the rule in
// spec.md §4.2. epoch biases the red channel's up/down draw via
// sin(epoch/100) and, if a new lineage is allocated, is stamped onto its
// Epoch field. If no gene mutates, Mutant returns s itself (the
// no-mutation fast path) rather than allocating.
func Mutant(s *Species, rng source, epoch int, p float64) *Species {
	var mutant *Species
	biasR := math.Sin(float64(epoch)/100)/2 + 0.5

	for i := 0; i < GenomeLength; i++ {
		if rng.Float64() >= p {
			continue
		}
		if mutant == nil {
			clone := *s
			clone.Epoch = epoch
			mutant = &clone
		}

		mutant.Genome[i] = uint16(rng.Uint64())

		if rng.Float64() < biasR {
			if mutant.R != 0xFF {
				mutant.R++
			}
		} else if mutant.R != 0 {
			mutant.R--
		}

		biasG := float64(mutant.Genome[i]%16) / 16
		if rng.Float64() < biasG {
			if mutant.G != 0xFF {
				mutant.G++
			}
		} else if mutant.G != 0 {
			mutant.G--
		}

		biasB := float64(i) / 255
		if rng.Float64() < biasB {
			if mutant.B != 0xFF {
				mutant.B++
			}
		} else if mutant.B != 0 {
			mutant.B--
		}
	}

	if mutant == nil {
		return s
	}
	return mutant
}

// Difference counts the gene indices where a and b differ.
func Difference(a, b *Species) int {
	diff := 0
	for i := 0; i < GenomeLength; i++ {
		if a.Genome[i] != b.Genome[i] {
			diff++
		}
	}
	return diff
}

// Gene returns gene i, 0 <= i < GenomeLength.
func (s *Species) Gene(i int) uint16 {
	return s.Genome[i]
}
