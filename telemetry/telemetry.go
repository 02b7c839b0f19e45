// Package telemetry samples a Field's population and bot energy at a
// fixed tick cadence, tracks genetic diversity, and exports the resulting
// history as CSV, in the teacher's stats/output-manager shape
// (_examples/pthm-soup/telemetry).
package telemetry

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/cyberfield/field"
	"github.com/pthm-cable/cyberfield/species"
)

// Sample is one row of recorded history: population and energy summary
// statistics plus a genetic-diversity snapshot for the tick it was taken at.
type Sample struct {
	Epoch           int     `csv:"epoch"`
	Population      int     `csv:"population"`
	TotalEnergy     float64 `csv:"total_energy"`
	MeanEnergy      float64 `csv:"mean_energy"`
	EnergyStdDev    float64 `csv:"energy_stddev"`
	DistinctSpecies int     `csv:"distinct_species"`
	MeanDifference  float64 `csv:"mean_genetic_difference"`
}

// LogValue implements slog.LogValuer so a Sample can be passed directly to
// a slog call.
func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("epoch", s.Epoch),
		slog.Int("population", s.Population),
		slog.Float64("total_energy", s.TotalEnergy),
		slog.Float64("mean_energy", s.MeanEnergy),
		slog.Float64("energy_stddev", s.EnergyStdDev),
		slog.Int("distinct_species", s.DistinctSpecies),
		slog.Float64("mean_genetic_difference", s.MeanDifference),
	)
}

// Recorder accumulates Samples taken every SampleEvery ticks, bounded to
// HistoryCap entries (oldest dropped first).
type Recorder struct {
	sampleEvery int
	historyCap  int
	history     []Sample
}

// NewRecorder builds a Recorder. sampleEvery <= 0 samples every tick;
// historyCap <= 0 means unbounded history.
func NewRecorder(sampleEvery, historyCap int) *Recorder {
	if sampleEvery <= 0 {
		sampleEvery = 1
	}
	return &Recorder{sampleEvery: sampleEvery, historyCap: historyCap}
}

// History returns the recorded samples, oldest first.
func (r *Recorder) History() []Sample {
	return r.history
}

// Sample reports whether f's current epoch is due for sampling, and if so
// takes and records the sample before returning it.
func (r *Recorder) Sample(f *field.Field) (Sample, bool) {
	if f.Epoch()%r.sampleEvery != 0 {
		return Sample{}, false
	}
	s := computeSample(f)
	r.history = append(r.history, s)
	if r.historyCap > 0 && len(r.history) > r.historyCap {
		r.history = r.history[len(r.history)-r.historyCap:]
	}
	return s, true
}

// computeSample walks every live bot once, collecting energies and a
// species-pointer census (distinct lineages currently alive, since Species
// is shared by pointer per spec.md's immutable-by-convention identity) and
// the mean pairwise genetic difference among the first 32 live bots in
// row-major order, mirroring dnesting-alife's census cohort-counting idea without its
// genome-hash step (pointer identity already serves the same purpose here).
func computeSample(f *field.Field) Sample {
	var energies []float64
	seen := make(map[*species.Species]struct{})
	var sampled []*species.Species

	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			c := f.At(x, y)
			if !c.IsAlive() {
				continue
			}
			energies = append(energies, c.Bot.Energy)
			seen[c.Bot.Species] = struct{}{}
			if len(sampled) < 32 {
				sampled = append(sampled, c.Bot.Species)
			}
		}
	}

	s := Sample{
		Epoch:           f.Epoch(),
		Population:      len(energies),
		DistinctSpecies: len(seen),
	}
	if len(energies) > 0 {
		s.MeanEnergy, s.EnergyStdDev = stat.MeanStdDev(energies, nil)
		for _, e := range energies {
			s.TotalEnergy += e
		}
	}
	s.MeanDifference = meanPairwiseDifference(sampled)
	return s
}

func meanPairwiseDifference(sample []*species.Species) float64 {
	if len(sample) < 2 {
		return 0
	}
	var total float64
	var pairs int
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			total += float64(species.Difference(sample[i], sample[j]))
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

// Writer appends Samples to a CSV file, writing the header on the first
// call, in the same incremental-write shape as the teacher's OutputManager.
type Writer struct {
	file          *os.File
	headerWritten bool
}

// NewWriter opens path for writing, truncating any existing file. A nil
// *Writer is returned with no error when path is empty, and all of its
// methods become no-ops, matching the teacher's "disabled when dir is
// empty" convention.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Write appends one sample to the CSV file.
func (w *Writer) Write(s Sample) error {
	if w == nil {
		return nil
	}
	records := []Sample{s}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.file); err != nil {
			return fmt.Errorf("telemetry: writing sample: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.file); err != nil {
		return fmt.Errorf("telemetry: writing sample: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.file.Close()
}
