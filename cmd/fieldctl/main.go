// Command fieldctl runs a headless simulation: load configuration, build a
// Field, advance it for a fixed number of ticks, and report telemetry.
// Interactive rendering and the configuration UI are out of scope (spec.md
// §1 Non-goals); this is the external harness the core's Observer hook
// exists to support.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/pthm-cable/cyberfield/config"
	"github.com/pthm-cable/cyberfield/field"
	"github.com/pthm-cable/cyberfield/serialize"
	"github.com/pthm-cable/cyberfield/telemetry"
	"github.com/pthm-cable/cyberfield/topology"
)

// logObserver logs every bot move and death at debug level, the simplest
// implementation of field.Observer.
type logObserver struct{}

func (logObserver) HandleBotMoved(from, to [2]int) {
	slog.Debug("bot moved", "from", from, "to", to)
}

func (logObserver) HandleBotDied(at [2]int) {
	slog.Debug("bot died", "at", at)
}

func main() {
	configPath := flag.String("config", "", "config YAML file (empty = embedded defaults)")
	ticks := flag.Int("ticks", 1000, "number of ticks to simulate")
	snapshotOut := flag.String("snapshot-out", "", "path to write a newline-delimited bot snapshot at the end of the run")
	csvOut := flag.String("csv-out", "", "path to write telemetry history as CSV (overrides config.Telemetry.CSVPath)")
	quiet := flag.Bool("quiet", false, "suppress per-sample log lines")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg := config.Cfg()

	f, err := field.New(cfg.World.Width, cfg.World.Height, cfg.World.Seed)
	if err != nil {
		log.Fatalf("building field: %v", err)
	}
	f.SetSettings(cfg.Settings)
	f.SetObserver(logObserver{})

	topo, err := topology.New(cfg.Derived.TopologyKind, cfg.World.Width, cfg.World.Height)
	if err != nil {
		log.Fatalf("building topology: %v", err)
	}
	if err := f.SetTopology(topo); err != nil {
		log.Fatalf("setting topology: %v", err)
	}

	f.RandomFill(cfg.World.Density)

	csvPath := cfg.Telemetry.CSVPath
	if *csvOut != "" {
		csvPath = *csvOut
	}
	writer, err := telemetry.NewWriter(csvPath)
	if err != nil {
		log.Fatalf("opening telemetry output: %v", err)
	}
	defer writer.Close()

	recorder := telemetry.NewRecorder(cfg.Telemetry.SampleEvery, cfg.Telemetry.HistoryCap)

	for tick := 0; tick < *ticks; tick++ {
		if sample, ok := recorder.Sample(f); ok {
			if !*quiet {
				slog.Info("tick", "sample", sample)
			}
			if err := writer.Write(sample); err != nil {
				log.Fatalf("writing telemetry: %v", err)
			}
		}
		f.Update()
	}

	if final, ok := recorder.Sample(f); ok {
		slog.Info("final", "sample", final)
		if err := writer.Write(final); err != nil {
			log.Fatalf("writing telemetry: %v", err)
		}
	}

	if *snapshotOut != "" {
		if err := writeSnapshot(f, *snapshotOut); err != nil {
			log.Fatalf("writing snapshot: %v", err)
		}
	}
}

// writeSnapshot serialises every live bot as one line, in the format
// serialize.Decode expects, preceded by its grid position and rotation so
// the snapshot can be reloaded with serialize.PlaceBot.
func writeSnapshot(f *field.Field, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			c := f.At(x, y)
			if !c.IsAlive() {
				continue
			}
			if _, err := fmt.Fprintf(out, "%d %d %d %s\n", x, y, c.Bot.Rotation, serialize.Encode(c.Bot)); err != nil {
				return fmt.Errorf("writing bot at (%d,%d): %w", x, y, err)
			}
		}
	}
	return nil
}
