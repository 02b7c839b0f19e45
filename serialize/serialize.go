// Package serialize implements the single-bot text interchange format
// (spec component C8): one whitespace-separated line encoding a bot's
// instruction pointer, age, and its species (version, packed colour, and
// all 256 genes). Energy, position and rotation are not serialised; the
// load site supplies them.
package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm-cable/cyberfield/bot"
	"github.com/pthm-cable/cyberfield/species"
)

// formatVersion and speciesVersion are both literal 1 in the current wire
// format (spec.md §6: "<1> <ip> <age> <1> <color_u32> <g0> ... <g255>").
const (
	formatVersion  = 1
	speciesVersion = 1
)

// PackColor packs an RGBA colour the way SFML's Color::toInteger does:
// rgba_u32 = (r<<24)|(g<<16)|(b<<8)|a.
func PackColor(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// UnpackColor reverses PackColor.
func UnpackColor(c uint32) (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Encode renders b's IP, age and species as the single-line saved-bot
// format of spec.md §6.
func Encode(b *bot.Bot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d %d %d %d", formatVersion, b.IP, b.Age, speciesVersion, PackColor(b.Species.R, b.Species.G, b.Species.B, b.Species.A))
	for i := 0; i < species.GenomeLength; i++ {
		fmt.Fprintf(&sb, " %d", b.Species.Gene(i))
	}
	return sb.String()
}

// Decoded holds everything Decode can recover from a saved-bot line: the
// instruction pointer, age, and a freshly allocated Species. Energy,
// position and rotation are not part of the format; callers supply them at
// the load site.
type Decoded struct {
	IP      uint8
	Age     int
	Species *species.Species
}

// Decode parses a single-bot line per spec.md §6. Any truncation,
// non-numeric token or unsupported version surfaces as a single "bot load
// failed" error; it never panics on malformed input.
func Decode(line string) (*Decoded, error) {
	fields := strings.Fields(line)
	wantFields := 5 + species.GenomeLength
	if len(fields) != wantFields {
		return nil, fmt.Errorf("bot load failed: expected %d fields, got %d", wantFields, len(fields))
	}

	format, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("bot load failed: invalid format version: %w", err)
	}
	if format != formatVersion {
		return nil, fmt.Errorf("bot load failed: unsupported format version %d", format)
	}
	ip, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("bot load failed: invalid ip: %w", err)
	}
	age, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("bot load failed: invalid age: %w", err)
	}
	version, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("bot load failed: invalid species version: %w", err)
	}
	if version != speciesVersion {
		return nil, fmt.Errorf("bot load failed: unsupported species version %d", version)
	}
	color, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bot load failed: invalid colour: %w", err)
	}

	sp := &species.Species{}
	sp.R, sp.G, sp.B, sp.A = UnpackColor(uint32(color))
	for i := 0; i < species.GenomeLength; i++ {
		gene, err := strconv.ParseUint(fields[5+i], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bot load failed: invalid gene %d: %w", i, err)
		}
		sp.Genome[i] = uint16(gene)
	}

	return &Decoded{IP: uint8(ip), Age: age, Species: sp}, nil
}

// PlaceBot decodes line and installs a fresh bot built from it into the
// given cell via place, at the given position and rotation with energy
// reset to startEnergy — the repo's place-tool behaviour (spec.md §4.8).
// place is typically (*field.Field).At(x,y).Place.
func PlaceBot(line string, place func(*bot.Bot), x, y, rotation int, startEnergy float64) error {
	decoded, err := Decode(line)
	if err != nil {
		return err
	}
	b := bot.New(decoded.Species, x, y, rotation, startEnergy)
	b.IP = decoded.IP
	b.Age = decoded.Age
	place(b)
	return nil
}
