package spectrum

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/spectradex/internal/domain"
)

// Seed is an initial centroid read from a seed file.
type Seed struct {
	Name     string
	Spectrum *Vector
}

// ParseSeed reads a seed file: a name line followed by "<bin>,<intensity>" lines.
// A file with only a name yields a zero vector. Blank lines are skipped.
func ParseSeed(r io.Reader) (Seed, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Seed{}, fmt.Errorf("read seed name: %w", err)
		}
		return Seed{}, fmt.Errorf("%w: empty seed file", domain.ErrMalformedSeed)
	}
	seed := Seed{Name: strings.TrimSpace(sc.Text()), Spectrum: New()}

	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		p, err := parsePeak(text)
		if err != nil {
			return Seed{}, fmt.Errorf("%w: line %d: %w", domain.ErrMalformedSeed, line, err)
		}
		if err := seed.Spectrum.Add(p.Bin, p.Intensity); err != nil {
			return Seed{}, fmt.Errorf("%w: line %d: %w", domain.ErrMalformedSeed, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Seed{}, fmt.Errorf("read seed %q: %w", seed.Name, err)
	}
	return seed, nil
}

// ParseSeedString is ParseSeed over an in-memory seed file.
func ParseSeedString(s string) (Seed, error) {
	return ParseSeed(strings.NewReader(s))
}

func parsePeak(text string) (Peak, error) {
	binStr, valStr, ok := strings.Cut(text, ",")
	if !ok {
		return Peak{}, fmt.Errorf("expected <bin>,<intensity>, got %q", text)
	}
	bin, err := strconv.Atoi(strings.TrimSpace(binStr))
	if err != nil {
		return Peak{}, fmt.Errorf("bin %q: %w", binStr, err)
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
	if err != nil {
		return Peak{}, fmt.Errorf("intensity %q: %w", valStr, err)
	}
	return Peak{Bin: bin, Intensity: val}, nil
}
