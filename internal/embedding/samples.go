package embedding

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ramonehamilton/mtga-synergy/internal/labelfile"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

// MaxWeight caps the per-sample weight derived from n11.
const MaxWeight = 1000

// ErrMissingLabelColumns is returned when a labels file lacks card_a, card_b
// or syn_delta.
var ErrMissingLabelColumns = errors.New("labels file needs card_a, card_b and syn_delta columns")

// Sample is one training target.
type Sample struct {
	CardA    uint64
	CardB    uint64
	SynDelta float64
	Weight   float64
}

// LoadSamples reads training samples from a labels file.
func LoadSamples(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer func() { _ = f.Close() }()

	samples, skipped, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log := logging.With("trainer")
	log.Info().
		Int("samples", len(samples)).
		Int("skipped", skipped).
		Str("path", path).
		Msg("loaded training samples")
	return samples, nil
}

// ReadSamples parses a labels CSV. card_a, card_b and syn_delta are required;
// n11, when present, becomes the weight clamped to [1, MaxWeight]. Rows with a
// zero id or an unparsable required field are skipped and counted.
func ReadSamples(r io.Reader) ([]Sample, int, error) {
	var samples []Sample
	skipped := 0
	for row, err := range labelfile.Read(r) {
		switch {
		case errors.Is(err, labelfile.ErrMalformedRow):
			skipped++
			continue
		case errors.Is(err, labelfile.ErrMissingColumn):
			return nil, 0, fmt.Errorf("%w: %w", ErrMissingLabelColumns, err)
		case err != nil:
			return nil, skipped, err
		}

		rec := row.Record
		if rec.CardA == 0 || rec.CardB == 0 {
			skipped++
			continue
		}
		weight := 1.0
		if row.Present("n11") {
			weight = min(max(float64(rec.N11), 1), MaxWeight)
		}
		samples = append(samples, Sample{CardA: rec.CardA, CardB: rec.CardB, SynDelta: rec.SynDelta, Weight: weight})
	}
	return samples, skipped, nil
}
