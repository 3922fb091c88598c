package dsp

import (
	"fmt"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// UniformBandCount is the number of equal-width bands in uniform mode.
const UniformBandCount = 10

type bandSpec struct {
	lower, upper float64
	label        string
}

var animalBands = []bandSpec{
	{0, 450, "Dogs"},
	{450, 1100, "Wolves"},
	{1100, 3000, "Crow"},
	{3000, 9000, "Bat"},
}

// Guitar and Violin overlap between 400 and 500 Hz.
var musicBands = []bandSpec{
	{0, 200, "Kalimba"},
	{200, 500, "Guitar"},
	{400, 800, "Violin"},
	{800, 2200, "Piccolo"},
}

var ecgLabels = []string{"Abnormality 1", "Abnormality 2", "Abnormality 3", "Normal"}

// Frequency ranges that carry each abnormality's signature.
var ecgSignatures = map[domain.ECGKey][][2]float64{
	domain.ECGAbnormality1: {{0, 5}, {5, 7}, {7, 9}, {120, 180}},
	domain.ECGAbnormality2: {{0, 1}, {1, 10}, {12, 14}, {120, 180}},
	domain.ECGAbnormality3: {{0, 1}, {1, 3}, {3, 12}, {120, 180}},
}

// BandCount returns the number of bands a mode exposes.
func BandCount(mode domain.Mode) int {
	switch mode {
	case domain.ModeAnimals:
		return len(animalBands)
	case domain.ModeMusic:
		return len(musicBands)
	case domain.ModeUniform:
		return UniformBandCount
	case domain.ModeECG:
		return len(ecgLabels)
	default:
		return 0
	}
}

// Partition returns the ordered bands for mode, every band at neutral gain.
// maxFrequency is the top of the loaded signal's frequency axis and is only
// used by uniform mode; key is only used by ECG mode.
//
// An ECG key without a signature yields bypassed bands together with
// ErrUnknownModeKey, so callers may keep running with a no-op partition.
func Partition(mode domain.Mode, key domain.ECGKey, maxFrequency float64) ([]domain.Band, error) {
	switch mode {
	case domain.ModeAnimals:
		return fromSpecs(animalBands), nil
	case domain.ModeMusic:
		return fromSpecs(musicBands), nil
	case domain.ModeUniform:
		return UniformBands(maxFrequency, UniformBandCount), nil
	case domain.ModeECG:
		return ecgBands(key)
	default:
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownMode, int(mode))
	}
}

// UniformBands splits [0, maxFrequency] into count equal-width bands.
func UniformBands(maxFrequency float64, count int) []domain.Band {
	if maxFrequency < 0 {
		maxFrequency = 0
	}
	width := maxFrequency / float64(count)
	bands := make([]domain.Band, count)
	for i := range bands {
		upper := float64(i+1) * width
		if i == count-1 {
			upper = maxFrequency
		}
		bands[i] = domain.Band{
			Lower: float64(i) * width,
			Upper: upper,
			Gain:  domain.NeutralGain,
			Label: fmt.Sprintf("Range %d", i+1),
		}
	}
	return bands
}

func ecgBands(key domain.ECGKey) ([]domain.Band, error) {
	bands := make([]domain.Band, len(ecgLabels))
	for i, label := range ecgLabels {
		bands[i] = domain.Band{Gain: domain.NeutralGain, Label: label, Bypass: true}
	}

	if key == domain.ECGNormal {
		return bands, nil
	}
	ranges, ok := ecgSignatures[key]
	if !ok {
		return bands, fmt.Errorf("%w: %q", domain.ErrUnknownModeKey, string(key))
	}
	for i, r := range ranges {
		bands[i].Lower = r[0]
		bands[i].Upper = r[1]
		bands[i].Bypass = false
	}
	return bands, nil
}

func fromSpecs(specs []bandSpec) []domain.Band {
	bands := make([]domain.Band, len(specs))
	for i, s := range specs {
		bands[i] = domain.Band{Lower: s.lower, Upper: s.upper, Gain: domain.NeutralGain, Label: s.label}
	}
	return bands
}

// Labels returns the slider labels of bands.
func Labels(bands []domain.Band) []string {
	labels := make([]string, len(bands))
	for i, b := range bands {
		labels[i] = b.Label
	}
	return labels
}
