package dsp

import (
	"fmt"
	"math"
	"sort"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// Params is the full set of user-controlled equalizer parameters. It is a
// plain value; the engine copies it in and out.
type Params struct {
	Mode   domain.Mode       `json:"mode"`
	Window domain.WindowKind `json:"window"`
	Gains  []float64         `json:"gains"`
}

// NeutralGains returns n gains at unity.
func NeutralGains(n int) []float64 {
	gains := make([]float64, n)
	for i := range gains {
		gains[i] = domain.NeutralGain
	}
	return gains
}

func (p Params) Clone() Params {
	p.Gains = append([]float64(nil), p.Gains...)
	return p
}

// ValidateGain rejects gains that are negative or not finite.
func ValidateGain(gain float64) error {
	if gain < 0 || math.IsNaN(gain) || math.IsInf(gain, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidGain, gain)
	}
	return nil
}

// EffectiveGain returns the factor a band's window is scaled by. In ECG mode
// the slider reads as suppression: 1 leaves the band alone, 2 removes it and
// 0 doubles it.
func EffectiveGain(mode domain.Mode, gain float64) float64 {
	if mode == domain.ModeECG {
		return math.Max(0, 2-gain)
	}
	return gain
}

// Recompute applies every band's window to a copy of the original spectrum and
// returns the modified spectrum together with the per-bin response (the total
// factor applied to each bin, 1 outside all bands).
//
// Bands are applied in order and in place on the running copy, so bins shared
// by overlapping bands are scaled by the product of their windows. The
// original frame is never written to; identical inputs give bit-identical
// output.
func Recompute(original *Frame, bands []domain.Band, p Params) ([]complex128, []float64, error) {
	if original == nil {
		return nil, nil, domain.ErrNoSignalLoaded
	}
	if len(p.Gains) != len(bands) {
		return nil, nil, fmt.Errorf("%w: %d gains for %d bands", domain.ErrInvalidParameter, len(p.Gains), len(bands))
	}

	spectrum := append([]complex128(nil), original.Spectrum...)
	response := ones(len(spectrum))

	for i, band := range bands {
		if band.Bypass {
			continue
		}
		lo, hi := binRange(original.Frequencies, band.Lower, band.Upper)
		shape, err := Shape(p.Window, hi-lo, EffectiveGain(p.Mode, p.Gains[i]), original.FrequencySpread)
		if err != nil {
			return nil, nil, fmt.Errorf("band %q: %w", band.Label, err)
		}
		for j, w := range shape {
			spectrum[lo+j] *= complex(w, 0)
			response[lo+j] *= w
		}
	}

	if !finiteComplex(spectrum) {
		return nil, nil, fmt.Errorf("%w: modified spectrum is not finite", domain.ErrNumericDegeneracy)
	}
	return spectrum, response, nil
}

// binRange returns [lo, hi) over an ascending axis for the inclusive range
// [lower, upper]. An inverted or empty range yields lo == hi.
func binRange(freqs []float64, lower, upper float64) (int, int) {
	lo := sort.SearchFloat64s(freqs, lower)
	hi := sort.Search(len(freqs), func(i int) bool { return freqs[i] > upper })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
