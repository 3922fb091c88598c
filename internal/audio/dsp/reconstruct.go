package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// Reconstruct turns a modified spectrum back into time-domain samples and
// returns them with the working frame that was inverted.
//
// Outside ECG mode the spectrum is inverted as is; when quantize is set the
// samples are rounded to the 16-bit integer amplitude grid. In ECG mode only
// the magnitude of spectrum is kept and the phase is taken from original, and
// the samples keep full floating-point precision.
func Reconstruct(spectrum []complex128, original *Frame, mode domain.Mode, quantize bool) ([]float64, *Frame, error) {
	if original == nil {
		return nil, nil, domain.ErrNoSignalLoaded
	}
	if len(spectrum) != len(original.Spectrum) {
		return nil, nil, fmt.Errorf("%w: %d bins, original has %d", domain.ErrSpectrumLength, len(spectrum), len(original.Spectrum))
	}

	var (
		inverted []complex128
		phase    []float64
	)
	if mode == domain.ModeECG {
		inverted = make([]complex128, len(spectrum))
		for i, c := range spectrum {
			inverted[i] = cmplx.Rect(cmplx.Abs(c), original.Phase[i])
		}
		phase = append([]float64(nil), original.Phase...)
	} else {
		inverted = append([]complex128(nil), spectrum...)
		phase = Phases(inverted)
	}

	samples, err := Inverse(inverted, original.SampleCount)
	if err != nil {
		return nil, nil, err
	}
	if !finiteReal(samples) {
		return nil, nil, fmt.Errorf("%w: reconstructed samples are not finite", domain.ErrNumericDegeneracy)
	}
	if quantize && mode != domain.ModeECG {
		QuantizeInt16(samples)
	}

	working := &Frame{
		Frequencies:     append([]float64(nil), original.Frequencies...),
		Spectrum:        inverted,
		Phase:           phase,
		SampleCount:     original.SampleCount,
		SampleRate:      original.SampleRate,
		FrequencySpread: original.FrequencySpread,
	}
	return samples, working, nil
}

// QuantizeInt16 rounds samples in place to the nearest integer within the
// int16 range.
func QuantizeInt16(samples []float64) {
	for i, v := range samples {
		v = math.Round(v)
		if v > domain.MaxInt16Amplitude {
			v = domain.MaxInt16Amplitude
		} else if v < domain.MinInt16Amplitude {
			v = domain.MinInt16Amplitude
		}
		samples[i] = v
	}
}
