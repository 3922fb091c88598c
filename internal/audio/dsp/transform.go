package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// Frame is the frequency-domain view of a signal. Frequencies, Spectrum and
// Phase always have SampleCount/2+1 entries. Frames are never modified after
// they are published.
type Frame struct {
	Frequencies []float64
	Spectrum    []complex128
	Phase       []float64

	// SampleCount is the length of the time-domain signal the frame was
	// computed from. The inverse transform is sized from it.
	SampleCount int
	SampleRate  float64

	// FrequencySpread is the population standard deviation of Frequencies.
	FrequencySpread float64
}

// BinCount returns the number of frequency bins for n samples.
func BinCount(n int) int {
	return n/2 + 1
}

// Forward computes the real discrete Fourier transform of sig.
func Forward(sig *domain.Signal) (*Frame, error) {
	if sig == nil || sig.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to transform", domain.ErrInvalidSignal)
	}

	n := sig.Len()
	fs := sig.SampleRate()
	coeffs := fourier.NewFFT(n).Coefficients(nil, sig.Samples())

	freqs := make([]float64, len(coeffs))
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(n)
	}

	return &Frame{
		Frequencies:     freqs,
		Spectrum:        coeffs,
		Phase:           Phases(coeffs),
		SampleCount:     n,
		SampleRate:      fs,
		FrequencySpread: math.Sqrt(stat.PopVariance(freqs, nil)),
	}, nil
}

// Inverse computes the real inverse transform of spectrum, producing exactly
// sampleCount samples.
func Inverse(spectrum []complex128, sampleCount int) ([]float64, error) {
	if sampleCount <= 0 {
		return nil, fmt.Errorf("%w: sample count %d", domain.ErrInvalidParameter, sampleCount)
	}
	if len(spectrum) != BinCount(sampleCount) {
		return nil, fmt.Errorf("%w: %d bins for %d samples", domain.ErrSpectrumLength, len(spectrum), sampleCount)
	}

	// Sequence may use coeff as scratch space.
	coeffs := append([]complex128(nil), spectrum...)
	seq := fourier.NewFFT(sampleCount).Sequence(nil, coeffs)

	scale := 1 / float64(sampleCount)
	for i := range seq {
		seq[i] *= scale
	}
	return seq, nil
}

// Phases returns the angle of every bin.
func Phases(spectrum []complex128) []float64 {
	phase := make([]float64, len(spectrum))
	for i, c := range spectrum {
		phase[i] = math.Atan2(imag(c), real(c))
	}
	return phase
}

// Magnitudes returns |X| for every bin.
func Magnitudes(spectrum []complex128) []float64 {
	mags := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

// MagnitudeDB returns 20*log10|X| for every bin. Empty bins map to -Inf.
func MagnitudeDB(spectrum []complex128) []float64 {
	db := make([]float64, len(spectrum))
	for i, c := range spectrum {
		db[i] = 20 * math.Log10(cmplx.Abs(c))
	}
	return db
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Frequencies:     append([]float64(nil), f.Frequencies...),
		Spectrum:        append([]complex128(nil), f.Spectrum...),
		Phase:           append([]float64(nil), f.Phase...),
		SampleCount:     f.SampleCount,
		SampleRate:      f.SampleRate,
		FrequencySpread: f.FrequencySpread,
	}
}

// MaxFrequency returns the highest frequency on the axis.
func (f *Frame) MaxFrequency() float64 {
	if len(f.Frequencies) == 0 {
		return 0
	}
	return f.Frequencies[len(f.Frequencies)-1]
}

// BinRange returns the half-open index range [lo, hi) of bins whose frequency
// lies within the inclusive range [lower, upper].
func (f *Frame) BinRange(lower, upper float64) (lo, hi int) {
	return binRange(f.Frequencies, lower, upper)
}

func finiteComplex(values []complex128) bool {
	for _, c := range values {
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			return false
		}
	}
	return true
}

func finiteReal(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
