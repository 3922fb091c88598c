package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// Defaults match the segment layout of the plots the studio renders.
const (
	DefaultSpectrogramNFFT    = 256
	DefaultSpectrogramOverlap = 128
)

// minPower keeps silent segments finite on the dB scale.
const minPower = 1e-20

// SpectrogramData holds a power spectral density per time segment, in dB.
// Power[t][k] is the level of bin k in segment t.
type SpectrogramData struct {
	Times       []float64
	Frequencies []float64
	Power       [][]float64
}

// Spectrogram computes a short-time power spectrum of sig using Hann-windowed
// segments of nfft samples overlapping by overlap samples. Signals shorter than
// one segment are zero-padded.
func Spectrogram(sig *domain.Signal, nfft, overlap int) (*SpectrogramData, error) {
	if sig == nil || sig.Len() == 0 {
		return nil, domain.ErrNoSignalLoaded
	}
	if nfft < 2 {
		return nil, fmt.Errorf("%w: nfft %d", domain.ErrInvalidParameter, nfft)
	}
	if overlap < 0 || overlap >= nfft {
		return nil, fmt.Errorf("%w: overlap %d for nfft %d", domain.ErrInvalidParameter, overlap, nfft)
	}

	samples := sig.Samples()
	if len(samples) < nfft {
		padded := make([]float64, nfft)
		copy(padded, samples)
		samples = padded
	}

	fs := sig.SampleRate()
	win := window.Hann(nfft)
	winPower := 0.0
	for _, w := range win {
		winPower += w * w
	}
	// One-sided density, matching the usual psd scaling.
	scale := 1 / (fs * winPower)

	bins := BinCount(nfft)
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(nfft)
	}

	step := nfft - overlap
	segments := (len(samples)-nfft)/step + 1
	data := &SpectrogramData{
		Times:       make([]float64, segments),
		Frequencies: freqs,
		Power:       make([][]float64, segments),
	}

	segment := make([]float64, nfft)
	for t := 0; t < segments; t++ {
		start := t * step
		for i := range segment {
			segment[i] = samples[start+i] * win[i]
		}
		coeffs := fft.FFTReal(segment)

		row := make([]float64, bins)
		for k := range row {
			mag := cmplx.Abs(coeffs[k])
			p := mag * mag * scale
			if k > 0 && !(nfft%2 == 0 && k == bins-1) {
				p *= 2
			}
			row[k] = 10 * math.Log10(math.Max(p, minPower))
		}
		data.Power[t] = row
		data.Times[t] = (float64(start) + float64(nfft)/2) / fs
	}
	return data, nil
}

// PeakFrequency returns the frequency of the loudest bin averaged over all
// segments.
func (s *SpectrogramData) PeakFrequency() float64 {
	if len(s.Power) == 0 {
		return 0
	}
	best, bestLevel := 0, math.Inf(-1)
	for k := range s.Frequencies {
		level := 0.0
		for t := range s.Power {
			level += s.Power[t][k]
		}
		if level > bestLevel {
			best, bestLevel = k, level
		}
	}
	return s.Frequencies[best]
}
