package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqstudio/eqstudio/internal/domain"
)

func TestReconstruct_PreservesLength(t *testing.T) {
	for _, n := range []int{16, 17, 999} {
		frame, err := Forward(sine(t, n, 100, 1, 7))
		require.NoError(t, err)

		for _, mode := range domain.Modes() {
			samples, working, err := Reconstruct(frame.Spectrum, frame, mode, false)
			require.NoError(t, err)
			assert.Len(t, samples, n)
			assert.Equal(t, n, working.SampleCount)
			assert.Len(t, working.Spectrum, BinCount(n))
		}
	}
}

func TestReconstruct_Quantize(t *testing.T) {
	sig := sine(t, 64, 64, 1000.3, 4)
	frame, err := Forward(sig)
	require.NoError(t, err)

	samples, _, err := Reconstruct(frame.Spectrum, frame, domain.ModeMusic, true)
	require.NoError(t, err)
	for i, v := range samples {
		assert.Equal(t, math.Round(v), v, "sample %d is on the integer grid", i)
		assert.InDelta(t, sig.At(i), v, 0.5+1e-9)
	}

	// ECG output keeps full precision regardless.
	samples, _, err = Reconstruct(frame.Spectrum, frame, domain.ModeECG, true)
	require.NoError(t, err)
	for i, v := range samples {
		assert.InDelta(t, sig.At(i), v, 1e-6)
	}
}

func TestReconstruct_ECGKeepsOriginalPhase(t *testing.T) {
	frame, err := Forward(sine(t, 360, 360, 1, 2, 30, 150))
	require.NoError(t, err)

	// Rotate every bin; ECG reconstruction must discard the new phase.
	modified := make([]complex128, len(frame.Spectrum))
	for i, c := range frame.Spectrum {
		modified[i] = c * cmplx.Rect(0.5, 1.0)
	}

	samples, working, err := Reconstruct(modified, frame, domain.ModeECG, false)
	require.NoError(t, err)
	assert.Equal(t, frame.Phase, working.Phase)

	for i, c := range working.Spectrum {
		assert.InDelta(t, cmplx.Abs(modified[i]), cmplx.Abs(c), 1e-9)
	}

	// Halving every magnitude with the phase restored halves the trace.
	want := sine(t, 360, 360, 0.5, 2, 30, 150)
	for i, v := range samples {
		assert.InDelta(t, want.At(i), v, 1e-9)
	}
}

func TestReconstruct_NonECGUsesModifiedPhase(t *testing.T) {
	frame, err := Forward(sine(t, 32, 32, 1, 3))
	require.NoError(t, err)

	modified := make([]complex128, len(frame.Spectrum))
	for i, c := range frame.Spectrum {
		modified[i] = -c
	}

	samples, working, err := Reconstruct(modified, frame, domain.ModeUniform, false)
	require.NoError(t, err)
	assert.Equal(t, Phases(modified), working.Phase)
	want, err := Inverse(frame.Spectrum, frame.SampleCount)
	require.NoError(t, err)
	for i, v := range samples {
		assert.InDelta(t, -want[i], v, 1e-9)
	}
}

func TestReconstruct_Errors(t *testing.T) {
	frame, err := Forward(sine(t, 16, 16, 1, 2))
	require.NoError(t, err)

	_, _, err = Reconstruct(frame.Spectrum, nil, domain.ModeMusic, false)
	assert.ErrorIs(t, err, domain.ErrNoSignalLoaded)

	_, _, err = Reconstruct(frame.Spectrum[:3], frame, domain.ModeMusic, false)
	assert.ErrorIs(t, err, domain.ErrSpectrumLength)
}

func TestQuantizeInt16(t *testing.T) {
	samples := []float64{0.4, 0.5, -0.5, 1.6, 40000, -40000, 32767.4, -32768.4}
	QuantizeInt16(samples)
	assert.Equal(t, []float64{0, 1, -1, 2, 32767, -32768, 32767, -32768}, samples)
}
