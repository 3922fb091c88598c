package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignal(t *testing.T) {
	tests := []struct {
		name       string
		samples    []float64
		sampleRate float64
		wantErr    bool
	}{
		{
			name:       "Valid trace",
			samples:    []float64{0, 1, 2, 3},
			sampleRate: 360,
			wantErr:    false,
		},
		{
			name:       "Empty samples",
			samples:    nil,
			sampleRate: 8000,
			wantErr:    true,
		},
		{
			name:       "Zero sample rate",
			samples:    []float64{1},
			sampleRate: 0,
			wantErr:    true,
		},
		{
			name:       "Infinite sample rate",
			samples:    []float64{1},
			sampleRate: math.Inf(1),
			wantErr:    true,
		},
		{
			name:       "NaN sample",
			samples:    []float64{0, math.NaN()},
			sampleRate: 8000,
			wantErr:    true,
		},
		{
			name:       "Infinite sample",
			samples:    []float64{math.Inf(-1)},
			sampleRate: 8000,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewSignal(tt.samples, tt.sampleRate)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignal)
				assert.Nil(t, sig)
			} else {
				require.NoError(t, err)
				assert.Equal(t, len(tt.samples), sig.Len())
				assert.Equal(t, tt.sampleRate, sig.SampleRate())
				assert.False(t, sig.HasAudio())
				assert.Equal(t, 1, sig.Channels())
			}
		})
	}
}

func TestSignal_Immutable(t *testing.T) {
	samples := []float64{1, 2, 3}
	sig, err := NewSignal(samples, 10)
	require.NoError(t, err)

	samples[0] = 99
	assert.Equal(t, 1.0, sig.At(0))

	copied := sig.Samples()
	copied[1] = 99
	assert.Equal(t, 2.0, sig.At(1))
}

func TestSignal_Derive(t *testing.T) {
	sig, err := NewSignal([]float64{1, 2, 3}, 8000, WithAudio(2, 16), WithTitle("tone"))
	require.NoError(t, err)

	out, err := sig.Derive([]float64{4, 5})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 8000.0, out.SampleRate())
	assert.True(t, out.HasAudio())
	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, 16, out.BitDepth())
	assert.Equal(t, "tone", out.Title())
	assert.Equal(t, 3, sig.Len())

	_, err = sig.Derive(nil)
	assert.ErrorIs(t, err, ErrInvalidSignal)
}

func TestSignal_TimeAxis(t *testing.T) {
	sig, err := NewSignal(make([]float64, 4), 4, WithKind(SignalDiscrete))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, sig.Times())
	assert.Equal(t, []float64{0, 0.25}, sig.TimesPrefix(2))
	assert.Len(t, sig.TimesPrefix(10), 4)
	assert.Empty(t, sig.TimesPrefix(-1))
	assert.Equal(t, time.Second, sig.Duration())
	assert.Equal(t, SignalDiscrete, sig.Kind())
	assert.Equal(t, "discrete", sig.Kind().String())
}

func TestSignal_IndexAt(t *testing.T) {
	sig, err := NewSignal(make([]float64, 10), 10)
	require.NoError(t, err)

	assert.Equal(t, 0, sig.IndexAt(-1))
	assert.Equal(t, 3, sig.IndexAt(0.3))
	assert.Equal(t, 9, sig.IndexAt(5))
}

func TestSignal_Peak(t *testing.T) {
	sig, err := NewSignal([]float64{0.5, -3, 2}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.0, sig.Peak())
}
