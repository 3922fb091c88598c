package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreset(t *testing.T) {
	tests := []struct {
		name    string
		preset  string
		gains   []float64
		wantErr bool
	}{
		{
			name:    "Valid preset",
			preset:  "Quiet dogs",
			gains:   []float64{0, 1, 1, 1},
			wantErr: false,
		},
		{
			name:    "Name is trimmed",
			preset:  "  Bass  ",
			gains:   []float64{2, 1, 1, 1},
			wantErr: false,
		},
		{
			name:    "Blank name",
			preset:  "   ",
			gains:   []float64{1},
			wantErr: true,
		},
		{
			name:    "No gains",
			preset:  "Empty",
			gains:   nil,
			wantErr: true,
		},
		{
			name:    "Negative gain",
			preset:  "Negative",
			gains:   []float64{-1},
			wantErr: true,
		},
		{
			name:    "NaN gain",
			preset:  "NaN",
			gains:   []float64{math.NaN()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, err := NewPreset(tt.preset, ModeAnimals, WindowHamming, tt.gains)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPreset)
				assert.Nil(t, preset)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, preset.ID)
				assert.Equal(t, "animals", preset.Mode)
				assert.Equal(t, "hamming", preset.Window)
				assert.NotZero(t, preset.CreatedAt)
				assert.Equal(t, strings.TrimSpace(tt.preset), preset.Name)
			}
		})
	}
}

func TestPreset_Settings(t *testing.T) {
	preset, err := NewPreset("Guitar", ModeMusic, WindowGaussian, []float64{1, 0, 1, 1})
	require.NoError(t, err)

	mode, window, err := preset.Settings()
	require.NoError(t, err)
	assert.Equal(t, ModeMusic, mode)
	assert.Equal(t, WindowGaussian, window)

	preset.Mode = "speech"
	_, _, err = preset.Settings()
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestPreset_Clone(t *testing.T) {
	preset, err := NewPreset("Clone", ModeUniform, WindowRectangle, []float64{1, 2})
	require.NoError(t, err)

	clone := preset.Clone()
	clone.Gains[0] = 5
	assert.Equal(t, 1.0, preset.Gains[0])
	assert.Equal(t, preset.ID, clone.ID)
}

func TestBand(t *testing.T) {
	band, err := NewBand(200, 500, "Guitar")
	require.NoError(t, err)
	assert.Equal(t, NeutralGain, band.Gain)
	assert.True(t, band.Contains(200))
	assert.True(t, band.Contains(500))
	assert.False(t, band.Contains(500.5))
	assert.Equal(t, 300.0, band.Width())

	_, err = NewBand(10, 5, "Inverted")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bypass := Band{Label: "Normal", Bypass: true}
	assert.NoError(t, bypass.Validate())
	assert.False(t, bypass.Contains(0))
	assert.Zero(t, bypass.Width())
	assert.Equal(t, "Normal (bypass)", bypass.String())
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("load: %w", ErrInvalidSignal), ErrCodeInvalidSignal},
		{ErrUnknownModeKey, ErrCodeUnknownModeKey},
		{fmt.Errorf("%w: 7 of 4", ErrBandIndexOutOfRange), ErrCodeBandIndex},
		{ErrSpectrumLength, ErrCodeNumericDegeneracy},
		{ErrPresetNotFound, ErrCodeNotFound},
		{ErrAlreadyExists, ErrCodeAlreadyExists},
		{ErrInvalidGain, ErrCodeInvalidInput},
		{ErrAudioDeviceNotFound, ErrCodeAudioDevice},
		{ErrFileAccessDenied, ErrCodeFileSystem},
		{NewDomainError("CUSTOM", "custom", nil), "CUSTOM"},
		{errors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
