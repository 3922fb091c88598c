package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "EqStudio", cfg.App.Name)
	assert.Equal(t, "default", cfg.Audio.OutputDevice)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 8192, cfg.Audio.BufferSize)
	assert.Equal(t, 2048, cfg.Audio.ChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Audio.Latency)
	assert.Equal(t, 0.8, cfg.Audio.Volume)
	assert.Equal(t, "animals", cfg.Equalizer.Mode)
	assert.Equal(t, "rectangle", cfg.Equalizer.Window)
	assert.Empty(t, cfg.Equalizer.ECGKey)
	assert.Equal(t, 2.0, cfg.Equalizer.MaxGain)
	assert.Equal(t, 360.0, cfg.Import.CSVSampleRate)
	assert.Equal(t, 256, cfg.Spectrogram.NFFT)
	assert.Equal(t, 128, cfg.Spectrogram.Overlap)
	assert.True(t, cfg.Presets.Enabled)
	assert.Equal(t, "presets.db", filepath.Base(cfg.Presets.DatabasePath))
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
audio:
  sample_rate: 48000
  latency: 20ms
equalizer:
  mode: ecg
  window: gaussian
  ecg_key: Abnormality 2
import:
  csv_sample_rate: 500
presets:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 20*time.Millisecond, cfg.Audio.Latency)
	assert.Equal(t, "ecg", cfg.Equalizer.Mode)
	assert.Equal(t, "gaussian", cfg.Equalizer.Window)
	assert.Equal(t, "Abnormality 2", cfg.Equalizer.ECGKey)
	assert.Equal(t, 500.0, cfg.Import.CSVSampleRate)
	assert.False(t, cfg.Presets.Enabled)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 2048, cfg.Audio.ChunkSize)
	assert.Equal(t, 256, cfg.Spectrogram.NFFT)
	assert.Equal(t, "gaussian", cfg.GetString("equalizer.window"))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"Zero sample rate", "audio.sample_rate", 0},
		{"Chunk larger than buffer", "audio.chunk_size", 16384},
		{"Zero chunk", "audio.chunk_size", 0},
		{"Volume above one", "audio.volume", 1.5},
		{"Negative max gain", "equalizer.max_gain", -1.0},
		{"Zero CSV rate", "import.csv_sample_rate", 0.0},
		{"Tiny nfft", "spectrogram.nfft", 1},
		{"Overlap not below nfft", "spectrogram.overlap", 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Set(tt.key, tt.value)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAs(t *testing.T) {
	cfg := New()
	cfg.Set("equalizer.mode", "music")

	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	require.NoError(t, cfg.SaveAs(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "music", loaded.Equalizer.Mode)
	assert.Equal(t, 0.8, loaded.GetFloat64("audio.volume"))
}
