package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eqstudio/eqstudio/internal/audio"
	"github.com/eqstudio/eqstudio/internal/audio/decoder"
	"github.com/eqstudio/eqstudio/internal/audio/dsp"
	"github.com/eqstudio/eqstudio/internal/audio/output"
	"github.com/eqstudio/eqstudio/internal/config"
	"github.com/eqstudio/eqstudio/internal/domain"
	"github.com/eqstudio/eqstudio/internal/infrastructure/db"
	"github.com/eqstudio/eqstudio/internal/logger"
)

// Which signal a playback or analysis call refers to.
const (
	SourceInput  = "input"
	SourceOutput = "output"
)

// App struct
type App struct {
	ctx        context.Context
	config     *config.Config
	engine     *dsp.Engine
	player     *audio.Player
	decoders   *decoder.DecoderFactory
	database   *db.Database
	presetRepo domain.PresetRepository
}

// NewApp wires the engine, decoders and player from configuration
func NewApp(cfg *config.Config) (*App, error) {
	mode, err := domain.ParseMode(cfg.Equalizer.Mode)
	if err != nil {
		return nil, fmt.Errorf("equalizer.mode: %w", err)
	}
	window, err := domain.ParseWindowKind(cfg.Equalizer.Window)
	if err != nil {
		return nil, fmt.Errorf("equalizer.window: %w", err)
	}

	playerCfg := audio.PlayerConfig{
		DeviceID:   cfg.Audio.OutputDevice,
		SampleRate: cfg.Audio.SampleRate,
		ChunkSize:  cfg.Audio.ChunkSize,
		Latency:    cfg.Audio.Latency,
		Volume:     cfg.Audio.Volume,
	}

	return &App{
		config: cfg,
		engine: dsp.NewEngine(
			dsp.WithMode(mode),
			dsp.WithWindow(window),
			dsp.WithMaxGain(cfg.Equalizer.MaxGain),
		),
		player:   audio.NewPlayer(output.NewOtoDeviceManager(cfg.Audio.BufferSize), playerCfg),
		decoders: decoder.NewDecoderFactory(decoder.WithCSVSampleRate(cfg.Import.CSVSampleRate)),
	}, nil
}

// startup opens the preset store and hooks player events
func (a *App) startup(ctx context.Context) error {
	a.ctx = ctx

	if a.config.Presets.Enabled {
		dbConfig := db.DefaultConfig()
		dbConfig.Path = a.config.Presets.DatabasePath
		database, err := db.Open(dbConfig)
		if err != nil {
			return fmt.Errorf("failed to open preset store: %w", err)
		}
		a.database = database
		a.presetRepo = db.NewPresetRepository(database)
	}

	a.player.AddListener(func(event audio.PlayerEvent, data interface{}) {
		a.handlePlayerEvent(event, data)
	})

	logger.Info("EqStudio started")
	return nil
}

// shutdown releases the player and the preset store
func (a *App) shutdown() {
	if a.player != nil {
		a.player.Close()
	}
	if a.database != nil {
		a.database.Close()
	}
	logger.Info("EqStudio shutdown")
}

// Signal Methods

// ImportFile decodes path and loads it into the engine. For ECG traces an
// empty key is taken from the file name, as recordings are named after the
// abnormality they carry.
func (a *App) ImportFile(path, key string) (*dsp.Snapshot, error) {
	sig, err := a.decoders.LoadSignal(path)
	if err != nil {
		return nil, err
	}

	ecgKey, err := a.resolveKey(path, key)
	if err != nil {
		return nil, err
	}

	snap, err := a.engine.Load(sig, ecgKey)
	if snap == nil {
		return nil, err
	}
	if loadErr := a.player.Load(sig); loadErr != nil {
		return nil, loadErr
	}
	return snap, err
}

func (a *App) resolveKey(path, key string) (domain.ECGKey, error) {
	if key == "" {
		key = a.config.Equalizer.ECGKey
	}
	if key != "" {
		return domain.ParseECGKey(key)
	}
	if a.engine.Params().Mode != domain.ModeECG {
		return "", nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if k, err := domain.ParseECGKey(stem); err == nil {
		return k, nil
	}
	return "", nil
}

// Equalizer Methods

func (a *App) SetMode(name string) (*dsp.Snapshot, error) {
	mode, err := domain.ParseMode(name)
	if err != nil {
		return nil, err
	}
	return a.afterChange(a.engine.SetMode(mode))
}

func (a *App) SetWindow(name string) (*dsp.Snapshot, error) {
	kind, err := domain.ParseWindowKind(name)
	if err != nil {
		return nil, err
	}
	return a.afterChange(a.engine.SetWindow(kind))
}

func (a *App) SetBandGain(index int, gain float64) (*dsp.Snapshot, error) {
	return a.afterChange(a.engine.SetBandGain(index, gain))
}

// Reset unloads the signal and returns every slider to neutral
func (a *App) Reset() *dsp.Snapshot {
	a.player.Stop()
	return a.engine.Reset()
}

// afterChange reloads the output into the player when it is the one being
// heard.
func (a *App) afterChange(snap *dsp.Snapshot, err error) (*dsp.Snapshot, error) {
	if snap == nil {
		return nil, err
	}
	if snap.Loaded() && a.player.GetSignal() != nil && a.player.GetSignal() != snap.Input {
		if loadErr := a.player.Load(snap.Output); loadErr != nil {
			logger.Warn("Failed to reload output for playback", logger.Error(loadErr))
		}
	}
	return snap, err
}

// GetEngineState summarizes the current snapshot
func (a *App) GetEngineState() map[string]interface{} {
	snap := a.engine.Current()
	state := make(map[string]interface{})
	state["version"] = snap.Version
	state["mode"] = snap.Params.Mode.String()
	state["window"] = snap.Params.Window.String()
	state["gains"] = snap.Params.Gains
	state["labels"] = dsp.Labels(snap.Bands)
	state["loaded"] = snap.Loaded()

	if snap.Loaded() {
		state["title"] = snap.Input.Title()
		state["samples"] = snap.Output.Len()
		state["sample_rate"] = snap.Input.SampleRate()
		state["duration"] = snap.Input.Duration().Seconds()
		state["max_frequency"] = snap.Original.MaxFrequency()
		if snap.Key != "" {
			state["ecg_key"] = string(snap.Key)
		}
	}
	return state
}

// Playback Methods

// Play plays the input or the equalized output
func (a *App) Play(which string) error {
	sig, err := a.signal(which)
	if err != nil {
		return err
	}
	if a.player.GetSignal() != sig {
		if err := a.player.Load(sig); err != nil {
			return err
		}
	}
	return a.player.Play()
}

func (a *App) Pause() error {
	return a.player.Pause()
}

func (a *App) Stop() error {
	return a.player.Stop()
}

// Seek seeks to a position in seconds
func (a *App) Seek(seconds float64) error {
	return a.player.Seek(time.Duration(seconds * float64(time.Second)))
}

func (a *App) SetVolume(volume float64) error {
	return a.player.SetVolume(volume)
}

// WaitPlayback blocks until the current play session ends
func (a *App) WaitPlayback(ctx context.Context) error {
	return a.player.Wait(ctx)
}

// GetPlayerState returns the current player state
func (a *App) GetPlayerState() map[string]interface{} {
	state := make(map[string]interface{})
	state["state"] = a.player.GetState().String()
	state["position"] = a.player.GetPosition().Seconds()
	state["duration"] = a.player.GetDuration().Seconds()
	if sig := a.player.GetSignal(); sig != nil {
		state["title"] = sig.Title()
	}
	return state
}

// Analysis and Export Methods

// Spectrogram computes the spectrogram of the input or output signal
func (a *App) Spectrogram(which string) (*dsp.SpectrogramData, error) {
	sig, err := a.signal(which)
	if err != nil {
		return nil, err
	}
	return dsp.Spectrogram(sig, a.config.Spectrogram.NFFT, a.config.Spectrogram.Overlap)
}

// ExportOutput writes the equalized signal as a 16-bit WAV file
func (a *App) ExportOutput(path string) error {
	sig, err := a.signal(SourceOutput)
	if err != nil {
		return err
	}

	samples := sig.Samples()
	if !sig.HasAudio() {
		samples = scaleToInt16(samples)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := decoder.EncodeWAV(file, samples, sig.SampleRate()); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	logger.Info("Output exported",
		logger.String("path", path),
		logger.Int("samples", len(samples)),
	)
	return nil
}

func (a *App) signal(which string) (*domain.Signal, error) {
	snap := a.engine.Current()
	if !snap.Loaded() {
		return nil, domain.ErrNoSignalLoaded
	}
	switch strings.ToLower(which) {
	case SourceInput:
		return snap.Input, nil
	case SourceOutput, "":
		return snap.Output, nil
	}
	return nil, fmt.Errorf("%w: signal %q", domain.ErrInvalidInput, which)
}

// scaleToInt16 maps a trace onto the 16-bit grid by its peak.
func scaleToInt16(samples []float64) []float64 {
	normalized := output.NormalizePeak(samples)
	out := make([]float64, len(normalized))
	for i, v := range normalized {
		out[i] = float64(v) * domain.MaxInt16Amplitude
	}
	return out
}

// Preset Methods

// SavePreset stores the current parameters under name, replacing a preset
// with the same name.
func (a *App) SavePreset(name, comment string) (*domain.Preset, error) {
	if a.presetRepo == nil {
		return nil, errors.New("preset store is disabled")
	}

	params := a.engine.Params()
	preset, err := domain.NewPreset(name, params.Mode, params.Window, params.Gains)
	if err != nil {
		return nil, err
	}
	preset.Comment = comment

	existing, err := a.presetRepo.FindByName(preset.Name)
	switch {
	case err == nil:
		preset.ID = existing.ID
		preset.CreatedAt = existing.CreatedAt
		err = a.presetRepo.Update(preset)
	case errors.Is(err, domain.ErrPresetNotFound):
		err = a.presetRepo.Create(preset)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Preset saved",
		logger.String("name", preset.Name),
		logger.String("mode", preset.Mode),
	)
	return preset, nil
}

// ApplyPreset recalls a stored preset into the engine
func (a *App) ApplyPreset(name string) (*dsp.Snapshot, error) {
	if a.presetRepo == nil {
		return nil, errors.New("preset store is disabled")
	}

	preset, err := a.presetRepo.FindByName(name)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", name, err)
	}
	mode, window, err := preset.Settings()
	if err != nil {
		return nil, err
	}
	return a.afterChange(a.engine.Apply(dsp.Params{Mode: mode, Window: window, Gains: preset.Gains}))
}

func (a *App) ListPresets() ([]*domain.Preset, error) {
	if a.presetRepo == nil {
		return nil, errors.New("preset store is disabled")
	}
	return a.presetRepo.FindAll()
}

func (a *App) handlePlayerEvent(event audio.PlayerEvent, data interface{}) {
	switch event {
	case audio.EventStateChanged:
		logger.Debug("Player state changed", logger.Any("state", fmt.Sprint(data)))
	case audio.EventFinished:
		logger.Debug("Playback finished")
	case audio.EventError:
		if err, ok := data.(error); ok {
			logger.ErrorLog("Playback failed", logger.Error(err))
		}
	}
}
