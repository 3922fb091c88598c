package dsp

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eqstudio/eqstudio/internal/domain"
	"github.com/eqstudio/eqstudio/internal/logger"
)

// Snapshot is the result of one engine computation. Snapshots are immutable:
// readers on other goroutines may hold one while the engine publishes the
// next. The slices reachable from a snapshot (Params.Gains, Bands, Response
// and the frames) are shared with those readers and with later snapshots, so
// they are read-only. Use Clone for a private copy. Original, Working, Output
// and Response are nil until a signal is loaded.
type Snapshot struct {
	Version  uint64
	Params   Params
	Bands    []domain.Band
	Input    *domain.Signal
	Key      domain.ECGKey
	Original *Frame
	Working  *Frame
	Output   *domain.Signal
	Response []float64
}

// Loaded reports whether the snapshot carries an output signal.
func (s *Snapshot) Loaded() bool {
	return s != nil && s.Output != nil
}

// Clone returns a deep copy that the caller may modify. Signals are
// immutable and stay shared.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Params = s.Params.Clone()
	c.Bands = append([]domain.Band(nil), s.Bands...)
	if s.Original != nil {
		c.Original = s.Original.Clone()
	}
	if s.Working != nil {
		c.Working = s.Working.Clone()
	}
	if s.Response != nil {
		c.Response = append([]float64(nil), s.Response...)
	}
	return &c
}

// OutputTimes returns the time axis of the output signal: the prefix of the
// input time axis with the output's length.
func (s *Snapshot) OutputTimes() []float64 {
	if !s.Loaded() {
		return nil
	}
	return s.Input.TimesPrefix(s.Output.Len())
}

// Engine owns the equalizer state for one loaded signal. Every setter
// recomputes from the untouched original spectrum and publishes a new
// Snapshot. Computation is synchronous; a mutex serializes writers.
type Engine struct {
	mu       sync.Mutex
	signal   *domain.Signal
	key      domain.ECGKey
	original *Frame
	params   Params
	bands    []domain.Band
	maxGain  float64

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMode sets the starting mode.
func WithMode(mode domain.Mode) EngineOption {
	return func(e *Engine) {
		e.params.Mode = mode
	}
}

// WithWindow sets the starting window kind.
func WithWindow(kind domain.WindowKind) EngineOption {
	return func(e *Engine) {
		e.params.Window = kind
	}
}

// WithMaxGain caps slider gains. Zero means no cap.
func WithMaxGain(max float64) EngineOption {
	return func(e *Engine) {
		e.maxGain = max
	}
}

// NewEngine creates an engine in Animals mode with a rectangle window unless
// options say otherwise.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		params: Params{Mode: domain.ModeAnimals, Window: domain.WindowRectangle},
	}
	for _, opt := range opts {
		opt(e)
	}

	bands, _ := Partition(e.params.Mode, "", 0)
	e.bands = bands
	e.params.Gains = NeutralGains(len(bands))

	snap, _ := e.render(nil, nil, "", e.bands, e.params)
	e.publish(snap)
	return e
}

// Load replaces the active signal. key identifies the ECG abnormality the
// trace carries and may be empty for other signals. On error nothing changes.
//
// When the engine is in ECG mode and key has no signature, the bypass
// partition is committed and the snapshot is returned with ErrUnknownModeKey.
func (e *Engine) Load(sig *domain.Signal, key domain.ECGKey) (*Snapshot, error) {
	if sig == nil {
		return nil, fmt.Errorf("%w: nil signal", domain.ErrInvalidSignal)
	}
	if key != "" && !key.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownModeKey, string(key))
	}

	original, err := Forward(sig)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bands, partErr := Partition(e.params.Mode, key, original.MaxFrequency())
	if bands == nil {
		return nil, partErr
	}
	params := e.params.Clone()
	if len(params.Gains) != len(bands) {
		params.Gains = NeutralGains(len(bands))
	}

	snap, err := e.render(sig, original, key, bands, params)
	if err != nil {
		return nil, err
	}

	e.signal, e.key, e.original = sig, key, original
	e.bands, e.params = bands, params
	e.publish(snap)

	logger.Info("Signal loaded",
		logger.String("title", sig.Title()),
		logger.Int("samples", sig.Len()),
		logger.Float64("sample_rate", sig.SampleRate()),
		logger.Bool("audio", sig.HasAudio()),
		logger.String("mode", params.Mode.String()),
	)
	return snap, partErr
}

// SetMode switches the band preset. All gains reset to neutral.
//
// Switching to ECG without a known key commits the bypass partition and
// returns the snapshot with ErrUnknownModeKey.
func (e *Engine) SetMode(mode domain.Mode) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bands, partErr := Partition(mode, e.key, e.maxFrequency())
	if bands == nil {
		return nil, partErr
	}
	params := Params{Mode: mode, Window: e.params.Window, Gains: NeutralGains(len(bands))}

	snap, err := e.render(e.signal, e.original, e.key, bands, params)
	if err != nil {
		return nil, err
	}
	e.bands, e.params = bands, params
	e.publish(snap)

	logger.Info("Equalizer mode changed",
		logger.String("mode", mode.String()),
		logger.Int("bands", len(bands)),
	)
	return snap, partErr
}

// SetWindow changes the window kind and reapplies it to the loaded signal.
func (e *Engine) SetWindow(kind domain.WindowKind) (*Snapshot, error) {
	switch kind {
	case domain.WindowRectangle, domain.WindowHamming, domain.WindowHanning, domain.WindowGaussian:
	default:
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownWindow, int(kind))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params := e.params.Clone()
	params.Window = kind
	return e.commit(params)
}

// SetBandGain sets the slider gain of one band.
func (e *Engine) SetBandGain(index int, gain float64) (*Snapshot, error) {
	if err := e.validateGain(gain); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.bands) {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrBandIndexOutOfRange, index, len(e.bands))
	}
	params := e.params.Clone()
	params.Gains[index] = gain
	return e.commit(params)
}

// SetGains replaces every band gain at once.
func (e *Engine) SetGains(gains []float64) (*Snapshot, error) {
	for _, g := range gains {
		if err := e.validateGain(g); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(gains) != len(e.bands) {
		return nil, fmt.Errorf("%w: %d gains for %d bands", domain.ErrInvalidParameter, len(gains), len(e.bands))
	}
	params := e.params.Clone()
	params.Gains = append([]float64(nil), gains...)
	return e.commit(params)
}

// Apply switches mode and window and sets gains in one step, as when a preset
// is recalled.
func (e *Engine) Apply(p Params) (*Snapshot, error) {
	for _, g := range p.Gains {
		if err := e.validateGain(g); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bands, partErr := Partition(p.Mode, e.key, e.maxFrequency())
	if bands == nil {
		return nil, partErr
	}
	if len(p.Gains) != len(bands) {
		return nil, fmt.Errorf("%w: %d gains for %d bands", domain.ErrInvalidParameter, len(p.Gains), len(bands))
	}
	params := p.Clone()

	snap, err := e.render(e.signal, e.original, e.key, bands, params)
	if err != nil {
		return nil, err
	}
	e.bands, e.params = bands, params
	e.publish(snap)
	return snap, partErr
}

// Reset unloads the signal and returns every gain to neutral. Mode and window
// are kept.
func (e *Engine) Reset() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	bands, _ := Partition(e.params.Mode, "", 0)
	params := Params{Mode: e.params.Mode, Window: e.params.Window, Gains: NeutralGains(len(bands))}
	snap, _ := e.render(nil, nil, "", bands, params)

	e.signal, e.key, e.original = nil, "", nil
	e.bands, e.params = bands, params
	e.publish(snap)
	return snap
}

// Current returns the latest published snapshot.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

// Params returns a copy of the active parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Clone()
}

// Bands returns a copy of the active bands with their current gains.
func (e *Engine) Bands() []domain.Band {
	return append([]domain.Band(nil), e.Current().Bands...)
}

func (e *Engine) validateGain(gain float64) error {
	if err := ValidateGain(gain); err != nil {
		return err
	}
	if e.maxGain > 0 && gain > e.maxGain {
		return fmt.Errorf("%w: %v exceeds %v", domain.ErrInvalidGain, gain, e.maxGain)
	}
	return nil
}

// commit recomputes with params on the current bands. Callers hold e.mu.
func (e *Engine) commit(params Params) (*Snapshot, error) {
	snap, err := e.render(e.signal, e.original, e.key, e.bands, params)
	if err != nil {
		return nil, err
	}
	e.params = params
	e.publish(snap)
	return snap, nil
}

func (e *Engine) maxFrequency() float64 {
	if e.original == nil {
		return 0
	}
	return e.original.MaxFrequency()
}

// render builds a snapshot without touching engine state.
func (e *Engine) render(sig *domain.Signal, original *Frame, key domain.ECGKey, bands []domain.Band, params Params) (*Snapshot, error) {
	if len(params.Gains) != len(bands) {
		return nil, fmt.Errorf("%w: %d gains for %d bands", domain.ErrInvalidParameter, len(params.Gains), len(bands))
	}

	labelled := make([]domain.Band, len(bands))
	copy(labelled, bands)
	for i := range labelled {
		labelled[i].Gain = params.Gains[i]
	}

	snap := &Snapshot{
		Params:   params.Clone(),
		Bands:    labelled,
		Input:    sig,
		Key:      key,
		Original: original,
	}
	if sig == nil || original == nil {
		return snap, nil
	}

	start := time.Now()
	spectrum, response, err := Recompute(original, bands, params)
	if err != nil {
		return nil, e.logFailure(err, params)
	}
	samples, working, err := Reconstruct(spectrum, original, params.Mode, sig.HasAudio())
	if err != nil {
		return nil, e.logFailure(err, params)
	}
	output, err := sig.Derive(samples)
	if err != nil {
		return nil, e.logFailure(err, params)
	}

	snap.Working = working
	snap.Output = output
	snap.Response = response

	logger.Debug("Equalizer recomputed",
		logger.String("mode", params.Mode.String()),
		logger.String("window", params.Window.String()),
		logger.Int("bins", len(spectrum)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

func (e *Engine) logFailure(err error, params Params) error {
	if errors.Is(err, domain.ErrNumericDegeneracy) {
		logger.Warn("Equalizer produced non-finite values",
			logger.String("mode", params.Mode.String()),
			logger.String("window", params.Window.String()),
			logger.Error(err),
		)
	}
	return err
}

func (e *Engine) publish(snap *Snapshot) {
	snap.Version = e.version.Add(1)
	e.current.Store(snap)
}
