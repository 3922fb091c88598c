package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/eqstudio/eqstudio/internal/audio/output"
	"github.com/eqstudio/eqstudio/internal/domain"
	"github.com/eqstudio/eqstudio/internal/logger"
)

var (
	ErrNothingLoaded      = errors.New("no signal loaded for playback")
	ErrAlreadyPlaying     = errors.New("already playing")
	ErrNotPlaying         = errors.New("not playing")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// PlayerState represents the current state of the player
type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateError
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlayerEvent represents player events
type PlayerEvent int

const (
	EventStateChanged PlayerEvent = iota
	EventSignalChanged
	EventPositionChanged
	EventVolumeChanged
	EventFinished
	EventError
)

// EventListener is a callback for player events. Listeners run on their own
// goroutine; data is a PlayerState, *domain.Signal, time.Duration, float64 or
// error depending on the event.
type EventListener func(event PlayerEvent, data interface{})

// PlayerConfig holds the output settings of a Player.
type PlayerConfig struct {
	DeviceID   string
	SampleRate int // device rate audio signals are resampled to
	ChunkSize  int // samples per output write
	Latency    time.Duration
	Volume     float64
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		DeviceID:   "default",
		SampleRate: 44100,
		ChunkSize:  2048,
		Latency:    50 * time.Millisecond,
		Volume:     1.0,
	}
}

// Player plays one signal at a time. Audio signals go to the sound device;
// traces play on the silent clock device at their own rate so position
// events still track the recording's time axis.
type Player struct {
	ctrl sync.Mutex // serializes control calls
	mu   sync.RWMutex

	state    PlayerState
	signal   *domain.Signal
	frames   []float32
	rate     int
	clock    bool
	position int // index into frames
	volume   float64

	cfg           PlayerConfig
	deviceManager output.DeviceManager
	audioOut      output.Output
	clockOut      output.Output

	session int
	cancel  context.CancelFunc
	done    chan struct{}

	listeners  []EventListener
	listenerMu sync.RWMutex
}

// NewPlayer creates a player. Outputs are opened on first Play.
func NewPlayer(deviceManager output.DeviceManager, cfg PlayerConfig) *Player {
	defaults := DefaultPlayerConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		cfg.Volume = defaults.Volume
	}
	return &Player{
		state:         StateStopped,
		volume:        cfg.Volume,
		cfg:           cfg,
		deviceManager: deviceManager,
		listeners:     make([]EventListener, 0),
	}
}

// Load replaces the signal being played. Any playback in progress stops.
func (p *Player) Load(sig *domain.Signal) error {
	if sig == nil {
		return fmt.Errorf("%w: nil signal", domain.ErrInvalidSignal)
	}

	p.ctrl.Lock()
	defer p.ctrl.Unlock()
	p.halt()

	var (
		frames []float32
		rate   int
		clock  bool
	)
	if sig.HasAudio() {
		rate = p.cfg.SampleRate
		frames = Resample(output.Normalize(sig.Samples()), sig.SampleRate(), float64(rate))
	} else {
		rate = int(math.Max(1, math.Round(sig.SampleRate())))
		frames = output.NormalizePeak(sig.Samples())
		clock = true
	}

	p.mu.Lock()
	p.signal = sig
	p.frames, p.rate, p.clock = frames, rate, clock
	p.position = 0
	p.setState(StateStopped)
	p.mu.Unlock()

	p.notifyListeners(EventSignalChanged, sig)

	logger.Info("Signal loaded for playback",
		logger.String("title", sig.Title()),
		logger.Duration("duration", sig.Duration()),
		logger.Int("rate", rate),
		logger.Bool("clock", clock),
	)
	return nil
}

// Play starts or resumes playback
func (p *Player) Play() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signal == nil {
		return ErrNothingLoaded
	}
	if p.state == StatePlaying {
		return ErrAlreadyPlaying
	}

	out, err := p.outputLocked()
	if err != nil {
		p.setState(StateError)
		return err
	}
	if err := out.Resume(); err != nil {
		return fmt.Errorf("failed to resume output: %w", err)
	}

	p.startLocked(out)
	p.setState(StatePlaying)
	return nil
}

// Pause pauses playback, keeping the position
func (p *Player) Pause() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if p.GetState() != StatePlaying {
		return ErrNotPlaying
	}
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()
	if out := p.currentOutputLocked(); out != nil {
		out.Pause()
	}
	p.setState(StatePaused)
	return nil
}

// Stop stops playback and rewinds to the start
func (p *Player) Stop() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()

	if out := p.currentOutputLocked(); out != nil {
		out.Pause()
		out.Flush()
	}
	p.position = 0
	p.setState(StateStopped)
	return nil
}

// Seek moves the playback position. Playback continues from there if it was
// running.
func (p *Player) Seek(position time.Duration) error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.mu.RLock()
	sig, state := p.signal, p.state
	p.mu.RUnlock()

	if sig == nil {
		return ErrNothingLoaded
	}
	if position < 0 || position > sig.Duration() {
		return fmt.Errorf("%w: %v of %v", ErrPositionOutOfRange, position, sig.Duration())
	}

	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = int(position.Seconds() * float64(p.rate))
	if p.position > len(p.frames) {
		p.position = len(p.frames)
	}
	out := p.currentOutputLocked()
	if out != nil {
		out.Flush()
	}
	p.notifyListeners(EventPositionChanged, position)

	if state == StatePlaying && out != nil {
		p.startLocked(out)
	}
	return nil
}

// Rewind moves to the start without changing the state
func (p *Player) Rewind() error {
	return p.Seek(0)
}

// SetVolume sets the playback volume (0.0 to 1.0)
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return errors.New("volume must be between 0.0 and 1.0")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	for _, out := range []output.Output{p.audioOut, p.clockOut} {
		if out != nil {
			out.SetVolume(volume)
		}
	}

	p.notifyListeners(EventVolumeChanged, volume)
	return nil
}

// GetState returns the current player state
func (p *Player) GetState() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// GetPosition returns the current playback position
func (p *Player) GetPosition() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positionLocked()
}

// GetDuration returns the duration of the loaded signal
func (p *Player) GetDuration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.signal == nil {
		return 0
	}
	return p.signal.Duration()
}

// GetSignal returns the loaded signal
func (p *Player) GetSignal() *domain.Signal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.signal
}

// Wait blocks until the current play session ends or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.RLock()
	done := p.done
	p.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddListener adds an event listener
func (p *Player) AddListener(listener EventListener) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	p.listeners = append(p.listeners, listener)
}

// Close stops playback and releases the outputs
func (p *Player) Close() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, out := range []output.Output{p.audioOut, p.clockOut} {
		if out != nil {
			errs = append(errs, out.Close())
		}
	}
	p.audioOut, p.clockOut = nil, nil
	p.setState(StateStopped)
	return errors.Join(errs...)
}

// halt cancels the running session and waits for it to return. Callers hold
// ctrl but not mu.
func (p *Player) halt() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.session++
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// startLocked launches a play session from the current position. Callers
// hold mu.
func (p *Player) startLocked(out output.Output) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.session++
	p.cancel, p.done = cancel, done
	go p.run(ctx, p.session, out, p.frames, p.position, p.rate, done)
}

func (p *Player) run(ctx context.Context, session int, out output.Output, frames []float32, pos, rate int, done chan struct{}) {
	defer close(done)

	for pos < len(frames) {
		end := pos + p.cfg.ChunkSize
		if end > len(frames) {
			end = len(frames)
		}

		n, err := out.Write(ctx, frames[pos:end])
		pos += n

		p.mu.Lock()
		current := p.session == session
		if current {
			p.position = pos
		}
		p.mu.Unlock()
		if !current || ctx.Err() != nil {
			return
		}
		p.notifyListeners(EventPositionChanged, framesToDuration(pos, rate))

		if err != nil {
			logger.ErrorLog("Output error", logger.Error(err))
			p.finish(session, StateError, err)
			return
		}
	}
	p.finish(session, StateStopped, nil)
}

// finish ends a session that ran to completion or failed. A finished signal
// is rewound.
func (p *Player) finish(session int, state PlayerState, err error) {
	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	if err == nil {
		p.position = 0
	}
	p.setState(state)
	sig := p.signal
	p.mu.Unlock()

	if err != nil {
		p.notifyListeners(EventError, err)
		return
	}
	p.notifyListeners(EventFinished, sig)
}

// outputLocked returns the opened output for the loaded signal. Callers hold
// mu.
func (p *Player) outputLocked() (output.Output, error) {
	if p.clock {
		if p.clockOut != nil && p.clockOut.GetFormat().SampleRate == p.rate {
			return p.clockOut, nil
		}
		if p.clockOut != nil {
			p.clockOut.Close()
			p.clockOut = nil
		}
		out, err := p.openOutput(output.NullDeviceID, p.rate)
		if err != nil {
			return nil, err
		}
		p.clockOut = out
		return out, nil
	}

	if p.audioOut != nil {
		return p.audioOut, nil
	}
	out, err := p.openOutput(p.cfg.DeviceID, p.rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAudioDeviceNotFound, err)
	}
	p.audioOut = out
	return out, nil
}

func (p *Player) openOutput(deviceID string, rate int) (output.Output, error) {
	device, err := p.deviceManager.GetDevice(deviceID)
	if err != nil {
		return nil, err
	}
	out, err := p.deviceManager.CreateOutput(device)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	format := output.Format{SampleRate: rate, Channels: 1, Latency: p.cfg.Latency}
	if err := out.Open(format); err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	out.SetVolume(p.volume)
	return out, nil
}

func (p *Player) currentOutputLocked() output.Output {
	if p.clock {
		return p.clockOut
	}
	return p.audioOut
}

func (p *Player) positionLocked() time.Duration {
	return framesToDuration(p.position, p.rate)
}

func (p *Player) setState(state PlayerState) {
	if p.state != state {
		p.state = state
		p.notifyListeners(EventStateChanged, state)
	}
}

func (p *Player) notifyListeners(event PlayerEvent, data interface{}) {
	p.listenerMu.RLock()
	listeners := make([]EventListener, len(p.listeners))
	copy(listeners, p.listeners)
	p.listenerMu.RUnlock()

	for _, listener := range listeners {
		go listener(event, data)
	}
}

func framesToDuration(frames, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// Resample converts samples from one rate to another by linear
// interpolation.
func Resample(samples []float32, from, to float64) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := from / to
	outputLen := int(math.Round(float64(len(samples)) / ratio))
	if outputLen < 1 {
		outputLen = 1
	}
	out := make([]float32, outputLen)
	last := len(samples) - 1
	for i := range out {
		src := float64(i) * ratio
		j := int(src)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(src - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
