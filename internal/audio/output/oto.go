package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; every OtoOutput shares it.
var (
	otoMu       sync.Mutex
	otoContext  *oto.Context
	otoFormat   Format
	otoInitErr  error
	otoInitOnce sync.Once
)

func sharedContext(format Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	otoInitOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   format.Latency,
		}
		c, ready, err := oto.NewContext(options)
		if err != nil {
			otoInitErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}
		<-ready
		otoContext = c
		otoFormat = format
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoFormat.SampleRate != format.SampleRate || otoFormat.Channels != format.Channels {
		return nil, fmt.Errorf("%w: device runs at %d Hz x %d, requested %d Hz x %d",
			ErrInvalidFormat, otoFormat.SampleRate, otoFormat.Channels, format.SampleRate, format.Channels)
	}
	return otoContext, nil
}

// OtoOutput implements Output on top of an oto player. oto pulls samples
// through Read; Write fills a bounded queue that Read drains, and silence is
// played while the queue is empty.
type OtoOutput struct {
	BaseOutput
	player   *oto.Player
	mu       sync.Mutex
	queue    []float32
	drained  chan struct{}
	consumed int64 // frames handed to the device
	closed   bool
}

// NewOtoOutput creates a new Oto-based audio output
func NewOtoOutput(device *Device, bufferSize int) *OtoOutput {
	if bufferSize <= 0 {
		bufferSize = 8192
	}
	return &OtoOutput{
		BaseOutput: BaseOutput{
			device:     device,
			volume:     1.0,
			bufferSize: bufferSize,
		},
		drained: make(chan struct{}, 1),
	}
}

// Open opens the audio output with the specified format
func (o *OtoOutput) Open(format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrAlreadyOpen
	}

	c, err := sharedContext(format)
	if err != nil {
		return err
	}

	o.format = format
	o.closed = false
	o.player = c.NewPlayer(o)
	o.player.Play()
	o.isPlaying = true
	return nil
}

// Read implements io.Reader for oto.Player
func (o *OtoOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	channels := o.format.Channels
	if channels == 0 {
		channels = 1
	}
	n := len(p) / 4
	n -= n % channels
	take := n
	if take > len(o.queue) {
		take = len(o.queue)
	}
	for i := 0; i < take; i++ {
		v := float32(float64(o.queue[i]) * o.volume)
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	o.queue = o.queue[take:]
	o.consumed += int64(take / channels)
	o.mu.Unlock()

	// Silence for the rest of the request.
	for i := take * 4; i < n*4; i++ {
		p[i] = 0
	}

	select {
	case o.drained <- struct{}{}:
	default:
	}
	return n * 4, nil
}

// Write queues samples, blocking while the queue is full
func (o *OtoOutput) Write(ctx context.Context, samples []float32) (int, error) {
	written := 0
	for written < len(samples) {
		o.mu.Lock()
		if o.closed || o.player == nil {
			o.mu.Unlock()
			return written, ErrNotOpen
		}
		room := o.bufferSize - len(o.queue)
		if room > 0 {
			take := len(samples) - written
			if take > room {
				take = room
			}
			o.queue = append(o.queue, samples[written:written+take]...)
			written += take
			o.mu.Unlock()
			continue
		}
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case <-o.drained:
		}
	}
	return written, nil
}

// Close closes the audio output. The shared context stays alive for the
// next output.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.queue = nil

	if o.player != nil {
		o.player.Pause()
		o.player = nil
	}
	o.isPlaying = false
	return nil
}

// Pause pauses playback
func (o *OtoOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Pause()
	o.isPlaying = false
	return nil
}

// Resume resumes playback
func (o *OtoOutput) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Play()
	o.isPlaying = true
	return nil
}

// Flush drops queued samples and resets the position
func (o *OtoOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.queue = o.queue[:0]
	o.consumed = 0
	return nil
}

func (o *OtoOutput) SetVolume(volume float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.BaseOutput.SetVolume(volume)
}

func (o *OtoOutput) GetPosition() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.framesToDuration(o.consumed)
}

// OtoDeviceManager implements DeviceManager using oto
type OtoDeviceManager struct {
	defaultDevice *Device
	nullDevice    *Device
	bufferSize    int
	mu            sync.RWMutex
}

// NewOtoDeviceManager creates a new Oto device manager. bufferSize is the
// queue length in samples of outputs it creates.
func NewOtoDeviceManager(bufferSize int) *OtoDeviceManager {
	return &OtoDeviceManager{
		defaultDevice: &Device{
			ID:        "default",
			Name:      "Default Audio Device",
			Type:      "Oto",
			IsDefault: true,
		},
		nullDevice: &Device{
			ID:   NullDeviceID,
			Name: "Silent Clock",
			Type: "Null",
		},
		bufferSize: bufferSize,
	}
}

// EnumerateDevices returns all available audio devices
func (m *OtoDeviceManager) EnumerateDevices() ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Oto doesn't provide device enumeration
	return []*Device{m.defaultDevice, m.nullDevice}, nil
}

// GetDefaultDevice returns the default audio device
func (m *OtoDeviceManager) GetDefaultDevice() (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.defaultDevice, nil
}

// GetDevice returns a specific device by ID
func (m *OtoDeviceManager) GetDevice(id string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch id {
	case "", "default", m.defaultDevice.ID:
		return m.defaultDevice, nil
	case m.nullDevice.ID:
		return m.nullDevice, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
}

// CreateOutput creates an output for a device
func (m *OtoDeviceManager) CreateOutput(device *Device) (Output, error) {
	if device == nil {
		device = m.defaultDevice
	}
	if device.Type == "Null" {
		return NewNullOutput(device, m.bufferSize), nil
	}
	return NewOtoOutput(device, m.bufferSize), nil
}
