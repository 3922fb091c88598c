package output

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDeviceNotFound = errors.New("audio device not found")
	ErrInvalidFormat  = errors.New("invalid audio format")
	ErrNotOpen        = errors.New("output not open")
	ErrAlreadyOpen    = errors.New("output already open")
)

// Format represents audio output format
type Format struct {
	SampleRate int
	Channels   int
	Latency    time.Duration
}

// Validate checks the format can be opened.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// Device represents an audio output device
type Device struct {
	ID        string
	Name      string
	Type      string // "Oto", "Null"
	IsDefault bool
}

// Output is the interface for audio output backends. Samples are normalized
// to [-1, 1] and interleaved when Channels > 1.
type Output interface {
	// Open opens the audio output with the specified format
	Open(format Format) error

	// Write queues samples for playback. It blocks while the queue is full
	// and returns early with ctx.Err() when ctx is done.
	Write(ctx context.Context, samples []float32) (int, error)

	// Close closes the audio output
	Close() error

	// Pause pauses playback
	Pause() error

	// Resume resumes playback
	Resume() error

	// Flush drops queued samples
	Flush() error

	GetFormat() Format
	GetLatency() time.Duration
	GetBufferSize() int
	SetVolume(volume float64) error
	GetVolume() float64
	IsPlaying() bool
	GetDevice() *Device

	// GetPosition returns how much audio the device has consumed
	GetPosition() time.Duration
}

// DeviceManager manages audio devices
type DeviceManager interface {
	// EnumerateDevices returns all available audio devices
	EnumerateDevices() ([]*Device, error)

	// GetDefaultDevice returns the default audio device
	GetDefaultDevice() (*Device, error)

	// GetDevice returns a specific device by ID
	GetDevice(id string) (*Device, error)

	// CreateOutput creates an output for a device
	CreateOutput(device *Device) (Output, error)
}

// BaseOutput provides common functionality for outputs
type BaseOutput struct {
	device     *Device
	format     Format
	volume     float64
	isPlaying  bool
	bufferSize int
}

func (o *BaseOutput) GetDevice() *Device {
	return o.device
}

func (o *BaseOutput) GetFormat() Format {
	return o.format
}

func (o *BaseOutput) GetVolume() float64 {
	return o.volume
}

func (o *BaseOutput) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return errors.New("volume must be between 0.0 and 1.0")
	}
	o.volume = volume
	return nil
}

func (o *BaseOutput) IsPlaying() bool {
	return o.isPlaying
}

func (o *BaseOutput) GetBufferSize() int {
	return o.bufferSize
}

func (o *BaseOutput) GetLatency() time.Duration {
	return o.format.Latency
}

// framesToDuration converts a frame count at the output rate to time.
func (o *BaseOutput) framesToDuration(frames int64) time.Duration {
	if o.format.SampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(o.format.SampleRate)
}

// ApplyVolume applies volume to samples
func ApplyVolume(samples []float32, volume float64) {
	for i := range samples {
		samples[i] = float32(float64(samples[i]) * volume)
	}
}

// Normalize maps samples on the 16-bit amplitude grid to [-1, 1].
func Normalize(samples []float64) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		v := s / 32768.0
		if v < -1.0 {
			v = -1.0
		} else if v > 1.0 {
			v = 1.0
		}
		out[i] = float32(v)
	}
	return out
}

// NormalizePeak scales samples so the largest magnitude maps to 1. It is used
// for traces that carry no audio scale.
func NormalizePeak(samples []float64) []float32 {
	peak := 0.0
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	out := make([]float32, len(samples))
	if peak == 0 {
		return out
	}
	for i, s := range samples {
		out[i] = float32(s / peak)
	}
	return out
}
