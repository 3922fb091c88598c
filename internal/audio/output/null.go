package output

import (
	"context"
	"sync"
	"time"
)

// NullDeviceID names the silent device.
const NullDeviceID = "null"

// NullOutput discards samples in real time. It drives playback of traces
// whose sample rate no sound card accepts, so position events still follow
// the wall clock.
type NullOutput struct {
	BaseOutput
	mu       sync.Mutex
	open     bool
	consumed int64
}

func NewNullOutput(device *Device, bufferSize int) *NullOutput {
	if device == nil {
		device = &Device{ID: NullDeviceID, Name: "Silent Clock", Type: "Null"}
	}
	return &NullOutput{
		BaseOutput: BaseOutput{device: device, volume: 1.0, bufferSize: bufferSize},
	}
}

func (o *NullOutput) Open(format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		return ErrAlreadyOpen
	}
	o.format = format
	o.open = true
	o.isPlaying = true
	o.consumed = 0
	return nil
}

// Write sleeps for the duration of samples at the output rate.
func (o *NullOutput) Write(ctx context.Context, samples []float32) (int, error) {
	o.mu.Lock()
	if !o.open {
		o.mu.Unlock()
		return 0, ErrNotOpen
	}
	channels := o.format.Channels
	frames := int64(len(samples) / channels)
	wait := o.framesToDuration(frames)
	o.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	o.mu.Lock()
	o.consumed += frames
	o.mu.Unlock()
	return len(samples), nil
}

func (o *NullOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.isPlaying = false
	return nil
}

func (o *NullOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return ErrNotOpen
	}
	o.isPlaying = false
	return nil
}

func (o *NullOutput) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return ErrNotOpen
	}
	o.isPlaying = true
	return nil
}

func (o *NullOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumed = 0
	return nil
}

func (o *NullOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isPlaying
}

func (o *NullOutput) GetPosition() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.framesToDuration(o.consumed)
}
