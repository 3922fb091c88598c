package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqstudio/eqstudio/internal/audio/output"
	"github.com/eqstudio/eqstudio/internal/domain"
)

// fakeOutput records everything written to it. With a gate set, every Write
// waits for a value on the gate or for ctx.
type fakeOutput struct {
	output.BaseOutput

	mu       sync.Mutex
	format   output.Format
	written  []float32
	flushes  int
	paused   bool
	gate     chan struct{}
	writeErr error
}

func (o *fakeOutput) Open(format output.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.format = format
	return nil
}

func (o *fakeOutput) Write(ctx context.Context, samples []float32) (int, error) {
	if o.gate != nil {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-o.gate:
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.writeErr != nil {
		return 0, o.writeErr
	}
	o.written = append(o.written, samples...)
	return len(samples), nil
}

func (o *fakeOutput) Close() error { return nil }

func (o *fakeOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	return nil
}

func (o *fakeOutput) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	return nil
}

func (o *fakeOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushes++
	return nil
}

func (o *fakeOutput) GetFormat() output.Format {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.format
}

func (o *fakeOutput) GetPosition() time.Duration { return 0 }

func (o *fakeOutput) samples() []float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]float32(nil), o.written...)
}

type fakeDeviceManager struct {
	mu      sync.Mutex
	outputs map[string]*fakeOutput
	opened  []string
}

func newFakeDeviceManager() *fakeDeviceManager {
	return &fakeDeviceManager{outputs: map[string]*fakeOutput{
		"default":           {},
		output.NullDeviceID: {},
	}}
}

func (m *fakeDeviceManager) EnumerateDevices() ([]*output.Device, error) {
	return []*output.Device{{ID: "default"}, {ID: output.NullDeviceID}}, nil
}

func (m *fakeDeviceManager) GetDefaultDevice() (*output.Device, error) {
	return &output.Device{ID: "default", IsDefault: true}, nil
}

func (m *fakeDeviceManager) GetDevice(id string) (*output.Device, error) {
	if _, ok := m.outputs[id]; !ok {
		return nil, output.ErrDeviceNotFound
	}
	return &output.Device{ID: id}, nil
}

func (m *fakeDeviceManager) CreateOutput(device *output.Device) (output.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, device.ID)
	return m.outputs[device.ID], nil
}

func audioSignal(t *testing.T, n int, rate float64) *domain.Signal {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i%64) * 256
	}
	sig, err := domain.NewSignal(samples, rate, domain.WithAudio(1, 16), domain.WithTitle("tone"))
	require.NoError(t, err)
	return sig
}

func traceSignal(t *testing.T, n int, rate float64) *domain.Signal {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i%10) / 10
	}
	samples[n/2] = -2
	sig, err := domain.NewSignal(samples, rate)
	require.NoError(t, err)
	return sig
}

func newTestPlayer(dm output.DeviceManager, rate int) *Player {
	return NewPlayer(dm, PlayerConfig{DeviceID: "default", SampleRate: rate, ChunkSize: 100, Volume: 1})
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPlayer_NothingLoaded(t *testing.T) {
	p := newTestPlayer(newFakeDeviceManager(), 8000)

	assert.ErrorIs(t, p.Play(), ErrNothingLoaded)
	assert.ErrorIs(t, p.Seek(0), ErrNothingLoaded)
	assert.ErrorIs(t, p.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, p.Load(nil), domain.ErrInvalidSignal)
	assert.Zero(t, p.GetDuration())
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPlayer_PlaysAudioToCompletion(t *testing.T) {
	dm := newFakeDeviceManager()
	p := newTestPlayer(dm, 8000)
	defer p.Close()

	events := make(chan PlayerEvent, 64)
	p.AddListener(func(event PlayerEvent, data interface{}) {
		events <- event
	})

	sig := audioSignal(t, 1000, 8000)
	require.NoError(t, p.Load(sig))
	assert.Same(t, sig, p.GetSignal())
	assert.Equal(t, sig.Duration(), p.GetDuration())

	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, StateStopped, p.GetState())
	assert.Zero(t, p.GetPosition(), "a finished signal is rewound")

	out := dm.outputs["default"]
	assert.Equal(t, 8000, out.GetFormat().SampleRate)
	assert.Equal(t, 1, out.GetFormat().Channels)
	assert.Equal(t, output.Normalize(sig.Samples()), out.samples())

	assert.Eventually(t, func() bool {
		for {
			select {
			case e := <-events:
				if e == EventFinished {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

func TestPlayer_ResamplesAudioToDeviceRate(t *testing.T) {
	dm := newFakeDeviceManager()
	p := newTestPlayer(dm, 16000)
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 800, 8000)))
	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Len(t, dm.outputs["default"].samples(), 1600)
	assert.Equal(t, 16000, dm.outputs["default"].GetFormat().SampleRate)
}

func TestPlayer_TracePlaysOnClockDevice(t *testing.T) {
	dm := newFakeDeviceManager()
	p := newTestPlayer(dm, 44100)
	defer p.Close()

	sig := traceSignal(t, 360, 360)
	require.NoError(t, p.Load(sig))
	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, []string{output.NullDeviceID}, dm.opened)
	clock := dm.outputs[output.NullDeviceID]
	assert.Equal(t, 360, clock.GetFormat().SampleRate)
	assert.Equal(t, output.NormalizePeak(sig.Samples()), clock.samples())
	assert.Empty(t, dm.outputs["default"].samples())
}

func TestPlayer_PauseAndResume(t *testing.T) {
	dm := newFakeDeviceManager()
	gate := make(chan struct{})
	dm.outputs["default"].gate = gate
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 1000, 1000)))
	require.NoError(t, p.Play())
	assert.Equal(t, StatePlaying, p.GetState())
	assert.ErrorIs(t, p.Play(), ErrAlreadyPlaying)

	gate <- struct{}{}
	require.Eventually(t, func() bool {
		return p.GetPosition() == 100*time.Millisecond
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Pause())
	assert.Equal(t, StatePaused, p.GetState())
	assert.Equal(t, 100*time.Millisecond, p.GetPosition())
	assert.True(t, dm.outputs["default"].paused)

	require.NoError(t, p.Play())
	close(gate)
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Len(t, dm.outputs["default"].samples(), 1000, "nothing is written twice")
	assert.Equal(t, StateStopped, p.GetState())
}

func TestPlayer_StopRewinds(t *testing.T) {
	dm := newFakeDeviceManager()
	gate := make(chan struct{})
	dm.outputs["default"].gate = gate
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 1000, 1000)))
	require.NoError(t, p.Play())
	gate <- struct{}{}
	require.Eventually(t, func() bool {
		return p.GetPosition() > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	assert.Equal(t, StateStopped, p.GetState())
	assert.Zero(t, p.GetPosition())
	assert.Equal(t, 1, dm.outputs["default"].flushes)
}

func TestPlayer_Seek(t *testing.T) {
	dm := newFakeDeviceManager()
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 1000, 1000)))

	require.NoError(t, p.Seek(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, p.GetPosition())
	assert.Equal(t, StateStopped, p.GetState())

	assert.ErrorIs(t, p.Seek(-time.Millisecond), ErrPositionOutOfRange)
	assert.ErrorIs(t, p.Seek(2*time.Second), ErrPositionOutOfRange)

	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))
	assert.Len(t, dm.outputs["default"].samples(), 750)

	require.NoError(t, p.Seek(time.Second))
	require.NoError(t, p.Rewind())
	assert.Zero(t, p.GetPosition())
}

func TestPlayer_LoadStopsPlayback(t *testing.T) {
	dm := newFakeDeviceManager()
	dm.outputs["default"].gate = make(chan struct{})
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 1000, 1000)))
	require.NoError(t, p.Play())

	next := audioSignal(t, 500, 1000)
	require.NoError(t, p.Load(next))
	assert.Equal(t, StateStopped, p.GetState())
	assert.Same(t, next, p.GetSignal())
}

func TestPlayer_OutputError(t *testing.T) {
	dm := newFakeDeviceManager()
	dm.outputs["default"].writeErr = errors.New("device unplugged")
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	errs := make(chan error, 1)
	p.AddListener(func(event PlayerEvent, data interface{}) {
		if event == EventError {
			errs <- data.(error)
		}
	})

	require.NoError(t, p.Load(audioSignal(t, 1000, 1000)))
	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, StateError, p.GetState())
	select {
	case err := <-errs:
		assert.EqualError(t, err, "device unplugged")
	case <-time.After(time.Second):
		t.Fatal("no error event")
	}
}

func TestPlayer_UnknownDevice(t *testing.T) {
	p := NewPlayer(newFakeDeviceManager(), PlayerConfig{DeviceID: "hdmi-7", SampleRate: 1000})
	defer p.Close()

	require.NoError(t, p.Load(audioSignal(t, 100, 1000)))
	err := p.Play()
	assert.ErrorIs(t, err, domain.ErrAudioDeviceNotFound)
	assert.Equal(t, StateError, p.GetState())
}

func TestPlayer_SetVolume(t *testing.T) {
	dm := newFakeDeviceManager()
	p := newTestPlayer(dm, 1000)
	defer p.Close()

	assert.Error(t, p.SetVolume(1.5))
	assert.Error(t, p.SetVolume(-0.1))

	require.NoError(t, p.Load(audioSignal(t, 100, 1000)))
	require.NoError(t, p.Play())
	require.NoError(t, p.Wait(waitCtx(t)))

	require.NoError(t, p.SetVolume(0.25))
	assert.Equal(t, 0.25, dm.outputs["default"].GetVolume())
}

func TestPlayerState_String(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", PlayerState(9).String())
}

func TestResample(t *testing.T) {
	in := []float32{0, 1}
	assert.Equal(t, in, Resample(in, 8000, 8000))
	assert.Equal(t, []float32{0, 0.5, 1, 1}, Resample(in, 1, 2))

	down := Resample([]float32{0, 1, 2, 3, 4, 5}, 2, 1)
	assert.Equal(t, []float32{0, 2, 4}, down)

	assert.Len(t, Resample(make([]float32, 441), 44100, 48000), 480)
	assert.Empty(t, Resample(nil, 1, 2))
}
