package domain

import (
	"fmt"
	"math"
	"time"
)

// SignalKind tells plot collaborators how to draw a signal.
type SignalKind int

const (
	SignalContinuous SignalKind = iota
	SignalDiscrete
)

func (k SignalKind) String() string {
	switch k {
	case SignalContinuous:
		return "continuous"
	case SignalDiscrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// Int16 amplitude range used for signals carrying an audio payload.
const (
	MaxInt16Amplitude = 32767.0
	MinInt16Amplitude = -32768.0
)

// Signal is an immutable sequence of time-domain samples at a known sample
// rate. Engines never modify a Signal once it is built; a changed output is
// always a new Signal.
type Signal struct {
	samples    []float64
	sampleRate float64
	hasAudio   bool
	channels   int
	bitDepth   int
	title      string
	kind       SignalKind
}

// SignalOption configures optional Signal metadata.
type SignalOption func(*Signal)

// WithAudio marks the signal as carrying an audio payload with the given
// source channel count and bit depth. Samples are expected on the 16-bit
// integer amplitude scale.
func WithAudio(channels, bitDepth int) SignalOption {
	return func(s *Signal) {
		s.hasAudio = true
		s.channels = channels
		s.bitDepth = bitDepth
	}
}

// WithTitle sets a display title.
func WithTitle(title string) SignalOption {
	return func(s *Signal) {
		s.title = title
	}
}

// WithKind sets the signal kind.
func WithKind(kind SignalKind) SignalOption {
	return func(s *Signal) {
		s.kind = kind
	}
}

// NewSignal copies samples into a new Signal. It returns ErrInvalidSignal when
// samples is empty, contains NaN or Inf, or sampleRate is not positive.
func NewSignal(samples []float64, sampleRate float64, opts ...SignalOption) (*Signal, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidSignal)
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidSignal, sampleRate)
	}
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: sample %d is not finite", ErrInvalidSignal, i)
		}
	}

	s := &Signal{
		samples:    append([]float64(nil), samples...),
		sampleRate: sampleRate,
		channels:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.channels <= 0 {
		s.channels = 1
	}
	return s, nil
}

// Derive builds a new Signal with the same metadata and different samples.
func (s *Signal) Derive(samples []float64) (*Signal, error) {
	out, err := NewSignal(samples, s.sampleRate, WithTitle(s.title), WithKind(s.kind))
	if err != nil {
		return nil, err
	}
	out.hasAudio = s.hasAudio
	out.channels = s.channels
	out.bitDepth = s.bitDepth
	return out, nil
}

func (s *Signal) Len() int {
	return len(s.samples)
}

func (s *Signal) At(i int) float64 {
	return s.samples[i]
}

// Samples returns a copy of the samples.
func (s *Signal) Samples() []float64 {
	return append([]float64(nil), s.samples...)
}

func (s *Signal) SampleRate() float64 {
	return s.sampleRate
}

func (s *Signal) HasAudio() bool {
	return s.hasAudio
}

func (s *Signal) Channels() int {
	return s.channels
}

func (s *Signal) BitDepth() int {
	return s.bitDepth
}

func (s *Signal) Title() string {
	return s.title
}

func (s *Signal) Kind() SignalKind {
	return s.kind
}

// Duration returns the playing time of the signal.
func (s *Signal) Duration() time.Duration {
	return time.Duration(float64(len(s.samples)) / s.sampleRate * float64(time.Second))
}

// Times returns the time axis, in seconds, for every sample.
func (s *Signal) Times() []float64 {
	return s.TimesPrefix(len(s.samples))
}

// TimesPrefix returns the first n entries of the time axis. n is capped at the
// signal length; the axis is never extrapolated.
func (s *Signal) TimesPrefix(n int) []float64 {
	if n > len(s.samples) {
		n = len(s.samples)
	}
	if n < 0 {
		n = 0
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) / s.sampleRate
	}
	return times
}

// IndexAt returns the sample index closest to t seconds, clamped to the
// signal bounds.
func (s *Signal) IndexAt(t float64) int {
	idx := int(math.Round(t * s.sampleRate))
	if idx < 0 {
		return 0
	}
	if idx >= len(s.samples) {
		return len(s.samples) - 1
	}
	return idx
}

// Peak returns the largest absolute sample value.
func (s *Signal) Peak() float64 {
	peak := 0.0
	for _, v := range s.samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}
