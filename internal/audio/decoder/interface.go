package decoder

import (
	"errors"
	"io"
	"time"

	"github.com/eqstudio/eqstudio/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported signal format")
	ErrInvalidData       = errors.New("invalid signal data")
	ErrEmptyStream       = errors.New("stream holds no samples")
)

// Full-scale amplitude of the 16-bit grid decoded audio is mapped onto.
const int16Scale = 1<<15 - 1

// AudioFormat describes the stream a decoder read.
type AudioFormat struct {
	SampleRate float64 // Hz
	Channels   int     // source channels before downmix
	BitDepth   int     // 0 for text traces
	Encoding   string  // e.g. "pcm", "mpeg", "csv"
}

// Metadata contains the tags found in the source file
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	Comment  string
	Duration time.Duration
}

// Result is a fully decoded, mono signal. Audio samples are on the 16-bit
// integer amplitude scale; trace samples are kept as read.
type Result struct {
	Samples  []float64
	Format   AudioFormat
	Metadata *Metadata
}

// Audio reports whether the result came from an audio container.
func (r *Result) Audio() bool {
	return r.Format.BitDepth > 0
}

// Signal wraps the result in a domain signal.
func (r *Result) Signal(title string) (*domain.Signal, error) {
	opts := []domain.SignalOption{domain.WithTitle(title)}
	if r.Audio() {
		opts = append(opts, domain.WithAudio(r.Format.Channels, r.Format.BitDepth))
	} else {
		opts = append(opts, domain.WithKind(domain.SignalDiscrete))
	}
	return domain.NewSignal(r.Samples, r.Format.SampleRate, opts...)
}

// Decoder reads a whole source into memory.
type Decoder interface {
	// Decode reads every sample from reader and downmixes to mono.
	Decode(reader io.ReadSeeker) (*Result, error)

	// Format returns the source format this decoder handles
	Format() domain.SourceFormat
}

// Downmix averages interleaved channels into one.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return append([]float64(nil), interleaved...)
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// ScaleToInt16 maps an integer PCM sample of the given bit depth onto the
// 16-bit amplitude grid.
func ScaleToInt16(sample int32, bitDepth int) float64 {
	switch {
	case bitDepth == 16:
		return float64(sample)
	case bitDepth > 16:
		return float64(sample) / float64(int64(1)<<uint(bitDepth-16))
	case bitDepth > 0:
		return float64(sample) * float64(int64(1)<<uint(16-bitDepth))
	default:
		return float64(sample)
	}
}

func durationOf(frames int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / sampleRate * float64(time.Second))
}
