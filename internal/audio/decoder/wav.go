package decoder

import (
	"fmt"
	"io"
	"math"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// WAVDecoder decodes PCM wave files through beep.
type WAVDecoder struct{}

func (d *WAVDecoder) Format() domain.SourceFormat {
	return domain.FormatWAV
}

func (d *WAVDecoder) Decode(reader io.ReadSeeker) (*Result, error) {
	streamer, format, err := wav.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode WAV: %v", ErrInvalidData, err)
	}

	samples := make([]float64, 0, streamer.Len())
	buf := make([][2]float64, 1024)
	for {
		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			v := frame[0]
			if format.NumChannels > 1 {
				v = (frame[0] + frame[1]) / 2
			}
			samples = append(samples, math.Round(v*int16Scale))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to read WAV samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyStream
	}

	result := &Result{
		Samples: samples,
		Format: AudioFormat{
			SampleRate: float64(format.SampleRate),
			Channels:   format.NumChannels,
			BitDepth:   format.Precision * 8,
			Encoding:   "pcm",
		},
		Metadata: &Metadata{},
	}
	result.Metadata.Duration = durationOf(len(samples), result.Format.SampleRate)
	return result, nil
}

// EncodeWAV writes samples on the 16-bit amplitude grid as a mono 16-bit PCM
// wave file.
func EncodeWAV(w io.WriteSeeker, samples []float64, sampleRate float64) error {
	if len(samples) == 0 {
		return ErrEmptyStream
	}
	if sampleRate < 1 {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidData, sampleRate)
	}

	pos := 0
	streamer := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := fillFrames(buf, samples[pos:])
		pos += n
		return n, true
	})

	format := beep.Format{
		SampleRate:  beep.SampleRate(math.Round(sampleRate)),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, streamer, format); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	return nil
}

// fillFrames fills buf with normalized samples. Each value is pushed a quarter step
// away from zero so the encoder lands on the same integer.
func fillFrames(buf [][2]float64, samples []float64) int {
	n := len(buf)
	if len(samples) < n {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		v := math.Round(samples[i])
		v += math.Copysign(0.25, v)
		v /= int16Scale
		buf[i][0], buf[i][1] = v, v
	}
	return n
}
