package decoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/go-mp3"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// MP3Decoder decodes MPEG layer III files
type MP3Decoder struct{}

func (d *MP3Decoder) Format() domain.SourceFormat {
	return domain.FormatMP3
}

// Decode reads the whole stream. go-mp3 always produces 16-bit little-endian
// stereo.
func (d *MP3Decoder) Decode(reader io.ReadSeeker) (*Result, error) {
	metadata := readTags(reader)
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind MP3 stream: %w", err)
	}

	stream, err := mp3.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create MP3 decoder: %v", ErrInvalidData, err)
	}

	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	const channels = 2
	count := len(pcm) / 2
	if count < channels {
		return nil, ErrEmptyStream
	}
	interleaved := make([]float64, count)
	for i := range interleaved {
		interleaved[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	samples := Downmix(interleaved, channels)
	format := AudioFormat{
		SampleRate: float64(stream.SampleRate()),
		Channels:   channels,
		BitDepth:   16,
		Encoding:   "mpeg",
	}
	metadata.Duration = durationOf(len(samples), format.SampleRate)

	return &Result{Samples: samples, Format: format, Metadata: metadata}, nil
}

// readTags extracts ID3, MP4 or Vorbis tags. Files without tags yield empty
// metadata.
func readTags(reader io.ReadSeeker) *Metadata {
	metadata := &Metadata{}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return metadata
	}
	m, err := tag.ReadFrom(reader)
	if err != nil {
		return metadata
	}
	metadata.Title = m.Title()
	metadata.Artist = m.Artist()
	metadata.Album = m.Album()
	metadata.Genre = m.Genre()
	metadata.Year = m.Year()
	metadata.Comment = m.Comment()
	return metadata
}
