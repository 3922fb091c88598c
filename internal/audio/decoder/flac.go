package decoder

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// FLACDecoder decodes FLAC files frame by frame.
type FLACDecoder struct{}

func (d *FLACDecoder) Format() domain.SourceFormat {
	return domain.FormatFLAC
}

func (d *FLACDecoder) Decode(reader io.ReadSeeker) (*Result, error) {
	fallback := readTags(reader)
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind FLAC stream: %w", err)
	}

	stream, err := flac.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse FLAC stream: %v", ErrInvalidData, err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels == 0 || info.SampleRate == 0 {
		return nil, fmt.Errorf("%w: FLAC stream info is incomplete", ErrInvalidData)
	}

	samples := make([]float64, 0, info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			sum := 0.0
			for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
				sum += ScaleToInt16(frame.Subframes[ch].Samples[i], bitDepth)
			}
			samples = append(samples, sum/float64(channels))
		}
	}
	if len(samples) == 0 {
		return nil, ErrEmptyStream
	}

	metadata := vorbisMetadata(stream.Blocks)
	if metadata.Title == "" {
		metadata.Title = fallback.Title
		metadata.Artist = fallback.Artist
		metadata.Album = fallback.Album
	}
	format := AudioFormat{
		SampleRate: float64(info.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
		Encoding:   "pcm",
	}
	metadata.Duration = durationOf(len(samples), format.SampleRate)

	return &Result{Samples: samples, Format: format, Metadata: metadata}, nil
}

func vorbisMetadata(blocks []*meta.Block) *Metadata {
	metadata := &Metadata{}
	for _, block := range blocks {
		comments, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, t := range comments.Tags {
			switch strings.ToUpper(t[0]) {
			case "TITLE":
				metadata.Title = t[1]
			case "ARTIST":
				metadata.Artist = t[1]
			case "ALBUM":
				metadata.Album = t[1]
			case "GENRE":
				metadata.Genre = t[1]
			case "DATE", "YEAR":
				if len(t[1]) >= 4 {
					metadata.Year, _ = strconv.Atoi(t[1][:4])
				}
			case "COMMENT":
				metadata.Comment = t[1]
			}
		}
	}
	return metadata
}
