package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// DefaultCSVSampleRate is used for single-column traces when no rate is
// configured.
const DefaultCSVSampleRate = 360.0

// DecoderFactory manages all available decoders
type DecoderFactory struct {
	decoders map[domain.SourceFormat]Decoder
}

// FactoryOption configures a DecoderFactory.
type FactoryOption func(*DecoderFactory)

// WithCSVSampleRate sets the rate assumed for traces without a time column.
func WithCSVSampleRate(rate float64) FactoryOption {
	return func(f *DecoderFactory) {
		f.RegisterDecoder(&CSVDecoder{SampleRate: rate})
	}
}

// NewDecoderFactory creates a factory with every built-in decoder registered
func NewDecoderFactory(opts ...FactoryOption) *DecoderFactory {
	f := &DecoderFactory{
		decoders: make(map[domain.SourceFormat]Decoder),
	}

	f.RegisterDecoder(&WAVDecoder{})
	f.RegisterDecoder(&MP3Decoder{})
	f.RegisterDecoder(&FLACDecoder{})
	f.RegisterDecoder(&CSVDecoder{SampleRate: DefaultCSVSampleRate})

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterDecoder registers or replaces the decoder for its format
func (f *DecoderFactory) RegisterDecoder(d Decoder) {
	f.decoders[d.Format()] = d
}

// DecoderFor returns the decoder matching the file extension of path
func (f *DecoderFactory) DecoderFor(path string) (Decoder, error) {
	format := domain.DetectFormat(path)
	d, exists := f.decoders[format]
	if format == "" || !exists {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return d, nil
}

// DecodeFile decodes the whole file at path
func (f *DecoderFactory) DecodeFile(path string) (*Result, error) {
	d, err := f.DecoderFor(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileAccessDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return d.Decode(file)
}

// Decode decodes an in-memory or already opened source of the given format
func (f *DecoderFactory) Decode(format domain.SourceFormat, reader io.ReadSeeker) (*Result, error) {
	d, exists := f.decoders[format]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
	return d.Decode(reader)
}

// LoadSignal decodes path into a domain signal titled after its tags or the
// file name.
func (f *DecoderFactory) LoadSignal(path string) (*domain.Signal, error) {
	result, err := f.DecodeFile(path)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFile, err)
		}
		return nil, err
	}
	title := domain.DisplayTitle(result.Metadata.Title, path)
	sig, err := result.Signal(title)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

// SupportsFormat checks if a format is supported
func (f *DecoderFactory) SupportsFormat(format string) bool {
	_, exists := f.decoders[domain.DetectFormat("x."+strings.TrimPrefix(format, "."))]
	return exists
}

// SupportedFormats returns all supported formats, sorted
func (f *DecoderFactory) SupportedFormats() []string {
	formats := make([]string, 0, len(f.decoders))
	for format := range f.decoders {
		formats = append(formats, string(format))
	}
	sort.Strings(formats)
	return formats
}

// Global decoder factory instance
var globalFactory = NewDecoderFactory()

// GetDecoderFactory returns the global decoder factory
func GetDecoderFactory() *DecoderFactory {
	return globalFactory
}

// LoadSignal is a convenience function using the global factory
func LoadSignal(path string) (*domain.Signal, error) {
	return globalFactory.LoadSignal(path)
}

// SupportsFile checks if a file format is supported
func SupportsFile(path string) bool {
	return globalFactory.SupportsFormat(filepath.Ext(path))
}
