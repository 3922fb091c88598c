package domain

import (
	"path/filepath"
	"strings"
)

// SourceFormat is the file format a signal is imported from.
type SourceFormat string

const (
	FormatWAV  SourceFormat = "wav"
	FormatMP3  SourceFormat = "mp3"
	FormatFLAC SourceFormat = "flac"
	FormatCSV  SourceFormat = "csv"
)

// DetectFormat derives the source format from a file extension, or "".
func DetectFormat(filePath string) SourceFormat {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	switch ext {
	case "wav", "wave":
		return FormatWAV
	case "mp3":
		return FormatMP3
	case "flac":
		return FormatFLAC
	case "csv", "txt":
		return FormatCSV
	default:
		return ""
	}
}

// IsAudio reports whether the format carries an audio payload.
func (f SourceFormat) IsAudio() bool {
	return f == FormatWAV || f == FormatMP3 || f == FormatFLAC
}

func IsSignalFile(filePath string) bool {
	return DetectFormat(filePath) != ""
}

func GetSupportedFormats() []SourceFormat {
	return []SourceFormat{FormatWAV, FormatMP3, FormatFLAC, FormatCSV}
}

// DisplayTitle falls back to the file name when no title is known.
func DisplayTitle(title, filePath string) string {
	if title != "" {
		return title
	}
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}
