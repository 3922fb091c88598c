package domain

import (
	"errors"
	"fmt"
)

var (
	// Base errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")

	// Signal errors
	ErrInvalidSignal   = errors.New("invalid signal")
	ErrNoSignalLoaded  = errors.New("no signal loaded")
	ErrSignalTooShort  = errors.New("signal too short")
	ErrUnsupportedFile = errors.New("unsupported signal file")

	// Equalizer errors
	ErrUnknownModeKey      = errors.New("unknown mode key")
	ErrUnknownMode         = errors.New("unknown mode")
	ErrUnknownWindow       = errors.New("unknown window kind")
	ErrBandIndexOutOfRange = errors.New("band index out of range")
	ErrInvalidGain         = errors.New("invalid gain")
	ErrInvalidParameter    = errors.New("invalid parameter")

	// Numeric errors
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
	ErrSpectrumLength    = errors.New("spectrum length does not match sample count")

	// Preset errors
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")

	// Audio engine errors
	ErrAudioDeviceNotFound = errors.New("audio device not found")
	ErrAudioFormatMismatch = errors.New("audio format mismatch")

	// File system errors
	ErrFileNotFound     = errors.New("file not found")
	ErrFileAccessDenied = errors.New("file access denied")
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code string, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewDomainErrorWithDetails(code string, message string, details string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// Error codes for consistent error handling
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInternal          = "INTERNAL"
	ErrCodeInvalidSignal     = "INVALID_SIGNAL"
	ErrCodeUnknownModeKey    = "UNKNOWN_MODE_KEY"
	ErrCodeBandIndex         = "BAND_INDEX_OUT_OF_RANGE"
	ErrCodeNumericDegeneracy = "NUMERIC_DEGENERACY"
	ErrCodeAudioDevice       = "AUDIO_DEVICE"
	ErrCodeFileSystem        = "FILE_SYSTEM"
)

// Code returns the error code matching err, or ErrCodeInternal.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	switch {
	case errors.Is(err, ErrInvalidSignal), errors.Is(err, ErrSignalTooShort):
		return ErrCodeInvalidSignal
	case errors.Is(err, ErrUnknownModeKey):
		return ErrCodeUnknownModeKey
	case errors.Is(err, ErrBandIndexOutOfRange):
		return ErrCodeBandIndex
	case IsNumericError(err):
		return ErrCodeNumericDegeneracy
	case IsNotFound(err):
		return ErrCodeNotFound
	case IsAlreadyExists(err):
		return ErrCodeAlreadyExists
	case IsInvalidInput(err):
		return ErrCodeInvalidInput
	case IsAudioError(err):
		return ErrCodeAudioDevice
	case IsFileSystemError(err):
		return ErrCodeFileSystem
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPresetNotFound) || errors.Is(err, ErrFileNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidSignal) ||
		errors.Is(err, ErrInvalidGain) || errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrBandIndexOutOfRange) || errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrUnknownWindow) || errors.Is(err, ErrUnknownModeKey) ||
		errors.Is(err, ErrInvalidPreset)
}

func IsNumericError(err error) bool {
	return errors.Is(err, ErrNumericDegeneracy) || errors.Is(err, ErrSpectrumLength)
}

func IsAudioError(err error) bool {
	return errors.Is(err, ErrAudioDeviceNotFound) || errors.Is(err, ErrAudioFormatMismatch)
}

func IsFileSystemError(err error) bool {
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrFileAccessDenied)
}
