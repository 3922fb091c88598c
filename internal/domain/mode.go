package domain

import (
	"fmt"
	"strings"
)

// Mode selects the band preset and the reconstruction policy.
type Mode int

const (
	ModeAnimals Mode = iota
	ModeMusic
	ModeUniform
	ModeECG
)

func (m Mode) String() string {
	switch m {
	case ModeAnimals:
		return "animals"
	case ModeMusic:
		return "music"
	case ModeUniform:
		return "uniform"
	case ModeECG:
		return "ecg"
	default:
		return "unknown"
	}
}

// Modes returns every mode in menu order.
func Modes() []Mode {
	return []Mode{ModeAnimals, ModeMusic, ModeUniform, ModeECG}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "animals", "animal":
		return ModeAnimals, nil
	case "music", "musical":
		return ModeMusic, nil
	case "uniform":
		return ModeUniform, nil
	case "ecg":
		return ModeECG, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// WindowKind selects the shaping curve applied inside each band.
type WindowKind int

const (
	WindowRectangle WindowKind = iota
	WindowHamming
	WindowHanning
	WindowGaussian
)

func (w WindowKind) String() string {
	switch w {
	case WindowRectangle:
		return "rectangle"
	case WindowHamming:
		return "hamming"
	case WindowHanning:
		return "hanning"
	case WindowGaussian:
		return "gaussian"
	default:
		return "unknown"
	}
}

// WindowKinds returns every window kind in toolbar order.
func WindowKinds() []WindowKind {
	return []WindowKind{WindowRectangle, WindowHamming, WindowHanning, WindowGaussian}
}

func ParseWindowKind(s string) (WindowKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rectangle", "rectangular", "rect":
		return WindowRectangle, nil
	case "hamming":
		return WindowHamming, nil
	case "hanning", "hann":
		return WindowHanning, nil
	case "gaussian", "gauss":
		return WindowGaussian, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWindow, s)
}

// ECGKey identifies which abnormality signature an ECG trace carries. It is
// supplied explicitly with the trace at load time.
type ECGKey string

const (
	ECGAbnormality1 ECGKey = "Abnormality 1"
	ECGAbnormality2 ECGKey = "Abnormality 2"
	ECGAbnormality3 ECGKey = "Abnormality 3"
	ECGNormal       ECGKey = "Normal"
)

// ECGKeys returns the known keys in slider order.
func ECGKeys() []ECGKey {
	return []ECGKey{ECGAbnormality1, ECGAbnormality2, ECGAbnormality3, ECGNormal}
}

// ParseECGKey accepts the display names and short forms such as "a1" or
// "abnormality-2".
func ParseECGKey(s string) (ECGKey, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	switch norm {
	case "abnormality 1", "abnormality1", "a1":
		return ECGAbnormality1, nil
	case "abnormality 2", "abnormality2", "a2":
		return ECGAbnormality2, nil
	case "abnormality 3", "abnormality3", "a3":
		return ECGAbnormality3, nil
	case "normal":
		return ECGNormal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModeKey, s)
}

// Valid reports whether k is one of the known keys.
func (k ECGKey) Valid() bool {
	for _, known := range ECGKeys() {
		if k == known {
			return true
		}
	}
	return false
}
