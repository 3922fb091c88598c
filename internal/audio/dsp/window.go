package dsp

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// Shape returns a window curve of exactly length samples scaled by gain.
// sigma is the Gaussian standard deviation measured in curve samples; the
// equalizer passes the spread of the whole frequency axis so every band shares
// one scale. A zero length yields an empty curve.
func Shape(kind domain.WindowKind, length int, gain, sigma float64) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: window length %d", domain.ErrInvalidParameter, length)
	}
	if length == 0 {
		return []float64{}, nil
	}

	var curve []float64
	switch kind {
	case domain.WindowRectangle:
		curve = ones(length)
	case domain.WindowHamming:
		if length == 1 {
			curve = ones(1)
		} else {
			curve = window.Hamming(length)
		}
	case domain.WindowHanning:
		if length == 1 {
			curve = ones(1)
		} else {
			curve = window.Hann(length)
		}
	case domain.WindowGaussian:
		g, err := gaussian(length, sigma)
		if err != nil {
			return nil, err
		}
		curve = g
	default:
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownWindow, int(kind))
	}

	for i := range curve {
		curve[i] *= gain
	}
	return curve, nil
}

// gaussian returns a symmetric Gaussian kernel centred on the middle sample.
func gaussian(length int, sigma float64) ([]float64, error) {
	if length == 1 {
		return ones(1), nil
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("%w: gaussian sigma %v", domain.ErrNumericDegeneracy, sigma)
	}

	curve := make([]float64, length)
	center := float64(length-1) / 2
	for i := range curve {
		n := (float64(i) - center) / sigma
		curve[i] = math.Exp(-0.5 * n * n)
	}
	return curve, nil
}

func ones(n int) []float64 {
	curve := make([]float64, n)
	for i := range curve {
		curve[i] = 1
	}
	return curve
}
