package domain

import "fmt"

// NeutralGain leaves a band at its original amplitude.
const NeutralGain = 1.0

// Band is a frequency range with a gain and a slider label. Bands of one mode
// may overlap; a bypassed band is never applied.
type Band struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Gain   float64 `json:"gain"`
	Label  string  `json:"label"`
	Bypass bool    `json:"bypass,omitempty"`
}

func NewBand(lower, upper float64, label string) (Band, error) {
	b := Band{Lower: lower, Upper: upper, Gain: NeutralGain, Label: label}
	if err := b.Validate(); err != nil {
		return Band{}, err
	}
	return b, nil
}

func (b Band) Validate() error {
	if b.Bypass {
		return nil
	}
	if b.Lower > b.Upper {
		return fmt.Errorf("%w: band %q lower %v > upper %v", ErrInvalidParameter, b.Label, b.Lower, b.Upper)
	}
	if b.Gain < 0 {
		return fmt.Errorf("%w: band %q gain %v", ErrInvalidGain, b.Label, b.Gain)
	}
	return nil
}

// Contains reports whether f lies within the inclusive band range.
func (b Band) Contains(f float64) bool {
	return !b.Bypass && f >= b.Lower && f <= b.Upper
}

func (b Band) Width() float64 {
	if b.Bypass {
		return 0
	}
	return b.Upper - b.Lower
}

func (b Band) String() string {
	if b.Bypass {
		return fmt.Sprintf("%s (bypass)", b.Label)
	}
	return fmt.Sprintf("%s [%g-%g Hz] x%g", b.Label, b.Lower, b.Upper, b.Gain)
}
