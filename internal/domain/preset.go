package domain

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// Preset is a named, persisted set of equalizer parameters.
type Preset struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Mode      string    `json:"mode" gorm:"index"`
	Window    string    `json:"window"`
	Gains     []float64 `json:"gains" gorm:"serializer:json"`
	Comment   string    `json:"comment"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPreset(name string, mode Mode, window WindowKind, gains []float64) (*Preset, error) {
	now := time.Now()
	p := &Preset{
		ID:        generatePresetID(),
		Name:      strings.TrimSpace(name),
		Mode:      mode.String(),
		Window:    window.String(),
		Gains:     append([]float64(nil), gains...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if _, err := ParseMode(p.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if _, err := ParseWindowKind(p.Window); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if len(p.Gains) == 0 {
		return fmt.Errorf("%w: no gains", ErrInvalidPreset)
	}
	for i, g := range p.Gains {
		if g < 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%w: gain %d is %v", ErrInvalidPreset, i, g)
		}
	}
	return nil
}

// Settings returns the parsed mode and window kind.
func (p *Preset) Settings() (Mode, WindowKind, error) {
	mode, err := ParseMode(p.Mode)
	if err != nil {
		return 0, 0, err
	}
	window, err := ParseWindowKind(p.Window)
	if err != nil {
		return 0, 0, err
	}
	return mode, window, nil
}

func (p *Preset) Clone() *Preset {
	clone := *p
	clone.Gains = append([]float64(nil), p.Gains...)
	return &clone
}

var presetSeq atomic.Uint64

func generatePresetID() string {
	return fmt.Sprintf("preset_%d_%d", time.Now().UnixNano(), presetSeq.Add(1))
}

type PresetRepository interface {
	Create(preset *Preset) error
	Update(preset *Preset) error
	Delete(id string) error
	FindByID(id string) (*Preset, error)
	FindByName(name string) (*Preset, error)
	FindAll() ([]*Preset, error)
	FindByMode(mode Mode) ([]*Preset, error)
	Count() (int64, error)
}
