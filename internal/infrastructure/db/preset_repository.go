package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eqstudio/eqstudio/internal/domain"
	"gorm.io/gorm"
)

type PresetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(database *Database) domain.PresetRepository {
	return &PresetRepository{
		db: database.DB(),
	}
}

func (r *PresetRepository) Create(preset *domain.Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	if err := r.db.Create(preset).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: preset %q", domain.ErrAlreadyExists, preset.Name)
		}
		return fmt.Errorf("failed to create preset: %w", err)
	}
	return nil
}

// Update replaces every stored field of the preset with the same ID.
func (r *PresetRepository) Update(preset *domain.Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	preset.UpdatedAt = time.Now().UTC()
	result := r.db.Model(preset).
		Select("name", "mode", "window", "gains", "comment", "updated_at").
		Updates(preset)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: preset %q", domain.ErrAlreadyExists, preset.Name)
		}
		return fmt.Errorf("failed to update preset: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrPresetNotFound
	}
	return nil
}

func (r *PresetRepository) Delete(id string) error {
	result := r.db.Delete(&domain.Preset{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete preset: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrPresetNotFound
	}
	return nil
}

func (r *PresetRepository) FindByID(id string) (*domain.Preset, error) {
	return r.findOne("id = ?", id)
}

func (r *PresetRepository) FindByName(name string) (*domain.Preset, error) {
	return r.findOne("name = ?", strings.TrimSpace(name))
}

func (r *PresetRepository) findOne(query string, arg interface{}) (*domain.Preset, error) {
	var preset domain.Preset
	if err := r.db.First(&preset, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to find preset: %w", err)
	}
	return &preset, nil
}

func (r *PresetRepository) FindAll() ([]*domain.Preset, error) {
	var presets []*domain.Preset
	if err := r.db.Order("name").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to find presets: %w", err)
	}
	return presets, nil
}

func (r *PresetRepository) FindByMode(mode domain.Mode) ([]*domain.Preset, error) {
	var presets []*domain.Preset
	if err := r.db.Where("mode = ?", mode.String()).Order("name").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to find presets by mode: %w", err)
	}
	return presets, nil
}

func (r *PresetRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&domain.Preset{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count presets: %w", err)
	}
	return count, nil
}
