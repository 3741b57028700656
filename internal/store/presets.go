package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// SavePreset inserts or updates a boost-term preset. An empty id creates a
// new preset.
func (s *Store) SavePreset(ctx context.Context, preset Preset) (*Preset, error) {
	if preset.ID == "" {
		preset.ID = s.newID()
	}
	preset.TermsJSON = marshalTerms(preset.Terms)

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "terms_json", "updated_at"}),
	}).Create(&preset)
	if result.Error != nil {
		return nil, fmt.Errorf("store: save preset %q: %w", preset.Name, result.Error)
	}
	preset.Terms = unmarshalTerms(preset.TermsJSON)
	return &preset, nil
}

// ListPresets returns all presets sorted by name.
func (s *Store) ListPresets(ctx context.Context) ([]Preset, error) {
	var presets []Preset
	result := s.db.WithContext(ctx).Order("name").Find(&presets)
	if result.Error != nil {
		return nil, fmt.Errorf("store: list presets: %w", result.Error)
	}
	for i := range presets {
		presets[i].Terms = unmarshalTerms(presets[i].TermsJSON)
	}
	return presets, nil
}

// DeletePreset removes a preset. Unknown ids are a no-op.
func (s *Store) DeletePreset(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Preset{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: delete preset %s: %w", id, err)
	}
	return nil
}
