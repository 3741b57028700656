package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// VocabularyData bundles every category and vocabulary for the picker.
type VocabularyData struct {
	Categories   []VocabularyCategory `json:"categories"`
	Vocabularies []Vocabulary         `json:"vocabularies"`
}

// VocabularyUpdate carries optional field changes; nil fields keep their
// current value.
type VocabularyUpdate struct {
	Name       *string
	CategoryID *string
	Terms      *[]string
}

// systemCategories returns the categories that ship with the application.
func systemCategories() []VocabularyCategory {
	return []VocabularyCategory{
		{ID: "life-sciences", Name: "Life Sciences", System: true},
	}
}

// systemVocabularies returns the term lists that ship with the application.
// Seeding upserts them, so edits here roll out on upgrade.
func systemVocabularies() []Vocabulary {
	return []Vocabulary{
		{
			ID:         "sys-clinical-research",
			Name:       "Clinical Research",
			CategoryID: "life-sciences",
			System:     true,
			Terms: []string{
				"randomized controlled trial", "double-blind", "placebo",
				"primary endpoint", "efficacy", "adverse event",
				"informed consent", "protocol amendment", "cohort",
				"biomarker", "pharmacokinetics", "dose escalation",
				"titration", "washout period", "intent-to-treat",
			},
		},
		{
			ID:         "sys-regulatory-affairs",
			Name:       "Regulatory Affairs",
			CategoryID: "life-sciences",
			System:     true,
			Terms: []string{
				"FDA", "EMA", "IND", "NDA", "BLA", "GMP", "GCP",
				"pharmacovigilance", "REMS", "orphan drug", "fast track",
				"breakthrough therapy", "biosimilar", "formulary",
				"prior authorization",
			},
		},
		{
			ID:         "sys-biotech",
			Name:       "Biotech",
			CategoryID: "life-sciences",
			System:     true,
			Terms: []string{
				"CRISPR", "monoclonal antibody", "mRNA", "CAR-T",
				"gene therapy", "immunotherapy", "bioreactor", "cell line",
				"plasmid", "next-generation sequencing", "proteomics",
				"assay validation",
			},
		},
	}
}

// LoadVocabularies returns all categories and vocabularies, system entries
// first, with term lists hydrated.
func (s *Store) LoadVocabularies(ctx context.Context) (*VocabularyData, error) {
	var categories []VocabularyCategory
	result := s.db.WithContext(ctx).Order("system DESC, name").Find(&categories)
	if result.Error != nil {
		return nil, fmt.Errorf("store: load categories: %w", result.Error)
	}

	var vocabularies []Vocabulary
	result = s.db.WithContext(ctx).Order("system DESC, name").Find(&vocabularies)
	if result.Error != nil {
		return nil, fmt.Errorf("store: load vocabularies: %w", result.Error)
	}
	for i := range vocabularies {
		vocabularies[i].Terms = unmarshalTerms(vocabularies[i].TermsJSON)
	}

	return &VocabularyData{Categories: categories, Vocabularies: vocabularies}, nil
}

// CreateVocabulary adds a user vocabulary to the given category.
func (s *Store) CreateVocabulary(ctx context.Context, name, categoryID string, terms []string) (*Vocabulary, error) {
	if categoryID == "" {
		categoryID = userCategoryID
	}
	vocab := Vocabulary{
		ID:         s.newID(),
		Name:       name,
		CategoryID: categoryID,
		TermsJSON:  marshalTerms(terms),
	}
	if err := s.db.WithContext(ctx).Create(&vocab).Error; err != nil {
		return nil, fmt.Errorf("store: create vocabulary %q: %w", name, err)
	}
	vocab.Terms = unmarshalTerms(vocab.TermsJSON)
	return &vocab, nil
}

// UpdateVocabulary applies field changes to a user vocabulary. System
// vocabularies are read-only.
func (s *Store) UpdateVocabulary(ctx context.Context, id string, update VocabularyUpdate) (*Vocabulary, error) {
	vocab, err := s.getVocabulary(ctx, id)
	if err != nil {
		return nil, err
	}
	if vocab.System {
		return nil, ErrSystemVocabulary
	}

	if update.Name != nil {
		vocab.Name = *update.Name
	}
	if update.CategoryID != nil {
		vocab.CategoryID = *update.CategoryID
	}
	if update.Terms != nil {
		vocab.TermsJSON = marshalTerms(*update.Terms)
	}
	if err := s.db.WithContext(ctx).Save(vocab).Error; err != nil {
		return nil, fmt.Errorf("store: update vocabulary %s: %w", id, err)
	}
	vocab.Terms = unmarshalTerms(vocab.TermsJSON)
	return vocab, nil
}

// DeleteVocabulary removes a user vocabulary. System vocabularies are
// read-only.
func (s *Store) DeleteVocabulary(ctx context.Context, id string) error {
	vocab, err := s.getVocabulary(ctx, id)
	if err != nil {
		return err
	}
	if vocab.System {
		return ErrSystemVocabulary
	}
	if err := s.db.WithContext(ctx).Delete(&Vocabulary{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: delete vocabulary %s: %w", id, err)
	}
	return nil
}

// DuplicateVocabulary copies any vocabulary, system ones included, into the
// user category under a new name.
func (s *Store) DuplicateVocabulary(ctx context.Context, id, newName string) (*Vocabulary, error) {
	source, err := s.getVocabulary(ctx, id)
	if err != nil {
		return nil, err
	}
	clone := Vocabulary{
		ID:         s.newID(),
		Name:       newName,
		CategoryID: userCategoryID,
		TermsJSON:  source.TermsJSON,
	}
	if err := s.db.WithContext(ctx).Create(&clone).Error; err != nil {
		return nil, fmt.Errorf("store: duplicate vocabulary %s: %w", id, err)
	}
	clone.Terms = unmarshalTerms(clone.TermsJSON)
	return &clone, nil
}

// CreateVocabularyCategory adds a user category. The id is derived from the
// name, so creating the same name twice fails on the primary key.
func (s *Store) CreateVocabularyCategory(ctx context.Context, name string) (*VocabularyCategory, error) {
	category := VocabularyCategory{
		ID:   strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Name: name,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("store: create category %q: %w", name, err)
	}
	return &category, nil
}

// ExportVocabularies serializes the user's categories and vocabularies.
// System entries ship with the application and are not exported.
func (s *Store) ExportVocabularies(ctx context.Context) (string, error) {
	var categories []VocabularyCategory
	result := s.db.WithContext(ctx).Where("system = ?", false).Order("name").Find(&categories)
	if result.Error != nil {
		return "", fmt.Errorf("store: export categories: %w", result.Error)
	}
	var vocabularies []Vocabulary
	result = s.db.WithContext(ctx).Where("system = ?", false).Order("name").Find(&vocabularies)
	if result.Error != nil {
		return "", fmt.Errorf("store: export vocabularies: %w", result.Error)
	}
	for i := range vocabularies {
		vocabularies[i].Terms = unmarshalTerms(vocabularies[i].TermsJSON)
	}

	data, err := json.MarshalIndent(VocabularyData{Categories: categories, Vocabularies: vocabularies}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: export vocabularies: %w", err)
	}
	return string(data), nil
}

// ImportVocabularies merges an export payload into the user's data. Imported
// vocabularies get fresh ids and are never system entries; categories are
// merged by id. Returns the number of vocabularies imported.
func (s *Store) ImportVocabularies(ctx context.Context, payload string) (int, error) {
	var data VocabularyData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return 0, fmt.Errorf("store: parse import: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, category := range data.Categories {
			var count int64
			if err := tx.Model(&VocabularyCategory{}).Where("id = ?", category.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			category.System = false
			if err := tx.Create(&category).Error; err != nil {
				return err
			}
		}
		for _, vocab := range data.Vocabularies {
			vocab.ID = s.newID()
			vocab.System = false
			vocab.TermsJSON = marshalTerms(vocab.Terms)
			if vocab.CategoryID == "" {
				vocab.CategoryID = userCategoryID
			}
			if err := tx.Create(&vocab).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: import vocabularies: %w", err)
	}
	return len(data.Vocabularies), nil
}

// getVocabulary loads one vocabulary row without hydrating terms.
func (s *Store) getVocabulary(ctx context.Context, id string) (*Vocabulary, error) {
	var vocab Vocabulary
	err := s.db.WithContext(ctx).First(&vocab, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load vocabulary %s: %w", id, err)
	}
	return &vocab, nil
}
