package store

import "time"

// HistoryRecord is one finished transcription run, kept for later browsing,
// re-export, and playback.
type HistoryRecord struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Filename        string    `gorm:"size:255" json:"filename"`
	SourcePath      string    `gorm:"type:text" json:"sourcePath"`
	DocumentPath    string    `gorm:"type:text" json:"documentPath"`
	AudioPath       string    `gorm:"type:text" json:"audioPath"`
	SpeakerCount    int       `json:"speakerCount"`
	WordCount       int       `json:"wordCount"`
	DurationSeconds int       `json:"durationSeconds"`
	Preview         string    `gorm:"type:text" json:"preview"`
	TranscriptJSON  string    `gorm:"type:text" json:"transcriptJson"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
}

// HistorySummary is the list-view projection of a HistoryRecord, without the
// transcript payload.
type HistorySummary struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	CreatedAt    time.Time `json:"createdAt"`
	SpeakerCount int       `json:"speakerCount"`
	WordCount    int       `json:"wordCount"`
	Preview      string    `json:"preview"`
	DocumentPath string    `json:"documentPath"`
}

// Vocabulary is a named list of boost terms. System vocabularies ship with
// the application and cannot be edited or deleted.
type Vocabulary struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:255" json:"name"`
	CategoryID string    `gorm:"size:64;index" json:"category"`
	TermsJSON  string    `gorm:"type:text" json:"-"`
	Terms      []string  `gorm:"-" json:"terms"`
	System     bool      `gorm:"default:false" json:"isSystem"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// VocabularyCategory groups vocabularies in the picker.
type VocabularyCategory struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	Name   string `gorm:"size:255" json:"name"`
	System bool   `gorm:"default:false" json:"isSystem"`
}

// Preset is a saved set of boost terms the user can apply to new jobs.
type Preset struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	TermsJSON string    `gorm:"type:text" json:"-"`
	Terms     []string  `gorm:"-" json:"terms"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// allModels lists every table the store migrates.
func allModels() []any {
	return []any{
		&HistoryRecord{},
		&Vocabulary{},
		&VocabularyCategory{},
		&Preset{},
	}
}
