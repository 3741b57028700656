package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrSystemVocabulary is returned on attempts to edit or delete a vocabulary
// that ships with the application.
var ErrSystemVocabulary = errors.New("cannot modify a system vocabulary")

// userCategoryID is the built-in category that user-created and duplicated
// vocabularies land in.
const userCategoryID = "my-vocabularies"

// Store persists transcription history, vocabularies, and presets in a
// sqlite database, plus converted audio files next to it for playback.
type Store struct {
	db       *gorm.DB
	audioDir string
	log      *logrus.Logger

	newID    func() string
	now      func() time.Time
	mkdirAll func(path string, perm os.FileMode) error
	copyFile func(src, dst string) error
	remove   func(path string) error
}

// Open opens (or creates) the sqlite database at dbPath, migrates the
// schema, and seeds the built-in vocabularies. Converted audio copies are
// kept under audioDir.
func Open(dbPath, audioDir string, log *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	return newStore(db, audioDir, log)
}

// newStore migrates and seeds an already-open database.
func newStore(db *gorm.DB, audioDir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := seedVocabularies(db); err != nil {
		return nil, err
	}
	return &Store{
		db:       db,
		audioDir: audioDir,
		log:      log,
		newID:    uuid.NewString,
		now:      time.Now,
		mkdirAll: os.MkdirAll,
		copyFile: copyFile,
		remove:   os.Remove,
	}, nil
}

// seedVocabularies upserts the built-in categories and vocabularies so a
// fresh database starts with the shipped term lists and an empty user
// category.
func seedVocabularies(db *gorm.DB) error {
	for _, category := range systemCategories() {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "system"}),
		}).Create(&category)
		if result.Error != nil {
			return fmt.Errorf("store: seed category %q: %w", category.ID, result.Error)
		}
	}

	userCategory := VocabularyCategory{ID: userCategoryID, Name: "My Vocabularies"}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&userCategory)
	if result.Error != nil {
		return fmt.Errorf("store: seed category %q: %w", userCategoryID, result.Error)
	}

	for _, vocab := range systemVocabularies() {
		vocab.TermsJSON = marshalTerms(vocab.Terms)
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category_id", "terms_json", "system"}),
		}).Create(&vocab)
		if result.Error != nil {
			return fmt.Errorf("store: seed vocabulary %q: %w", vocab.ID, result.Error)
		}
	}
	return nil
}

// marshalTerms encodes a term list for its text column. Nil encodes as an
// empty list.
func marshalTerms(terms []string) string {
	if terms == nil {
		terms = []string{}
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalTerms decodes a text column back into a term list.
func unmarshalTerms(data string) []string {
	if data == "" {
		return []string{}
	}
	var terms []string
	if err := json.Unmarshal([]byte(data), &terms); err != nil || terms == nil {
		return []string{}
	}
	return terms
}

// copyFile copies src to dst, truncating dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// audioFilePath places an audio copy under the store's audio directory,
// keyed by history id and keeping the source extension.
func (s *Store) audioFilePath(historyID, sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".m4a"
	}
	return filepath.Join(s.audioDir, historyID+ext)
}
