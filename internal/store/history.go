package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"scribe/internal/transcribe"
)

// previewRunes caps the transcript preview stored on a history row.
const previewRunes = 100

// RunInput carries everything needed to record a finished transcription run.
type RunInput struct {
	Filename     string
	SourcePath   string
	AudioPath    string
	DocumentPath string
	Transcript   *transcribe.Transcript
}

// SaveRun writes a history row for a completed run and copies the converted
// audio under the store's audio directory for later playback. The audio copy
// is best-effort; a failed copy is logged and the row is saved without it.
func (s *Store) SaveRun(ctx context.Context, in RunInput) (string, error) {
	id := s.newID()
	record := HistoryRecord{
		ID:           id,
		Filename:     in.Filename,
		SourcePath:   in.SourcePath,
		DocumentPath: in.DocumentPath,
		CreatedAt:    s.now().UTC(),
	}
	if in.Transcript != nil {
		record.SpeakerCount = len(in.Transcript.SpeakerLabels())
		record.WordCount = in.Transcript.WordCount()
		record.DurationSeconds = int(in.Transcript.AudioDuration)
		record.Preview = in.Transcript.Preview(previewRunes)
		if data, err := json.Marshal(in.Transcript); err == nil {
			record.TranscriptJSON = string(data)
		}
	}
	if in.AudioPath != "" {
		stored, err := s.storeAudio(in.AudioPath, id)
		if err != nil {
			s.log.WithFields(logrus.Fields{"historyId": id, "error": err}).
				Warn("keeping history entry without stored audio")
		} else {
			record.AudioPath = stored
		}
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if record.AudioPath != "" {
			s.remove(record.AudioPath)
		}
		return "", fmt.Errorf("store: save history: %w", err)
	}
	return id, nil
}

// storeAudio copies the converted audio file next to the database.
func (s *Store) storeAudio(sourcePath, historyID string) (string, error) {
	if err := s.mkdirAll(s.audioDir, 0o755); err != nil {
		return "", err
	}
	dest := s.audioFilePath(historyID, sourcePath)
	if err := s.copyFile(sourcePath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ListHistory returns summaries of every run, newest first.
func (s *Store) ListHistory(ctx context.Context) ([]HistorySummary, error) {
	var records []HistoryRecord
	result := s.db.WithContext(ctx).
		Select("id", "filename", "created_at", "speaker_count", "word_count", "preview", "document_path").
		Order("created_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("store: list history: %w", result.Error)
	}
	return lo.Map(records, func(r HistoryRecord, _ int) HistorySummary {
		return HistorySummary{
			ID:           r.ID,
			Filename:     r.Filename,
			CreatedAt:    r.CreatedAt,
			SpeakerCount: r.SpeakerCount,
			WordCount:    r.WordCount,
			Preview:      r.Preview,
			DocumentPath: r.DocumentPath,
		}
	}), nil
}

// GetHistory returns one full history row.
func (s *Store) GetHistory(ctx context.Context, id string) (*HistoryRecord, error) {
	var record HistoryRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load history %s: %w", id, err)
	}
	return &record, nil
}

// Transcript decodes the stored transcript payload of a history row.
func (s *Store) Transcript(ctx context.Context, id string) (*transcribe.Transcript, error) {
	record, err := s.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.TranscriptJSON == "" {
		return nil, fmt.Errorf("store: history %s has no transcript", id)
	}
	var transcript transcribe.Transcript
	if err := json.Unmarshal([]byte(record.TranscriptJSON), &transcript); err != nil {
		return nil, fmt.Errorf("store: decode transcript for %s: %w", id, err)
	}
	return &transcript, nil
}

// DeleteHistory removes a history row and its stored audio copy. Deleting an
// id that no longer exists is a no-op.
func (s *Store) DeleteHistory(ctx context.Context, id string) error {
	record, err := s.GetHistory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&HistoryRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: delete history %s: %w", id, err)
	}
	if record.AudioPath != "" {
		if err := s.remove(record.AudioPath); err != nil && !os.IsNotExist(err) {
			s.log.WithFields(logrus.Fields{"historyId": id, "error": err}).
				Warn("could not delete stored audio")
		}
	}
	return nil
}
