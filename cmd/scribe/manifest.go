package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scribe/internal/domain"
)

// Manifest is the YAML description of a headless transcription batch:
// shared defaults plus one entry per media file.
type Manifest struct {
	OutputDir string          `yaml:"output_dir"`
	Defaults  ManifestOptions `yaml:"defaults"`
	Files     []ManifestEntry `yaml:"files"`
}

// ManifestOptions mirrors the per-job transcription options in YAML form.
type ManifestOptions struct {
	Speakers         int      `yaml:"speakers"`
	BoostWords       []string `yaml:"boost_words"`
	Summary          bool     `yaml:"summary"`
	Topics           bool     `yaml:"topics"`
	Sentiment        bool     `yaml:"sentiment"`
	KeyPhrases       bool     `yaml:"key_phrases"`
	ConversationType string   `yaml:"conversation_type"`
}

// ManifestEntry is one media file in the batch. Pointer fields override the
// batch defaults only when set; a non-empty boost list replaces the default
// list outright.
type ManifestEntry struct {
	Path             string   `yaml:"path"`
	Speakers         *int     `yaml:"speakers"`
	BoostWords       []string `yaml:"boost_words"`
	Summary          *bool    `yaml:"summary"`
	Topics           *bool    `yaml:"topics"`
	Sentiment        *bool    `yaml:"sentiment"`
	KeyPhrases       *bool    `yaml:"key_phrases"`
	ConversationType *string  `yaml:"conversation_type"`
}

// loadManifest reads a YAML manifest from path and returns a validated Manifest.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return parseManifest(data)
}

// parseManifest unmarshals YAML bytes into a validated Manifest.
func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// applyDefaults normalizes whitespace-only values.
func (m *Manifest) applyDefaults() {
	m.OutputDir = strings.TrimSpace(m.OutputDir)
	m.Defaults.ConversationType = strings.TrimSpace(m.Defaults.ConversationType)
	for i := range m.Files {
		m.Files[i].Path = strings.TrimSpace(m.Files[i].Path)
	}
}

// validate checks that all required fields are present and consistent.
func (m *Manifest) validate() error {
	var errs []string
	if len(m.Files) == 0 {
		errs = append(errs, "at least one file is required")
	}
	if m.Defaults.Speakers < 0 {
		errs = append(errs, "defaults.speakers must not be negative")
	}
	if !knownConversationType(m.Defaults.ConversationType) {
		errs = append(errs, fmt.Sprintf("defaults.conversation_type %q is not recognized", m.Defaults.ConversationType))
	}
	for i, entry := range m.Files {
		if entry.Path == "" {
			errs = append(errs, fmt.Sprintf("files[%d].path is required", i))
		}
		if entry.Speakers != nil && *entry.Speakers < 0 {
			errs = append(errs, fmt.Sprintf("files[%d].speakers must not be negative", i))
		}
		if entry.ConversationType != nil && !knownConversationType(*entry.ConversationType) {
			errs = append(errs, fmt.Sprintf("files[%d].conversation_type %q is not recognized", i, *entry.ConversationType))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manifest: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Options resolves the effective transcription options for one entry by
// layering its overrides on the batch defaults.
func (m *Manifest) Options(entry ManifestEntry) domain.TranscriptionOptions {
	opts := m.Defaults.toDomain()
	if entry.Speakers != nil {
		opts.MaxSpeakers = nil
		if *entry.Speakers > 0 {
			count := *entry.Speakers
			opts.MaxSpeakers = &count
		}
	}
	if len(entry.BoostWords) > 0 {
		opts.BoostWords = append([]string(nil), entry.BoostWords...)
	}
	if entry.Summary != nil {
		opts.IncludeSummary = *entry.Summary
	}
	if entry.Topics != nil {
		opts.DetectTopics = *entry.Topics
	}
	if entry.Sentiment != nil {
		opts.AnalyzeSentiment = *entry.Sentiment
	}
	if entry.KeyPhrases != nil {
		opts.ExtractKeyPhrases = *entry.KeyPhrases
	}
	if entry.ConversationType != nil {
		opts.ConversationType = strings.TrimSpace(*entry.ConversationType)
	}
	return opts
}

func (o ManifestOptions) toDomain() domain.TranscriptionOptions {
	opts := domain.TranscriptionOptions{
		BoostWords:        append([]string(nil), o.BoostWords...),
		IncludeSummary:    o.Summary,
		DetectTopics:      o.Topics,
		AnalyzeSentiment:  o.Sentiment,
		ExtractKeyPhrases: o.KeyPhrases,
		ConversationType:  o.ConversationType,
	}
	if o.Speakers > 0 {
		count := o.Speakers
		opts.MaxSpeakers = &count
	}
	return opts
}
