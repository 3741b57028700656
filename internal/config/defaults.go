package config

import (
	"os"
	"path/filepath"

	"scribe/internal/domain"
)

// dataDirName is the hidden per-user directory everything lives under.
const dataDirName = ".scribe"

// DataDir returns the per-user application data directory.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, dataDirName)
}

// SettingsPath returns the JSON settings file location.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// DatabasePath returns the transcription history database location.
func DatabasePath() string {
	return filepath.Join(DataDir(), "scribe.db")
}

// AudioDir returns where converted audio copies are archived alongside
// history records.
func AudioDir() string {
	return filepath.Join(DataDir(), "audio")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir: filepath.Join(homeDir, "Documents", "Transcripts"),
	}
}

// ApplyEnv overlays environment variables onto file-backed settings. A set
// variable always wins, so shell sessions and CI can override the saved file
// without touching it.
func ApplyEnv(s domain.Settings) domain.Settings {
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.OpenAIKey = v
	}
	if v := os.Getenv("SCRIBE_OUTPUT_DIR"); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		s.SlackWebhookURL = v
	}
	return s
}
