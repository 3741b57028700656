package domain

// JobStatus tracks each pipeline stage for a single transcription job.
type JobStatus string

const (
	JobStatusQueued       JobStatus = "queued"
	JobStatusConverting   JobStatus = "converting"
	JobStatusUploading    JobStatus = "uploading"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusGenerating   JobStatus = "generating"
	JobStatusComplete     JobStatus = "complete"
	JobStatusError        JobStatus = "error"
)

// IsTerminal reports whether the status ends a pipeline run.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// IsActive reports whether a job with this status is currently mid-pipeline.
func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusConverting, JobStatusUploading, JobStatusTranscribing, JobStatusGenerating:
		return true
	default:
		return false
	}
}

// Job is one media file tracked from enqueue to finished document.
type Job struct {
	ID           string               `json:"id"`
	Filename     string               `json:"filename"`
	SourcePath   string               `json:"sourcePath"`
	Status       JobStatus            `json:"status"`
	Progress     int                  `json:"progress"`
	Error        string               `json:"error,omitempty"`
	OutputPath   string               `json:"outputPath,omitempty"`
	TranscriptID string               `json:"transcriptId,omitempty"`
	HistoryID    string               `json:"historyId,omitempty"`
	Options      TranscriptionOptions `json:"options"`
}

// TranscriptionOptions is the per-job configuration captured when the job is
// enqueued. A nil MaxSpeakers lets the vendor estimate the speaker count.
type TranscriptionOptions struct {
	MaxSpeakers       *int     `json:"maxSpeakers,omitempty"`
	BoostWords        []string `json:"boostWords,omitempty"`
	IncludeSummary    bool     `json:"includeSummary"`
	DetectTopics      bool     `json:"detectTopics"`
	AnalyzeSentiment  bool     `json:"analyzeSentiment"`
	ExtractKeyPhrases bool     `json:"extractKeyPhrases"`
	ConversationType  string   `json:"conversationType,omitempty"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	APIKey          string `json:"apiKey"`
	OpenAIKey       string `json:"openAiKey"`
	OutputDir       string `json:"outputDir"`
	SlackWebhookURL string `json:"slackWebhookUrl"`
}
