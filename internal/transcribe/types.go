package transcribe

import "strings"

// Vendor transcript lifecycle statuses as returned by the poll endpoint.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Transcript is the vendor's transcript resource. Optional analysis sections
// are nil or empty unless they were requested at submit time.
type Transcript struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Text             string            `json:"text,omitempty"`
	Utterances       []Utterance       `json:"utterances,omitempty"`
	Summary          string            `json:"summary,omitempty"`
	TopicsResult     *TopicsResult     `json:"iab_categories_result,omitempty"`
	SentimentResults []SentimentResult `json:"sentiment_analysis_results,omitempty"`
	AudioDuration    float64           `json:"audio_duration,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// Utterance is one diarized speaker turn. Times are in milliseconds.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Words   []Word `json:"words,omitempty"`
}

// Word is one recognized token with timing. Times are in milliseconds.
type Word struct {
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Speaker string `json:"speaker,omitempty"`
}

// TopicsResult maps detected topic taxonomy labels to relevance scores.
type TopicsResult struct {
	Summary map[string]float64 `json:"summary"`
}

// SentimentResult is per-sentence sentiment classification.
type SentimentResult struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// SpeakerLabels returns the distinct diarization labels in order of first
// appearance.
func (t *Transcript) SpeakerLabels() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, u := range t.Utterances {
		if u.Speaker == "" {
			continue
		}
		if _, ok := seen[u.Speaker]; ok {
			continue
		}
		seen[u.Speaker] = struct{}{}
		labels = append(labels, u.Speaker)
	}
	return labels
}

// WordCount counts recognized words, falling back to whitespace splitting of
// the full text when word-level timings are absent.
func (t *Transcript) WordCount() int {
	total := 0
	for _, u := range t.Utterances {
		total += len(u.Words)
	}
	if total > 0 {
		return total
	}
	return len(strings.Fields(t.Text))
}

// Preview returns the first utterance's text truncated to max runes, used as
// the one-line teaser in history lists.
func (t *Transcript) Preview(max int) string {
	text := t.Text
	if len(t.Utterances) > 0 {
		text = t.Utterances[0].Text
	}
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
