package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"scribe/internal/domain"
)

const (
	apiBase = "https://api.assemblyai.com"

	// The vendor caps word_boost lists; longer lists are rejected outright.
	maxBoostTerms = 200
)

// ErrMissingAPIKey indicates no transcription credential is configured.
var ErrMissingAPIKey = errors.New("transcription api key is not configured")

// KeyFunc supplies the API credential at call time, so settings changes take
// effect without rebuilding the client.
type KeyFunc func() string

// Client talks to the AssemblyAI v2 REST API.
type Client struct {
	base string
	key  KeyFunc
	http *http.Client
	log  *logrus.Logger
}

// NewClient constructs a production client. The generous timeout covers
// uploads of multi-hour recordings on slow links.
func NewClient(key KeyFunc, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		base: apiBase,
		key:  key,
		http: &http.Client{Timeout: 5 * time.Minute},
		log:  log,
	}
}

// NewClientForTests constructs a client against an arbitrary base URL.
func NewClientForTests(base string, key KeyFunc) *Client {
	return &Client{
		base: base,
		key:  key,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  logrus.StandardLogger(),
	}
}

// Upload sends the audio file's raw bytes to the vendor and returns the
// private URL later passed to Submit.
func (c *Client) Upload(ctx context.Context, audioPath string) (string, error) {
	key, err := c.apiKey()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v2/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", key)
	req.Header.Set("Content-Type", "application/octet-stream")

	c.log.WithField("bytes", len(data)).Debug("uploading audio")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload response did not include an upload_url")
	}
	return out.UploadURL, nil
}

// Submit creates a transcript job for the uploaded audio and returns the
// vendor transcript id to poll.
func (c *Client) Submit(ctx context.Context, audioURL string, opts domain.TranscriptionOptions) (string, error) {
	payload := buildSubmitRequest(audioURL, opts)

	var out Transcript
	if err := c.postJSON(ctx, "/v2/transcript", payload, &out); err != nil {
		return "", fmt.Errorf("submit transcript: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("submit response did not include a transcript id")
	}
	return out.ID, nil
}

// PollOnce fetches the transcript resource once. It returns the resource for
// any vendor status; callers decide what queued, processing, completed, and
// error mean for them.
func (c *Client) PollOnce(ctx context.Context, transcriptID string) (*Transcript, error) {
	var out Transcript
	if err := c.getJSON(ctx, "/v2/transcript/"+transcriptID, &out); err != nil {
		return nil, fmt.Errorf("poll transcript %s: %w", transcriptID, err)
	}
	return &out, nil
}

// submitRequest mirrors the vendor's transcript creation schema. Optional
// features are omitted entirely when off so the vendor applies its defaults.
type submitRequest struct {
	AudioURL            string               `json:"audio_url"`
	SpeakerLabels       bool                 `json:"speaker_labels"`
	SpeakersExpected    *int                 `json:"speakers_expected,omitempty"`
	WordBoost           []string             `json:"word_boost,omitempty"`
	Summarization       bool                 `json:"summarization,omitempty"`
	SummaryModel        string               `json:"summary_model,omitempty"`
	SummaryType         string               `json:"summary_type,omitempty"`
	IABCategories       bool                 `json:"iab_categories,omitempty"`
	SentimentAnalysis   bool                 `json:"sentiment_analysis,omitempty"`
	AutoHighlights      bool                 `json:"auto_highlights,omitempty"`
	SpeechUnderstanding *speechUnderstanding `json:"speech_understanding,omitempty"`
}

type speechUnderstanding struct {
	Request understandingRequest `json:"request"`
}

type understandingRequest struct {
	SpeakerIdentification speakerIdentification `json:"speaker_identification"`
}

type speakerIdentification struct {
	SpeakerType string   `json:"speaker_type"`
	KnownValues []string `json:"known_values"`
}

// buildSubmitRequest maps job options onto the vendor schema. Diarization is
// always on; everything else follows the option snapshot.
func buildSubmitRequest(audioURL string, opts domain.TranscriptionOptions) submitRequest {
	req := submitRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     true,
		SpeakersExpected:  opts.MaxSpeakers,
		WordBoost:         boostTerms(opts.BoostWords),
		Summarization:     opts.IncludeSummary,
		IABCategories:     opts.DetectTopics,
		SentimentAnalysis: opts.AnalyzeSentiment,
		AutoHighlights:    opts.ExtractKeyPhrases,
	}

	if opts.IncludeSummary {
		req.SummaryModel = "informative"
		req.SummaryType = "bullets"
	}

	if roles := RolesFor(opts.ConversationType); len(roles) > 0 {
		req.SpeechUnderstanding = &speechUnderstanding{
			Request: understandingRequest{
				SpeakerIdentification: speakerIdentification{
					SpeakerType: "role",
					KnownValues: roles,
				},
			},
		}
	}

	return req
}

// boostTerms dedupes the boost list and trims it to the vendor limit.
func boostTerms(terms []string) []string {
	cleaned := lo.Filter(lo.Uniq(terms), func(term string, _ int) bool {
		return strings.TrimSpace(term) != ""
	})
	if len(cleaned) > maxBoostTerms {
		cleaned = cleaned[:maxBoostTerms]
	}
	return cleaned
}

// conversationRoles maps a conversation type hint to the role labels the
// vendor should assign to diarized speakers.
var conversationRoles = map[string][]string{
	"interview":     {"Interviewer", "Interviewee"},
	"podcast":       {"Host", "Guest"},
	"customer-call": {"Agent", "Customer"},
	"meeting":       {"Presenter", "Participant"},
	"panel":         {"Moderator", "Panelist"},
	"support":       {"Support", "Customer"},
}

// RolesFor returns the speaker role labels for a conversation type hint, or
// nil when the hint is empty or unknown.
func RolesFor(conversationType string) []string {
	roles, ok := conversationRoles[strings.TrimSpace(conversationType)]
	if !ok {
		return nil
	}
	return append([]string(nil), roles...)
}

// apiKey resolves the current credential or fails with ErrMissingAPIKey.
func (c *Client) apiKey() (string, error) {
	if c.key == nil {
		return "", ErrMissingAPIKey
	}
	key := strings.TrimSpace(c.key())
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// postJSON sends an authorized JSON POST and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	key, err := c.apiKey()
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", key)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// getJSON sends an authorized GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	key, err := c.apiKey()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", key)

	return c.do(req, out)
}

// do executes the request, surfacing non-2xx bodies in the error message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
