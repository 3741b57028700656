package vocab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	openAIBase = "https://api.openai.com"
	chatPath   = "/v1/chat/completions"

	extractModel    = "gpt-4o-mini"
	maxAnswerTokens = 4096

	// maxPromptBytes keeps long documents inside the model's context window.
	maxPromptBytes = 60000
)

// ErrMissingOpenAIKey indicates no extraction credential is configured.
var ErrMissingOpenAIKey = errors.New("openai api key is not configured")

// KeyFunc supplies the API credential at call time, so settings changes take
// effect without rebuilding the extractor.
type KeyFunc func() string

// Extraction is the model's structured answer: grouped terms plus a name
// suggestion for the resulting vocabulary.
type Extraction struct {
	Categories    []ExtractedCategory `json:"categories"`
	SuggestedName string              `json:"suggested_name"`
}

// ExtractedCategory is one group of extracted terms.
type ExtractedCategory struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// TermCount sums the terms across all categories.
func (e *Extraction) TermCount() int {
	total := 0
	for _, category := range e.Categories {
		total += len(category.Terms)
	}
	return total
}

// Extractor asks a chat model to mine speech-recognition boost terms out of
// document text.
type Extractor struct {
	base string
	key  KeyFunc
	http *http.Client
	log  *logrus.Logger
}

// NewExtractor constructs a production extractor.
func NewExtractor(key KeyFunc, log *logrus.Logger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{
		base: openAIBase,
		key:  key,
		http: &http.Client{Timeout: 2 * time.Minute},
		log:  log,
	}
}

// NewExtractorForTests constructs an extractor against an arbitrary base URL.
func NewExtractorForTests(base string, key KeyFunc) *Extractor {
	return &Extractor{
		base: base,
		key:  key,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  logrus.StandardLogger(),
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractTerms sends document text to the model and parses its JSON answer.
func (e *Extractor) ExtractTerms(ctx context.Context, text string) (*Extraction, error) {
	key := strings.TrimSpace(e.key())
	if key == "" {
		return nil, ErrMissingOpenAIKey
	}

	payload := chatRequest{
		Model:          extractModel,
		MaxTokens:      maxAnswerTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: "Extract domain-specific terms from this document:\n\n" + truncateUTF8(text, maxPromptBytes)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vocab: encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vocab: build extraction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	e.log.WithField("bytes", len(text)).Debug("extracting vocabulary terms")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vocab: extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vocab: api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vocab: decode extraction response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("vocab: model returned no answer")
	}

	var extraction Extraction
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &extraction); err != nil {
		return nil, fmt.Errorf("vocab: parse extracted terms: %w", err)
	}
	return &extraction, nil
}

// truncateUTF8 cuts text to at most max bytes without splitting a rune.
func truncateUTF8(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

const extractionPrompt = `You extract domain-specific terms from documents to improve speech-to-text accuracy.

Extract terms in these categories:
1. Drug Names - Generic names, brand names, drug classes
2. Medical Terms - Conditions, procedures, biomarkers
3. Acronyms - Medical and business abbreviations
4. Industry Terms - Specialized terminology
5. Organizations - Company names, institutions

Guidelines:
- Focus on terms speech-to-text might misrecognize
- Include multi-word phrases (up to 6 words)
- Exclude common words like "patient", "treatment"
- Prioritize proper nouns, acronyms, drug names

Return JSON:
{
  "categories": [
    {"name": "Drug Names", "terms": ["term1", "term2"]},
    {"name": "Medical Terms", "terms": [...]}
  ],
  "suggested_name": "Name based on document content"
}

Only return valid JSON. Omit empty categories. Aim for 20-150 terms.`
