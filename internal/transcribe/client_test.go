package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/lo"

	"scribe/internal/domain"
)

// TestUploadSendsRawBytesWithRawKeyAuth checks the upload wire format.
func TestUploadSendsRawBytesWithRawKeyAuth(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "clip.m4a")
	if err := os.WriteFile(audioPath, []byte("fake-aac-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/upload" {
			t.Fatalf("path = %s, want /v2/upload", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Fatalf("authorization = %q, want bare key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Fatalf("content type = %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(body) != "fake-aac-bytes" {
			t.Fatalf("body = %q", body)
		}
		fmt.Fprint(w, `{"upload_url":"https://cdn.example/private/abc"}`)
	}))
	defer server.Close()

	client := NewClientForTests(server.URL, func() string { return "test-key" })
	url, err := client.Upload(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://cdn.example/private/abc" {
		t.Fatalf("upload url = %q", url)
	}
}

// TestSubmitOmitsDisabledFeatures checks off-by-default fields stay off the wire.
func TestSubmitOmitsDisabledFeatures(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript" {
			t.Fatalf("path = %s, want /v2/transcript", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"id":"tr_1","status":"queued"}`)
	}))
	defer server.Close()

	client := NewClientForTests(server.URL, func() string { return "k" })
	id, err := client.Submit(context.Background(), "https://cdn.example/a", domain.TranscriptionOptions{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "tr_1" {
		t.Fatalf("id = %q, want tr_1", id)
	}

	if payload["audio_url"] != "https://cdn.example/a" {
		t.Fatalf("audio_url = %v", payload["audio_url"])
	}
	if payload["speaker_labels"] != true {
		t.Fatal("speaker_labels must always be true")
	}
	for _, key := range []string{
		"speakers_expected", "word_boost", "summarization", "summary_model",
		"summary_type", "iab_categories", "sentiment_analysis",
		"auto_highlights", "speech_understanding",
	} {
		if _, present := payload[key]; present {
			t.Fatalf("field %q should be omitted when disabled", key)
		}
	}
}

// TestSubmitCarriesEnabledFeatures checks the full option snapshot on the wire.
func TestSubmitCarriesEnabledFeatures(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"id":"tr_2","status":"queued"}`)
	}))
	defer server.Close()

	client := NewClientForTests(server.URL, func() string { return "k" })
	opts := domain.TranscriptionOptions{
		MaxSpeakers:       lo.ToPtr(3),
		BoostWords:        []string{"pembrolizumab", "KEYTRUDA"},
		IncludeSummary:    true,
		DetectTopics:      true,
		AnalyzeSentiment:  true,
		ExtractKeyPhrases: true,
		ConversationType:  "podcast",
	}
	if _, err := client.Submit(context.Background(), "https://cdn.example/a", opts); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if payload["speakers_expected"] != float64(3) {
		t.Fatalf("speakers_expected = %v", payload["speakers_expected"])
	}
	if payload["summarization"] != true || payload["summary_model"] != "informative" || payload["summary_type"] != "bullets" {
		t.Fatalf("summary fields wrong: %v", payload)
	}
	if payload["iab_categories"] != true || payload["sentiment_analysis"] != true || payload["auto_highlights"] != true {
		t.Fatalf("analysis flags wrong: %v", payload)
	}

	su, ok := payload["speech_understanding"].(map[string]any)
	if !ok {
		t.Fatalf("speech_understanding missing: %v", payload)
	}
	ident := su["request"].(map[string]any)["speaker_identification"].(map[string]any)
	if ident["speaker_type"] != "role" {
		t.Fatalf("speaker_type = %v", ident["speaker_type"])
	}
	roles, _ := ident["known_values"].([]any)
	if len(roles) != 2 || roles[0] != "Host" || roles[1] != "Guest" {
		t.Fatalf("known_values = %v", roles)
	}
}

// TestBoostTermsDedupesAndTruncates checks the vendor list limit is enforced.
func TestBoostTermsDedupesAndTruncates(t *testing.T) {
	terms := make([]string, 0, 2*maxBoostTerms)
	for i := 0; i < maxBoostTerms+50; i++ {
		terms = append(terms, fmt.Sprintf("term-%d", i))
	}
	terms = append(terms, "term-0", " ", "")

	got := boostTerms(terms)
	if len(got) != maxBoostTerms {
		t.Fatalf("len = %d, want %d", len(got), maxBoostTerms)
	}
	if got[0] != "term-0" {
		t.Fatalf("got[0] = %q", got[0])
	}
}

// TestRolesForUnknownType verifies unknown hints yield no role request.
func TestRolesForUnknownType(t *testing.T) {
	if roles := RolesFor("lecture"); roles != nil {
		t.Fatalf("roles = %v, want nil", roles)
	}
	if roles := RolesFor(""); roles != nil {
		t.Fatalf("roles = %v, want nil", roles)
	}
	if roles := RolesFor("customer-call"); len(roles) != 2 || roles[0] != "Agent" {
		t.Fatalf("roles = %v", roles)
	}
}

// TestPollOnceReturnsVendorResource checks the fetch parses all statuses.
func TestPollOnceReturnsVendorResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript/tr_9" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"tr_9","status":"error","error":"audio too short"}`)
	}))
	defer server.Close()

	client := NewClientForTests(server.URL, func() string { return "k" })
	transcript, err := client.PollOnce(context.Background(), "tr_9")
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if transcript.Status != StatusError || transcript.Error != "audio too short" {
		t.Fatalf("transcript = %+v", transcript)
	}
}

// TestClientRequiresAPIKey checks every call fails fast without a credential.
func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClientForTests("http://unused", func() string { return "  " })

	if _, err := client.Upload(context.Background(), "x"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("upload error = %v, want %v", err, ErrMissingAPIKey)
	}
	if _, err := client.Submit(context.Background(), "u", domain.TranscriptionOptions{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("submit error = %v, want %v", err, ErrMissingAPIKey)
	}
	if _, err := client.PollOnce(context.Background(), "id"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("poll error = %v, want %v", err, ErrMissingAPIKey)
	}
}

// TestAPIErrorIncludesStatusAndBody checks failed calls surface vendor detail.
func TestAPIErrorIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	}))
	defer server.Close()

	client := NewClientForTests(server.URL, func() string { return "bad" })
	_, err := client.PollOnce(context.Background(), "tr_1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("error %q missing status or body", err)
	}
}
