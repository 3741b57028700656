package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

const extractionAnswer = `{
	"choices": [{"message": {"content": "{\"categories\":[{\"name\":\"Drug Names\",\"terms\":[\"Keytruda\",\"pembrolizumab\"]},{\"name\":\"Acronyms\",\"terms\":[\"ORR\"]}],\"suggested_name\":\"Oncology Review\"}"}}]
}`

func TestExtractTermsParsesModelAnswer(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(extractionAnswer))
	}))
	defer server.Close()

	e := NewExtractorForTests(server.URL, func() string { return "sk-test" })
	extraction, err := e.ExtractTerms(context.Background(), "study notes about pembrolizumab")
	if err != nil {
		t.Fatalf("ExtractTerms() error = %v", err)
	}

	if got.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", got.Model)
	}
	if got.MaxTokens != 4096 {
		t.Fatalf("max_tokens = %d", got.MaxTokens)
	}
	if got.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %q", got.ResponseFormat.Type)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[1].Content, "study notes about pembrolizumab") {
		t.Fatalf("user message = %q", got.Messages[1].Content)
	}

	if extraction.SuggestedName != "Oncology Review" {
		t.Fatalf("suggested name = %q", extraction.SuggestedName)
	}
	if len(extraction.Categories) != 2 || extraction.Categories[0].Name != "Drug Names" {
		t.Fatalf("categories = %+v", extraction.Categories)
	}
	if extraction.TermCount() != 3 {
		t.Fatalf("term count = %d, want 3", extraction.TermCount())
	}
}

func TestExtractTermsRequiresKey(t *testing.T) {
	e := NewExtractorForTests("http://unused", func() string { return "  " })
	if _, err := e.ExtractTerms(context.Background(), "text"); !errors.Is(err, ErrMissingOpenAIKey) {
		t.Fatalf("error = %v, want ErrMissingOpenAIKey", err)
	}
}

func TestExtractTermsTruncatesLongDocuments(t *testing.T) {
	var userContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) == 2 {
			userContent = req.Messages[1].Content
		}
		w.Write([]byte(extractionAnswer))
	}))
	defer server.Close()

	e := NewExtractorForTests(server.URL, func() string { return "sk-test" })
	// Two-byte runes force a cut that would land mid-rune on a naive slice.
	if _, err := e.ExtractTerms(context.Background(), strings.Repeat("é", 40000)); err != nil {
		t.Fatalf("ExtractTerms() error = %v", err)
	}

	_, document, found := strings.Cut(userContent, "\n\n")
	if !found {
		t.Fatalf("user message = %q", userContent)
	}
	if len(document) > maxPromptBytes {
		t.Fatalf("document = %d bytes, want <= %d", len(document), maxPromptBytes)
	}
	if !utf8.ValidString(document) {
		t.Fatal("truncation split a rune")
	}
}

func TestExtractTermsSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := NewExtractorForTests(server.URL, func() string { return "sk-test" })
	_, err := e.ExtractTerms(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error = %v", err)
	}
}

func TestExtractTermsRejectsMalformedAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "not json"}}]}`))
	}))
	defer server.Close()

	e := NewExtractorForTests(server.URL, func() string { return "sk-test" })
	if _, err := e.ExtractTerms(context.Background(), "text"); err == nil {
		t.Fatal("expected error for non-JSON model answer")
	}
}

func TestTruncateUTF8(t *testing.T) {
	// "é" is two bytes; cutting at 3 would split the second rune.
	got := truncateUTF8("ééé", 3)
	if got != "é" {
		t.Fatalf("truncateUTF8 = %q, want %q", got, "é")
	}
	if got := truncateUTF8("short", 100); got != "short" {
		t.Fatalf("truncateUTF8 = %q, want unchanged", got)
	}
}
