package docgen

import (
	"strings"
	"testing"
	"time"

	"scribe/internal/domain"
	"scribe/internal/transcribe"
)

func testGenerator() *Generator {
	return NewGeneratorForTests(func() time.Time {
		return time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	})
}

func interviewTranscript() *transcribe.Transcript {
	return &transcribe.Transcript{
		ID:            "tr_1",
		Status:        transcribe.StatusCompleted,
		Text:          "welcome back thanks for having me",
		Summary:       "- Guest introduces the new study",
		AudioDuration: 4200,
		Utterances: []transcribe.Utterance{
			{Speaker: "A", Text: "welcome back", Start: 0, End: 1500},
			{Speaker: "B", Text: "thanks for having me", Start: 1600, End: 3900},
		},
		TopicsResult: &transcribe.TopicsResult{Summary: map[string]float64{
			"MedicalHealth":       0.91,
			"PharmaceuticalDrugs": 0.84,
			"Science":             0.42,
		}},
		SentimentResults: []transcribe.SentimentResult{
			{Text: "welcome back", Sentiment: "POSITIVE"},
			{Text: "thanks for having me", Sentiment: "POSITIVE"},
			{Text: "the data was mixed", Sentiment: "NEUTRAL"},
			{Text: "recruitment was a struggle", Sentiment: "NEGATIVE"},
		},
	}
}

func TestMarkdownFullDocument(t *testing.T) {
	g := testGenerator()
	got := g.Markdown(interviewTranscript(), Options{
		Title:            "board meeting",
		Source:           "board meeting.mp4",
		IncludeSummary:   true,
		IncludeTopics:    true,
		IncludeSentiment: true,
		SpeakerNames:     map[string]string{"A": "Dana Cole"},
	})

	for _, want := range []string{
		"# board meeting\n",
		"- Source: `board meeting.mp4`\n",
		"- Generated: 2025-06-01 14:30\n",
		"- Duration: 1h10m0s\n",
		"- Speakers: 2\n",
		"## Summary\n\n- Guest introduces the new study\n",
		"## Topics\n",
		"- MedicalHealth (91%)",
		"## Transcript\n",
		"**[00:00] Dana Cole:** welcome back\n",
		"**[00:01] Speaker B:** thanks for having me\n",
		"## Sentiment\n",
		"- Positive: 50%",
		"- Neutral: 25%",
		"- Negative: 25%",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("document missing %q:\n%s", want, got)
		}
	}
}

func TestMarkdownOmitsDisabledSections(t *testing.T) {
	g := testGenerator()
	got := g.Markdown(interviewTranscript(), Options{Title: "clip"})

	for _, banned := range []string{"## Summary", "## Topics", "## Sentiment"} {
		if strings.Contains(got, banned) {
			t.Fatalf("document should not contain %q:\n%s", banned, got)
		}
	}
	if !strings.Contains(got, "## Transcript") {
		t.Fatalf("transcript section missing:\n%s", got)
	}
}

func TestMarkdownTopicsKeepsStrongestFive(t *testing.T) {
	g := testGenerator()
	transcript := interviewTranscript()
	transcript.TopicsResult = &transcribe.TopicsResult{Summary: map[string]float64{
		"A": 0.9, "B": 0.8, "C": 0.7, "D": 0.6, "E": 0.5, "F": 0.4,
	}}

	got := g.Markdown(transcript, Options{IncludeTopics: true})
	if strings.Contains(got, "- F (") {
		t.Fatalf("weakest topic should be dropped:\n%s", got)
	}
	if !strings.Contains(got, "- E (50%)") {
		t.Fatalf("fifth topic missing:\n%s", got)
	}
	// Strongest topic listed first.
	if strings.Index(got, "- A (90%)") > strings.Index(got, "- B (80%)") {
		t.Fatalf("topics out of order:\n%s", got)
	}
}

func TestMarkdownFallsBackToPlainText(t *testing.T) {
	g := testGenerator()
	transcript := &transcribe.Transcript{Text: "no diarization available here"}

	got := g.Markdown(transcript, Options{Title: "memo"})
	if !strings.Contains(got, "no diarization available here") {
		t.Fatalf("text fallback missing:\n%s", got)
	}
	if strings.Contains(got, "Speaker ") {
		t.Fatalf("unexpected speaker line:\n%s", got)
	}
}

func TestGenerateUsesJobOptions(t *testing.T) {
	g := testGenerator()
	job := domain.Job{
		Filename: "weekly sync.mp4",
		Options:  domain.TranscriptionOptions{IncludeSummary: true},
	}

	data, err := g.Generate(interviewTranscript(), job)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "# weekly sync\n") {
		t.Fatalf("title missing:\n%s", got)
	}
	if !strings.Contains(got, "## Summary") {
		t.Fatalf("summary section missing:\n%s", got)
	}
	if strings.Contains(got, "## Topics") {
		t.Fatalf("topics should be off by default:\n%s", got)
	}
}

func TestGenerateRejectsNilTranscript(t *testing.T) {
	g := testGenerator()
	if _, err := g.Generate(nil, domain.Job{Filename: "x.mp4"}); err == nil {
		t.Fatal("expected error for nil transcript")
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(interviewTranscript(), map[string]string{"A": "Host"})
	want := "Host: welcome back\nSpeaker B: thanks for having me"
	if got != want {
		t.Fatalf("PlainText() = %q, want %q", got, want)
	}
}

func TestMsToTimestamp(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00"},
		{61_500, "01:01"},
		{599_000, "09:59"},
		{3_600_000, "1:00:00"},
		{5_025_000, "1:23:45"},
	}
	for _, tc := range cases {
		if got := msToTimestamp(tc.ms); got != tc.want {
			t.Fatalf("msToTimestamp(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}
