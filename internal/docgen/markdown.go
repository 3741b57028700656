package docgen

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scribe/internal/domain"
	"scribe/internal/transcribe"
)

// maxTopics caps the topics section to the strongest matches.
const maxTopics = 5

// Options controls which sections the rendered document includes and how
// diarization labels are displayed.
type Options struct {
	Title            string
	Source           string
	IncludeSummary   bool
	IncludeTopics    bool
	IncludeSentiment bool
	SpeakerNames     map[string]string
}

// Generator renders transcript documents.
type Generator struct {
	now func() time.Time
}

// NewGenerator returns a markdown document generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorForTests returns a generator with a fixed clock.
func NewGeneratorForTests(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Generate renders the document for a finished job, picking sections from the
// job's transcription options.
func (g *Generator) Generate(transcript *transcribe.Transcript, job domain.Job) ([]byte, error) {
	if transcript == nil {
		return nil, fmt.Errorf("docgen: no transcript for %s", job.Filename)
	}
	opts := Options{
		Title:            titleFromFilename(job.Filename),
		Source:           job.Filename,
		IncludeSummary:   job.Options.IncludeSummary,
		IncludeTopics:    job.Options.DetectTopics,
		IncludeSentiment: job.Options.AnalyzeSentiment,
	}
	return []byte(g.Markdown(transcript, opts)), nil
}

// Markdown renders a transcript as a markdown document.
func (g *Generator) Markdown(t *transcribe.Transcript, opts Options) string {
	var b strings.Builder

	title := opts.Title
	if title == "" {
		title = "Transcript"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if opts.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", opts.Source)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", g.now().Format("2006-01-02 15:04"))
	if t.AudioDuration > 0 {
		duration := time.Duration(t.AudioDuration * float64(time.Second)).Truncate(time.Second)
		fmt.Fprintf(&b, "- Duration: %s\n", duration)
	}
	if labels := t.SpeakerLabels(); len(labels) > 0 {
		fmt.Fprintf(&b, "- Speakers: %d\n", len(labels))
	}
	b.WriteString("\n")

	if opts.IncludeSummary && strings.TrimSpace(t.Summary) != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(strings.TrimSpace(t.Summary))
		b.WriteString("\n\n")
	}

	if opts.IncludeTopics && t.TopicsResult != nil && len(t.TopicsResult.Summary) > 0 {
		b.WriteString("## Topics\n\n")
		for _, topic := range topTopics(t.TopicsResult.Summary, maxTopics) {
			fmt.Fprintf(&b, "- %s (%.0f%%)\n", topic.label, topic.score*100)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Transcript\n\n")
	if len(t.Utterances) == 0 {
		b.WriteString(strings.TrimSpace(t.Text))
		b.WriteString("\n")
	} else {
		for _, u := range t.Utterances {
			name := speakerName(u.Speaker, opts.SpeakerNames)
			fmt.Fprintf(&b, "**[%s] %s:** %s\n\n", msToTimestamp(u.Start), name, strings.TrimSpace(u.Text))
		}
	}

	if opts.IncludeSentiment && len(t.SentimentResults) > 0 {
		b.WriteString("\n## Sentiment\n\n")
		positive, neutral, negative := sentimentShares(t.SentimentResults)
		fmt.Fprintf(&b, "- Positive: %d%%\n", positive)
		fmt.Fprintf(&b, "- Neutral: %d%%\n", neutral)
		fmt.Fprintf(&b, "- Negative: %d%%\n", negative)
	}

	return b.String()
}

// PlainText renders a transcript as bare speaker-labelled text, used for
// clipboard export and model prompts.
func PlainText(t *transcribe.Transcript, speakerNames map[string]string) string {
	if len(t.Utterances) == 0 {
		return strings.TrimSpace(t.Text)
	}
	var b strings.Builder
	for _, u := range t.Utterances {
		fmt.Fprintf(&b, "%s: %s\n", speakerName(u.Speaker, speakerNames), strings.TrimSpace(u.Text))
	}
	return strings.TrimSpace(b.String())
}

// speakerName maps a diarization label to its display name.
func speakerName(label string, names map[string]string) string {
	if name, ok := names[label]; ok && name != "" {
		return name
	}
	return "Speaker " + label
}

// titleFromFilename derives the document heading from the media filename.
func titleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if stem == "" || stem == "." {
		return "Transcript"
	}
	return stem
}

type scoredTopic struct {
	label string
	score float64
}

// topTopics returns the n highest-scoring topics, ties broken by label so
// output is stable.
func topTopics(summary map[string]float64, n int) []scoredTopic {
	topics := make([]scoredTopic, 0, len(summary))
	for label, score := range summary {
		topics = append(topics, scoredTopic{label: label, score: score})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].score != topics[j].score {
			return topics[i].score > topics[j].score
		}
		return topics[i].label < topics[j].label
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

// sentimentShares aggregates per-sentence sentiment into whole percentages.
func sentimentShares(results []transcribe.SentimentResult) (positive, neutral, negative int) {
	var pos, neu, neg int
	for _, r := range results {
		switch r.Sentiment {
		case "POSITIVE":
			pos++
		case "NEGATIVE":
			neg++
		default:
			neu++
		}
	}
	total := len(results)
	share := func(count int) int {
		return int(math.Round(float64(count) / float64(total) * 100))
	}
	return share(pos), share(neu), share(neg)
}

// msToTimestamp formats a millisecond offset as mm:ss, extending to h:mm:ss
// past an hour.
func msToTimestamp(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
