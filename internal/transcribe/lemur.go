package transcribe

import (
	"context"
	"fmt"
	"strings"
)

const (
	lemurPath  = "/lemur/v3/generate/question-answer"
	lemurModel = "anthropic/claude-3-5-sonnet"

	lemurContext = "Your task is to infer the speaker's name from the speaker-labelled transcript. " +
		"If a speaker introduces themselves or is addressed by name, use that. " +
		"If you cannot determine a name, respond with 'Unknown'."
)

type lemurQuestion struct {
	Question     string `json:"question"`
	AnswerFormat string `json:"answer_format"`
}

type lemurRequest struct {
	Questions  []lemurQuestion `json:"questions"`
	InputText  string          `json:"input_text"`
	Context    string          `json:"context"`
	FinalModel string          `json:"final_model"`
}

type lemurResponse struct {
	Response []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"response"`
}

// IdentifySpeakers asks the vendor's LLM endpoint to attach real names to
// diarization labels, using the labelled transcript text as evidence. The
// result maps label to name; labels the model could not resolve are absent.
func (c *Client) IdentifySpeakers(ctx context.Context, transcriptText string, labels []string) (map[string]string, error) {
	if strings.TrimSpace(transcriptText) == "" || len(labels) == 0 {
		return map[string]string{}, nil
	}

	questions := make([]lemurQuestion, 0, len(labels))
	for _, label := range labels {
		questions = append(questions, lemurQuestion{
			Question:     speakerQuestion(label),
			AnswerFormat: "<First Name> <Last Name (if available)>",
		})
	}

	payload := lemurRequest{
		Questions:  questions,
		InputText:  transcriptText,
		Context:    lemurContext,
		FinalModel: lemurModel,
	}

	var out lemurResponse
	if err := c.postJSON(ctx, lemurPath, payload, &out); err != nil {
		return nil, fmt.Errorf("identify speakers: %w", err)
	}

	names := make(map[string]string, len(out.Response))
	for _, answer := range out.Response {
		label, ok := speakerFromQuestion(answer.Question)
		if !ok {
			continue
		}
		name := strings.TrimSpace(answer.Answer)
		if name == "" || strings.EqualFold(name, "unknown") {
			continue
		}
		names[label] = name
	}
	return names, nil
}

// speakerQuestion builds the per-label question sent to the model.
func speakerQuestion(label string) string {
	return fmt.Sprintf("Who is speaker %s?", label)
}

// speakerFromQuestion recovers the diarization label from an echoed question.
func speakerFromQuestion(question string) (string, bool) {
	rest, found := strings.CutPrefix(question, "Who is speaker ")
	if !found {
		return "", false
	}
	label, found := strings.CutSuffix(rest, "?")
	if !found || label == "" {
		return "", false
	}
	return label, true
}
