// Package genai generates exam questions and summaries from lecture text
// through an OpenAI-compatible API. The assessment engine treats its output
// as an opaque, already-generated catalog.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edforge/lectern/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generation client. baseURL may be empty for the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Mix is the per-type question count for one generation run.
type Mix struct {
	MCQ         int
	FillBlank   int
	ShortAnswer int
}

// MixFromRatios splits n questions by ratio; short-answer takes the
// remainder so the counts always sum to n.
func MixFromRatios(n int, mcqRatio, fillBlankRatio float64) Mix {
	mcq := int(float64(n) * mcqRatio)
	fill := int(float64(n) * fillBlankRatio)
	return Mix{MCQ: mcq, FillBlank: fill, ShortAnswer: n - mcq - fill}
}

// Total returns the number of questions the mix asks for.
func (m Mix) Total() int {
	return m.MCQ + m.FillBlank + m.ShortAnswer
}

const maxLectureChars = 8000

const generateSystemPrompt = "You generate exam questions from lecture text. " +
	"Return STRICT JSON with a list of questions. " +
	"Each question MUST have: type (mcq|fill_blank|short_answer), " +
	"prompt, options (for mcq), answer, explanation, topic, difficulty (easy|medium|hard). " +
	"For MCQ, options are objects with text and is_correct; exactly one option is correct."

// generatedQuestion mirrors the JSON the LLM is asked to return.
type generatedQuestion struct {
	Type        string            `json:"type"`
	Prompt      string            `json:"prompt"`
	Options     []model.MCQOption `json:"options,omitempty"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation"`
	Topic       string            `json:"topic"`
	Difficulty  string            `json:"difficulty"`
}

type generatedPayload struct {
	Questions []generatedQuestion `json:"questions"`
}

// GenerateQuestions asks the LLM for a question catalog over the lecture
// text with the requested type mix. Question order in the response becomes
// catalog order.
func (c *Client) GenerateQuestions(ctx context.Context, text string, mix Mix) ([]model.Question, error) {
	if len(text) > maxLectureChars {
		text = text[:maxLectureChars]
	}

	userPrompt := fmt.Sprintf(`Lecture content:
%s

Generate exactly %d questions using this mix:
- MCQ: %d
- Fill in the blank: %d
- Short answer: %d

Respond in JSON: {"questions": [{"type": "mcq", "prompt": "...", "options": [{"text": "...", "is_correct": false}], "answer": "...", "explanation": "...", "topic": "...", "difficulty": "easy|medium|hard"}]}`,
		text, mix.Total(), mix.MCQ, mix.FillBlank, mix.ShortAnswer)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	questions, err := ParseQuestions([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}
	return questions, nil
}

// ParseQuestions decodes the LLM's JSON payload into catalog questions.
// Unknown types are skipped with a warning rather than failing the whole
// batch; the engine tolerates skewed catalogs.
func ParseQuestions(data []byte) ([]model.Question, error) {
	var payload generatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	var questions []model.Question
	for _, gq := range payload.Questions {
		difficulty := model.Difficulty(strings.ToLower(strings.TrimSpace(gq.Difficulty)))
		if !difficulty.Valid() {
			difficulty = model.DifficultyMedium
		}
		switch model.QuestionType(gq.Type) {
		case model.TypeMCQ:
			questions = append(questions, model.NewMCQ(gq.Prompt, gq.Options, gq.Answer, gq.Explanation, gq.Topic, difficulty))
		case model.TypeFillBlank:
			questions = append(questions, model.NewFillBlank(gq.Prompt, gq.Answer, gq.Explanation, gq.Topic, difficulty))
		case model.TypeShortAnswer:
			questions = append(questions, model.NewShortAnswer(gq.Prompt, gq.Answer, gq.Explanation, gq.Topic, difficulty))
		default:
			slog.Warn("skipping question with unknown type", "type", gq.Type)
		}
	}
	return questions, nil
}

const summarizeSystemPrompt = "You summarize lecture transcripts for students. " +
	"Write a concise plain-text summary of the key points, at most 200 words."

// Summarize produces a short summary of the lecture text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) > maxLectureChars {
		text = text[:maxLectureChars]
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
