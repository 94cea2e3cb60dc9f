// Package openai implements the ModelClassifier port using the OpenAI
// chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// Classifier is a ModelClassifier backed by OpenAI.
type Classifier struct {
	client         *openai.Client
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	maxContentSize int
	logger         *zap.Logger
	promptFormat   string
}

// classifyResponse is the structured JSON contract expected from the model.
type classifyResponse struct {
	Category    string  `json:"category"`
	Confidence  float32 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// NewClassifier creates a new OpenAI-backed classifier.
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxContentSize int,
	logger *zap.Logger,
) *Classifier {
	client := openai.NewClient(apiKey)

	return &Classifier{
		client:         client,
		modelName:      modelName,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		maxContentSize: maxContentSize,
		logger:         logger,
		promptFormat: `You are an SMS classification system. Classify the following SMS message into exactly one of: INBOX (important to the user), SPAM (unwanted promotional or fraudulent), NEEDS_REVIEW (uncertain).
Respond with a JSON object containing:
- category: one of "INBOX", "SPAM", "NEEDS_REVIEW"
- confidence: number between 0 and 1
- explanation: string (brief reason for the category)

SMS:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Name identifies the classifier.
func (c *Classifier) Name() string {
	return "openai:" + c.modelName
}

// Classify sends the message content to OpenAI and parses the JSON
// response into a prediction.
func (c *Classifier) Classify(ctx context.Context, content string) (*core.ModelPrediction, error) {
	prompt := fmt.Sprintf(c.promptFormat, truncate(content, c.maxContentSize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an SMS classification system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return parsePrediction(resp.Choices[0].Message.Content)
}

func parsePrediction(raw string) (*core.ModelPrediction, error) {
	var parsed classifyResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	category, err := parseCategory(parsed.Category)
	if err != nil {
		return nil, err
	}
	return &core.ModelPrediction{
		Category:    category,
		Confidence:  clamp01(parsed.Confidence),
		Explanation: parsed.Explanation,
	}, nil
}

func parseCategory(s string) (core.Category, error) {
	switch core.Category(strings.ToUpper(strings.TrimSpace(s))) {
	case core.CategoryInbox:
		return core.CategoryInbox, nil
	case core.CategorySpam:
		return core.CategorySpam, nil
	case core.CategoryNeedsReview:
		return core.CategoryNeedsReview, nil
	}
	return "", fmt.Errorf("model returned unknown category %q", s)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
