// Package gemini implements the ModelClassifier port using Google
// Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/arjun/sms-guard/internal/core"
)

// Classifier is a ModelClassifier backed by Gemini.
type Classifier struct {
	client         *genai.Client
	model          *genai.GenerativeModel
	modelName      string
	maxContentSize int
	logger         *zap.Logger
	promptFormat   string
}

type classifyResponse struct {
	Category    string  `json:"category"`
	Confidence  float32 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// NewClassifier creates a new Gemini-backed classifier.
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxContentSize int,
	logger *zap.Logger,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:         client,
		model:          model,
		modelName:      modelName,
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
	}, nil
}

// Name identifies the classifier.
func (c *Classifier) Name() string {
	return "gemini:" + c.modelName
}

// Close closes the Gemini client.
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify sends the message content to Gemini and parses the JSON
// response into a prediction.
func (c *Classifier) Classify(ctx context.Context, content string) (*core.ModelPrediction, error) {
	if c.maxContentSize > 0 && len(content) > c.maxContentSize {
		content = content[:c.maxContentSize]
	}
	prompt := fmt.Sprintf(c.promptFormat, content)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw.WriteString(string(text))
		}
	}

	return parsePrediction(raw.String())
}

func parsePrediction(raw string) (*core.ModelPrediction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	category := core.Category(strings.ToUpper(strings.TrimSpace(parsed.Category)))
	switch category {
	case core.CategoryInbox, core.CategorySpam, core.CategoryNeedsReview:
	default:
		return nil, fmt.Errorf("model returned unknown category %q", parsed.Category)
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &core.ModelPrediction{
		Category:    category,
		Confidence:  confidence,
		Explanation: parsed.Explanation,
	}, nil
}
