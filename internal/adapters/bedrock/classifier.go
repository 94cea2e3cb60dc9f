// Package bedrock implements the ModelClassifier port using Amazon
// Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// Classifier is a ModelClassifier backed by Bedrock.
type Classifier struct {
	client         *bedrockruntime.Client
	modelID        string
	maxTokens      int
	temperature    float32
	topP           float32
	maxContentSize int
	logger         *zap.Logger
	promptFormat   string
}

type classifyResponse struct {
	Category    string  `json:"category"`
	Confidence  float32 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// NewClassifier creates a new Bedrock-backed classifier.
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxContentSize int,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:         client,
		modelID:        modelID,
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
	return "bedrock:" + c.modelID
}

// Classify sends the message content to Bedrock and parses the JSON
// response into a prediction.
func (c *Classifier) Classify(ctx context.Context, content string) (*core.ModelPrediction, error) {
	if c.maxContentSize > 0 && len(content) > c.maxContentSize {
		content = content[:c.maxContentSize]
	}
	prompt := fmt.Sprintf(c.promptFormat, content)

	var payload []byte
	var err error
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock request failed: %w", err)
	}

	raw, err := extractCompletion(output.Body, c.isAnthropicModel())
	if err != nil {
		return nil, err
	}
	return parsePrediction(raw)
}

func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

func extractCompletion(body []byte, anthropic bool) (string, error) {
	if anthropic {
		var resp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		return resp.Completion, nil
	}
	var resp struct {
		Completion string `json:"completion"`
		OutputText string `json:"outputText"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Completion != "" {
		return resp.Completion, nil
	}
	return resp.OutputText, nil
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
