package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// Factory creates Bedrock-backed classifiers.
type Factory struct {
	region         string
	modelID        string
	maxTokens      int
	temperature    float32
	topP           float32
	maxContentSize int
	logger         *zap.Logger
}

// NewFactory creates a new factory for Bedrock classifiers.
func NewFactory(
	region string,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxContentSize int,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		region:         region,
		modelID:        modelID,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		maxContentSize: maxContentSize,
		logger:         logger,
	}
}

// CreateClassifier loads the AWS configuration and builds the classifier.
func (f *Factory) CreateClassifier() (core.ModelClassifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(f.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := bedrockruntime.NewFromConfig(awsCfg)
	return NewClassifier(client, f.modelID, f.maxTokens, f.temperature, f.topP, f.maxContentSize, f.logger), nil
}
