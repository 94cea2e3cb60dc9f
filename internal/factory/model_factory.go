package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/adapters/bedrock"
	"github.com/arjun/sms-guard/internal/adapters/gemini"
	"github.com/arjun/sms-guard/internal/adapters/noop"
	"github.com/arjun/sms-guard/internal/adapters/openai"
	"github.com/arjun/sms-guard/internal/config"
	"github.com/arjun/sms-guard/internal/core"
)

// ModelFactory creates model classifiers
type ModelFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewModelFactory creates a new model classifier factory
func NewModelFactory(cfg *config.Config, logger *zap.Logger) *ModelFactory {
	return &ModelFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateModelClassifier creates a model classifier based on the
// configuration. The "none" provider yields the no-op classifier for
// rule-only operation.
func (f *ModelFactory) CreateModelClassifier() (core.ModelClassifier, error) {
	modelCfg := f.cfg.GetModel()

	switch modelCfg.Provider {
	case "none", "":
		return noop.NewClassifier(), nil
	case "openai":
		c := f.cfg.GetOpenAI()
		return openai.NewClassifier(
			c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP,
			c.MaxContentSize, f.logger,
		), nil
	case "gemini":
		c := f.cfg.GetGemini()
		return gemini.NewClassifier(
			c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP,
			c.MaxContentSize, f.logger,
		)
	case "bedrock":
		c := f.cfg.GetBedrock()
		return bedrock.NewFactory(
			c.Region, c.ModelID, c.MaxTokens, c.Temperature, c.TopP,
			c.MaxContentSize, f.logger,
		).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", modelCfg.Provider)
	}
}
