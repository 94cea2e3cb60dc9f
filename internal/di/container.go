package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/config"
	"github.com/arjun/sms-guard/internal/contextual"
	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/factory"
	"github.com/arjun/sms-guard/internal/logging"
	"github.com/arjun/sms-guard/internal/rules"
	"github.com/arjun/sms-guard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewModelFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register the rule evaluator and contextual classifier
	if err := container.Provide(func(logger *zap.Logger) core.RuleEvaluator {
		return rules.NewEvaluator(logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(re core.RuleEvaluator, logger *zap.Logger) core.ContextualClassifier {
		return contextual.NewClassifier(re, logger)
	}); err != nil {
		return nil, err
	}

	// Register the model classifier
	if err := container.Provide(func(f *factory.ModelFactory) (core.ModelClassifier, error) {
		return f.CreateModelClassifier()
	}); err != nil {
		return nil, err
	}

	// Register stores and cache
	if err := container.Provide(func(f *factory.StorageFactory) (core.ReputationStore, error) {
		return f.CreateReputationStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StorageFactory) (core.MessageStore, error) {
		return f.CreateMessageStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StorageFactory) (core.ResultCache, error) {
		return f.CreateResultCache()
	}); err != nil {
		return nil, err
	}

	// Register service options
	if err := container.Provide(func(cfg *config.Config) core.ServiceOptions {
		return cfg.GetServiceOptions()
	}); err != nil {
		return nil, err
	}

	// Register the classification service
	if err := container.Provide(core.NewService); err != nil {
		return nil, err
	}

	return container, nil
}
