package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/config"
	"github.com/arjun/sms-guard/internal/contextual"
	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/factory"
	"github.com/arjun/sms-guard/internal/logging"
	"github.com/arjun/sms-guard/internal/rules"
	"github.com/arjun/sms-guard/internal/utils"
)

var (
	// Message flags
	sender  = flag.String("sender", "", "SMS sender header (read from stdin first line if empty)")
	content = flag.String("content", "", "SMS content (read from stdin if empty)")

	// Model classifier flags
	provider     = flag.String("provider", "none", "Model provider (none, openai, gemini, bedrock)")
	modelTimeout = flag.Duration("model-timeout", 500*time.Millisecond, "Hard deadline for the model classifier")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Preference flags
	filteringMode = flag.String("filtering-mode", "moderate", "Filtering mode (strict, moderate, lenient)")
	spamTolerance = flag.String("spam-tolerance", "moderate", "Spam tolerance (low, moderate, high)")

	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	msg, err := readMessage()
	if err != nil {
		logger.Fatal("Failed to read message", zap.Error(err))
	}

	// Wire the engine
	text := utils.NewTextProcessor(logger)
	evaluator := rules.NewEvaluator(logger)
	classifier := contextual.NewClassifier(evaluator, logger)

	modelFactory := factory.NewModelFactory(cfg, logger)
	model, err := modelFactory.CreateModelClassifier()
	if err != nil {
		logger.Fatal("Failed to create model classifier", zap.Error(err))
	}

	storageFactory := factory.NewStorageFactory(cfg, logger)
	reputationStore, err := storageFactory.CreateReputationStore()
	if err != nil {
		logger.Fatal("Failed to create reputation store", zap.Error(err))
	}
	messageStore, err := storageFactory.CreateMessageStore()
	if err != nil {
		logger.Fatal("Failed to create message store", zap.Error(err))
	}
	resultCache, err := storageFactory.CreateResultCache()
	if err != nil {
		logger.Fatal("Failed to create result cache", zap.Error(err))
	}

	service := core.NewService(
		evaluator, classifier, model, reputationStore, resultCache,
		messageStore, text, logger, cfg.GetServiceOptions(),
	)

	fmt.Printf("\n=== Message ===\n")
	fmt.Printf("Sender: %s\n", msg.Sender)
	fmt.Printf("Content length: %d bytes\n", len(msg.Content))
	fmt.Printf("Provider: %s\n\n", cfg.GetString("model.provider"))

	startTime := time.Now()
	result := service.Classify(context.Background(), msg)
	duration := time.Since(startTime)

	fmt.Printf("=== Result ===\n")
	fmt.Printf("Category: %s\n", result.Category)
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	fmt.Printf("Reasons:\n")
	for _, reason := range result.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Printf("Model used: %s\n", result.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	if counter, ok := resultCache.(interface{ Len() int }); ok {
		logger.Debug("Cache entries", zap.Int("count", counter.Len()))
	}

	if closer, ok := model.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close model classifier", zap.Error(err))
		}
	}
}

// readMessage builds the message from flags, falling back to stdin
// (first line sender, rest content).
func readMessage() (*core.Message, error) {
	msg := &core.Message{
		Sender:          *sender,
		Content:         *content,
		TimestampMillis: time.Now().UnixMilli(),
	}
	if msg.Sender != "" && msg.Content != "" {
		return msg, nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if msg.Sender == "" {
		if !scanner.Scan() {
			return nil, fmt.Errorf("no sender on stdin")
		}
		msg.Sender = strings.TrimSpace(scanner.Text())
	}
	if msg.Content == "" {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		msg.Content = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if msg.Content == "" {
		return nil, fmt.Errorf("no content provided")
	}
	return msg, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("model.provider", *provider)
	v.Set("model.timeout", modelTimeout.String())

	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
	}

	v.Set("preferences.filtering_mode", *filteringMode)
	v.Set("preferences.spam_tolerance", *spamTolerance)

	return config.NewFromViper(v)
}
