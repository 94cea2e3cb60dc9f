package config

import (
	"time"

	"github.com/arjun/sms-guard/internal/core"
)

// ModelConfig represents the configuration for the model classifier
type ModelConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region         string
	ModelID        string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxContentSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxContentSize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxContentSize int
}

// GetModel returns the model classifier configuration
func (c *Config) GetModel() ModelConfig {
	timeout, err := c.GetDuration("model.timeout")
	if err != nil {
		timeout = 500 * time.Millisecond
	}
	return ModelConfig{
		Provider: c.GetString("model.provider"),
		Timeout:  timeout,
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:         c.GetString("bedrock.region"),
		ModelID:        c.GetString("bedrock.model_id"),
		MaxTokens:      c.GetInt("bedrock.max_tokens"),
		Temperature:    float32(c.GetFloat64("bedrock.temperature")),
		TopP:           float32(c.GetFloat64("bedrock.top_p")),
		MaxContentSize: c.GetInt("bedrock.max_content_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
		MaxContentSize: c.GetInt("gemini.max_content_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
		MaxContentSize: c.GetInt("openai.max_content_size"),
	}
}

// GetPreferences returns the user preferences for the rule evaluator
func (c *Config) GetPreferences() core.Preferences {
	important := make(map[core.MessageType]bool)
	for _, t := range c.GetStringSlice("preferences.important_types") {
		important[core.MessageType(t)] = true
	}
	return core.Preferences{
		FilteringMode:     core.FilteringMode(c.GetString("preferences.filtering_mode")),
		SpamTolerance:     core.SpamTolerance(c.GetString("preferences.spam_tolerance")),
		ImportantTypes:    important,
		LearnFromFeedback: c.GetBool("preferences.learn_from_feedback"),
	}
}

// GetBlend returns the confidence blending thresholds
func (c *Config) GetBlend() core.BlendConfig {
	return core.BlendConfig{
		HighConfidence:     float32(c.GetFloat64("blend.high_confidence")),
		ModerateConfidence: float32(c.GetFloat64("blend.moderate_confidence")),
		ModelWeight:        float32(c.GetFloat64("blend.model_weight")),
		AgreementBoost:     float32(c.GetFloat64("blend.agreement_boost")),
	}
}

// GetServiceOptions returns the orchestrator options
func (c *Config) GetServiceOptions() core.ServiceOptions {
	opts := core.DefaultServiceOptions()
	opts.Preferences = c.GetPreferences()
	opts.Blend = c.GetBlend()
	opts.ModelTimeout = c.GetModel().Timeout
	opts.CacheEnabled = c.GetBool("cache.enabled")
	if ttl, err := c.GetDuration("cache.ttl"); err == nil {
		opts.CacheTTL = ttl
	}
	opts.HistoryLimit = c.GetInt("store.history_limit")
	return opts
}
