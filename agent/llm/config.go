package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	openrouterx "github.com/Dispatch-AI-com/AI/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	CollectorModel        string  `envconfig:"COLLECTOR_MODEL" split_words:"true"`
	ChatModel             string  `envconfig:"CHAT_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0.1"`
	CollectorTemperature  float32 `envconfig:"COLLECTOR_TEMPERATURE" split_words:"true" default:"0.3"`
	ChatTemperature       float32 `envconfig:"CHAT_TEMPERATURE" split_words:"true" default:"0.7"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the provider config for one capability, applying
// per-capability model and temperature overrides over the defaults.
func (c Config) OpenRouterFor(capability contractx.CapabilityType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch capability {
	case contractx.CapabilityClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			modelName = v
		}
		if c.ClassifierTemperature >= 0 {
			temp = c.ClassifierTemperature
		}
	case contractx.CapabilityCollector:
		if v := strings.TrimSpace(c.CollectorModel); v != "" {
			modelName = v
		}
		if c.CollectorTemperature >= 0 {
			temp = c.CollectorTemperature
		}
	case contractx.CapabilityChat:
		if v := strings.TrimSpace(c.ChatModel); v != "" {
			modelName = v
		}
		if c.ChatTemperature >= 0 {
			temp = c.ChatTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// ChatModelName returns the model the free-form chatbot should use with the
// raw OpenAI SDK client.
func (c Config) ChatModelName() string {
	if v := strings.TrimSpace(c.ChatModel); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}
