package chatmodel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultModel = "gpt-4o-mini"

type LLMBuilder interface {
	New(ctx context.Context) (model.BaseChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

var ErrMissingAPIKey = errors.New("openai api key is not set")

// Config is decoded with the OPENAI prefix, so API_KEY reads OPENAI_API_KEY.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY"`
	Model              string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" default:"1500"`
	Temperature        float32       `envconfig:"TEMPERATURE" default:"0.4"`
	TopP               float32       `envconfig:"TOP_P" default:"0.9"`
	PresencePenalty    float32       `envconfig:"PRESENCE_PENALTY" default:"0.2"`
	FrequencyPenalty   float32       `envconfig:"FREQUENCY_PENALTY" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

func (c *Config) ModelName() string {
	if v := strings.TrimSpace(c.Model); v != "" {
		return v
	}
	return DefaultModel
}

func (c *Config) New(ctx context.Context) (model.BaseChatModel, error) {
	temperature := c.Temperature
	topP := c.TopP
	presence := c.PresencePenalty
	frequency := c.FrequencyPenalty

	conf := &openaimodel.ChatModelConfig{
		BaseURL:          strings.TrimRight(c.BaseURL, "/"),
		APIKey:           strings.TrimSpace(c.APIKey),
		Model:            c.ModelName(),
		MaxTokens:        c.MaxCompletionToken,
		Temperature:      &temperature,
		TopP:             &topP,
		PresencePenalty:  &presence,
		FrequencyPenalty: &frequency,
		Timeout:          c.Timeout,
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: create chat model: %w", err)
	}

	return m, nil
}

// NewClient creates a raw OpenAI SDK client. It returns nil without an API key.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}

	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Ping asks the API for the configured model and returns its owner.
func Ping(ctx context.Context, cfg Config) (string, error) {
	client := NewClient(cfg)
	if client == nil {
		return "", ErrMissingAPIKey
	}

	m, err := client.Models.Get(ctx, cfg.ModelName())
	if err != nil {
		return "", fmt.Errorf("chatmodel: get model %s: %w", cfg.ModelName(), err)
	}
	return m.OwnedBy, nil
}
