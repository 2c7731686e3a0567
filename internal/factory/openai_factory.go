package factory

import (
	"fmt"

	"github.com/mikey/gmail-spam-detector/internal/adapters/openai"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// OpenAIFactory creates OpenAI chat backends
type OpenAIFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatBackend creates an OpenAI chat backend. A custom base URL may
// point at any OpenAI compatible server, which then may not need a key.
func (f *OpenAIFactory) CreateChatBackend() (ports.ChatBackend, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" && openaiCfg.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required (set OPENAI_API_KEY)")
	}

	return openai.NewFactory(openaiCfg, f.logger).CreateChatBackend()
}
