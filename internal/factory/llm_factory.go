package factory

import (
	"context"
	"fmt"

	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// LLMFactory creates chat backends
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatBackend creates a new chat backend based on the configuration
func (f *LLMFactory) CreateChatBackend(ctx context.Context) (ports.ChatBackend, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger).CreateChatBackend(ctx)
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger).CreateChatBackend()
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger).CreateChatBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
