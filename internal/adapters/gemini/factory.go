package gemini

import (
	"context"

	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatBackend creates a new GeminiClient
func (f *Factory) CreateChatBackend(ctx context.Context) (ports.ChatBackend, error) {
	return NewGeminiClient(
		ctx,
		f.cfg.APIKey,
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	)
}
