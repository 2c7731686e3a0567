package factory

import (
	"context"
	"fmt"

	"github.com/mikey/gmail-spam-detector/internal/adapters/gemini"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini chat backends
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatBackend creates a Gemini chat backend
func (f *GeminiFactory) CreateChatBackend(ctx context.Context) (ports.ChatBackend, error) {
	geminiCfg := f.cfg.GetGemini()

	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}

	return gemini.NewFactory(geminiCfg, f.logger).CreateChatBackend(ctx)
}
