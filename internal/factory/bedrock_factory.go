package factory

import (
	"context"
	"fmt"

	"github.com/mikey/gmail-spam-detector/internal/adapters/bedrock"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// BedrockFactory creates Bedrock chat backends
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatBackend creates a Bedrock chat backend
func (f *BedrockFactory) CreateChatBackend(ctx context.Context) (ports.ChatBackend, error) {
	bedrockCfg := f.cfg.GetBedrock()
	if bedrockCfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock model ID is required")
	}

	return bedrock.NewFactory(bedrockCfg, f.logger).CreateChatBackend(ctx)
}
