package factory

import (
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"github.com/mikey/gmail-spam-detector/internal/utils"
	"github.com/mikey/gmail-spam-detector/internal/whitelist"
	"go.uber.org/zap"
)

// DetectorFactory assembles spam detectors from configuration
type DetectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDetectorFactory creates a new detector factory
func NewDetectorFactory(cfg *config.Config, logger *zap.Logger) *DetectorFactory {
	return &DetectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSpamDetector creates a spam detector. cache may be nil.
func (f *DetectorFactory) CreateSpamDetector(
	mailClient core.MailClient,
	aiClient core.AIConversationClient,
	backend ports.ChatBackend,
	report core.ReportWriter,
	cache core.CacheRepository,
) (*core.SpamDetector, error) {
	detectorCfg, err := f.cfg.GetDetector()
	if err != nil {
		return nil, err
	}
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}

	var senderFilter core.SenderFilter
	if len(detectorCfg.WhitelistedDomains) > 0 {
		senderFilter = whitelist.NewChecker(detectorCfg.WhitelistedDomains, f.logger)
	}

	return core.NewSpamDetector(
		mailClient,
		aiClient,
		report,
		cache,
		utils.NewTextProcessor(f.logger),
		senderFilter,
		f.logger,
		core.DetectorOptions{
			UserID:       detectorCfg.UserID,
			ModelName:    backend.ModelName(),
			MaxBodySize:  detectorCfg.MaxBodySize,
			Threshold:    detectorCfg.Threshold,
			TrashSpam:    detectorCfg.TrashSpam,
			CacheEnabled: cacheCfg.Enabled && cache != nil,
			CacheTTL:     cacheCfg.TTL,
		},
	), nil
}
