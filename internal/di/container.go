package di

import (
	"context"
	"io"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/gmail-spam-detector/internal/adapters/report"
	"github.com/mikey/gmail-spam-detector/internal/adapters/watcher"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/conversation"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/factory"
	"github.com/mikey/gmail-spam-detector/internal/logging"
	"github.com/mikey/gmail-spam-detector/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
// for the watcher daemon
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// The daemon cannot answer the Gmail consent prompt, so an empty reader
	// makes a missing token fail fast
	if err := provideComponents(container, strings.NewReader(""), io.Discard); err != nil {
		return nil, err
	}

	// Register watcher service
	if err := container.Provide(func(cfg *config.Config, detector *core.SpamDetector, logger *zap.Logger) (ports.Service, error) {
		detectorCfg, err := cfg.GetDetector()
		if err != nil {
			return nil, err
		}
		return watcher.NewWatcher(detector, logger, detectorCfg.Interval, detectorCfg.OutputCSV, detectorCfg.MaxEmails), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideComponents registers everything below the configuration and the
// logger. Both containers share it.
func provideComponents(container *dig.Container, in io.Reader, out io.Writer) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewDetectorFactory); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *factory.MailFactory {
		return factory.NewMailFactory(cfg, logger, in, out)
	}); err != nil {
		return err
	}

	// Register chat backend
	if err := container.Provide(func(f *factory.LLMFactory) (ports.ChatBackend, error) {
		return f.CreateChatBackend(context.Background())
	}); err != nil {
		return err
	}

	// Register conversation client
	if err := container.Provide(func(cfg *config.Config, backend ports.ChatBackend, logger *zap.Logger) (*conversation.Client, error) {
		detectorCfg, err := cfg.GetDetector()
		if err != nil {
			return nil, err
		}
		return conversation.NewClient(backend, logger, detectorCfg.MaxHistory), nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(c *conversation.Client) core.AIConversationClient {
		return c
	}); err != nil {
		return err
	}

	// Register mail client
	if err := container.Provide(func(f *factory.MailFactory) (core.MailClient, error) {
		return f.CreateMailClient(context.Background())
	}); err != nil {
		return err
	}

	// Register cache repository, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register report writer
	if err := container.Provide(func(logger *zap.Logger) core.ReportWriter {
		return report.NewCSVWriter(logger)
	}); err != nil {
		return err
	}

	// Register spam detector
	if err := container.Provide(func(
		f *factory.DetectorFactory,
		mailClient core.MailClient,
		aiClient core.AIConversationClient,
		backend ports.ChatBackend,
		reportWriter core.ReportWriter,
		cacheRepo core.CacheRepository,
	) (*core.SpamDetector, error) {
		return f.CreateSpamDetector(mailClient, aiClient, backend, reportWriter, cacheRepo)
	}); err != nil {
		return err
	}

	return nil
}
