package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey/gmail-spam-detector/internal/adapters/gmail"
	"github.com/mikey/gmail-spam-detector/internal/adapters/imap"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
)

// MailFactory creates mail clients based on configuration
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	in     io.Reader
	out    io.Writer
}

// NewMailFactory creates a new mail factory. in and out serve the Gmail
// authorization prompt when no token is stored yet.
func NewMailFactory(cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) *MailFactory {
	return &MailFactory{
		cfg:    cfg,
		logger: logger,
		in:     in,
		out:    out,
	}
}

// CreateMailClient creates a mail client based on the configuration
func (f *MailFactory) CreateMailClient(ctx context.Context) (core.MailClient, error) {
	mailCfg := f.cfg.GetMail()

	switch mailCfg.Provider {
	case "gmail":
		gmailCfg := f.cfg.GetGmail()
		httpClient, err := gmail.NewHTTPClient(ctx, gmailCfg.CredentialsFile, gmailCfg.TokenFile, f.in, f.out)
		if err != nil {
			return nil, fmt.Errorf("failed to authorize Gmail client: %w", err)
		}
		return gmail.NewClient(ctx, httpClient, gmailCfg.UserID, gmailCfg.Label, f.logger)
	case "imap":
		return imap.NewClient(f.cfg.GetIMAP(), f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", mailCfg.Provider)
	}
}
