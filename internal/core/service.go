package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultUserID is the AI user the detector opens its sessions for
const DefaultUserID = "spam_detector"

// TextProcessor prepares an email body before it is put into a prompt
type TextProcessor interface {
	ProcessText(text string, maxSize int) string
}

// SenderFilter decides whether a sender skips classification
type SenderFilter interface {
	IsWhitelisted(from string) bool
}

// DetectorOptions tunes the behaviour of a SpamDetector
type DetectorOptions struct {
	UserID       string
	ModelName    string
	MaxBodySize  int
	Threshold    float64
	TrashSpam    bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SpamDetector crawls a mailbox, classifies each email with an AI
// conversation client and writes a report
type SpamDetector struct {
	mailClient    MailClient
	aiClient      AIConversationClient
	report        ReportWriter
	cache         CacheRepository
	textProcessor TextProcessor
	senderFilter  SenderFilter
	logger        *zap.Logger
	opts          DetectorOptions
}

// NewSpamDetector creates a new spam detector. cache, textProcessor and
// senderFilter may be nil.
func NewSpamDetector(
	mailClient MailClient,
	aiClient AIConversationClient,
	report ReportWriter,
	cache CacheRepository,
	textProcessor TextProcessor,
	senderFilter SenderFilter,
	logger *zap.Logger,
	opts DetectorOptions,
) *SpamDetector {
	if opts.UserID == "" {
		opts.UserID = DefaultUserID
	}
	return &SpamDetector{
		mailClient:    mailClient,
		aiClient:      aiClient,
		report:        report,
		cache:         cache,
		textProcessor: textProcessor,
		senderFilter:  senderFilter,
		logger:        logger,
		opts:          opts,
	}
}

// CrawlEmails fetches up to maxCount emails from the mailbox
func (d *SpamDetector) CrawlEmails(ctx context.Context, maxCount int) ([]*Email, error) {
	if maxCount <= 0 {
		return []*Email{}, nil
	}

	emails, err := d.mailClient.GetMessages(ctx, maxCount)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl emails: %w", err)
	}
	if len(emails) > maxCount {
		emails = emails[:maxCount]
	}
	return emails, nil
}

// AnalyzeEmail returns the spam probability of an email as a percentage.
// Any failure yields 0.
func (d *SpamDetector) AnalyzeEmail(ctx context.Context, sessionID string, email *Email) float64 {
	return d.analyze(ctx, sessionID, email).PctSpam
}

func (d *SpamDetector) analyze(ctx context.Context, sessionID string, email *Email) SpamResult {
	result := SpamResult{MailID: email.ID, Source: SourceModel}

	if d.senderFilter != nil && d.senderFilter.IsWhitelisted(email.From) {
		d.logger.Info("Skipping spam check for whitelisted sender",
			zap.String("mail_id", email.ID),
			zap.String("sender", email.From))
		result.Source = SourceWhitelist
		return result
	}

	// the body goes into the prompt untouched unless a size limit is set
	body := email.Body
	if d.textProcessor != nil && d.opts.MaxBodySize > 0 {
		body = d.textProcessor.ProcessText(body, d.opts.MaxBodySize)
	}
	prompt := BuildPrompt(email, body)

	var key string
	if d.cacheActive() {
		key = PromptHash(prompt)
		if entry, err := d.cache.Get(ctx, key); err == nil {
			d.logger.Debug("Cache hit for email", zap.String("mail_id", email.ID))
			result.PctSpam = entry.PctSpam
			result.Source = SourceCache
			return result
		}
	}

	reply, err := d.aiClient.SendMessage(ctx, sessionID, prompt)
	if err != nil {
		d.logger.Warn("AI request failed, defaulting to 0",
			zap.String("mail_id", email.ID),
			zap.Error(err))
		result.Source = SourceError
		return result
	}

	pct, err := ParseProbability(reply.Content)
	if err != nil {
		d.logger.Warn("Unparseable AI reply, defaulting to 0",
			zap.String("mail_id", email.ID),
			zap.String("reply", reply.Content))
		result.Source = SourceError
		return result
	}
	result.PctSpam = pct

	if d.cacheActive() {
		now := time.Now()
		entry := &CacheEntry{
			ContentHash: key,
			MailID:      email.ID,
			PctSpam:     pct,
			ModelUsed:   d.opts.ModelName,
			LastSeen:    now,
			ExpiresAt:   now.Add(d.opts.CacheTTL),
		}
		if err := d.cache.Set(ctx, entry); err != nil {
			d.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result
}

func (d *SpamDetector) cacheActive() bool {
	return d.opts.CacheEnabled && d.cache != nil
}

// IsSpam reports whether a percentage reaches the configured threshold
func (d *SpamDetector) IsSpam(pct float64) bool {
	return d.opts.Threshold > 0 && pct >= d.opts.Threshold
}

// DetectSpam classifies up to maxEmails emails and writes the results to
// outputCSV
func (d *SpamDetector) DetectSpam(ctx context.Context, outputCSV string, maxEmails int) ([]SpamResult, error) {
	sessionID, err := d.aiClient.StartNewSession(ctx, d.opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to start AI session: %w", err)
	}

	results, err := d.classify(ctx, sessionID, maxEmails)
	d.aiClient.EndSession(sessionID)
	if err != nil {
		return nil, err
	}

	if err := d.report.Write(outputCSV, results); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	spamCount := 0
	for _, r := range results {
		if r.IsSpam {
			spamCount++
		}
	}
	d.logger.Info("Spam detection complete",
		zap.Int("emails", len(results)),
		zap.Int("spam", spamCount),
		zap.String("output", outputCSV))

	if d.opts.TrashSpam {
		d.trashSpam(ctx, results)
	}

	return results, nil
}

func (d *SpamDetector) classify(ctx context.Context, sessionID string, maxEmails int) ([]SpamResult, error) {
	emails, err := d.CrawlEmails(ctx, maxEmails)
	if err != nil {
		return nil, err
	}

	results := make([]SpamResult, 0, len(emails))
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := d.analyze(ctx, sessionID, email)
		result.IsSpam = d.IsSpam(result.PctSpam)
		d.logger.Debug("Email analyzed",
			zap.String("mail_id", result.MailID),
			zap.Float64("pct_spam", result.PctSpam),
			zap.String("source", result.Source))
		results = append(results, result)
	}
	return results, nil
}

func (d *SpamDetector) trashSpam(ctx context.Context, results []SpamResult) {
	for _, r := range results {
		if !r.IsSpam {
			continue
		}
		if err := d.mailClient.DeleteMessage(ctx, r.MailID); err != nil {
			d.logger.Error("Failed to trash spam email", zap.String("mail_id", r.MailID), zap.Error(err))
			continue
		}
		d.logger.Info("Moved spam email to trash",
			zap.String("mail_id", r.MailID),
			zap.Float64("pct_spam", r.PctSpam))
	}
}
