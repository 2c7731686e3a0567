package core

import (
	"context"
)

// MailClient defines the interface for a mailbox provider
type MailClient interface {
	// GetMessages returns up to max messages from the inbox, newest first
	GetMessages(ctx context.Context, max int) ([]*Email, error)

	// GetMessage retrieves a single message by ID
	GetMessage(ctx context.Context, id string) (*Email, error)

	// SendMessage sends a plain text message with optional attachments
	SendMessage(ctx context.Context, to, subject, body string, attachments []Attachment) error

	// DeleteMessage moves a message to the trash
	DeleteMessage(ctx context.Context, id string) error
}

// AIConversationClient defines a session based chat client
type AIConversationClient interface {
	StartNewSession(ctx context.Context, userID string) (string, error)
	SendMessage(ctx context.Context, sessionID, message string) (*ChatMessage, error)
	GetChatHistory(sessionID string) []ChatMessage
	SetUserPreferences(userID string, prefs UserPreferences)
	EndSession(sessionID string) bool
}

// CacheRepository defines the interface for caching classification results
type CacheRepository interface {
	// Get retrieves a cached entry for a content hash
	Get(ctx context.Context, contentHash string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, contentHash string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// ReportWriter persists the results of a detection run
type ReportWriter interface {
	Write(path string, results []SpamResult) error
}
