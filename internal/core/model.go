package core

import (
	"context"
	"time"
)

// Email represents a message fetched from a mailbox
type Email struct {
	ID          string
	From        string
	To          string
	Subject     string
	Date        string
	Body        string
	Attachments []Attachment
}

// Attachment is a file attached to an email
type Attachment interface {
	Filename() string
	ContentType() string
	Data(ctx context.Context) ([]byte, error)
}

// memoryAttachment is an Attachment whose content is already loaded
type memoryAttachment struct {
	filename    string
	contentType string
	data        []byte
}

// NewAttachment creates an attachment from in-memory data
func NewAttachment(filename string, data []byte, contentType string) Attachment {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &memoryAttachment{
		filename:    filename,
		contentType: contentType,
		data:        data,
	}
}

func (a *memoryAttachment) Filename() string    { return a.filename }
func (a *memoryAttachment) ContentType() string { return a.contentType }

func (a *memoryAttachment) Data(ctx context.Context) ([]byte, error) {
	return a.data, nil
}

// Result sources
const (
	SourceModel     = "model"
	SourceCache     = "cache"
	SourceWhitelist = "whitelist"
	SourceError     = "error"
)

// SpamResult is one row of a spam report
type SpamResult struct {
	MailID  string
	PctSpam float64
	IsSpam  bool
	Source  string
}

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message in a conversation
type ChatMessage struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Conversation is the history of one AI session
type Conversation struct {
	ID           string
	UserID       string
	SystemPrompt string
	Messages     []ChatMessage
	CreatedAt    time.Time
}

// Window returns a copy of the conversation that keeps any leading system
// message plus the last n messages. n <= 0 keeps everything.
func (c *Conversation) Window(n int) *Conversation {
	out := *c
	if n <= 0 || len(c.Messages) <= n {
		out.Messages = append([]ChatMessage(nil), c.Messages...)
		return &out
	}

	var msgs []ChatMessage
	if len(c.Messages) > 0 && c.Messages[0].Role == RoleSystem {
		msgs = append(msgs, c.Messages[0])
		if n > len(c.Messages)-1 {
			n = len(c.Messages) - 1
		}
	}
	msgs = append(msgs, c.Messages[len(c.Messages)-n:]...)
	out.Messages = msgs
	return &out
}

// UserPreferences holds per-user settings applied to new sessions
type UserPreferences struct {
	SystemPrompt string
}

// CacheEntry is a cached classification keyed by content hash
type CacheEntry struct {
	ContentHash string
	MailID      string
	PctSpam     float64
	ModelUsed   string
	LastSeen    time.Time
	ExpiresAt   time.Time
}
