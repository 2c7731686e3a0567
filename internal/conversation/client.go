package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a session ID is unknown
var ErrSessionNotFound = errors.New("session not found")

// Client manages chat sessions on top of a ChatBackend. It implements
// core.AIConversationClient.
type Client struct {
	backend     ports.ChatBackend
	logger      *zap.Logger
	maxHistory  int
	mu          sync.RWMutex
	sessions    map[string]*core.Conversation
	preferences map[string]core.UserPreferences
	now         func() time.Time
}

// NewClient creates a new conversation client. maxHistory limits how many
// messages the backend sees per request, 0 means unlimited.
func NewClient(backend ports.ChatBackend, logger *zap.Logger, maxHistory int) *Client {
	return &Client{
		backend:     backend,
		logger:      logger,
		maxHistory:  maxHistory,
		sessions:    make(map[string]*core.Conversation),
		preferences: make(map[string]core.UserPreferences),
		now:         time.Now,
	}
}

// newSessionID returns an ID of the form sess_<8 hex chars>
func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (c *Client) newMessage(role core.Role, content string) core.ChatMessage {
	return core.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
}

// StartNewSession starts a conversation for a user and returns its ID
func (c *Client) StartNewSession(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessionID := newSessionID()
	for _, exists := c.sessions[sessionID]; exists; _, exists = c.sessions[sessionID] {
		sessionID = newSessionID()
	}

	conv := &core.Conversation{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: c.now(),
	}
	if prefs, ok := c.preferences[userID]; ok && prefs.SystemPrompt != "" {
		conv.SystemPrompt = prefs.SystemPrompt
		conv.Messages = append(conv.Messages, c.newMessage(core.RoleSystem, prefs.SystemPrompt))
	}
	c.sessions[sessionID] = conv

	c.logger.Debug("Started AI session",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("model", c.backend.ModelName()))
	return sessionID, nil
}

// SendMessage adds a user message to the session and returns the assistant
// reply
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (*core.ChatMessage, error) {
	c.mu.Lock()
	conv, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	conv.Messages = append(conv.Messages, c.newMessage(core.RoleUser, message))
	snapshot := conv.Window(c.maxHistory)
	c.mu.Unlock()

	reply, err := c.backend.Complete(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.backend.ModelName(), err)
	}

	assistant := c.newMessage(core.RoleAssistant, strings.TrimSpace(reply))

	c.mu.Lock()
	// the session may have been ended while the backend was busy
	if conv, ok = c.sessions[sessionID]; ok {
		conv.Messages = append(conv.Messages, assistant)
	}
	c.mu.Unlock()

	return &assistant, nil
}

// GetChatHistory returns a copy of the session messages
func (c *Client) GetChatHistory(sessionID string) []core.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conv, ok := c.sessions[sessionID]
	if !ok {
		return []core.ChatMessage{}
	}
	return append([]core.ChatMessage(nil), conv.Messages...)
}

// SetUserPreferences stores preferences used by sessions started afterwards
func (c *Client) SetUserPreferences(userID string, prefs core.UserPreferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferences[userID] = prefs
}

// EndSession discards a session
func (c *Client) EndSession(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	c.logger.Debug("Ended AI session", zap.String("session_id", sessionID))
	return true
}

// Close releases the backend if it holds resources
func (c *Client) Close() error {
	if closer, ok := c.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
