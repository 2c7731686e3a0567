package conversation

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingBackend struct {
	seen  []*core.Conversation
	reply string
	err   error
}

func (b *recordingBackend) Complete(ctx context.Context, conv *core.Conversation) (string, error) {
	b.seen = append(b.seen, conv)
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

func (b *recordingBackend) ModelName() string { return "gemini-2.0-flash" }

var _ core.AIConversationClient = (*Client)(nil)

func TestStartNewSession(t *testing.T) {
	c := NewClient(&recordingBackend{}, zap.NewNop(), 0)

	id, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^sess_[0-9a-f]{8}$`), id)
	assert.Empty(t, c.GetChatHistory(id))

	other, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestSendMessageRecordsHistory(t *testing.T) {
	backend := &recordingBackend{reply: "  42 \n"}
	c := NewClient(backend, zap.NewNop(), 0)
	id, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	reply, err := c.SendMessage(context.Background(), id, "classify this")
	require.NoError(t, err)
	assert.Equal(t, "42", reply.Content)
	assert.Equal(t, core.RoleAssistant, reply.Role)
	assert.NotEmpty(t, reply.ID)

	history := c.GetChatHistory(id)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "classify this", history[0].Content)
	assert.Equal(t, "42", history[1].Content)

	require.Len(t, backend.seen, 1)
	assert.Len(t, backend.seen[0].Messages, 1)

	// history is a copy
	history[0].Content = "changed"
	assert.Equal(t, "classify this", c.GetChatHistory(id)[0].Content)
}

func TestSendMessageBackendError(t *testing.T) {
	backend := &recordingBackend{err: errors.New("quota exceeded")}
	c := NewClient(backend, zap.NewNop(), 0)
	id, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), id, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini-2.0-flash API error")
	assert.Contains(t, err.Error(), "quota exceeded")

	history := c.GetChatHistory(id)
	require.Len(t, history, 1)
	assert.Equal(t, core.RoleUser, history[0].Role)
}

func TestSendMessageUnknownSession(t *testing.T) {
	c := NewClient(&recordingBackend{reply: "1"}, zap.NewNop(), 0)
	_, err := c.SendMessage(context.Background(), "sess_deadbeef", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, c.GetChatHistory("sess_deadbeef"))
}

func TestUserPreferencesApplyToNewSessions(t *testing.T) {
	backend := &recordingBackend{reply: "ok"}
	c := NewClient(backend, zap.NewNop(), 0)

	before, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	c.SetUserPreferences("user", core.UserPreferences{SystemPrompt: "Answer with a number."})
	after, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	assert.Empty(t, c.GetChatHistory(before))
	history := c.GetChatHistory(after)
	require.Len(t, history, 1)
	assert.Equal(t, core.RoleSystem, history[0].Role)

	_, err = c.SendMessage(context.Background(), after, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Answer with a number.", backend.seen[0].SystemPrompt)

	other, err := c.StartNewSession(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, c.GetChatHistory(other))
}

func TestMaxHistoryWindow(t *testing.T) {
	backend := &recordingBackend{reply: "ok"}
	c := NewClient(backend, zap.NewNop(), 3)
	id, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err := c.SendMessage(context.Background(), id, msg)
		require.NoError(t, err)
	}

	last := backend.seen[len(backend.seen)-1]
	require.Len(t, last.Messages, 3)
	assert.Equal(t, "three", last.Messages[2].Content)
	assert.Len(t, c.GetChatHistory(id), 6)
}

func TestEndSession(t *testing.T) {
	c := NewClient(&recordingBackend{reply: "ok"}, zap.NewNop(), 0)
	id, err := c.StartNewSession(context.Background(), "user")
	require.NoError(t, err)

	assert.True(t, c.EndSession(id))
	assert.True(t, c.EndSession(id))

	_, err = c.SendMessage(context.Background(), id, "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, c.Close())
}
