package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbability(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{reply: "85", want: 85},
		{reply: " 12.5\n", want: 12.5},
		{reply: "0", want: 0},
		{reply: "100", want: 100},
		{reply: "250", want: 100},
		{reply: "-4", want: 0},
		{reply: "inf", want: 100},
		{reply: "-Infinity", want: 0},
		{reply: "1e1", want: 10},
		{reply: "NaN", want: 100},
		{reply: "0x1p4", wantErr: true},
		{reply: "-0X10", wantErr: true},
		{reply: "+0x1p-2", wantErr: true},
		{reply: "85%", wantErr: true},
		{reply: "about 40", wantErr: true},
		{reply: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := ParseProbability(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0.0, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	email := &Email{Subject: "Hi", From: "a@b.c", To: "me@x.y", Date: "today", Body: "ignored"}
	prompt := BuildPrompt(email, "short body")

	assert.Contains(t, prompt, "Reply only with a number between 0 and 100. No explanation.\n\n")
	assert.True(t, len(prompt) > 0 && prompt[len(prompt)-1] == '\n')
	assert.Contains(t, prompt, "Subject: Hi\nFrom: a@b.c\nTo: me@x.y\nDate: today\nBody: short body\n")
	assert.NotContains(t, prompt, "ignored")
}

func TestPromptHash(t *testing.T) {
	a := PromptHash("prompt")
	assert.Len(t, a, 64)
	assert.Equal(t, a, PromptHash("prompt"))
	assert.NotEqual(t, a, PromptHash("prompt "))
}

func TestConversationWindow(t *testing.T) {
	conv := &Conversation{Messages: []ChatMessage{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "u2"},
	}}

	all := conv.Window(0)
	assert.Len(t, all.Messages, 4)

	w := conv.Window(2)
	require.Len(t, w.Messages, 3)
	assert.Equal(t, "sys", w.Messages[0].Content)
	assert.Equal(t, "a1", w.Messages[1].Content)
	assert.Equal(t, "u2", w.Messages[2].Content)

	// the window is a copy
	w.Messages[2].Content = "changed"
	assert.Equal(t, "u2", conv.Messages[3].Content)

	noSystem := &Conversation{Messages: conv.Messages[1:]}
	w = noSystem.Window(1)
	require.Len(t, w.Messages, 1)
	assert.Equal(t, "u2", w.Messages[0].Content)
}

func TestNewAttachmentDefaultsContentType(t *testing.T) {
	a := NewAttachment("blob", []byte{1, 2}, "")
	assert.Equal(t, "application/octet-stream", a.ContentType())
	data, err := a.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}
