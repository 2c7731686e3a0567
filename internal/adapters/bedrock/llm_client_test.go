package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func testConversation() *core.Conversation {
	return &core.Conversation{
		ID: "sess_abcdef12",
		Messages: []core.ChatMessage{
			{Role: core.RoleSystem, Content: "You classify email."},
			{Role: core.RoleUser, Content: "Subject: hi"},
			{Role: core.RoleAssistant, Content: "5"},
			{Role: core.RoleUser, Content: "Subject: win money"},
		},
	}
}

func TestCompleteAnthropic(t *testing.T) {
	invoker := &fakeInvoker{body: `{"completion":" 92 "}`}
	client := NewBedrockClient(invoker, "anthropic.claude-v2", 100, 0.1, 0.9, zap.NewNop())

	reply, err := client.Complete(context.Background(), testConversation())
	require.NoError(t, err)
	assert.Equal(t, "92", reply)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Equal(t,
		"You classify email.\n\nHuman: Subject: hi\n\nAssistant: 5\n\nHuman: Subject: win money\n\nAssistant:",
		payload["prompt"])
	assert.EqualValues(t, 100, payload["max_tokens_to_sample"])
	assert.Equal(t, "anthropic.claude-v2", *invoker.input.ModelId)
}

func TestCompleteTitan(t *testing.T) {
	invoker := &fakeInvoker{body: `{"results":[{"outputText":"40"}]}`}
	client := NewBedrockClient(invoker, "amazon.titan-text-express-v1", 50, 0.1, 0.9, zap.NewNop())

	reply, err := client.Complete(context.Background(), testConversation())
	require.NoError(t, err)
	assert.Equal(t, "40", reply)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Equal(t,
		"System: You classify email.\nUser: Subject: hi\nAssistant: 5\nUser: Subject: win money\nAssistant:",
		payload["inputText"])

	invoker.body = `{"results":[]}`
	_, err = client.Complete(context.Background(), testConversation())
	assert.Error(t, err)
}

func TestCompleteGeneric(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "output field", body: `{"output":"1"}`, want: "1"},
		{name: "text field", body: `{"text":"2"}`, want: "2"},
		{name: "response field", body: `{"response":"3"}`, want: "3"},
		{name: "raw body", body: `{"other":"x"}`, want: `{"other":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewBedrockClient(&fakeInvoker{body: tt.body}, "meta.llama3", 10, 0, 0, zap.NewNop())
			reply, err := client.Complete(context.Background(), testConversation())
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestCompleteInvokeError(t *testing.T) {
	client := NewBedrockClient(&fakeInvoker{err: errors.New("throttled")}, "anthropic.claude-v2", 10, 0, 0, zap.NewNop())
	_, err := client.Complete(context.Background(), testConversation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
