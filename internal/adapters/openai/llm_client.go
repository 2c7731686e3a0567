package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the ChatBackend interface using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// ModelName returns the OpenAI model in use
func (c *OpenAIClient) ModelName() string {
	return c.modelName
}

// Complete sends the conversation as a chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, conv *core.Conversation) (string, error) {
	messages, err := toChatMessages(conv)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Sending chat to OpenAI",
		zap.String("session_id", conv.ID),
		zap.Int("messages", len(messages)))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.modelName,
			Messages:    messages,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			TopP:        c.topP,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toChatMessages(conv *core.Conversation) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		var role string
		switch msg.Role {
		case core.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case core.RoleUser:
			role = openai.ChatMessageRoleUser
		case core.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return messages, nil
}
