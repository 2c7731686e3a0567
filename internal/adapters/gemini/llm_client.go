package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// GeminiClient is an implementation of the ChatBackend interface using Google Gemini
type GeminiClient struct {
	client      *genai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

// ModelName returns the Gemini model in use
func (c *GeminiClient) ModelName() string {
	return c.modelName
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete replays the conversation into a chat session and returns the
// model's answer to the last user message
func (c *GeminiClient) Complete(ctx context.Context, conv *core.Conversation) (string, error) {
	system, history, pending, err := toGeminiHistory(conv)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	c.logger.Debug("Sending chat to Gemini",
		zap.String("session_id", conv.ID),
		zap.Int("history", len(history)))

	resp, err := cs.SendMessage(ctx, pending...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	return responseText(resp)
}

// toGeminiHistory splits a conversation into the system instruction, the
// prior turns and the parts of the final user turn. Consecutive messages of
// the same role are merged into one turn.
func toGeminiHistory(conv *core.Conversation) (string, []*genai.Content, []genai.Part, error) {
	var system []string
	var turns []*genai.Content

	for _, msg := range conv.Messages {
		var role string
		switch msg.Role {
		case core.RoleSystem:
			system = append(system, msg.Content)
			continue
		case core.RoleUser:
			role = roleUser
		case core.RoleAssistant:
			role = roleModel
		default:
			return "", nil, nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, genai.Text(msg.Content))
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != roleUser {
		return "", nil, nil, errors.New("conversation does not end with a user message")
	}

	last := turns[len(turns)-1]
	return strings.Join(system, "\n"), turns[:len(turns)-1], last.Parts, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
