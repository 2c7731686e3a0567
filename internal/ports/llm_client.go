package ports

import (
	"context"

	"github.com/mikey/gmail-spam-detector/internal/core"
)

// ChatBackend defines the interface for an LLM chat completion service
type ChatBackend interface {
	// Complete returns the assistant reply to the last message of conv
	Complete(ctx context.Context, conv *core.Conversation) (string, error)

	// ModelName returns the name of the model answering requests
	ModelName() string
}
