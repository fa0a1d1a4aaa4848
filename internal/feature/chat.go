package feature

import (
	"context"

	"github.com/vyomlabs/vyom/internal/backend"
)

// chatSystemPrompt frames the plain chat assistant.
const chatSystemPrompt = "You are a helpful assistant. Answer clearly and concisely."

// chatStreamer is the slice of the chat backend the chat adapter needs.
type chatStreamer interface {
	Stream(ctx context.Context, messages []backend.Message, onDelta func(string)) (string, error)
}

// Chat is the plain text chat feature. Responses stream through
// Request.OnDelta when set.
type Chat struct {
	backend chatStreamer
}

// NewChat creates the chat adapter over b.
func NewChat(b chatStreamer) *Chat {
	return &Chat{backend: b}
}

func (c *Chat) Name() string            { return "chat" }
func (c *Chat) AcceptsAttachment() bool { return false }

func (c *Chat) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(req.Attachment) > 0 {
		return nil, ErrAttachmentUnsupported
	}

	messages := make([]backend.Message, 0, len(req.History)+2)
	messages = append(messages, backend.Message{Role: backend.RoleSystem, Content: chatSystemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, backend.Message{Role: backend.RoleUser, Content: req.Prompt})

	text, err := c.backend.Stream(ctx, messages, req.OnDelta)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text}, nil
}
