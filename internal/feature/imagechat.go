package feature

import (
	"context"
	"fmt"
	"strings"
)

// multimodalGenerator is the slice of the Gemini backend the
// attachment-grounded features need.
type multimodalGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateWithBlob(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
}

// ImageChat answers questions about an uploaded image.
type ImageChat struct {
	backend multimodalGenerator
}

// NewImageChat creates the image chat adapter over b.
func NewImageChat(b multimodalGenerator) *ImageChat {
	return &ImageChat{backend: b}
}

func (c *ImageChat) Name() string            { return "imagechat" }
func (c *ImageChat) AcceptsAttachment() bool { return true }

func (c *ImageChat) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(req.Attachment) == 0 {
		return nil, ErrAttachmentRequired
	}
	if !strings.HasPrefix(req.AttachmentMIME, "image/") {
		return nil, fmt.Errorf("%w: want an image, got %q", ErrAttachmentRequired, req.AttachmentMIME)
	}

	text, err := c.backend.GenerateWithBlob(ctx, req.Prompt, req.Attachment, req.AttachmentMIME)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text}, nil
}
