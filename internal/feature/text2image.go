package feature

import (
	"context"
	"fmt"
)

// elaboratePromptTemplate asks the model to enrich a terse image prompt
// before it reaches the diffusion model.
const elaboratePromptTemplate = "Rewrite the following image prompt into one richly detailed " +
	"sentence for an image generation model. Reply with the rewritten prompt only.\n\nPrompt: %s"

// imageGenerator is the slice of the Hugging Face backend the
// text2image adapter needs.
type imageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Text2Image renders a text prompt into an image. When an elaborator is
// configured the prompt is first expanded into a detailed one.
type Text2Image struct {
	images     imageGenerator
	elaborator multimodalGenerator
}

// NewText2Image creates the text-to-image adapter. elaborator may be
// nil to generate from the raw prompt.
func NewText2Image(images imageGenerator, elaborator multimodalGenerator) *Text2Image {
	return &Text2Image{images: images, elaborator: elaborator}
}

func (t *Text2Image) Name() string            { return "text2image" }
func (t *Text2Image) AcceptsAttachment() bool { return false }

func (t *Text2Image) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(req.Attachment) > 0 {
		return nil, ErrAttachmentUnsupported
	}

	prompt := req.Prompt
	if t.elaborator != nil {
		elaborated, err := t.elaborator.GenerateText(ctx, fmt.Sprintf(elaboratePromptTemplate, req.Prompt))
		if err != nil {
			return nil, err
		}
		prompt = elaborated
	}

	img, err := t.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:       prompt,
		Binary:     img,
		BinaryMIME: "image/png",
	}, nil
}
