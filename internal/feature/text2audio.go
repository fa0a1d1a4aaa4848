package feature

import (
	"context"
	"fmt"

	"github.com/vyomlabs/vyom/internal/backend"
)

// audioPromptTemplate asks the chat model to turn a terse idea into a
// concrete description for the audio model.
const audioPromptTemplate = "Rewrite the following idea into one concrete description of a " +
	"sound or piece of music for an audio generation model. Reply with the description only.\n\nIdea: %s"

// audioGenerator is the slice of the Hugging Face backend the
// text2audio adapter needs.
type audioGenerator interface {
	GenerateAudio(ctx context.Context, prompt string) ([]byte, error)
}

// chatCompleter is the non-streaming slice of the chat backend.
type chatCompleter interface {
	Complete(ctx context.Context, messages []backend.Message) (string, error)
}

// Text2Audio renders a text prompt into audio. When a helper is
// configured the prompt is first rewritten into a concrete description.
type Text2Audio struct {
	audio  audioGenerator
	helper chatCompleter
}

// NewText2Audio creates the text-to-audio adapter. helper may be nil to
// generate from the raw prompt.
func NewText2Audio(audio audioGenerator, helper chatCompleter) *Text2Audio {
	return &Text2Audio{audio: audio, helper: helper}
}

func (t *Text2Audio) Name() string            { return "text2audio" }
func (t *Text2Audio) AcceptsAttachment() bool { return false }

func (t *Text2Audio) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(req.Attachment) > 0 {
		return nil, ErrAttachmentUnsupported
	}

	prompt := req.Prompt
	if t.helper != nil {
		rewritten, err := t.helper.Complete(ctx, []backend.Message{
			{Role: backend.RoleUser, Content: fmt.Sprintf(audioPromptTemplate, req.Prompt)},
		})
		if err != nil {
			return nil, err
		}
		prompt = rewritten
	}

	audio, err := t.audio.GenerateAudio(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:       prompt,
		Binary:     audio,
		BinaryMIME: "audio/wav",
	}, nil
}
