package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/vyomlabs/vyom/internal/backend"
)

// maxReportedLabels bounds how many labels end up in the response.
const maxReportedLabels = 5

// audioClassifier is the slice of the Hugging Face backend the
// audioclassify adapter needs.
type audioClassifier interface {
	ClassifyAudio(ctx context.Context, audio []byte, mimeType string) ([]backend.Classification, error)
}

// AudioClassify labels an uploaded audio clip.
type AudioClassify struct {
	classifier audioClassifier
}

// NewAudioClassify creates the audio classification adapter over c.
func NewAudioClassify(c audioClassifier) *AudioClassify {
	return &AudioClassify{classifier: c}
}

func (a *AudioClassify) Name() string            { return "audioclassify" }
func (a *AudioClassify) AcceptsAttachment() bool { return true }

func (a *AudioClassify) Invoke(ctx context.Context, req Request) (*Response, error) {
	if len(req.Attachment) == 0 {
		return nil, ErrAttachmentRequired
	}
	if !strings.HasPrefix(req.AttachmentMIME, "audio/") {
		return nil, fmt.Errorf("%w: want audio, got %q", ErrAttachmentRequired, req.AttachmentMIME)
	}

	scores, err := a.classifier.ClassifyAudio(ctx, req.Attachment, req.AttachmentMIME)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return &Response{Text: "No labels matched."}, nil
	}
	if len(scores) > maxReportedLabels {
		scores = scores[:maxReportedLabels]
	}

	meta := make(map[string]float64, len(scores))
	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		meta[s.Label] = s.Score
		lines = append(lines, fmt.Sprintf("%s (%.2f)", s.Label, s.Score))
	}

	return &Response{
		Text: "Top labels: " + strings.Join(lines, ", "),
		Meta: meta,
	}, nil
}
