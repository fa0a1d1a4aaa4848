package feature

import (
	"context"
	"fmt"
)

const pdfMIME = "application/pdf"

// pdfPromptTemplate grounds the answer in the uploaded document.
const pdfPromptTemplate = "Answer the question using only the attached document. " +
	"If the document does not contain the answer, say so.\n\nQuestion: %s"

// PDFChat answers questions grounded in an uploaded PDF document.
type PDFChat struct {
	backend multimodalGenerator
}

// NewPDFChat creates the PDF chat adapter over b.
func NewPDFChat(b multimodalGenerator) *PDFChat {
	return &PDFChat{backend: b}
}

func (c *PDFChat) Name() string            { return "pdfchat" }
func (c *PDFChat) AcceptsAttachment() bool { return true }

func (c *PDFChat) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(req.Attachment) == 0 {
		return nil, ErrAttachmentRequired
	}
	if req.AttachmentMIME != pdfMIME {
		return nil, fmt.Errorf("%w: want %s, got %q", ErrAttachmentRequired, pdfMIME, req.AttachmentMIME)
	}

	prompt := fmt.Sprintf(pdfPromptTemplate, req.Prompt)
	text, err := c.backend.GenerateWithBlob(ctx, prompt, req.Attachment, pdfMIME)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text}, nil
}
