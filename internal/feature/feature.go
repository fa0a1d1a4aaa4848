// Package feature defines the adapter contract shared by every
// assistant feature and the concrete adapters behind it.
//
// An adapter turns one user prompt (plus optional attachment and prior
// turns) into one assistant response. Adapters are stateless; session
// persistence happens in the caller after a successful invocation, so
// a failed backend call leaves no trace in the turn log.
package feature

import (
	"context"
	"errors"
	"sort"

	"github.com/vyomlabs/vyom/internal/backend"
)

var (
	// ErrPromptRequired indicates the request carried no prompt text.
	ErrPromptRequired = errors.New("prompt is required")

	// ErrAttachmentRequired indicates the feature needs an attachment
	// and none was provided.
	ErrAttachmentRequired = errors.New("attachment is required")

	// ErrAttachmentUnsupported indicates an attachment was sent to a
	// feature that does not accept one.
	ErrAttachmentUnsupported = errors.New("attachment not supported")

	// ErrUnknownFeature indicates the requested feature is not
	// registered.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Request is one user turn handed to an adapter.
type Request struct {
	Prompt         string
	Attachment     []byte
	AttachmentMIME string

	// History holds the prior turns of the session, oldest first.
	History []backend.Message

	// OnDelta, when non-nil, receives response fragments as they
	// arrive. Only streaming adapters call it; the full text is
	// always returned in Response regardless.
	OnDelta func(string)
}

// Response is one assistant turn produced by an adapter.
type Response struct {
	Text string

	// Binary holds generated media (image or audio) when the feature
	// produces one.
	Binary     []byte
	BinaryMIME string

	// Meta holds classification scores keyed by label.
	Meta map[string]float64
}

// Adapter is one assistant feature.
type Adapter interface {
	// Name is the stable feature identifier used in storage paths and
	// API routes.
	Name() string

	// AcceptsAttachment reports whether Invoke uses an attachment.
	AcceptsAttachment() bool

	// Invoke performs exactly one backend call sequence for req.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Registry holds the registered adapters. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a Registry over adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, ErrUnknownFeature
	}
	return a, nil
}

// Names returns the registered feature names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
