package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vyomlabs/vyom/internal/backend"
	"github.com/vyomlabs/vyom/internal/feature"
	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/session"
)

// MaxAttachmentBytes bounds uploaded attachments.
const MaxAttachmentBytes = 20 << 20

// MessageHandler handles message submission: one user turn in, one
// assistant turn out, both persisted only after the backend succeeds.
type MessageHandler struct {
	registry *feature.Registry
	store    *session.Store
	logger   log.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(registry *feature.Registry, store *session.Store, logger log.Logger) *MessageHandler {
	return &MessageHandler{registry: registry, store: store, logger: logger}
}

// RegisterRoutes registers the message route on the given mux.
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/features/{feature}/sessions/{id}/messages", guard(h.post))
}

// MessageResponse carries the two turns persisted for one exchange.
type MessageResponse struct {
	User      session.Turn `json:"user"`
	Assistant session.Turn `json:"assistant"`
}

func (h *MessageHandler) post(w http.ResponseWriter, r *http.Request) {
	feat := r.PathValue("feature")
	adapter, err := h.registry.Get(feat)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())
	id := r.PathValue("id")

	if err := h.sessionExists(r, owner, feat, id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	history, err := h.history(r, owner, feat, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	req.History = history

	if r.URL.Query().Get("stream") == "1" {
		h.invokeStreaming(w, r, adapter, owner, feat, id, req)
		return
	}
	h.invoke(w, r, adapter, owner, feat, id, req)
}

func (h *MessageHandler) invoke(w http.ResponseWriter, r *http.Request, adapter feature.Adapter, owner, feat, id string, req feature.Request) {
	resp, err := adapter.Invoke(r.Context(), req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	userTurn, assistantTurn, err := h.persist(r, owner, feat, id, req, resp)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{User: userTurn, Assistant: assistantTurn})
}

func (h *MessageHandler) invokeStreaming(w http.ResponseWriter, r *http.Request, adapter feature.Adapter, owner, feat, id string, req feature.Request) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	req.OnDelta = func(text string) {
		if err := sse.WriteDelta(text); err != nil {
			h.logger.Warn("failed to write delta", "error", err)
		}
	}

	resp, err := adapter.Invoke(r.Context(), req)
	if err != nil {
		_, code, message := classify(err)
		if writeErr := sse.WriteError(code, message); writeErr != nil {
			h.logger.Warn("failed to write stream error", "error", writeErr)
		}
		return
	}

	userTurn, assistantTurn, err := h.persist(r, owner, feat, id, req, resp)
	if err != nil {
		_, code, message := classify(err)
		_ = sse.WriteError(code, message)
		return
	}
	if err := sse.WriteDone(MessageResponse{User: userTurn, Assistant: assistantTurn}); err != nil {
		h.logger.Warn("failed to write done event", "error", err)
	}
}

// persist writes the user and assistant turns after a successful
// backend call. Attachment bytes land on disk first so both turn
// records reference stored files.
func (h *MessageHandler) persist(r *http.Request, owner, feat, id string, req feature.Request, resp *feature.Response) (session.Turn, session.Turn, error) {
	ctx := r.Context()

	userTurn := session.Turn{Role: session.RoleUser, Content: req.Prompt}
	if len(req.Attachment) > 0 {
		ref, err := h.store.SaveAttachment(ctx, owner, feat, id, extensionFor(req.AttachmentMIME), req.Attachment)
		if err != nil {
			return session.Turn{}, session.Turn{}, err
		}
		userTurn.Attachment = ref
	}

	assistantTurn := session.Turn{Role: session.RoleAssistant, Content: resp.Text, Meta: resp.Meta}
	if len(resp.Binary) > 0 {
		ref, err := h.store.SaveAttachment(ctx, owner, feat, id, extensionFor(resp.BinaryMIME), resp.Binary)
		if err != nil {
			return session.Turn{}, session.Turn{}, err
		}
		assistantTurn.Attachment = ref
	}

	if err := h.store.Append(ctx, owner, feat, id, userTurn); err != nil {
		return session.Turn{}, session.Turn{}, err
	}
	if err := h.store.Append(ctx, owner, feat, id, assistantTurn); err != nil {
		return session.Turn{}, session.Turn{}, err
	}
	return userTurn, assistantTurn, nil
}

func (h *MessageHandler) sessionExists(r *http.Request, owner, feat, id string) error {
	sessions, err := h.store.List(r.Context(), owner, feat)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return nil
		}
	}
	return session.ErrSessionNotFound
}

// history converts the stored turns into chat messages. Turns carrying
// only media keep their text content; the bytes themselves are not
// replayed to the backend.
func (h *MessageHandler) history(r *http.Request, owner, feat, id string) ([]backend.Message, error) {
	turns, err := h.store.Turns(r.Context(), owner, feat, id)
	if err != nil {
		return nil, err
	}
	messages := make([]backend.Message, 0, len(turns))
	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		role := backend.RoleUser
		if turn.Role == session.RoleAssistant {
			role = backend.RoleAssistant
		}
		messages = append(messages, backend.Message{Role: role, Content: turn.Content})
	}
	return messages, nil
}

// parseRequest reads the prompt and optional attachment from either a
// multipart form or a JSON body.
func (h *MessageHandler) parseRequest(r *http.Request) (feature.Request, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxAttachmentBytes)

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		return h.parseMultipart(r)
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return feature.Request{}, fmt.Errorf("%w: invalid request body", feature.ErrPromptRequired)
	}
	return feature.Request{Prompt: strings.TrimSpace(body.Prompt)}, nil
}

func (h *MessageHandler) parseMultipart(r *http.Request) (feature.Request, error) {
	if err := r.ParseMultipartForm(MaxAttachmentBytes); err != nil {
		return feature.Request{}, fmt.Errorf("%w: parsing form: %v", feature.ErrAttachmentRequired, err)
	}

	req := feature.Request{Prompt: strings.TrimSpace(r.FormValue("prompt"))}

	file, header, err := r.FormFile("attachment")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return feature.Request{}, fmt.Errorf("%w: reading attachment: %v", feature.ErrAttachmentRequired, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return feature.Request{}, fmt.Errorf("%w: reading attachment: %v", feature.ErrAttachmentRequired, err)
	}

	mimeType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	req.Attachment = data
	req.AttachmentMIME = mimeType
	return req, nil
}

// extensionFor picks a filename extension for stored attachment bytes.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "application/pdf":
		return "pdf"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg":
		return "mp3"
	case "audio/flac":
		return "flac"
	default:
		return "bin"
	}
}
