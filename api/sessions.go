package api

import (
	"io"
	"net/http"
	"path"

	"github.com/vyomlabs/vyom/internal/feature"
	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/session"
)

// SessionHandler handles the per-feature session endpoints.
type SessionHandler struct {
	registry *feature.Registry
	store    *session.Store
	selector *session.Selector
	logger   log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(registry *feature.Registry, store *session.Store, selector *session.Selector, logger log.Logger) *SessionHandler {
	return &SessionHandler{registry: registry, store: store, selector: selector, logger: logger}
}

// RegisterRoutes registers session routes on the given mux. guard wraps
// each handler with authentication.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/features", guard(h.listFeatures))
	mux.HandleFunc("POST /api/features/{feature}/sessions", guard(h.create))
	mux.HandleFunc("GET /api/features/{feature}/sessions", guard(h.list))
	mux.HandleFunc("DELETE /api/features/{feature}/sessions", guard(h.deleteAll))
	mux.HandleFunc("PUT /api/features/{feature}/sessions/{id}/select", guard(h.selectSession))
	mux.HandleFunc("DELETE /api/features/{feature}/sessions/{id}", guard(h.delete))
	mux.HandleFunc("GET /api/features/{feature}/sessions/{id}/turns", guard(h.turns))
	mux.HandleFunc("GET /api/features/{feature}/sessions/{id}/attachments/{name}", guard(h.attachment))
}

// FeatureInfo describes one registered feature.
type FeatureInfo struct {
	Name              string `json:"name"`
	AcceptsAttachment bool   `json:"accepts_attachment"`
}

func (h *SessionHandler) listFeatures(w http.ResponseWriter, r *http.Request) {
	infos := make([]FeatureInfo, 0, len(h.registry.Names()))
	for _, name := range h.registry.Names() {
		adapter, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, FeatureInfo{
			Name:              adapter.Name(),
			AcceptsAttachment: adapter.AcceptsAttachment(),
		})
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"features": infos})
}

// featureName extracts and validates the {feature} path segment.
func (h *SessionHandler) featureName(r *http.Request) (string, error) {
	name := r.PathValue("feature")
	if _, err := h.registry.Get(name); err != nil {
		return "", err
	}
	return name, nil
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())

	sess, err := h.store.Create(r.Context(), owner, feat)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.selector.Select(owner, feat, sess.ID)

	h.logger.Info("session created", "username", owner, "feature", feat, "session_id", sess.ID)
	writeJSON(w, h.logger, http.StatusCreated, sess)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())

	sessions, err := h.store.List(r.Context(), owner, feat)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	active, err := h.selector.Active(r.Context(), owner, feat)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"sessions": sessions,
		"active":   active,
		"total":    len(sessions),
	})
}

func (h *SessionHandler) selectSession(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())
	id := r.PathValue("id")

	sessions, err := h.store.List(r.Context(), owner, feat)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	for _, sess := range sessions {
		if sess.ID == id {
			h.selector.Select(owner, feat, id)
			writeJSON(w, h.logger, http.StatusOK, map[string]string{"active": id})
			return
		}
	}
	writeDomainError(w, h.logger, session.ErrSessionNotFound)
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), owner, feat, id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.selector.Forget(owner, feat, id)

	h.logger.Info("session deleted", "username", owner, "feature", feat, "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())

	if err := h.store.DeleteAll(r.Context(), owner, feat); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.selector.ForgetAll(owner, feat)

	h.logger.Info("sessions cleared", "username", owner, "feature", feat)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) turns(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())
	id := r.PathValue("id")

	turns, err := h.store.Turns(r.Context(), owner, feat, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"turns": turns, "total": len(turns)})
}

func (h *SessionHandler) attachment(w http.ResponseWriter, r *http.Request) {
	feat, err := h.featureName(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	owner := usernameFrom(r.Context())
	id := r.PathValue("id")
	ref := path.Join("attachments", r.PathValue("name"))

	f, err := h.store.OpenAttachment(owner, feat, id, ref)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	defer f.Close()

	// ServeContent would need a seek; attachments are small files, a
	// plain copy with a detected type is enough.
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		writeError(w, h.logger, http.StatusInternalServerError,
			"storage_error", "failed to read attachment")
		return
	}
	contentType := "application/octet-stream"
	if n > 0 {
		contentType = http.DetectContentType(buf[:n])
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(buf[:n]); err != nil {
		return
	}
	_, _ = io.Copy(w, f)
}
