package api

import (
	"encoding/json"
	"net/http"

	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/qr"
)

// QRHandler handles QR code generation.
type QRHandler struct {
	logger log.Logger
}

// NewQRHandler creates a new QR handler.
func NewQRHandler(logger log.Logger) *QRHandler {
	return &QRHandler{logger: logger}
}

// RegisterRoutes registers the QR route on the given mux.
func (h *QRHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/qr", guard(h.generate))
}

// QRRequest is the request body for generating a QR code.
type QRRequest struct {
	Content string `json:"content"`
	Color   string `json:"color"`
	Size    int    `json:"size"`
}

func (h *QRHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req QRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Size == 0 {
		req.Size = qr.DefaultSize
	}

	png, err := qr.Generate(req.Content, req.Color, req.Size)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.logger.Warn("failed to write qr response", "error", err)
	}
}
