package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/log"
)

// HFClient calls Hugging Face inference endpoints. Each endpoint hosts
// one model; the client holds the three endpoints the features need.
type HFClient struct {
	apiKey        string
	imageURL      string
	audioURL      string
	classifierURL string
	client        *http.Client
	logger        log.Logger
}

// NewHFClient creates an HFClient from cfg.
func NewHFClient(cfg config.HFConfig, logger log.Logger) *HFClient {
	return &HFClient{
		apiKey:        cfg.APIKey,
		imageURL:      cfg.ImageURL,
		audioURL:      cfg.AudioURL,
		classifierURL: cfg.ClassifierURL,
		client:        newHTTPClient(),
		logger:        logger,
	}
}

// Classification is one label with its confidence score.
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// GenerateImage renders prompt into image bytes (PNG or JPEG,
// depending on the hosted model).
func (h *HFClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return h.infer(ctx, h.imageURL, jsonInputs(prompt), "")
}

// GenerateAudio renders prompt into audio bytes.
func (h *HFClient) GenerateAudio(ctx context.Context, prompt string) ([]byte, error) {
	return h.infer(ctx, h.audioURL, jsonInputs(prompt), "")
}

// ClassifyAudio scores audio against the classifier's label set and
// returns the labels ordered by descending score.
func (h *HFClient) ClassifyAudio(ctx context.Context, audio []byte, mimeType string) ([]Classification, error) {
	body, err := h.infer(ctx, h.classifierURL, audio, mimeType)
	if err != nil {
		return nil, err
	}

	var scores []Classification
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, newTransportError("huggingface", fmt.Errorf("decoding classification: %w", err))
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores, nil
}

func jsonInputs(prompt string) []byte {
	payload, _ := json.Marshal(map[string]string{"inputs": prompt})
	return payload
}

func (h *HFClient) infer(ctx context.Context, url string, payload []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, newTransportError("huggingface", err)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, newTransportError("huggingface", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError("huggingface", resp.StatusCode, errBody)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError("huggingface", err)
	}
	return body, nil
}
