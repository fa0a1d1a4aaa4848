package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/log"
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	logger    log.Logger
}

// NewChatClient creates a ChatClient from cfg.
func NewChatClient(cfg config.ChatBackendConfig, logger log.Logger) *ChatClient {
	return &ChatClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    newHTTPClient(),
		logger:    logger,
	}
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete sends messages and returns the full assistant reply.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.post(ctx, chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newTransportError("chat", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newTransportError("chat", fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", newTransportError("chat", fmt.Errorf("response has no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream sends messages and invokes onDelta for each content fragment
// as it arrives. It returns the concatenated reply. onDelta may be nil.
func (c *ChatClient) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	resp, err := c.post(ctx, chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
		Stream:    true,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Warn("skipping malformed stream chunk", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", newTransportError("chat", fmt.Errorf("reading stream: %w", err))
	}
	return full.String(), nil
}

func (c *ChatClient) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newTransportError("chat", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, newTransportError("chat", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newTransportError("chat", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, newStatusError("chat", resp.StatusCode, errBody)
	}
	return resp, nil
}
