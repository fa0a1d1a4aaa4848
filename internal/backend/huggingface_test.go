package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/log"
)

func TestGenerateImage(t *testing.T) {
	want := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "a red fox", payload["inputs"])

		w.Write(want)
	}))
	defer srv.Close()

	client := NewHFClient(config.HFConfig{APIKey: "hf-token", ImageURL: srv.URL}, log.NewNop())
	got, err := client.GenerateImage(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGenerateAudio(t *testing.T) {
	want := []byte("RIFF....WAVE")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(want)
	}))
	defer srv.Close()

	client := NewHFClient(config.HFConfig{AudioURL: srv.URL}, log.NewNop())
	got, err := client.GenerateAudio(context.Background(), "soft rain")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClassifyAudio_SortedByScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-wav"), body)

		fmt.Fprint(w, `[{"label":"Music","score":0.12},{"label":"Speech","score":0.81},{"label":"Silence","score":0.07}]`)
	}))
	defer srv.Close()

	client := NewHFClient(config.HFConfig{ClassifierURL: srv.URL}, log.NewNop())
	scores, err := client.ClassifyAudio(context.Background(), []byte("fake-wav"), "audio/wav")
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "Speech", scores[0].Label)
	assert.Equal(t, "Music", scores[1].Label)
	assert.Equal(t, "Silence", scores[2].Label)
}

func TestClassifyAudio_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model loading"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHFClient(config.HFConfig{ClassifierURL: srv.URL}, log.NewNop())
	_, err := client.ClassifyAudio(context.Background(), []byte("x"), "audio/wav")

	var backendErr *Error
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusServiceUnavailable, backendErr.Status)
	assert.Contains(t, backendErr.Body, "model loading")
}
