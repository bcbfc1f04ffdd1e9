package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelServer(t *testing.T, handler http.HandlerFunc) *HTTPModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewHTTPModel(ModelConfig{BaseURL: srv.URL, APIKey: "k", Model: "judge-1"}, nil)
	require.NoError(t, err)
	return m.WithHTTPClient(srv.Client())
}

func reply(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
}

func TestHTTPModel_Complete(t *testing.T) {
	var got completionRequest
	m := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, `{"match":"exact_match"}`)
	})

	out, err := m.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"match":"exact_match"}`, out)
	assert.Equal(t, "judge-1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestHTTPModel_AnalyzeImageSendsDataURL(t *testing.T) {
	var raw map[string]any
	m := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		reply(w, `{"items":[]}`)
	})

	_, err := m.AnalyzeImage(context.Background(), "QUJD", "find the list")
	require.NoError(t, err)

	msgs := raw["messages"].([]any)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,QUJD", img["url"])
}

func TestHTTPModel_ErrorStatus(t *testing.T) {
	m := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down (type: rate_limit)")
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestHTTPModel_EmptyChoicesIsValidationError(t *testing.T) {
	m := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewHTTPModel_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPModel(ModelConfig{Model: "m"}, nil)
	assert.Error(t, err)
	_, err = NewHTTPModel(ModelConfig{BaseURL: "http://x"}, nil)
	assert.Error(t, err)
}
