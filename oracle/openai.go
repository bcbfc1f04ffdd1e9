package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/truffle/internal/tlsutil"
)

// ModelConfig points at an OpenAI-compatible chat completions endpoint.
type ModelConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	APIKey       string        `yaml:"api_key" json:"-" env:"API_KEY"`
	Model        string        `yaml:"model" json:"model" env:"MODEL"`
	EndpointPath string        `yaml:"endpoint_path" json:"endpoint_path" env:"ENDPOINT_PATH"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	Temperature  float32       `yaml:"temperature" json:"temperature" env:"TEMPERATURE"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" env:"MAX_TOKENS"`
}

// HTTPModel talks to an OpenAI-compatible API. It serves both as the
// ChatModel behind ChatOracle and as the vision model for list hints.
type HTTPModel struct {
	cfg    ModelConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPModel creates a model client.
func NewHTTPModel(cfg ModelConfig, logger *zap.Logger) (*HTTPModel, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("model base url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPModel{
		cfg:    cfg,
		client: tlsutil.HTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "http_model"), zap.String("model", cfg.Model)),
	}, nil
}

// WithHTTPClient replaces the HTTP client.
func (m *HTTPModel) WithHTTPClient(c *http.Client) *HTTPModel {
	m.client = c
	return m
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements ChatModel.
func (m *HTTPModel) Complete(ctx context.Context, messages []Message) (string, error) {
	wire := make([]wireMessage, len(messages))
	for i, msg := range messages {
		wire[i] = wireMessage{Role: string(msg.Role), Content: msg.Content}
	}
	return m.do(ctx, wire)
}

// AnalyzeImage sends a base64 PNG with prompt.
func (m *HTTPModel) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	return m.do(ctx, []wireMessage{{
		Role: string(RoleUser),
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + imageBase64}},
		},
	}})
}

func (m *HTTPModel) do(ctx context.Context, messages []wireMessage) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       m.cfg.Model,
		Messages:    messages,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + m.cfg.EndpointPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		return "", fmt.Errorf("model request failed: status=%d msg=%s", resp.StatusCode, msg)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewValidationError("undecodable completion", err)
	}
	if len(out.Choices) == 0 {
		return "", NewValidationError("completion has no choices", nil)
	}
	m.logger.Debug("completion received", zap.Duration("latency", time.Since(start)))
	return out.Choices[0].Message.Content, nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return string(data)
}
