package ollama

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server hosting multimodal models.
type Client struct {
	baseURL     string
	visionModel string
	ocrModel    string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, visionModel, ocrModel string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(ocrModel) == "" {
		ocrModel = visionModel
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		visionModel: visionModel,
		ocrModel:    ocrModel,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		executor:    executor,
	}
}

type generateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt,omitempty"`
	Images    []string `json:"images,omitempty"`
	Format    string   `json:"format,omitempty"`
	Stream    bool     `json:"stream"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generateJSON runs a single-image prompt that must answer with a JSON object.
func (c *Client) generateJSON(ctx context.Context, operation, model, prompt string, image *domain.Image) (string, error) {
	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image.Bytes())},
		Format: "json",
		Stream: false,
	}
	resp, err := resilience.Call(ctx, c.executor, "ollama."+operation, func(ctx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.postJSON(ctx, "/api/generate", req, &out, operation)
		return out, err
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama "+operation, err)
	}
	return extractJSONObject(strings.TrimSpace(resp.Response)), nil
}

// keepAlive loads (duration > 0) or unloads ("0") a model without generating.
func (c *Client) keepAlive(ctx context.Context, model, duration string) error {
	req := generateRequest{Model: model, Stream: false, KeepAlive: duration}
	_, err := resilience.Call(ctx, c.executor, "ollama.keep_alive", func(ctx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.postJSON(ctx, "/api/generate", req, &out, "keep_alive")
		return out, err
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded("ollama keep_alive", err)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
