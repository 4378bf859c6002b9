package llm

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rotisserie/eris"

	"neural-trace-go/internal/config"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiClient 通过 Vertex AI 调用 Gemini 模型。
type geminiClient struct {
	baseClient *genai.Client
	model      *genai.GenerativeModel
	timeout    time.Duration
}

func newGeminiClient(ctx context.Context, cfg config.LLMConfig, timeout time.Duration) (*geminiClient, error) {
	if cfg.Vertex.ProjectID == "" || cfg.Vertex.Region == "" {
		return &geminiClient{timeout: timeout}, nil
	}
	baseClient, err := genai.NewClient(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region)
	if err != nil {
		return nil, eris.Wrap(err, "llm: genai.NewClient")
	}
	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := baseClient.GenerativeModel(name)
	if cfg.Generation.Temperature != 0 {
		model.SetTemperature(float32(cfg.Generation.Temperature))
	}
	if cfg.Generation.MaxTokens != 0 {
		model.SetMaxOutputTokens(int32(cfg.Generation.MaxTokens))
	}
	return &geminiClient{baseClient: baseClient, model: model, timeout: timeout}, nil
}

func (c *geminiClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.model == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini generate content")
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	return strings.TrimSpace(b.String()), nil
}

// Close 释放底层 Vertex AI 客户端。
func (c *geminiClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
