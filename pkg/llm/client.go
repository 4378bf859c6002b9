// Package llm provides prompt-completion clients for the supported model providers.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neural-trace-go/internal/config"
	"neural-trace-go/pkg/youcom"
)

// Client 是一次性问答接口：返回去除首尾空白的答案文本。
// 返回错误或空字符串都表示“没有可用答案”，由调用方决定回退策略。
type Client interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured 表示所选 provider 缺少凭证，调用不会发出网络请求。
var ErrNotConfigured = youcom.ErrNotConfigured

const (
	ProviderExpress   = "express"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewClient 根据配置中的 provider 创建对应的 LLM 客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig, yc config.YouComConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 25 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderExpress:
		return youcom.NewClient(yc.APIKey,
			youcom.WithExpressURL(yc.ExpressURL),
			youcom.WithExpressTimeout(timeout),
		), nil
	case ProviderOpenAI:
		return newChatClient(cfg, timeout), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg, timeout), nil
	case ProviderGemini:
		return newGeminiClient(ctx, cfg, timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
