package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural-trace-go/internal/config"
)

func TestNewClient_Providers(t *testing.T) {
	ctx := context.Background()

	c, err := NewClient(ctx, config.LLMConfig{}, config.YouComConfig{})
	require.NoError(t, err)
	_, err = c.Ask(ctx, "p")
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err = NewClient(ctx, config.LLMConfig{Provider: "OpenAI"}, config.YouComConfig{})
	require.NoError(t, err)
	assert.IsType(t, &chatClient{}, c)

	c, err = NewClient(ctx, config.LLMConfig{Provider: ProviderAnthropic}, config.YouComConfig{})
	require.NoError(t, err)
	_, err = c.Ask(ctx, "p")
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err = NewClient(ctx, config.LLMConfig{Provider: ProviderGemini}, config.YouComConfig{})
	require.NoError(t, err)
	_, err = c.Ask(ctx, "p")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(ctx, config.LLMConfig{Provider: "mystery"}, config.YouComConfig{})
	assert.Error(t, err)
}

func TestChatClient_Ask(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"role":"assistant","content":" How does osmosis differ from diffusion? "}}]}`,
			want:   "How does osmosis differ from diffusion?",
		},
		{
			name:    "no_choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: "no choices",
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error":"slow down"}`,
			wantErr: "non-200 status: 429",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				var req chatRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.False(t, req.Stream)
				assert.Equal(t, "deepseek-chat", req.Model)
				require.Len(t, req.Messages, 1)
				assert.Equal(t, "user", req.Messages[0].Role)
				require.NotNil(t, req.Temperature)
				assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
				assert.Nil(t, req.TopP)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newChatClient(config.LLMConfig{
				APIKey:     "sk-test",
				BaseURL:    srv.URL + "/",
				Model:      "deepseek-chat",
				Generation: config.LLMGenerationConfig{Temperature: 0.7},
			}, 0)
			got, err := c.Ask(context.Background(), "prompt")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
