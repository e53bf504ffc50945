package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigpipe/gigpipe/internal/config"
)

func TestSplitBaseURLs(t *testing.T) {
	t.Parallel()

	got := splitBaseURLs("192.168.50.212:1234/v1, http://192.168.50.213:1234 ;192.168.50.212:1234/v1")
	require.Len(t, got, 2)
	assert.Equal(t, "http://192.168.50.212:1234/v1", got[0])
	assert.Equal(t, "http://192.168.50.213:1234/v1", got[1])
}

func TestChatFallsBackToSecondEndpointAndReportsUsage(t *testing.T) {
	t.Parallel()

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok-second-endpoint"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7},
		})
	}))
	defer okServer.Close()

	client := NewHTTPClient(config.LLMEnv{
		BaseURL:        "http://127.0.0.1:1/v1, " + okServer.URL + "/v1",
		Model:          "qwen/qwen3-coder-30b",
		TimeoutSeconds: 10,
	})

	resp, err := client.Chat(context.Background(), Prompt("", "ping", 100, 0))
	require.NoError(t, err)
	assert.Equal(t, "ok-second-endpoint", resp.Content)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 7, resp.Usage.CompletionTokens)
}

func TestChatAllEndpointsFail(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(config.LLMEnv{
		BaseURL:        "http://127.0.0.1:1/v1, http://127.0.0.1:2/v1",
		Model:          "qwen/qwen3-coder-30b",
		TimeoutSeconds: 2,
	})

	_, err := client.Chat(context.Background(), Prompt("", "ping", 100, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "across endpoints")
}

func TestChatRefusesDuringCooldown(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(config.LLMEnv{
		BaseURL:        "http://127.0.0.1:1/v1",
		MaxFailures:    1,
		CooldownSecs:   600,
		TimeoutSeconds: 2,
	})

	_, err := client.Chat(context.Background(), Prompt("", "ping", 100, 0))
	require.Error(t, err)

	_, err = client.Chat(context.Background(), Prompt("", "ping", 100, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling down")
}

func TestGuardDisablesAfterFailuresAndResetsOnSuccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	guard := NewGuard(config.LLMEnv{MaxFailures: 2, CooldownSecs: 600})
	guard.now = func() time.Time { return now }

	assert.True(t, guard.Allow())
	guard.RecordFailure()
	assert.True(t, guard.Allow())
	guard.RecordFailure()
	assert.False(t, guard.Allow())
	assert.False(t, guard.DisabledUntil().IsZero())

	guard.RecordSuccess()
	assert.True(t, guard.Allow())
}

func TestGuardClearsStreakAfterCooldownExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	guard := NewGuard(config.LLMEnv{MaxFailures: 2, CooldownSecs: 600})
	guard.now = func() time.Time { return now }

	guard.RecordFailure()
	guard.RecordFailure()
	assert.False(t, guard.Allow())

	now = now.Add(11 * time.Minute)
	assert.True(t, guard.Allow())

	// One new failure should not re-trip the guard immediately.
	guard.RecordFailure()
	assert.True(t, guard.Allow())
	guard.RecordFailure()
	assert.False(t, guard.Allow())
}

func TestPromptSkipsEmptySystemMessage(t *testing.T) {
	t.Parallel()

	req := Prompt("", "hello", 50, 0.3)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)

	req = Prompt("sys", "hello", 50, 0.3)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
}
