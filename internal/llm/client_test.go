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

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
)

func chatHandler(t *testing.T, replies ...string) http.HandlerFunc {
	calls := 0
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		reply := replies[calls]
		if calls < len(replies)-1 {
			calls++
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func testConfig(primary, fallback string) *common.LLMConfig {
	return &common.LLMConfig{
		Primary:        common.LLMProviderConfig{Name: "primary", BaseURL: primary, Model: "model-a"},
		Fallback:       common.LLMProviderConfig{Name: "fallback", BaseURL: fallback, Model: "model-b"},
		RequestTimeout: 5 * time.Second,
		MaxJSONRetries: 1,
	}
}

func TestCompleteUsesPrimary(t *testing.T) {
	primary := httptest.NewServer(chatHandler(t, `{"score": 80}`))
	defer primary.Close()

	client := NewClient(testConfig(primary.URL, ""), common.GetLogger())
	resp, err := client.Complete(context.Background(), &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Provider)
	assert.Equal(t, "primary", client.LastProviderUsed())
	assert.JSONEq(t, `{"score": 80}`, resp.Content)
}

func TestCompleteFallsBackWhenPrimaryUnreachable(t *testing.T) {
	fallback := httptest.NewServer(chatHandler(t, `{"ok": true}`))
	defer fallback.Close()

	// Primary points at a closed port
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	client := NewClient(testConfig(dead.URL, fallback.URL), common.GetLogger())
	resp, err := client.Complete(context.Background(), &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Provider)
	assert.Equal(t, "model-b", resp.Model)
}

func TestCompleteAllProvidersFailed(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	client := NewClient(testConfig(dead.URL, dead.URL), common.GetLogger())
	_, err := client.Complete(context.Background(), &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
	})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestCompleteRetriesInvalidJSON(t *testing.T) {
	// First reply is prose, retry returns valid JSON
	server := httptest.NewServer(chatHandler(t, "sure, here you go!", `{"fixed": true}`))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""), common.GetLogger())
	resp, err := client.Complete(context.Background(), &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "json please"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fixed": true}`, resp.Content)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"html tag", "```html\n<p>hi</p>\n```", "<p>hi</p>"},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.input))
		})
	}
}
