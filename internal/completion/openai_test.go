package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

func newTestClient(t *testing.T, profile Profile, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "gpt-4o-mini",
		Profile:   profile,
	})
	require.NoError(t, err)
	return c
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("quality")
	require.NoError(t, err)
	assert.Equal(t, Quality, p)

	p, err = ProfileByName("fast")
	require.NoError(t, err)
	assert.Equal(t, Fast, p)

	p, err = ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, Quality, p, "empty profile name falls back to quality")

	_, err = ProfileByName("creative")
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, Quality, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model       string           `json:"model"`
			Messages    []domain.Message `json:"messages"`
			Temperature float64          `json:"temperature"`
			MaxTokens   int              `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, Quality.Temperature, req.Temperature)
		assert.Equal(t, Quality.MaxOutputTokens, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "The penalty is defined in [Source 1]."}},
			},
		})
	})

	text, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "context here"},
		{Role: domain.RoleUser, Content: "what is the penalty for theft?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The penalty is defined in [Source 1].", text)
}

func TestComplete_AuthError(t *testing.T) {
	c := newTestClient(t, Quality, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi there"}})
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestComplete_ServerError(t *testing.T) {
	c := newTestClient(t, Fast, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi there"}})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, Fast, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi there"}})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestTrimToBudget_KeepsSystemAndMostRecent(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: strings.Repeat("s", 50)},
		{Role: domain.RoleUser, Content: strings.Repeat("1", 100)},
		{Role: domain.RoleAssistant, Content: strings.Repeat("2", 100)},
		{Role: domain.RoleUser, Content: strings.Repeat("3", 100)},
	}
	// Budget fits the system message plus the last two, not the first user turn.
	got := trimToBudget(messages, 260)
	require.Len(t, got, 3)
	assert.Equal(t, domain.RoleSystem, got[0].Role)
	assert.Equal(t, strings.Repeat("2", 100), got[1].Content)
	assert.Equal(t, strings.Repeat("3", 100), got[2].Content)
}

func TestTrimToBudget_UnderBudgetKeepsEverything(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "short"},
	}
	got := trimToBudget(messages, 10000)
	assert.Equal(t, messages, got)
}

func TestTrimToBudget_AlwaysKeepsLatestMessage(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: strings.Repeat("s", 200)},
		{Role: domain.RoleUser, Content: strings.Repeat("u", 300)},
	}
	got := trimToBudget(messages, 100)
	require.Len(t, got, 2, "the most recent message survives even over budget")
	assert.Equal(t, domain.RoleUser, got[1].Role)
}
