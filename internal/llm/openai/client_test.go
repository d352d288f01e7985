package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

func chatReply(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, srv *httptest.Server, lenient bool) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-4o-mini", Lenient: lenient}, nil)
	require.NoError(t, err)
	return c
}

func TestCategorize_JSONMode(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chatReply(w, "```json\n{\"category\": \"Cleaning Supplies\"}\n```")
	}))
	defer srv.Close()

	label, err := newTestClient(t, srv, false).Categorize(context.Background(), "cloro 1L", constants.AsStringSlice())

	require.NoError(t, err)
	assert.Equal(t, "Cleaning Supplies", label)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	assert.Len(t, body["messages"], 3)
}

func TestCategorize_SchemaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(w, "Cleaning Supplies")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, false).Categorize(context.Background(), "cloro 1L", constants.AsStringSlice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")

	label, err := newTestClient(t, srv, true).Categorize(context.Background(), "cloro 1L", constants.AsStringSlice())
	require.NoError(t, err)
	assert.Equal(t, "Cleaning Supplies", label)
}

func TestCategorize_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, true).Categorize(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Contains(t, body.Messages[1].Content, "Provider Totals:")
		chatReply(w, "  Spending rose in March.\n")
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, false).Summarize(context.Background(), llm.SummaryRequest{MonthlyJSON: "{}", CategoryJSON: "{}", ProviderJSON: "{}"})

	require.NoError(t, err)
	assert.Equal(t, "Spending rose in March.", out)
}

func TestSummarize_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, false).Summarize(context.Background(), llm.SummaryRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai:")
	assert.Contains(t, err.Error(), "401")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_, _ = w.Write([]byte(`{"data":[]}`))
		case "/models/gpt-4o-mini":
			_, _ = w.Write([]byte(`{"id":"gpt-4o-mini"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := newTestClient(t, srv, false)
	assert.True(t, c.IsRunning(ctx))

	ok, err := c.ModelExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-0"}, nil)
	require.NoError(t, err)
	ok, err = missing.ModelExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	c, err := NewClient(Config{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", c.cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", c.cfg.Model)
	assert.Positive(t, c.cfg.Timeout)
}
