package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

var _ llm.Client = (*Client)(nil)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Categorize implements llm.Categorizer using chat/completions in JSON mode.
func (c *Client) Categorize(ctx context.Context, description string, labels []string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Debug("llm.categorize.start",
		"req_id", rid,
		"temp", c.cfg.Temperature,
		"description", description,
		"labels", len(labels),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.CategorySystemPrompt(labels)},
			{"role": "user", "content": llm.BuildCategorizePrompt(description, labels)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(c.schemaMap)},
		},
	}

	content, err := c.complete(ctx, rid, body)
	if err != nil {
		return "", err
	}
	content = llm.StripCodeFence(content)

	if err := llm.ValidateJSON(c.schema, []byte(content)); err != nil {
		if !c.cfg.Lenient {
			c.log.Error("llm.categorize.schema_validation_failed",
				"req_id", rid, "error", err, "content", content,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return "", fmt.Errorf("schema validation failed: %w", err)
		}
		c.log.Warn("llm.categorize.lenient_applied",
			"req_id", rid, "error", err, "content", content,
		)
	}

	label := llm.CategoryFromContent(content)
	c.log.Debug("llm.categorize.ok",
		"req_id", rid,
		"label", label,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return label, nil
}

// Summarize implements llm.Narrator.
func (c *Client) Summarize(ctx context.Context, req llm.SummaryRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.summary.start", "req_id", rid)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": "You are a household finance analyst writing for a busy reader."},
			{"role": "user", "content": llm.BuildSummaryPrompt(req)},
		},
	}
	content, err := c.complete(ctx, rid, body)
	if err != nil {
		return "", err
	}
	c.log.Info("llm.summary.ok",
		"req_id", rid,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// IsRunning reports whether the API answers an authenticated /models call.
func (c *Client) IsRunning(ctx context.Context) bool {
	_, _, err := llm.Do(ctx, c.httpClient, http.MethodGet, c.cfg.BaseURL+"/models", nil, c.headers(), c.log)
	if err != nil {
		c.log.Warn("llm.ping.failed", "error", err)
		return false
	}
	return true
}

// ModelExists checks /models/{model}.
func (c *Client) ModelExists(ctx context.Context) (bool, error) {
	_, status, err := llm.Do(ctx, c.httpClient, http.MethodGet, c.cfg.BaseURL+"/models/"+c.cfg.Model, nil, c.headers(), c.log)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (string, error) {
	start := time.Now()
	raw, _, err := llm.SendJSON(ctx, c.httpClient, c.cfg.BaseURL+"/chat/completions", body, c.headers(), c.log)
	if err != nil {
		c.log.Error("llm.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.no_choices", "req_id", rid, "raw", string(raw))
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
