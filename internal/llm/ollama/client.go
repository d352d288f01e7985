package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	Temperature *float32 `json:"temperature,omitempty"`
}

// generateChunk is one line of the /api/generate response stream.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Categorize implements llm.Categorizer.
func (c *Client) Categorize(ctx context.Context, description string, labels []string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Debug("llm.categorize.start", "req_id", rid, "description", description)

	out, err := c.generate(ctx, llm.BuildCategorizePrompt(description, labels))
	if err != nil {
		c.log.Error("llm.categorize.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	label := llm.CategoryFromContent(out)
	c.log.Debug("llm.categorize.ok", "req_id", rid, "label", label, "elapsed_ms", time.Since(start).Milliseconds())
	return label, nil
}

// Summarize implements llm.Narrator.
func (c *Client) Summarize(ctx context.Context, req llm.SummaryRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.summary.start", "req_id", rid)

	out, err := c.generate(ctx, llm.BuildSummaryPrompt(req))
	if err != nil {
		c.log.Error("llm.summary.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.log.Info("llm.summary.ok", "req_id", rid, "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// generate streams /api/generate and concatenates every chunk.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: true,
	}
	if c.cfg.Temperature != nil {
		t := *c.cfg.Temperature
		body.Options = &options{Temperature: &t}
	}

	var sb strings.Builder
	err := llm.StreamJSONLines(ctx, c.httpClient, c.cfg.BaseURL+"/api/generate", body, nil, c.log, func(line []byte) error {
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode ollama chunk: %w", err)
		}
		if chunk.Error != "" {
			return errors.New("ollama: " + chunk.Error)
		}
		sb.WriteString(chunk.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

// IsRunning reports whether the server answers /api/tags.
func (c *Client) IsRunning(ctx context.Context) bool {
	_, _, err := llm.Do(ctx, c.httpClient, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil, nil, c.log)
	if err != nil {
		c.log.Warn("llm.ping.failed", "base_url", c.cfg.BaseURL, "error", err)
		return false
	}
	return true
}

// ModelExists reports whether the configured model is pulled locally.
// "llama3.2" matches a local "llama3.2:latest".
func (c *Client) ModelExists(ctx context.Context) (bool, error) {
	raw, _, err := llm.Do(ctx, c.httpClient, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil, nil, c.log)
	if err != nil {
		return false, fmt.Errorf("list models: %w", err)
	}
	var tags tagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		return false, fmt.Errorf("decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, c.cfg.Model) || sameModel(m.Model, c.cfg.Model) {
			return true, nil
		}
	}
	return false, nil
}

func sameModel(have, want string) bool {
	if have == want {
		return true
	}
	if !strings.Contains(want, ":") {
		return have == want+":latest"
	}
	return false
}
