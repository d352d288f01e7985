// Package classify assigns a spending category to each line item.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

// Classifier runs the ordered rule table and falls back to an AI categorizer.
// It is safe for concurrent use as long as the categorizer is.
type Classifier struct {
	rules  []Rule
	ai     llm.Categorizer
	labels []string
	logger *slog.Logger
}

func NewClassifier(rules []Rule, ai llm.Categorizer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{
		rules:  rules,
		ai:     ai,
		labels: constants.AsStringSlice(),
		logger: logger,
	}
}

// Match is the rule-only path. It performs no I/O.
func (c *Classifier) Match(description string) (string, bool) {
	cat, ok := MatchRules(c.rules, strings.ToLower(description))
	return string(cat), ok
}

// CategorizeAI is the fallback path: exactly one categorizer call.
// Errors and empty or unknown answers resolve to Other.
func (c *Classifier) CategorizeAI(ctx context.Context, description string) string {
	desc := strings.ToLower(description)
	if c.ai == nil {
		return string(constants.Other)
	}

	start := time.Now()
	raw, err := c.ai.Categorize(ctx, desc, c.labels)
	if err != nil {
		c.logger.Warn("classify.ai.failed",
			"doc_id", common.DocIDFromContext(ctx),
			"description", desc,
			"error", errors.Join(common.ErrClassification, err),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return string(constants.Other)
	}
	if strings.TrimSpace(raw) == "" {
		c.logger.Warn("classify.ai.empty", "doc_id", common.DocIDFromContext(ctx), "description", desc)
		return string(constants.Other)
	}

	cat, ok := constants.Canonicalize(raw)
	if !ok {
		c.logger.Warn("classify.ai.unknown_label",
			"doc_id", common.DocIDFromContext(ctx),
			"description", desc,
			"label", raw,
		)
	}
	c.logger.Debug("classify.ai.ok",
		"description", desc,
		"category", cat,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return string(cat)
}

// Classify returns exactly one non-empty category for description.
func (c *Classifier) Classify(ctx context.Context, description string) string {
	if cat, ok := c.Match(description); ok {
		return cat
	}
	return c.CategorizeAI(ctx, description)
}
