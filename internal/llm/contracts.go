package llm

import "context"

// Categorizer picks one label from labels for a product description.
type Categorizer interface {
	Categorize(ctx context.Context, description string, labels []string) (string, error)
}

// Narrator writes an executive summary from serialized totals.
type Narrator interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// HealthChecker is implemented by backends that can be checked before a run.
type HealthChecker interface {
	IsRunning(ctx context.Context) bool
	ModelExists(ctx context.Context) (bool, error)
}

// SummaryRequest carries the three totals maps already serialized as JSON.
type SummaryRequest struct {
	MonthlyJSON  string
	CategoryJSON string
	ProviderJSON string
}

// Client is what a single AI backend provides to the pipeline.
type Client interface {
	Categorizer
	Narrator
	HealthChecker
}
