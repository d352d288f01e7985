package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCategorizePrompt(t *testing.T) {
	p := BuildCategorizePrompt("gatorade azul", []string{"Drinks", "Other"})

	assert.Contains(t, p, "[Drinks, Other]")
	assert.Contains(t, p, `Product: "gatorade azul"`)
	assert.True(t, strings.HasSuffix(p, "ONLY return the category name.\n"))
}

func TestBuildSummaryPrompt(t *testing.T) {
	p := BuildSummaryPrompt(SummaryRequest{MonthlyJSON: `{"2024-01": 1.00}`, CategoryJSON: "{}", ProviderJSON: `{"XTRA": 1.00}`})

	assert.Contains(t, p, "Monthly Totals:\n{\"2024-01\": 1.00}")
	assert.Contains(t, p, "Provider Totals:\n{\"XTRA\": 1.00}")
	assert.Contains(t, p, "Generate an executive summary.")
}

func TestCategoryFromContent(t *testing.T) {
	tests := map[string]string{
		`{"category": "Dairy"}`:                 "Dairy",
		"```json\n{\"category\": \"Frozen\"}\n```": "Frozen",
		"Drinks":                                "Drinks",
		"\"Snacks\".\nBecause chips are snacks": "Snacks",
		"**Bakery**":                            "Bakery",
		"":                                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CategoryFromContent(in), "input %q", in)
	}
}

func TestCategorySchema(t *testing.T) {
	schema, err := CompileSchema(BuildCategoryJSONSchema([]string{"Dairy", "Other"}))
	require.NoError(t, err)

	assert.NoError(t, ValidateJSON(schema, []byte(`{"category":"Dairy"}`)))
	assert.Error(t, ValidateJSON(schema, []byte(`{"category":"Electronics"}`)))
	assert.Error(t, ValidateJSON(schema, []byte(`{"label":"Dairy"}`)))
	assert.Error(t, ValidateJSON(schema, []byte(`not json`)))
	assert.NoError(t, ValidateJSONAgainstSchema(BuildCategoryJSONSchema(nil), []byte(`{"category":"x"}`)))
}

func TestDo_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{"a": 1}, map[string]string{"Authorization": "Bearer k"}, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, err.Error(), "slow down")
	assert.Contains(t, string(raw), "slow down")
}

func TestStreamJSONLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("{\"n\":1}\n\n{\"n\":2}\n{\"n\":3}\n"))
	}))
	defer srv.Close()

	var lines []string
	err := StreamJSONLines(context.Background(), srv.Client(), srv.URL, map[string]any{}, nil, nil, func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, lines)
}
