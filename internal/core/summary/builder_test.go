package summary_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/summary"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
	"github.com/joseph-ayodele/invoice-analyzer/mocks"
)

func sampleSummary() entity.ExpenseSummary {
	return entity.ExpenseSummary{
		MonthlyTotals:  map[string]decimal.Decimal{"2024-02": decimal.RequireFromString("5.75"), "2024-01": decimal.RequireFromString("10")},
		CategoryTotals: map[string]decimal.Decimal{"Dairy": decimal.RequireFromString("5.75")},
		ProviderTotals: map[string]decimal.Decimal{"Unknown": decimal.RequireFromString("1.5"), "Super 99": decimal.RequireFromString("14.25")},
	}
}

func TestBuild_Success(t *testing.T) {
	n := new(mocks.MockNarrator)
	n.On("Summarize", mock.Anything, mock.AnythingOfType("llm.SummaryRequest")).Return("Spending rose in February.", nil).Once()
	b := summary.NewBuilder(n, nil)

	out := b.Build(context.Background(), sampleSummary())

	assert.Equal(t, "Spending rose in February.", out.Narrative)
	assert.NoError(t, out.NarrativeErr)
	assert.False(t, out.GeneratedAt.IsZero())
	n.AssertNumberOfCalls(t, "Summarize", 1)
}

func TestBuild_FailureBecomesErrorString(t *testing.T) {
	n := new(mocks.MockNarrator)
	n.On("Summarize", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()
	b := summary.NewBuilder(n, nil)

	out := b.Build(context.Background(), sampleSummary())

	assert.Equal(t, "ERROR: AI request failed: timeout", out.Narrative)
	assert.ErrorIs(t, out.NarrativeErr, common.ErrNarrative)
	assert.True(t, out.Summary.CategoryTotals["Dairy"].Equal(decimal.RequireFromString("5.75")))
	n.AssertNumberOfCalls(t, "Summarize", 1)
}

func TestBuild_NoNarrator(t *testing.T) {
	out := summary.NewBuilder(nil, nil).Build(context.Background(), sampleSummary())

	assert.Contains(t, out.Narrative, summary.ErrorNarrativePrefix)
	assert.Error(t, out.NarrativeErr)
}

func TestSerialize_SortedTwoDecimals(t *testing.T) {
	req, err := summary.Serialize(sampleSummary())
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"2024-01\": 10.00,\n  \"2024-02\": 5.75\n}", req.MonthlyJSON)
	assert.Equal(t, "{\n  \"Super 99\": 14.25,\n  \"Unknown\": 1.50\n}", req.ProviderJSON)

	var cats map[string]float64
	require.NoError(t, json.Unmarshal([]byte(req.CategoryJSON), &cats))
	assert.Equal(t, map[string]float64{"Dairy": 5.75}, cats)
}

func TestSerialize_EmptyMaps(t *testing.T) {
	req, err := summary.Serialize(entity.ExpenseSummary{})
	require.NoError(t, err)
	assert.Equal(t, llm.SummaryRequest{MonthlyJSON: "{}", CategoryJSON: "{}", ProviderJSON: "{}"}, req)
}
