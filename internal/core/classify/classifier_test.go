package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/mocks"
)

func TestMatchRules_FirstHitWins(t *testing.T) {
	tests := []struct {
		desc string
		want constants.Category
	}{
		{"leche entera 1l", constants.Dairy},
		{"detergente ariel 1kg", constants.CleaningSupplies},
		{"pasta tomate hunts", constants.DryFood},
		{"salsa tomate", constants.CannedGoods},
		{"pan pullman", constants.Bakery},
		{"jabón protex", constants.Hygiene},
		{"pechuga de pollo", constants.Proteins},
		{"galleta oreo", constants.Snacks},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, ok := MatchRules(DefaultRules, tt.desc)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchRules_NoHit(t *testing.T) {
	got, ok := MatchRules(DefaultRules, "gatorade azul")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestClassify_RuleHitMakesNoAICall(t *testing.T) {
	ai := new(mocks.MockCategorizer)
	c := NewClassifier(nil, ai, nil)

	got := c.Classify(context.Background(), "LECHE ENTERA 1L")

	assert.Equal(t, "Dairy", got)
	ai.AssertNotCalled(t, "Categorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestClassify_FallsBackToAI(t *testing.T) {
	ai := new(mocks.MockCategorizer)
	ai.On("Categorize", mock.Anything, "gatorade azul", constants.AsStringSlice()).Return("Drinks\n", nil).Once()
	c := NewClassifier(nil, ai, nil)

	got := c.Classify(context.Background(), "GATORADE AZUL")

	assert.Equal(t, "Drinks", got)
	ai.AssertExpectations(t)
}

func TestCategorizeAI_DegradesToOther(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"empty reply", "", nil},
		{"whitespace reply", "  \n", nil},
		{"unknown label", "Electronics", nil},
		{"transport error", "", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := new(mocks.MockCategorizer)
			ai.On("Categorize", mock.Anything, "gatorade azul", mock.Anything).Return(tt.reply, tt.err).Once()
			c := NewClassifier(nil, ai, nil)

			assert.Equal(t, "Other", c.Classify(context.Background(), "GATORADE AZUL"))
			ai.AssertNumberOfCalls(t, "Categorize", 1)
		})
	}
}

func TestCategorizeAI_NilCategorizer(t *testing.T) {
	c := NewClassifier(nil, nil, nil)
	assert.Equal(t, "Other", c.Classify(context.Background(), "gatorade azul"))
}

func TestClassify_DeterministicUnderConcurrency(t *testing.T) {
	ai := new(mocks.MockCategorizer)
	ai.On("Categorize", mock.Anything, mock.Anything, mock.Anything).Return("Frozen", nil)
	c := NewClassifier(nil, ai, nil)

	descs := []string{"leche entera", "gatorade azul", "arroz 5lb", "helado vainilla"}
	want := make([]string, len(descs))
	for i, d := range descs {
		want[i] = c.Classify(context.Background(), d)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 100*len(descs))
	for n := 0; n < 100; n++ {
		for i, d := range descs {
			wg.Add(1)
			go func(i int, d string) {
				defer wg.Done()
				if got := c.Classify(context.Background(), d); got != want[i] {
					errs <- fmt.Errorf("%s: got %s want %s", d, got, want[i])
				}
			}(i, d)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, []string{"Dairy", "Frozen", "Dry Food", "Frozen"}, want)
}
