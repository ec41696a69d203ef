package provider_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/stretchr/testify/assert"
)

func TestUsageAdd(t *testing.T) {
	var total provider.Usage
	total.Add(provider.Usage{
		PromptTokens:     100,
		CompletionTokens: 250,
		SearchCount:      2,
		CostUSD:          0.0125,
	})
	total.Add(provider.Usage{
		PromptTokens:     80,
		CompletionTokens: 120,
		CachedTokens:     40,
		CostUSD:          0.004,
		Estimated:        true,
	})

	assert.Equal(t, 180, total.PromptTokens)
	assert.Equal(t, 370, total.CompletionTokens)
	assert.Equal(t, 40, total.CachedTokens)
	assert.Equal(t, 2, total.SearchCount)
	assert.InDelta(t, 0.0165, total.CostUSD, 1e-9)
	// One estimated component taints the aggregate.
	assert.True(t, total.Estimated)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		msg       string
		err       error
		retryable bool
		kind      error
	}{
		{
			"server error",
			provider.Transient(503, "upstream unavailable"),
			true, provider.ErrTransient,
		},
		{
			"rate limit",
			provider.RateLimited(10 * time.Second),
			true, provider.ErrRateLimited,
		},
		{
			"schema mismatch",
			provider.SchemaViolation("models is not an array"),
			false, provider.ErrSchema,
		},
		{
			"bad key",
			provider.Fatal(401, "invalid API key"),
			false, provider.ErrFatal,
		},
	}

	for _, v := range tests {
		assert.Equal(t, v.retryable, provider.Retryable(v.err), v.msg)
		assert.True(t, errors.Is(v.err, v.kind), v.msg)
	}
}

func TestCallErrorMessage(t *testing.T) {
	err := provider.Transient(503, "upstream %s", "unavailable")
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Contains(t, err.Error(), "upstream unavailable")

	var ce *provider.CallError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, 503, ce.StatusCode)

	rl := provider.RateLimited(5 * time.Second)
	assert.True(t, errors.As(rl, &ce))
	assert.Equal(t, 5*time.Second, ce.RetryAfter)
}

func TestAllCategoriesOrder(t *testing.T) {
	cats := provider.AllCategories()
	assert.Equal(t, provider.CategoryMakes, cats[0])
	assert.Equal(t, provider.CategoryDTC, cats[len(cats)-1])
}
