package ioprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
)

func testConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Model:   "test/model",
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}
}

func chatBody(id, content string) string {
	b, _ := json.Marshal(map[string]any{
		"id": id,
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 50,
		},
	})
	return string(b)
}

func TestGenerateSuccess(t *testing.T) {
	var gotAuth, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/chat/completions":
				gotAuth = r.Header.Get("Authorization")
				gotTitle = r.Header.Get("X-Title")
				fmt.Fprint(w, chatBody("gen-1",
					`{"name": "Toyota", "country": "Japan", "founded": 1937}`))
			case "/generation":
				assert.Equal(t, "gen-1", r.URL.Query().Get("id"))
				fmt.Fprint(w, `{"data": {
					"total_cost": 0.0123,
					"native_tokens_prompt": 120,
					"native_tokens_completion": 60,
					"num_search_results": 2
				}}`)
			default:
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	gen := New(testConfig(srv.URL), OptStatsDelay(0))
	res, err := gen.Generate(context.Background(), provider.Request{
		Category: provider.CategoryMakes,
		Subject:  "Toyota",
		Prompt:   "make prompt",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "CarPulse Vehicle Database Generator", gotTitle)

	p, ok := res.Payload.(*provider.MakePayload)
	require.True(t, ok)
	assert.Equal(t, "Toyota", p.Name)
	assert.Equal(t, 1937, p.Founded)

	assert.Equal(t, 120, res.Usage.PromptTokens)
	assert.Equal(t, 60, res.Usage.CompletionTokens)
	assert.Equal(t, 2, res.Usage.SearchCount)
	assert.InDelta(t, 0.0123+2*0.004, res.Usage.CostUSD, 1e-9)
	assert.False(t, res.Usage.Estimated)
}

func TestGenerateEstimatedCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/chat/completions":
				fmt.Fprint(w, chatBody("gen-2",
					`[{"name": "Corolla", "body_type": "Sedan"}]`))
			case "/generation":
				// Stats never become available.
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	gen := New(testConfig(srv.URL), OptStatsDelay(0)).(*client)
	gen.statsRetries = 1
	res, err := gen.Generate(context.Background(), provider.Request{
		Category: provider.CategoryModels,
		Subject:  "Toyota",
		Prompt:   "models prompt",
	})
	require.NoError(t, err)

	assert.True(t, res.Usage.Estimated)
	assert.Equal(t, 100, res.Usage.PromptTokens)
	assert.Equal(t, 50, res.Usage.CompletionTokens)
	want := 100.0/1e6*3.0 + 50.0/1e6*15.0
	assert.InDelta(t, want, res.Usage.CostUSD, 1e-12)
}

func TestGenerateStatusClassification(t *testing.T) {
	tests := []struct {
		msg    string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			"401 is fatal", http.StatusUnauthorized,
			func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrFatal)
				assert.False(t, provider.Retryable(err))
			},
		},
		{
			"429 is rate limited", http.StatusTooManyRequests,
			func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrRateLimited)
				assert.True(t, provider.Retryable(err))
			},
		},
		{
			"503 is transient", http.StatusServiceUnavailable,
			func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrTransient)
				assert.True(t, provider.Retryable(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				}))
			defer srv.Close()

			gen := New(testConfig(srv.URL), OptStatsDelay(0))
			_, err := gen.Generate(context.Background(),
				provider.Request{Category: provider.CategoryMakes})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGenerateRetryAfterHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
	defer srv.Close()

	gen := New(testConfig(srv.URL), OptStatsDelay(0))
	_, err := gen.Generate(context.Background(),
		provider.Request{Category: provider.CategoryMakes})
	require.Error(t, err)

	var ce *provider.CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 7*time.Second, ce.RetryAfter)
}

func TestGenerateSchemaRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/chat/completions":
				calls++
				if calls == 1 {
					fmt.Fprint(w, chatBody("gen-a", "not json at all"))
					return
				}
				fmt.Fprint(w, chatBody("gen-b",
					`[{"code": "P0301", "description": "Cylinder 1 misfire"}]`))
			case "/generation":
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	gen := New(testConfig(srv.URL), OptStatsDelay(0)).(*client)
	gen.statsRetries = 1
	res, err := gen.Generate(context.Background(), provider.Request{
		Category: provider.CategoryDTC,
		Subject:  "Toyota",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	ps, ok := res.Payload.([]provider.DTCPayload)
	require.True(t, ok)
	require.Len(t, ps, 1)
	assert.Equal(t, "P0301", ps[0].Code)

	// Spend of the failed attempt is retained.
	assert.Equal(t, 200, res.Usage.PromptTokens)
}

func TestGenerateSchemaRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/chat/completions":
				fmt.Fprint(w, chatBody("gen-c", "still not json"))
			case "/generation":
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	gen := New(testConfig(srv.URL), OptStatsDelay(0)).(*client)
	gen.statsRetries = 1
	res, err := gen.Generate(context.Background(), provider.Request{
		Category: provider.CategoryMakes,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrSchema)
	assert.False(t, provider.Retryable(err))

	// Usage is still reported so failed calls can be accounted.
	require.NotNil(t, res)
	assert.Equal(t, 200, res.Usage.PromptTokens)
}

func TestGenerateContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(
		context.Background(), 20*time.Millisecond)
	defer cancel()

	gen := New(testConfig(srv.URL), OptStatsDelay(0))
	_, err := gen.Generate(ctx, provider.Request{
		Category: provider.CategoryMakes,
	})
	assert.Error(t, err)
}

func TestModel(t *testing.T) {
	gen := New(testConfig("http://localhost"))
	assert.Equal(t, "test/model", gen.Model())
}
