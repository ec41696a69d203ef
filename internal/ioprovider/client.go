// Package ioprovider implements the provider.Generator contract
// against the OpenRouter chat completions API. It repairs the JSON
// the model returns, validates it against the requested category's
// shape, and prices every call through OpenRouter's generation stats
// endpoint.
package ioprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
)

const (
	systemPrompt = "You are a vehicle database expert. " +
		"Return valid JSON only, no markdown or explanation."

	// temperature stays low for consistent factual responses.
	temperature = 0.3

	// webSearchCostPerSearch is OpenRouter's surcharge per web
	// search result set.
	webSearchCostPerSearch = 0.004

	// Fallback price per million tokens when the generation stats
	// endpoint is unavailable.
	estPromptPerMTok     = 3.0
	estCompletionPerMTok = 15.0
)

type client struct {
	model   string
	baseURL string
	apiKey  string
	http    *http.Client

	// statsDelay is the wait before the first generation stats
	// fetch, shortened in tests.
	statsDelay   time.Duration
	statsRetries int
}

// Option configures the client.
type Option func(*client)

// OptStatsDelay overrides the wait before fetching generation stats.
func OptStatsDelay(d time.Duration) Option {
	return func(c *client) { c.statsDelay = d }
}

// New creates an OpenRouter backed Generator.
func New(cfg config.ProviderConfig, opts ...Option) provider.Generator {
	c := &client{
		model:        cfg.Model,
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		http:         &http.Client{Timeout: cfg.Timeout},
		statsDelay:   time.Second,
		statsRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the backend model identifier in use.
func (c *client) Model() string { return c.model }

// Generate performs one chat completion call. A response that parses
// but fails the category's schema check earns a single corrective
// retry before the call is reported as a schema failure.
func (c *client) Generate(
	ctx context.Context, req provider.Request,
) (*provider.Response, error) {
	res, err := c.callOnce(ctx, req.Prompt, req)
	if err == nil || !isSchemaErr(err) {
		return res, err
	}

	slog.Warn("response failed schema check, retrying with hint",
		"category", req.Category, "subject", req.Subject)

	corrective := req.Prompt +
		"\n\nYour previous answer was not valid for this request: " +
		err.Error() +
		"\nReturn only the JSON in exactly the requested shape."
	res2, err2 := c.callOnce(ctx, corrective, req)
	if res2 != nil && res != nil {
		// Keep the spend of both attempts on the books.
		res2.Usage.Add(res.Usage)
	}
	return res2, err2
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *client) callOnce(
	ctx context.Context, prompt string, req provider.Request,
) (*provider.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, provider.Fatal(0, "cannot encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, provider.Fatal(0, "cannot build request: %v", err)
	}
	c.setHeaders(httpReq)

	httpRes, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, provider.Transient(0, "request failed: %v", err)
	}
	defer httpRes.Body.Close()

	resBody, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return nil, provider.Transient(
			httpRes.StatusCode, "cannot read response: %v", err)
	}

	if err := classifyStatus(httpRes, resBody); err != nil {
		return nil, err
	}

	var chat chatResponse
	if err := json.Unmarshal(resBody, &chat); err != nil {
		return nil, provider.Transient(
			httpRes.StatusCode, "malformed response body: %v", err)
	}
	if len(chat.Choices) == 0 {
		return nil, provider.SchemaViolation("response has no choices")
	}

	raw := chat.Choices[0].Message.Content
	usage := c.priceCall(ctx, chat)

	payload, err := decodePayload(req.Category, raw)
	if err != nil {
		return &provider.Response{Raw: raw, Usage: usage}, err
	}

	return &provider.Response{
		Payload: payload,
		Raw:     raw,
		Usage:   usage,
	}, nil
}

func (c *client) setHeaders(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("HTTP-Referer",
		"https://github.com/Aariz1001/carpulse-data")
	r.Header.Set("X-Title", "CarPulse Vehicle Database Generator")
}

// priceCall asks the generation stats endpoint for the real cost of
// the call, falling back to a token based estimate.
func (c *client) priceCall(
	ctx context.Context, chat chatResponse,
) provider.Usage {
	if chat.ID != "" {
		if u, ok := c.fetchGenerationStats(ctx, chat.ID); ok {
			return u
		}
	}

	// Estimate from the response's token counts.
	u := provider.Usage{
		PromptTokens:     chat.Usage.PromptTokens,
		CompletionTokens: chat.Usage.CompletionTokens,
		Estimated:        true,
	}
	u.CostUSD = float64(u.PromptTokens)/1e6*estPromptPerMTok +
		float64(u.CompletionTokens)/1e6*estCompletionPerMTok
	return u
}

type generationStats struct {
	Data struct {
		TotalCost              float64 `json:"total_cost"`
		NativeTokensPrompt     int     `json:"native_tokens_prompt"`
		NativeTokensCompletion int     `json:"native_tokens_completion"`
		NativeTokensCached     int     `json:"native_tokens_cached"`
		NativeTokensReasoning  int     `json:"native_tokens_reasoning"`
		NumSearchResults       int     `json:"num_search_results"`
	} `json:"data"`
}

// fetchGenerationStats polls the generation endpoint. Stats are not
// available immediately after a completion, so 404 responses are
// retried a few times with short waits.
func (c *client) fetchGenerationStats(
	ctx context.Context, generationID string,
) (provider.Usage, bool) {
	if err := sleepCtx(ctx, c.statsDelay); err != nil {
		return provider.Usage{}, false
	}

	for attempt := 0; attempt < c.statsRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Second); err != nil {
				return provider.Usage{}, false
			}
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet,
			c.baseURL+"/generation?id="+generationID, nil,
		)
		if err != nil {
			return provider.Usage{}, false
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		res, err := c.http.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			continue
		}
		if res.StatusCode == http.StatusNotFound {
			continue
		}
		if res.StatusCode != http.StatusOK {
			continue
		}

		var stats generationStats
		if err := json.Unmarshal(body, &stats); err != nil {
			continue
		}

		d := stats.Data
		return provider.Usage{
			PromptTokens:     d.NativeTokensPrompt,
			CompletionTokens: d.NativeTokensCompletion,
			CachedTokens:     d.NativeTokensCached,
			ReasoningTokens:  d.NativeTokensReasoning,
			SearchCount:      d.NumSearchResults,
			CostUSD: d.TotalCost +
				float64(d.NumSearchResults)*webSearchCostPerSearch,
		}, true
	}

	slog.Warn("generation stats unavailable, estimating cost",
		"generation_id", generationID)
	return provider.Usage{}, false
}

func classifyStatus(res *http.Response, body []byte) error {
	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode == http.StatusUnauthorized,
		res.StatusCode == http.StatusForbidden:
		return provider.Fatal(res.StatusCode,
			"authentication rejected: %s", trim(body))
	case res.StatusCode == http.StatusTooManyRequests:
		return provider.RateLimited(retryAfter(res))
	case res.StatusCode >= 500:
		return provider.Transient(res.StatusCode,
			"server error: %s", trim(body))
	default:
		return provider.Fatal(res.StatusCode,
			"unexpected status: %s", trim(body))
	}
}

func retryAfter(res *http.Response) time.Duration {
	if v := res.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func trim(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func isSchemaErr(err error) bool {
	return errors.Is(err, provider.ErrSchema)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
