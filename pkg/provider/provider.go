// Package provider defines the contract between the pipeline and an
// AI text generation backend. Implementations live in the io layer,
// this package holds only the types both sides agree on.
package provider

import "context"

// Category names the kind of data a request asks the backend for.
// It keys prompt templates, response schemas and cost aggregation.
type Category string

const (
	CategoryMakes       Category = "makes"
	CategoryModels      Category = "models"
	CategoryGenerations Category = "generations"
	CategoryVariants    Category = "variants"
	CategoryDTC         Category = "dtc"

	// CategoryGapFill marks enrichment calls that complete partial
	// trouble codes. Responses share the CategoryDTC shape; the
	// separate name keeps its spend visible in cost summaries.
	CategoryGapFill Category = "gapfill"
)

// AllCategories lists categories in pipeline order.
func AllCategories() []Category {
	return []Category{
		CategoryMakes,
		CategoryModels,
		CategoryGenerations,
		CategoryVariants,
		CategoryDTC,
	}
}

// Request is a single generation call.
type Request struct {
	// Category selects the prompt template and response schema.
	Category Category

	// Subject is the entity the request is about, such as
	// "Toyota" or "Toyota Camry XV70". Used for logging and cost
	// attribution.
	Subject string

	// Prompt is the rendered user prompt.
	Prompt string

	// MaxTokens caps the completion length, zero means backend
	// default.
	MaxTokens int
}

// Usage carries the token counts and money spent on one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	ReasoningTokens  int

	// SearchCount is how many web searches the backend performed
	// while answering.
	SearchCount int

	// CostUSD is the total price of the call including search
	// surcharges.
	CostUSD float64

	// Estimated is true when the backend did not report a price
	// and the cost was derived from token counts instead.
	Estimated bool
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.CachedTokens += other.CachedTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.SearchCount += other.SearchCount
	u.CostUSD += other.CostUSD
	u.Estimated = u.Estimated || other.Estimated
}

// Response is the parsed result of one generation call.
type Response struct {
	// Payload is the response body decoded into the category's
	// expected shape. Callers type-assert or re-marshal it.
	Payload any

	// Raw is the text the model produced, kept for diagnostics.
	Raw string

	// Usage is the billing record of the call.
	Usage Usage
}

// Generator produces structured vehicle data from prompts.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate performs one call and returns the parsed response.
	// Usage is populated even when the call fails, so spend on
	// failed calls is still accounted for.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Model returns the backend model identifier in use.
	Model() string
}
