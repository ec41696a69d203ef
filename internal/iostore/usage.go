package iostore

import (
	"context"

	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// SaveUsage persists priced call records. Called at the end of a run
// and on interrupt, so a crash loses at most the current batch.
func (s *store) SaveUsage(
	ctx context.Context, recs []*schema.UsageRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	for _, r := range recs {
		_, err := pool.Exec(ctx,
			`INSERT INTO usage_records (run_id, category, subject,
				model, prompt_tokens, completion_tokens,
				cached_tokens, search_count, cost_usd, estimated,
				failed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				now())`,
			r.RunID, r.Category, r.Subject, r.Model,
			r.PromptTokens, r.CompletionTokens, r.CachedTokens,
			r.SearchCount, r.CostUSD, r.Estimated, r.Failed)
		if err != nil {
			return InsertError("usage_records", err)
		}
	}
	return nil
}
