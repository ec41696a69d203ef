package costs

import "github.com/Aariz1001/carpulse-data/pkg/schema"

// UsageRecords converts the tracked calls into database rows ready
// for persisting. Every row carries the run's ID and model so spend
// can be grouped per run after the fact.
func (t *Tracker) UsageRecords() []*schema.UsageRecord {
	recs := t.Records()
	res := make([]*schema.UsageRecord, len(recs))
	for i, r := range recs {
		res[i] = &schema.UsageRecord{
			RunID:            t.runID,
			Category:         string(r.Category),
			Subject:          r.Subject,
			Model:            t.model,
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			CachedTokens:     r.Usage.CachedTokens,
			SearchCount:      r.Usage.SearchCount,
			CostUSD:          r.Usage.CostUSD,
			Estimated:        r.Usage.Estimated,
			Failed:           r.Failed,
			CreatedAt:        r.Timestamp,
		}
	}
	return res
}
