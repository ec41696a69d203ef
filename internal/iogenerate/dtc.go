package iogenerate

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// generalBatches is how many rotating-focus batches the general
// phase runs per manufacturer.
const generalBatches = 3

// fetchTroubleCodes runs the three phase trouble code pass for one
// manufacturer: general batches, per-system sweeps, then one batch
// per powertrain the manufacturer actually ships.
func (b *builder) fetchTroubleCodes(
	ctx context.Context, mk *schema.Make, res *lifecycle.BuildResult,
) error {
	gen := b.cfg.Generate
	makeID := mk.ID

	if n := b.store.DTCCountForMake(&makeID); n > 0 &&
		!gen.Force && !gen.Expand {
		slog.Info("trouble codes already stored, skipping",
			"make", mk.Name, "count", n)
		return nil
	}

	slog.Info("fetching trouble codes", "make", mk.Name)

	for batch := 1; batch <= generalBatches; batch++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := b.troubleCodeCall(
			ctx, mk, dtcBatchPrompt(mk.Name, batch), res)
		if err != nil {
			return err
		}
	}

	for _, cat := range systemCategories {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := b.troubleCodeCall(
			ctx, mk, dtcSystemPrompt(mk.Name, cat), res)
		if err != nil {
			return err
		}
	}

	for _, pt := range b.cat.PowertrainsForMake(mk.Name) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := b.troubleCodeCall(
			ctx, mk, dtcPowertrainPrompt(mk.Name, pt), res)
		if err != nil {
			return err
		}
	}

	return nil
}

// troubleCodeCall runs one trouble code request and stores whatever
// valid codes come back. A failed request is logged and skipped so
// one bad batch does not lose the rest of the pass.
func (b *builder) troubleCodeCall(
	ctx context.Context,
	mk *schema.Make, prompt string,
	res *lifecycle.BuildResult,
) error {
	resp, err := b.call(ctx, provider.Request{
		Category: provider.CategoryDTC,
		Subject:  mk.Name,
		Prompt:   prompt,
	})
	if err != nil {
		if giveUp(ctx, err) {
			return err
		}
		slog.Warn("trouble code request failed, moving on",
			"make", mk.Name, "error", err)
		return nil
	}

	for _, p := range resp.Payload.([]provider.DTCPayload) {
		d := dtcFromPayload(p, mk.ID)
		out, err := b.store.UpsertDTC(ctx, d)
		if err != nil {
			slog.Warn("trouble code rejected",
				"make", mk.Name, "code", p.Code, "error", err)
			continue
		}
		applyOutcome(res, out)
	}
	return nil
}

func dtcFromPayload(p provider.DTCPayload, makeID int) *schema.DTCCode {
	return &schema.DTCCode{
		Code:                p.Code,
		MakeID:              &makeID,
		Description:         p.Description,
		DetailedDescription: p.DetailedDescription,
		System:              p.System,
		Severity:            p.Severity,
		CommonCauses:        jsonList(p.CommonCauses),
		Symptoms:            jsonList(p.Symptoms),
		Powertrain:          p.PowertrainType,
		ApplicableModels:    p.ApplicableModels,
		ApplicableYears:     p.ApplicableYears,
	}
}

// jsonList serializes a string list for text storage, with "[]" for
// an absent list.
func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
