// Package iogenerate orchestrates the generation pipeline: for every
// selected manufacturer it asks the provider for the vehicle
// hierarchy level by level, writing each record to the store as soon
// as it arrives so an interrupted run loses nothing already fetched.
package iogenerate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aariz1001/carpulse-data/pkg/catalog"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/costs"
	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/limiter"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

type builder struct {
	cfg     *config.Config
	cat     *catalog.Catalog
	store   lifecycle.Store
	gen     provider.Generator
	lim     *limiter.Limiter
	tracker *costs.Tracker
}

// New wires a Builder from its parts. The tracker keeps the priced
// call log that Build persists before returning.
func New(
	cfg *config.Config,
	cat *catalog.Catalog,
	store lifecycle.Store,
	gen provider.Generator,
	lim *limiter.Limiter,
	tracker *costs.Tracker,
) lifecycle.Builder {
	return &builder{
		cfg:     cfg,
		cat:     cat,
		store:   store,
		gen:     gen,
		lim:     lim,
		tracker: tracker,
	}
}

func (b *builder) Build(
	ctx context.Context,
) (*lifecycle.BuildResult, error) {
	makes, err := b.cat.Resolve(catalog.Selection{
		Makes:   b.cfg.Generate.Makes,
		Country: b.cfg.Generate.Country,
		All:     b.cfg.Generate.All,
	})
	if err != nil {
		return nil, err
	}

	if err := b.store.Load(ctx); err != nil {
		return nil, err
	}

	res := &lifecycle.BuildResult{}
	defer b.flushUsage(ctx)

	bar := newProgressBar(len(makes), "Manufacturers: ")
	defer bar.Finish()

	for _, name := range makes {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		err := b.processMake(ctx, name, res)
		switch {
		case err == nil:
			res.MakesProcessed++
		case ctx.Err() != nil:
			res.Interrupted = true
			res.MakesFailed++
		case errors.Is(err, provider.ErrFatal):
			res.MakesFailed++
			return res, err
		default:
			slog.Error("manufacturer failed",
				"make", name, "error", err)
			res.MakesFailed++
		}

		bar.Increment()
		if res.Interrupted {
			break
		}
	}

	return res, nil
}

// flushUsage persists the priced call log. It runs on a detached
// context so an interrupt cannot lose the spend records.
func (b *builder) flushUsage(ctx context.Context) {
	recs := b.tracker.UsageRecords()
	if len(recs) == 0 {
		return
	}
	err := b.store.SaveUsage(context.WithoutCancel(ctx), recs)
	if err != nil {
		slog.Error("cannot persist usage records", "error", err)
	}
}

// processMake runs the full pipeline for one manufacturer.
func (b *builder) processMake(
	ctx context.Context, name string, res *lifecycle.BuildResult,
) error {
	gen := b.cfg.Generate

	mk, ok := b.store.MakeByName(name)
	if !ok || gen.Force {
		resp, err := b.call(ctx, provider.Request{
			Category: provider.CategoryMakes,
			Subject:  name,
			Prompt:   makePrompt(name),
		})
		if err != nil {
			return err
		}
		p := resp.Payload.(*provider.MakePayload)

		country := p.Country
		if country == "" {
			country = b.cat.CountryOfMake(name)
		}
		// The catalog name stays the natural key even when the
		// response spells the make differently.
		out, err := b.store.UpsertMake(ctx, &schema.Make{
			Name:    name,
			Country: country,
			Founded: p.Founded,
		})
		if err != nil {
			return err
		}
		applyOutcome(res, out)

		mk, ok = b.store.MakeByName(name)
		if !ok {
			return errors.New("make vanished after upsert: " + name)
		}
	} else {
		slog.Debug("make already stored", "make", name)
	}

	if !gen.DTCOnly {
		if err := b.processModels(ctx, mk, res); err != nil {
			return err
		}
	}

	if gen.FetchDTC || gen.DTCOnly {
		if err := b.fetchTroubleCodes(ctx, mk, res); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) processModels(
	ctx context.Context, mk *schema.Make, res *lifecycle.BuildResult,
) error {
	gen := b.cfg.Generate

	models := b.store.ModelsByMake(mk.ID)
	if !coversMarket(modelMarkets(models), gen.Market) || gen.Force {
		resp, err := b.call(ctx, provider.Request{
			Category: provider.CategoryModels,
			Subject:  mk.Name,
			Prompt:   modelsPrompt(mk.Name, gen.Market),
		})
		if err != nil {
			return err
		}
		for _, p := range resp.Payload.([]provider.ModelPayload) {
			out, err := b.store.UpsertModel(ctx, &schema.Model{
				MakeID:  mk.ID,
				Name:    p.Name,
				Market:  marketOf(p.Market, gen.Market),
				Body:    p.BodyType,
				Segment: p.Segment,
			})
			if err != nil {
				return err
			}
			applyOutcome(res, out)
		}
		models = b.store.ModelsByMake(mk.ID)
	}

	for _, mdl := range models {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.processGenerations(ctx, mk, mdl, res); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) processGenerations(
	ctx context.Context,
	mk *schema.Make, mdl *schema.Model,
	res *lifecycle.BuildResult,
) error {
	gen := b.cfg.Generate

	gens := b.store.GenerationsByModel(mdl.ID)
	if len(gens) == 0 || gen.Force {
		resp, err := b.call(ctx, provider.Request{
			Category: provider.CategoryGenerations,
			Subject:  mk.Name + " " + mdl.Name,
			Prompt:   generationsPrompt(mk.Name, mdl.Name),
		})
		if err != nil {
			if giveUp(ctx, err) {
				return err
			}
			slog.Warn("generations request failed, moving on",
				"make", mk.Name, "model", mdl.Name, "error", err)
			return nil
		}
		for _, p := range resp.Payload.([]provider.GenerationPayload) {
			yearEnd := p.EndYear
			if !schema.ValidYearRange(p.StartYear, p.EndYear) {
				// An end year before the start year is model
				// hallucination, the run stays open instead.
				yearEnd = 0
			}
			out, err := b.store.UpsertGeneration(ctx, &schema.Generation{
				ModelID:   mdl.ID,
				Name:      p.Name,
				Code:      p.Platform,
				YearStart: p.StartYear,
				YearEnd:   yearEnd,
				Facelift:  p.FaceliftYear > 0,
			})
			if err != nil {
				return err
			}
			applyOutcome(res, out)
		}
		gens = b.store.GenerationsByModel(mdl.ID)
	}

	for _, g := range gens {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.processVariants(ctx, mk, mdl, g, res); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) processVariants(
	ctx context.Context,
	mk *schema.Make, mdl *schema.Model, g *schema.Generation,
	res *lifecycle.BuildResult,
) error {
	gen := b.cfg.Generate

	stored := b.store.VariantsByGeneration(g.ID)
	if coversMarket(variantMarkets(stored), gen.Market) && !gen.Force {
		return nil
	}

	resp, err := b.call(ctx, provider.Request{
		Category: provider.CategoryVariants,
		Subject:  mk.Name + " " + mdl.Name + " " + g.Name,
		Prompt: variantsPrompt(
			mk.Name, mdl.Name, g.Name, gen.Market),
	})
	if err != nil {
		if giveUp(ctx, err) {
			return err
		}
		slog.Warn("variants request failed, moving on",
			"make", mk.Name, "model", mdl.Name,
			"generation", g.Name, "error", err)
		return nil
	}

	for _, p := range resp.Payload.([]provider.VariantPayload) {
		fuel, _ := schema.NormalizePowertrain(p.EngineType)
		out, err := b.store.UpsertVariant(ctx, &schema.Variant{
			GenerationID: g.ID,
			Name:         p.Name,
			Market:       marketOf(p.Market, gen.Market),
			EngineCode:   p.EngineCode,
			EngineType:   p.EngineType,
			Displacement: p.DisplacementCC,
			PowerHP:      p.Horsepower,
			Transmission: p.Transmission,
			Drivetrain:   p.DriveType,
			FuelType:     fuel,
		})
		if err != nil {
			return err
		}
		applyOutcome(res, out)
	}
	return nil
}

// call runs one provider request under the limiter's retry loop and
// records its spend whether it succeeded or not.
func (b *builder) call(
	ctx context.Context, req provider.Request,
) (*provider.Response, error) {
	var res *provider.Response

	err := b.lim.Retry(ctx, func(ctx context.Context) error {
		r, callErr := b.gen.Generate(ctx, req)
		if r != nil {
			res = r
		}
		if callErr != nil {
			var ce *provider.CallError
			if errors.As(callErr, &ce) &&
				errors.Is(ce.Kind, provider.ErrRateLimited) {
				b.lim.Throttled(ce.RetryAfter)
			}
		}
		return callErr
	}, provider.Retryable)

	var usage provider.Usage
	if res != nil {
		usage = res.Usage
	}
	b.tracker.Add(req.Category, req.Subject, usage, err != nil)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// giveUp says whether a branch failure should abort the whole make
// instead of moving on to the next branch.
func giveUp(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, provider.ErrFatal)
}

// marketOf prefers the market the response named, falling back to
// the market the run targets.
func marketOf(payload, runMarket string) string {
	if payload != "" {
		return payload
	}
	return runMarket
}

// coversMarket reports whether stored rows already cover the market
// the run targets, so the level can be skipped without a call.
func coversMarket(markets []string, market string) bool {
	want := schema.NormalizeMarket(market)
	for _, m := range markets {
		if schema.NormalizeMarket(m) == want {
			return true
		}
	}
	return false
}

func modelMarkets(models []*schema.Model) []string {
	res := make([]string, len(models))
	for i, m := range models {
		res[i] = m.Market
	}
	return res
}

func variantMarkets(vars []*schema.Variant) []string {
	res := make([]string, len(vars))
	for i, v := range vars {
		res[i] = v.Market
	}
	return res
}

func applyOutcome(res *lifecycle.BuildResult, out lifecycle.Outcome) {
	switch out.Action {
	case lifecycle.ActionInserted:
		res.Inserted++
	case lifecycle.ActionSkipped:
		res.Skipped++
	case lifecycle.ActionGapFilled:
		res.GapsFilled++
	}
}
