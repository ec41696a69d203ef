// Package iogaps completes partially stored trouble codes. It scans
// the database for records with missing fields and asks the provider
// to fill them, batching codes per manufacturer and merging the
// answers without touching fields that are already set.
package iogaps

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aariz1001/carpulse-data/pkg/catalog"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/costs"
	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/limiter"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// batchSize caps how many codes one enrichment prompt asks about.
const batchSize = 10

type filler struct {
	cfg     *config.Config
	cat     *catalog.Catalog
	store   lifecycle.Store
	gen     provider.Generator
	lim     *limiter.Limiter
	tracker *costs.Tracker
}

// New wires a GapFiller from its parts.
func New(
	cfg *config.Config,
	cat *catalog.Catalog,
	store lifecycle.Store,
	gen provider.Generator,
	lim *limiter.Limiter,
	tracker *costs.Tracker,
) lifecycle.GapFiller {
	return &filler{
		cfg:     cfg,
		cat:     cat,
		store:   store,
		gen:     gen,
		lim:     lim,
		tracker: tracker,
	}
}

// scope is one unit of work: a manufacturer's incomplete codes, or
// the generic pool when makeID is nil.
type scope struct {
	name       string
	makeID     *int
	incomplete []*schema.DTCCode
}

func (f *filler) Fill(ctx context.Context) (*lifecycle.GapReport, error) {
	if err := f.store.Load(ctx); err != nil {
		return nil, err
	}

	scopes, report, err := f.scan(ctx)
	if err != nil {
		return nil, err
	}
	if report.Incomplete == 0 {
		slog.Info("no incomplete trouble codes found")
		return report, nil
	}

	slog.Info("filling trouble code gaps",
		"incomplete", report.Incomplete, "scopes", len(scopes))

	defer f.flushUsage(ctx)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, f.cfg.JobsNumber))

	for _, sc := range scopes {
		g.Go(func() error {
			enriched, failed, err := f.fillScope(gctx, sc)
			mu.Lock()
			report.Enriched += enriched
			report.Failed += failed
			mu.Unlock()
			return err
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
	case ctx.Err() != nil:
		report.Interrupted = true
	default:
		return report, err
	}

	return report, nil
}

// scan collects incomplete codes per manufacturer plus the generic
// pool and tallies which fields are missing.
func (f *filler) scan(
	ctx context.Context,
) ([]scope, *lifecycle.GapReport, error) {
	report := &lifecycle.GapReport{
		MissingByField: map[string]int{},
		CoverageGaps:   map[string][]string{},
	}

	makes, err := f.cat.Resolve(catalog.Selection{
		Makes:   f.cfg.Generate.Makes,
		Country: f.cfg.Generate.Country,
		All:     true,
	})
	if err != nil {
		return nil, nil, err
	}

	var scopes []scope

	add := func(name string, makeID *int) error {
		report.Scanned += f.store.DTCCountForMake(makeID)
		incomplete, err := f.store.IncompleteDTCs(ctx, makeID)
		if err != nil {
			return err
		}
		if len(incomplete) == 0 {
			return nil
		}
		report.Incomplete += len(incomplete)
		for _, d := range incomplete {
			for _, field := range schema.MissingDTCFields(d) {
				report.MissingByField[field]++
			}
		}
		scopes = append(scopes, scope{
			name: name, makeID: makeID, incomplete: incomplete,
		})
		return nil
	}

	for _, name := range makes {
		mk, ok := f.store.MakeByName(name)
		if !ok {
			continue
		}
		id := mk.ID
		if err := add(name, &id); err != nil {
			return nil, nil, err
		}
		if missing := f.coverageGaps(name, &id); len(missing) > 0 {
			report.CoverageGaps[name] = missing
		}
	}
	if err := add("generic", nil); err != nil {
		return nil, nil, err
	}

	return scopes, report, nil
}

// coverageGaps compares a make's catalog powertrain profile against
// the powertrains its stored codes actually cover. Codes marked All
// are general and do not stand in for powertrain-specific ones.
func (f *filler) coverageGaps(name string, makeID *int) []string {
	if f.store.DTCCountForMake(makeID) == 0 {
		return nil
	}

	covered := map[string]bool{}
	for _, pt := range f.store.DTCPowertrainsForMake(makeID) {
		covered[pt] = true
	}

	var missing []string
	for _, pt := range f.cat.PowertrainsForMake(name) {
		if !covered[pt] {
			missing = append(missing, pt)
		}
	}
	return missing
}

// fillScope enriches one scope's codes batch by batch.
func (f *filler) fillScope(
	ctx context.Context, sc scope,
) (enriched, failed int, err error) {
	for start := 0; start < len(sc.incomplete); start += batchSize {
		if ctx.Err() != nil {
			return enriched, failed, ctx.Err()
		}

		end := min(start+batchSize, len(sc.incomplete))
		batch := sc.incomplete[start:end]

		resp, callErr := f.call(ctx, provider.Request{
			Category: provider.CategoryGapFill,
			Subject:  sc.name,
			Prompt:   gapPrompt(sc.name, batch),
		})
		if callErr != nil {
			if ctx.Err() != nil ||
				errors.Is(callErr, provider.ErrFatal) {
				return enriched, failed, callErr
			}
			slog.Warn("enrichment request failed, moving on",
				"scope", sc.name, "error", callErr)
			failed += len(batch)
			continue
		}

		wanted := make(map[string]bool, len(batch))
		for _, d := range batch {
			wanted[d.Code] = true
		}

		for _, p := range resp.Payload.([]provider.DTCPayload) {
			// Answers about codes we never asked for are noise.
			if !wanted[p.Code] {
				continue
			}
			out, upErr := f.store.UpsertDTC(
				ctx, enrichmentRecord(p, sc.makeID))
			if upErr != nil {
				slog.Warn("enrichment rejected",
					"scope", sc.name, "code", p.Code,
					"error", upErr)
				failed++
				continue
			}
			if out.Action == lifecycle.ActionGapFilled {
				enriched++
			}
		}
	}
	return enriched, failed, nil
}

func (f *filler) call(
	ctx context.Context, req provider.Request,
) (*provider.Response, error) {
	var res *provider.Response

	err := f.lim.Retry(ctx, func(ctx context.Context) error {
		r, callErr := f.gen.Generate(ctx, req)
		if r != nil {
			res = r
		}
		if callErr != nil {
			var ce *provider.CallError
			if errors.As(callErr, &ce) &&
				errors.Is(ce.Kind, provider.ErrRateLimited) {
				f.lim.Throttled(ce.RetryAfter)
			}
		}
		return callErr
	}, provider.Retryable)

	var usage provider.Usage
	if res != nil {
		usage = res.Usage
	}
	f.tracker.Add(req.Category, req.Subject, usage, err != nil)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *filler) flushUsage(ctx context.Context) {
	recs := f.tracker.UsageRecords()
	if len(recs) == 0 {
		return
	}
	err := f.store.SaveUsage(context.WithoutCancel(ctx), recs)
	if err != nil {
		slog.Error("cannot persist usage records", "error", err)
	}
}

func enrichmentRecord(
	p provider.DTCPayload, makeID *int,
) *schema.DTCCode {
	return &schema.DTCCode{
		Code:                p.Code,
		MakeID:              makeID,
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
