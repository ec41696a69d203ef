package iogenerate

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aariz1001/carpulse-data/pkg/catalog"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/costs"
	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/limiter"
	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// fakeStore is an in-memory lifecycle.Store for pipeline tests.
type fakeStore struct {
	mu     sync.Mutex
	loaded bool
	nextID int

	makes  map[string]*schema.Make
	models map[int][]*schema.Model
	gens   map[int][]*schema.Generation
	vars   map[int][]*schema.Variant
	dtc    map[string]*schema.DTCCode
	usage  []*schema.UsageRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		makes:  map[string]*schema.Make{},
		models: map[int][]*schema.Model{},
		gens:   map[int][]*schema.Generation{},
		vars:   map[int][]*schema.Variant{},
		dtc:    map[string]*schema.DTCCode{},
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	return nil
}

func (s *fakeStore) MakeByName(name string) (*schema.Make, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.makes[name]
	return m, ok
}

func (s *fakeStore) UpsertMake(
	ctx context.Context, m *schema.Make,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.makes[m.Name]; ok {
		return lifecycle.Outcome{
			Action: lifecycle.ActionSkipped, ID: old.ID,
		}, nil
	}
	m.ID = s.id()
	s.makes[m.Name] = m
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: m.ID,
	}, nil
}

func (s *fakeStore) ModelsByMake(makeID int) []*schema.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Model{}, s.models[makeID]...)
}

func (s *fakeStore) UpsertModel(
	ctx context.Context, m *schema.Model,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.models[m.MakeID] {
		if old.Name == m.Name &&
			schema.NormalizeMarket(old.Market) ==
				schema.NormalizeMarket(m.Market) {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped, ID: old.ID,
			}, nil
		}
	}
	m.ID = s.id()
	s.models[m.MakeID] = append(s.models[m.MakeID], m)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: m.ID,
	}, nil
}

func (s *fakeStore) GenerationsByModel(
	modelID int,
) []*schema.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Generation{}, s.gens[modelID]...)
}

func (s *fakeStore) UpsertGeneration(
	ctx context.Context, g *schema.Generation,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.gens[g.ModelID] {
		if old.Name == g.Name {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped, ID: old.ID,
			}, nil
		}
	}
	g.ID = s.id()
	s.gens[g.ModelID] = append(s.gens[g.ModelID], g)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: g.ID,
	}, nil
}

func (s *fakeStore) VariantsByGeneration(
	generationID int,
) []*schema.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Variant{}, s.vars[generationID]...)
}

func (s *fakeStore) UpsertVariant(
	ctx context.Context, v *schema.Variant,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.vars[v.GenerationID] {
		if old.Name == v.Name &&
			schema.NormalizeMarket(old.Market) ==
				schema.NormalizeMarket(v.Market) {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped, ID: old.ID,
			}, nil
		}
	}
	v.ID = s.id()
	s.vars[v.GenerationID] = append(s.vars[v.GenerationID], v)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: v.ID,
	}, nil
}

func dtcKey(code string, makeID *int) string {
	if makeID == nil {
		return code + "|generic"
	}
	return code + "|" + strconv.Itoa(*makeID)
}

func (s *fakeStore) DTCByCode(
	code string, makeID *int,
) (*schema.DTCCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dtc[dtcKey(code, makeID)]
	return d, ok
}

func (s *fakeStore) DTCCountForMake(makeID *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, d := range s.dtc {
		switch {
		case makeID == nil && d.MakeID == nil:
			n++
		case makeID != nil && d.MakeID != nil && *d.MakeID == *makeID:
			n++
		}
	}
	return n
}

func (s *fakeStore) DTCPowertrainsForMake(makeID *int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var res []string
	for _, d := range s.dtc {
		match := (makeID == nil && d.MakeID == nil) ||
			(makeID != nil && d.MakeID != nil && *d.MakeID == *makeID)
		if match && d.Powertrain != "" && !seen[d.Powertrain] {
			seen[d.Powertrain] = true
			res = append(res, d.Powertrain)
		}
	}
	return res
}

func (s *fakeStore) UpsertDTC(
	ctx context.Context, d *schema.DTCCode,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dtcKey(d.Code, d.MakeID)
	if old, ok := s.dtc[key]; ok {
		return lifecycle.Outcome{
			Action: lifecycle.ActionSkipped, ID: old.ID,
		}, nil
	}
	d.ID = s.id()
	s.dtc[key] = d
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: d.ID,
	}, nil
}

func (s *fakeStore) IncompleteDTCs(
	ctx context.Context, makeID *int,
) ([]*schema.DTCCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*schema.DTCCode
	for _, d := range s.dtc {
		if !schema.CompleteDTC(d) {
			res = append(res, d)
		}
	}
	return res, nil
}

func (s *fakeStore) SaveUsage(
	ctx context.Context, recs []*schema.UsageRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, recs...)
	return nil
}

// fakeGen answers provider requests from canned payloads.
type fakeGen struct {
	mu      sync.Mutex
	calls   []provider.Category
	respond func(req provider.Request) (*provider.Response, error)
}

func (g *fakeGen) Generate(
	ctx context.Context, req provider.Request,
) (*provider.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req.Category)
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.respond(req)
}

func (g *fakeGen) Model() string { return "fake/model" }

func (g *fakeGen) callCount(cat provider.Category) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int
	for _, c := range g.calls {
		if c == cat {
			n++
		}
	}
	return n
}

func cannedResponses(req provider.Request) (*provider.Response, error) {
	usage := provider.Usage{
		PromptTokens: 100, CompletionTokens: 50, CostUSD: 0.01,
	}
	switch req.Category {
	case provider.CategoryMakes:
		return &provider.Response{
			Payload: &provider.MakePayload{
				Name: req.Subject, Country: "Japan", Founded: 1937,
			},
			Usage: usage,
		}, nil
	case provider.CategoryModels:
		return &provider.Response{
			Payload: []provider.ModelPayload{
				{Name: "Corolla", BodyType: "Sedan", Segment: "Compact"},
				{Name: "RAV4", BodyType: "SUV", Segment: "Mid"},
			},
			Usage: usage,
		}, nil
	case provider.CategoryGenerations:
		return &provider.Response{
			Payload: []provider.GenerationPayload{
				{Name: "XV70", StartYear: 2017, EndYear: 2023,
					Platform: "TNGA-K"},
			},
			Usage: usage,
		}, nil
	case provider.CategoryVariants:
		return &provider.Response{
			Payload: []provider.VariantPayload{
				{Name: "2.5L Hybrid", EngineType: "hybrid",
					EngineCode: "A25A-FXS", DisplacementCC: 2487,
					Horsepower: 218, Transmission: "e-CVT",
					DriveType: "FWD"},
			},
			Usage: usage,
		}, nil
	case provider.CategoryDTC:
		return &provider.Response{
			Payload: []provider.DTCPayload{
				{Code: "P0A80", Description: "Replace hybrid battery pack",
					DetailedDescription: "The battery control module " +
						"detected capacity degradation beyond the " +
						"serviceable threshold in the high voltage pack.",
					System: "Hybrid/EV", Severity: "High",
					CommonCauses:     []string{"aged battery module"},
					Symptoms:         []string{"reduced fuel economy"},
					ApplicableModels: "Prius, Camry Hybrid",
					ApplicableYears:  "2010+",
					PowertrainType:   "Hybrid"},
			},
			Usage: usage,
		}, nil
	}
	return nil, provider.SchemaViolation("unknown category")
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		MakesByCountry: map[string][]string{
			"Japan": {"Toyota", "Honda"},
		},
		Powertrains: map[string][]string{
			"Toyota": {"Gasoline", "Hybrid"},
		},
		DefaultPowertrains: []string{"Gasoline"},
	}
}

func testBuilder(
	cfg *config.Config, store lifecycle.Store, gen provider.Generator,
) lifecycle.Builder {
	lim := limiter.New(limiter.Policy{
		CallsPerSecond: 1000,
		BackoffBase:    time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		MaxAttempts:    2,
	})
	tracker := costs.NewTracker("fake/model")
	return New(cfg, testCatalog(), store, gen, lim, tracker)
}

func TestBuildFullHierarchy(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}

	store := newFakeStore()
	gen := &fakeGen{respond: cannedResponses}

	res, err := testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.MakesProcessed)
	assert.Zero(t, res.MakesFailed)
	assert.False(t, res.Interrupted)

	mk, ok := store.MakeByName("Toyota")
	require.True(t, ok)
	assert.Equal(t, "Japan", mk.Country)
	assert.Equal(t, 1937, mk.Founded)

	models := store.ModelsByMake(mk.ID)
	require.Len(t, models, 2)

	// One generations and one variants call per model.
	assert.Equal(t, 2, gen.callCount(provider.CategoryGenerations))
	assert.Equal(t, 2, gen.callCount(provider.CategoryVariants))

	gens := store.GenerationsByModel(models[0].ID)
	require.Len(t, gens, 1)
	assert.Equal(t, "XV70", gens[0].Name)
	assert.Equal(t, 2017, gens[0].YearStart)

	vars := store.VariantsByGeneration(gens[0].ID)
	require.Len(t, vars, 1)
	assert.Equal(t, "Hybrid", vars[0].FuelType)

	// No DTC pass without the flag.
	assert.Zero(t, gen.callCount(provider.CategoryDTC))

	// Spend was persisted.
	require.NotEmpty(t, store.usage)
	assert.Equal(t, store.usage[0].RunID, store.usage[1].RunID)
}

func TestBuildSkipsExistingBranches(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}

	store := newFakeStore()
	mk := &schema.Make{Name: "Toyota", Country: "Japan"}
	_, err := store.UpsertMake(context.Background(), mk)
	require.NoError(t, err)
	for _, name := range []string{"Corolla", "RAV4"} {
		_, err = store.UpsertModel(context.Background(), &schema.Model{
			MakeID: mk.ID, Name: name,
		})
		require.NoError(t, err)
	}

	gen := &fakeGen{respond: cannedResponses}
	res, err := testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.MakesProcessed)
	assert.Zero(t, gen.callCount(provider.CategoryMakes))
	assert.Zero(t, gen.callCount(provider.CategoryModels))
	// Deeper levels are still fetched.
	assert.Equal(t, 2, gen.callCount(provider.CategoryGenerations))
}

func TestBuildAddsModelsForNewMarket(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}
	cfg.Generate.Market = "EU"

	store := newFakeStore()
	mk := &schema.Make{Name: "Toyota", Country: "Japan"}
	_, err := store.UpsertMake(context.Background(), mk)
	require.NoError(t, err)
	for _, name := range []string{"Corolla", "RAV4"} {
		_, err = store.UpsertModel(context.Background(), &schema.Model{
			MakeID: mk.ID, Name: name, Market: "US",
		})
		require.NoError(t, err)
	}

	gen := &fakeGen{respond: cannedResponses}
	_, err = testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)

	// The stored US lineup does not satisfy an EU run, so the
	// models were fetched again and stored per market.
	assert.Equal(t, 1, gen.callCount(provider.CategoryModels))

	models := store.ModelsByMake(mk.ID)
	require.Len(t, models, 4)
	byMarket := map[string]int{}
	for _, m := range models {
		byMarket[m.Market]++
	}
	assert.Equal(t, 2, byMarket["US"])
	assert.Equal(t, 2, byMarket["EU"])
}

func TestBuildClampsInvertedYearRange(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}

	store := newFakeStore()
	gen := &fakeGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			if req.Category == provider.CategoryGenerations {
				return &provider.Response{
					Payload: []provider.GenerationPayload{
						{Name: "XV70", StartYear: 2020,
							EndYear: 2015, Platform: "TNGA-K"},
					},
					Usage: provider.Usage{CostUSD: 0.01},
				}, nil
			}
			return cannedResponses(req)
		},
	}

	_, err := testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)

	mk, ok := store.MakeByName("Toyota")
	require.True(t, ok)
	models := store.ModelsByMake(mk.ID)
	require.NotEmpty(t, models)

	gens := store.GenerationsByModel(models[0].ID)
	require.Len(t, gens, 1)
	assert.Equal(t, 2020, gens[0].YearStart)
	assert.Zero(t, gens[0].YearEnd,
		"an end year before the start year must not be stored")
}

func TestBuildDTCOnly(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}
	cfg.Generate.DTCOnly = true

	store := newFakeStore()
	gen := &fakeGen{respond: cannedResponses}

	res, err := testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.MakesProcessed)

	assert.Zero(t, gen.callCount(provider.CategoryModels))
	assert.Zero(t, gen.callCount(provider.CategoryGenerations))

	// General batches, system sweeps, and two powertrains.
	want := generalBatches + len(systemCategories) + 2
	assert.Equal(t, want, gen.callCount(provider.CategoryDTC))

	mk, _ := store.MakeByName("Toyota")
	id := mk.ID
	assert.Equal(t, 1, store.DTCCountForMake(&id))

	d, ok := store.DTCByCode("P0A80", &id)
	require.True(t, ok)
	assert.Equal(t, `["aged battery module"]`, d.CommonCauses)
	assert.Equal(t, "Prius, Camry Hybrid", d.ApplicableModels)
	assert.Equal(t, "2010+", d.ApplicableYears)
}

func TestBuildDTCSkipWhenPresent(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota"}
	cfg.Generate.DTCOnly = true

	store := newFakeStore()
	mk := &schema.Make{Name: "Toyota"}
	_, err := store.UpsertMake(context.Background(), mk)
	require.NoError(t, err)
	id := mk.ID
	_, err = store.UpsertDTC(context.Background(), &schema.DTCCode{
		Code: "P0301", MakeID: &id, Description: "Cylinder 1 misfire",
	})
	require.NoError(t, err)

	gen := &fakeGen{respond: cannedResponses}
	_, err = testBuilder(cfg, store, gen).Build(context.Background())
	require.NoError(t, err)

	assert.Zero(t, gen.callCount(provider.CategoryDTC))
}

func TestBuildFatalErrorAborts(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota", "Honda"}

	store := newFakeStore()
	gen := &fakeGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			return nil, provider.Fatal(401, "bad key")
		},
	}

	res, err := testBuilder(cfg, store, gen).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrFatal)

	// The run stops at the first make instead of burning through
	// the rest of the selection.
	require.NotNil(t, res)
	assert.Equal(t, 1, res.MakesFailed)
	assert.Equal(t, 1, gen.callCount(provider.CategoryMakes))
}

func TestBuildInterruptSavesUsage(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Toyota", "Honda"}

	ctx, cancel := context.WithCancel(context.Background())

	store := newFakeStore()
	var calls int
	gen := &fakeGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return cannedResponses(req)
		},
	}

	res, err := testBuilder(cfg, store, gen).Build(ctx)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)

	// Spend made before the interrupt is on disk.
	assert.NotEmpty(t, store.usage)
}

func TestBuildUnknownMake(t *testing.T) {
	cfg := config.New()
	cfg.Generate.Makes = []string{"Yoyodyne"}

	store := newFakeStore()
	gen := &fakeGen{respond: cannedResponses}

	_, err := testBuilder(cfg, store, gen).Build(context.Background())
	assert.Error(t, err)
}
