package iogaps

import (
	"context"
	"sort"
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

// gapStore is a minimal in-memory Store for gap fill tests. Its
// UpsertDTC mirrors the real merge rule: only missing fields accept
// incoming values.
type gapStore struct {
	mu     sync.Mutex
	makes  map[string]*schema.Make
	dtc    map[string]*schema.DTCCode
	usage  []*schema.UsageRecord
	nextID int
}

func newGapStore() *gapStore {
	return &gapStore{
		makes: map[string]*schema.Make{},
		dtc:   map[string]*schema.DTCCode{},
	}
}

func (s *gapStore) key(code string, makeID *int) string {
	if makeID == nil {
		return code + "|generic"
	}
	return code + "|" + strconv.Itoa(*makeID)
}

func (s *gapStore) addMake(name string) *schema.Make {
	s.nextID++
	m := &schema.Make{ID: s.nextID, Name: name}
	s.makes[name] = m
	return m
}

func (s *gapStore) addDTC(d *schema.DTCCode) {
	s.nextID++
	d.ID = s.nextID
	s.dtc[s.key(d.Code, d.MakeID)] = d
}

func (s *gapStore) Load(ctx context.Context) error { return nil }

func (s *gapStore) MakeByName(name string) (*schema.Make, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.makes[name]
	return m, ok
}

func (s *gapStore) DTCCountForMake(makeID *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, d := range s.dtc {
		if sameScope(d.MakeID, makeID) {
			n++
		}
	}
	return n
}

func (s *gapStore) DTCPowertrainsForMake(makeID *int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var res []string
	for _, d := range s.dtc {
		if sameScope(d.MakeID, makeID) &&
			d.Powertrain != "" && !seen[d.Powertrain] {
			seen[d.Powertrain] = true
			res = append(res, d.Powertrain)
		}
	}
	sort.Strings(res)
	return res
}

func sameScope(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *gapStore) IncompleteDTCs(
	ctx context.Context, makeID *int,
) ([]*schema.DTCCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*schema.DTCCode
	for _, d := range s.dtc {
		if sameScope(d.MakeID, makeID) && !schema.CompleteDTC(d) {
			cp := *d
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *gapStore) UpsertDTC(
	ctx context.Context, d *schema.DTCCode,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(d.Code, d.MakeID)
	old, ok := s.dtc[key]
	if !ok {
		s.nextID++
		d.ID = s.nextID
		s.dtc[key] = d
		return lifecycle.Outcome{
			Action: lifecycle.ActionInserted, ID: d.ID,
		}, nil
	}

	var filled []string
	for _, field := range schema.MissingDTCFields(old) {
		switch field {
		case schema.FieldDescription:
			if d.Description != "" {
				old.Description = d.Description
				filled = append(filled, field)
			}
		case schema.FieldDetailedDescription:
			if d.DetailedDescription != "" {
				old.DetailedDescription = d.DetailedDescription
				filled = append(filled, field)
			}
		case schema.FieldSystem:
			if d.System != "" {
				old.System = d.System
				filled = append(filled, field)
			}
		case schema.FieldSeverity:
			if d.Severity != "" {
				old.Severity = d.Severity
				filled = append(filled, field)
			}
		case schema.FieldCommonCauses:
			if d.CommonCauses != "" && d.CommonCauses != "[]" {
				old.CommonCauses = d.CommonCauses
				filled = append(filled, field)
			}
		case schema.FieldSymptoms:
			if d.Symptoms != "" && d.Symptoms != "[]" {
				old.Symptoms = d.Symptoms
				filled = append(filled, field)
			}
		}
	}
	if len(filled) == 0 {
		return lifecycle.Outcome{
			Action: lifecycle.ActionSkipped, ID: old.ID,
		}, nil
	}
	return lifecycle.Outcome{
		Action:       lifecycle.ActionGapFilled,
		ID:           old.ID,
		FilledFields: filled,
	}, nil
}

func (s *gapStore) SaveUsage(
	ctx context.Context, recs []*schema.UsageRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, recs...)
	return nil
}

// Unused in gap fill runs.
func (s *gapStore) UpsertMake(
	ctx context.Context, m *schema.Make,
) (lifecycle.Outcome, error) {
	return lifecycle.Outcome{}, nil
}

func (s *gapStore) ModelsByMake(makeID int) []*schema.Model { return nil }

func (s *gapStore) UpsertModel(
	ctx context.Context, m *schema.Model,
) (lifecycle.Outcome, error) {
	return lifecycle.Outcome{}, nil
}

func (s *gapStore) GenerationsByModel(
	modelID int,
) []*schema.Generation {
	return nil
}

func (s *gapStore) UpsertGeneration(
	ctx context.Context, g *schema.Generation,
) (lifecycle.Outcome, error) {
	return lifecycle.Outcome{}, nil
}

func (s *gapStore) VariantsByGeneration(
	generationID int,
) []*schema.Variant {
	return nil
}

func (s *gapStore) UpsertVariant(
	ctx context.Context, v *schema.Variant,
) (lifecycle.Outcome, error) {
	return lifecycle.Outcome{}, nil
}

func (s *gapStore) DTCByCode(
	code string, makeID *int,
) (*schema.DTCCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dtc[s.key(code, makeID)]
	return d, ok
}

type gapGen struct {
	mu      sync.Mutex
	calls   int
	respond func(req provider.Request) (*provider.Response, error)
}

func (g *gapGen) Generate(
	ctx context.Context, req provider.Request,
) (*provider.Response, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.respond(req)
}

func (g *gapGen) Model() string { return "fake/model" }

func testFiller(
	store lifecycle.Store, gen provider.Generator,
) lifecycle.GapFiller {
	cfg := config.New()
	cfg.JobsNumber = 2
	cat := &catalog.Catalog{
		MakesByCountry: map[string][]string{
			"Japan": {"Toyota"},
		},
		DefaultPowertrains: []string{"Gasoline"},
	}
	lim := limiter.New(limiter.Policy{
		CallsPerSecond: 1000,
		BackoffBase:    time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		MaxAttempts:    2,
	})
	return New(cfg, cat, store, gen, lim, costs.NewTracker("fake/model"))
}

func longDesc() string {
	return "The engine control module detected repeated misfires " +
		"on cylinder one during two consecutive drive cycles."
}

func TestFillCompletesRecords(t *testing.T) {
	store := newGapStore()
	mk := store.addMake("Toyota")
	id := mk.ID

	store.addDTC(&schema.DTCCode{
		Code: "P0301", MakeID: &id,
		Description:         "Cylinder 1 misfire",
		DetailedDescription: longDesc(),
		System:              "Engine", Severity: "High",
		CommonCauses: `["worn spark plug"]`,
		Symptoms:     `["rough idle"]`,
		Powertrain:   "All",
	})
	store.addDTC(&schema.DTCCode{
		Code: "P1135", MakeID: &id,
		Description: "Air-fuel ratio sensor heater circuit",
		Powertrain:  "All",
	})

	gen := &gapGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			assert.Equal(t, provider.CategoryGapFill, req.Category)
			assert.Contains(t, req.Prompt, "P1135")
			assert.NotContains(t, req.Prompt, "P0301")
			return &provider.Response{
				Payload: []provider.DTCPayload{{
					Code:        "P1135",
					Description: "Air-fuel ratio sensor heater circuit",
					DetailedDescription: "The sensor heater circuit " +
						"resistance went out of range, so the sensor " +
						"cannot reach operating temperature in time.",
					System: "Engine", Severity: "Medium",
					CommonCauses: []string{"open heater circuit"},
					Symptoms:     []string{"check engine light"},
				}},
				Usage: provider.Usage{CostUSD: 0.01},
			}, nil
		},
	}

	report, err := testFiller(store, gen).Fill(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Incomplete)
	assert.Equal(t, 1, report.Enriched)
	assert.Zero(t, report.Failed)
	assert.Positive(t,
		report.MissingByField[schema.FieldDetailedDescription])

	d, ok := store.DTCByCode("P1135", &id)
	require.True(t, ok)
	assert.True(t, schema.CompleteDTC(d))
	// The stored description was never overwritten.
	assert.Equal(t,
		"Air-fuel ratio sensor heater circuit", d.Description)

	assert.NotEmpty(t, store.usage)
	assert.Equal(t, "gapfill", store.usage[0].Category)
}

func TestFillNothingToDo(t *testing.T) {
	store := newGapStore()
	mk := store.addMake("Toyota")
	id := mk.ID
	store.addDTC(&schema.DTCCode{
		Code: "P0301", MakeID: &id,
		Description:         "Cylinder 1 misfire",
		DetailedDescription: longDesc(),
		System:              "Engine", Severity: "High",
		CommonCauses: `["worn spark plug"]`,
		Symptoms:     `["rough idle"]`,
		Powertrain:   "All",
	})

	gen := &gapGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			t.Fatal("no call expected")
			return nil, nil
		},
	}

	report, err := testFiller(store, gen).Fill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Incomplete)
	assert.Zero(t, gen.calls)
}

func TestFillIgnoresUnrequestedCodes(t *testing.T) {
	store := newGapStore()
	mk := store.addMake("Toyota")
	id := mk.ID
	store.addDTC(&schema.DTCCode{
		Code: "P1135", MakeID: &id, Powertrain: "All",
	})

	gen := &gapGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			return &provider.Response{
				Payload: []provider.DTCPayload{{
					Code:        "P9999",
					Description: "not asked for",
				}},
			}, nil
		},
	}

	report, err := testFiller(store, gen).Fill(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Enriched)

	_, ok := store.DTCByCode("P9999", &id)
	assert.False(t, ok)
}

func TestFillCountsFailedBatches(t *testing.T) {
	store := newGapStore()
	mk := store.addMake("Toyota")
	id := mk.ID
	store.addDTC(&schema.DTCCode{
		Code: "P1135", MakeID: &id, Powertrain: "All",
	})

	gen := &gapGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			return nil, provider.SchemaViolation("never valid")
		},
	}

	report, err := testFiller(store, gen).Fill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Enriched)

	// The failed call's spend is still recorded.
	assert.NotEmpty(t, store.usage)
	assert.True(t, store.usage[0].Failed)
}

func TestFillReportsCoverageGaps(t *testing.T) {
	store := newGapStore()
	mk := store.addMake("Toyota")
	id := mk.ID
	store.addDTC(&schema.DTCCode{
		Code: "P0A80", MakeID: &id,
		Description:         "Replace hybrid battery pack",
		DetailedDescription: longDesc(),
		System:              "Hybrid/EV", Severity: "Critical",
		CommonCauses: `["aged battery module"]`,
		Symptoms:     `["reduced power"]`,
		Powertrain:   "Hybrid",
	})

	gen := &gapGen{
		respond: func(req provider.Request) (*provider.Response, error) {
			t.Fatal("no call expected")
			return nil, nil
		},
	}

	report, err := testFiller(store, gen).Fill(context.Background())
	require.NoError(t, err)

	// The catalog profile lists Gasoline, the stored codes cover
	// only Hybrid.
	assert.Equal(t, []string{"Gasoline"}, report.CoverageGaps["Toyota"])
}
