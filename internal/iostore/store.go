// Package iostore implements the incremental Store. It keeps key
// indices and ID counters in memory and writes every accepted record
// to PostgreSQL immediately, so an interrupted run loses nothing
// that was already generated.
package iostore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/Aariz1001/carpulse-data/pkg/db"
	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

type store struct {
	operator db.Operator

	// force overwrites existing field values instead of only
	// filling gaps.
	force bool

	// mu serializes writes and index updates. Readers of the
	// indices take it too, lookups are cheap.
	mu sync.Mutex

	makesByName  map[string]*schema.Make
	modelsByKey  map[string]*schema.Model
	modelsByMake map[int][]*schema.Model
	gensByKey    map[string]*schema.Generation
	gensByModel  map[int][]*schema.Generation
	varsByKey    map[string]*schema.Variant
	varsByGen    map[int][]*schema.Variant
	dtcByKey     map[string]*schema.DTCCode
	dtcByMake    map[int][]*schema.DTCCode
	dtcGeneric   []*schema.DTCCode

	nextMakeID  int
	nextModelID int
	nextGenID   int
	nextVarID   int
	nextDTCID   int

	loaded bool
}

// Option configures the store.
type Option func(*store)

// OptForce makes upserts replace existing field values instead of
// only completing missing ones.
func OptForce(b bool) Option {
	return func(s *store) { s.force = b }
}

// New creates a Store backed by the given database operator. Load
// must be called before any other method.
func New(op db.Operator, opts ...Option) lifecycle.Store {
	s := &store{
		operator:     op,
		makesByName:  make(map[string]*schema.Make),
		modelsByKey:  make(map[string]*schema.Model),
		modelsByMake: make(map[int][]*schema.Model),
		gensByKey:    make(map[string]*schema.Generation),
		gensByModel:  make(map[int][]*schema.Generation),
		varsByKey:    make(map[string]*schema.Variant),
		varsByGen:    make(map[int][]*schema.Variant),
		dtcByKey:     make(map[string]*schema.DTCCode),
		dtcByMake:    make(map[int][]*schema.DTCCode),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func makeKey(name string) string {
	return schema.NormalizeName(name)
}

func modelKey(makeID int, name, market string) string {
	return strconv.Itoa(makeID) + "|" + schema.NormalizeName(name) +
		"|" + schema.NormalizeMarket(market)
}

func genKey(modelID int, name string, yearStart int) string {
	return strconv.Itoa(modelID) + "|" +
		schema.NormalizeName(name) + "|" + strconv.Itoa(yearStart)
}

func variantKey(genID int, name, market string) string {
	return strconv.Itoa(genID) + "|" + schema.NormalizeName(name) +
		"|" + schema.NormalizeMarket(market)
}

func dtcKey(code string, makeID *int) string {
	id := 0
	if makeID != nil {
		id = *makeID
	}
	return schema.NormalizeCode(code) + "|" + strconv.Itoa(id)
}

// Load reads all rows into the in-memory indices and seeds the ID
// counters from the stored maxima.
func (s *store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	if err := s.loadMakes(ctx); err != nil {
		return err
	}
	if err := s.loadModels(ctx); err != nil {
		return err
	}
	if err := s.loadGenerations(ctx); err != nil {
		return err
	}
	if err := s.loadVariants(ctx); err != nil {
		return err
	}
	if err := s.loadDTCs(ctx); err != nil {
		return err
	}

	s.loaded = true
	return nil
}

func (s *store) loadMakes(ctx context.Context) error {
	rows, err := s.operator.Pool().Query(ctx,
		`SELECT id, uuid, name, country, founded FROM makes`)
	if err != nil {
		return LoadError("makes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m schema.Make
		if err := rows.Scan(
			&m.ID, &m.UUID, &m.Name, &m.Country, &m.Founded,
		); err != nil {
			return LoadError("makes", err)
		}
		s.makesByName[makeKey(m.Name)] = &m
		if m.ID >= s.nextMakeID {
			s.nextMakeID = m.ID + 1
		}
	}
	if s.nextMakeID == 0 {
		s.nextMakeID = 1
	}
	return rows.Err()
}

func (s *store) loadModels(ctx context.Context) error {
	rows, err := s.operator.Pool().Query(ctx,
		`SELECT id, uuid, make_id, name, market, body, segment
		FROM models`)
	if err != nil {
		return LoadError("models", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m schema.Model
		if err := rows.Scan(
			&m.ID, &m.UUID, &m.MakeID, &m.Name, &m.Market,
			&m.Body, &m.Segment,
		); err != nil {
			return LoadError("models", err)
		}
		s.indexModel(&m)
		if m.ID >= s.nextModelID {
			s.nextModelID = m.ID + 1
		}
	}
	if s.nextModelID == 0 {
		s.nextModelID = 1
	}
	return rows.Err()
}

func (s *store) loadGenerations(ctx context.Context) error {
	rows, err := s.operator.Pool().Query(ctx,
		`SELECT id, uuid, model_id, name, code, year_start,
			year_end, facelift
		FROM generations`)
	if err != nil {
		return LoadError("generations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g schema.Generation
		if err := rows.Scan(
			&g.ID, &g.UUID, &g.ModelID, &g.Name, &g.Code,
			&g.YearStart, &g.YearEnd, &g.Facelift,
		); err != nil {
			return LoadError("generations", err)
		}
		s.indexGeneration(&g)
		if g.ID >= s.nextGenID {
			s.nextGenID = g.ID + 1
		}
	}
	if s.nextGenID == 0 {
		s.nextGenID = 1
	}
	return rows.Err()
}

func (s *store) loadVariants(ctx context.Context) error {
	rows, err := s.operator.Pool().Query(ctx,
		`SELECT id, uuid, generation_id, name, market, engine_code,
			engine_type, displacement, power_hp, transmission,
			drivetrain, fuel_type, trim_level, year_start, year_end
		FROM variants`)
	if err != nil {
		return LoadError("variants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v schema.Variant
		if err := rows.Scan(
			&v.ID, &v.UUID, &v.GenerationID, &v.Name, &v.Market,
			&v.EngineCode, &v.EngineType, &v.Displacement, &v.PowerHP,
			&v.Transmission, &v.Drivetrain, &v.FuelType,
			&v.TrimLevel, &v.YearStart, &v.YearEnd,
		); err != nil {
			return LoadError("variants", err)
		}
		s.indexVariant(&v)
		if v.ID >= s.nextVarID {
			s.nextVarID = v.ID + 1
		}
	}
	if s.nextVarID == 0 {
		s.nextVarID = 1
	}
	return rows.Err()
}

func (s *store) loadDTCs(ctx context.Context) error {
	rows, err := s.operator.Pool().Query(ctx,
		`SELECT id, uuid, code, make_id, description,
			detailed_description, system, severity, common_causes,
			symptoms, powertrain, applicable_models,
			applicable_years, generic, source
		FROM dtc_codes`)
	if err != nil {
		return LoadError("dtc_codes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d schema.DTCCode
		if err := rows.Scan(
			&d.ID, &d.UUID, &d.Code, &d.MakeID, &d.Description,
			&d.DetailedDescription, &d.System, &d.Severity,
			&d.CommonCauses, &d.Symptoms, &d.Powertrain,
			&d.ApplicableModels, &d.ApplicableYears,
			&d.Generic, &d.Source,
		); err != nil {
			return LoadError("dtc_codes", err)
		}
		s.indexDTC(&d)
		if d.ID >= s.nextDTCID {
			s.nextDTCID = d.ID + 1
		}
	}
	if s.nextDTCID == 0 {
		s.nextDTCID = 1
	}
	return rows.Err()
}

func (s *store) indexModel(m *schema.Model) {
	s.modelsByKey[modelKey(m.MakeID, m.Name, m.Market)] = m
	s.modelsByMake[m.MakeID] = append(s.modelsByMake[m.MakeID], m)
}

func (s *store) indexGeneration(g *schema.Generation) {
	s.gensByKey[genKey(g.ModelID, g.Name, g.YearStart)] = g
	s.gensByModel[g.ModelID] = append(s.gensByModel[g.ModelID], g)
}

func (s *store) indexVariant(v *schema.Variant) {
	s.varsByKey[variantKey(v.GenerationID, v.Name, v.Market)] = v
	s.varsByGen[v.GenerationID] = append(s.varsByGen[v.GenerationID], v)
}

func (s *store) indexDTC(d *schema.DTCCode) {
	s.dtcByKey[dtcKey(d.Code, d.MakeID)] = d
	if d.MakeID != nil {
		s.dtcByMake[*d.MakeID] = append(s.dtcByMake[*d.MakeID], d)
	} else {
		s.dtcGeneric = append(s.dtcGeneric, d)
	}
}

// MakeByName finds a make by normalized name.
func (s *store) MakeByName(name string) (*schema.Make, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.makesByName[makeKey(name)]
	return m, ok
}

// ModelsByMake lists the known models of a make.
func (s *store) ModelsByMake(makeID int) []*schema.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*schema.Model, len(s.modelsByMake[makeID]))
	copy(res, s.modelsByMake[makeID])
	return res
}

// GenerationsByModel lists the known generations of a model.
func (s *store) GenerationsByModel(modelID int) []*schema.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*schema.Generation, len(s.gensByModel[modelID]))
	copy(res, s.gensByModel[modelID])
	return res
}

// VariantsByGeneration lists the known variants of a generation.
func (s *store) VariantsByGeneration(genID int) []*schema.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*schema.Variant, len(s.varsByGen[genID]))
	copy(res, s.varsByGen[genID])
	return res
}

// DTCByCode finds a trouble code, nil makeID addresses generic
// codes.
func (s *store) DTCByCode(code string, makeID *int) (*schema.DTCCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dtcByKey[dtcKey(code, makeID)]
	return d, ok
}

// DTCCountForMake returns how many codes are stored for a make, or
// how many generic codes exist when makeID is nil.
func (s *store) DTCCountForMake(makeID *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if makeID == nil {
		return len(s.dtcGeneric)
	}
	return len(s.dtcByMake[*makeID])
}

// DTCPowertrainsForMake returns the distinct powertrain values among
// a make's stored codes, or among generic codes when makeID is nil.
func (s *store) DTCPowertrainsForMake(makeID *int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.dtcGeneric
	if makeID != nil {
		pool = s.dtcByMake[*makeID]
	}

	seen := map[string]bool{}
	var res []string
	for _, d := range pool {
		if d.Powertrain == "" || seen[d.Powertrain] {
			continue
		}
		seen[d.Powertrain] = true
		res = append(res, d.Powertrain)
	}
	sort.Strings(res)
	return res
}

// IncompleteDTCs returns stored codes with missing fields, scoped to
// one make or to generic codes when makeID is nil.
func (s *store) IncompleteDTCs(
	ctx context.Context, makeID *int,
) ([]*schema.DTCCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, NotLoadedError()
	}

	var pool []*schema.DTCCode
	if makeID == nil {
		pool = s.dtcGeneric
	} else {
		pool = s.dtcByMake[*makeID]
	}

	var res []*schema.DTCCode
	for _, d := range pool {
		if !schema.CompleteDTC(d) {
			cp := *d
			res = append(res, &cp)
		}
	}
	return res, nil
}
