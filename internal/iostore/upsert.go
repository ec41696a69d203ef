package iostore

import (
	"context"

	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// UpsertMake inserts a make or completes missing fields on the
// stored one.
func (s *store) UpsertMake(
	ctx context.Context, m *schema.Make,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return lifecycle.Outcome{}, NotLoadedError()
	}

	m.Name = schema.NormalizeName(m.Name)
	existing, ok := s.makesByName[makeKey(m.Name)]
	if ok {
		var filled []string
		if fillText(&existing.Country, m.Country, s.force) {
			filled = append(filled, "country")
		}
		if fillInt(&existing.Founded, m.Founded, s.force) {
			filled = append(filled, "founded")
		}
		if len(filled) == 0 {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped,
				ID:     existing.ID,
			}, nil
		}
		_, err := s.operator.Pool().Exec(ctx,
			`UPDATE makes SET country = $1, founded = $2,
				updated_at = now()
			WHERE id = $3`,
			existing.Country, existing.Founded, existing.ID)
		if err != nil {
			return lifecycle.Outcome{}, UpdateError("makes", err)
		}
		return lifecycle.Outcome{
			Action:       lifecycle.ActionGapFilled,
			ID:           existing.ID,
			FilledFields: filled,
		}, nil
	}

	m.ID = s.nextMakeID
	m.UUID = m.KeyUUID()
	_, err := s.operator.Pool().Exec(ctx,
		`INSERT INTO makes (id, uuid, name, country, founded,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())`,
		m.ID, m.UUID, m.Name, m.Country, m.Founded)
	if err != nil {
		return lifecycle.Outcome{}, InsertError("makes", err)
	}

	s.nextMakeID++
	cp := *m
	s.makesByName[makeKey(m.Name)] = &cp
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: m.ID,
	}, nil
}

// UpsertModel inserts a model or completes missing fields on the
// stored one. Market is part of the identity, so the same model name
// in another market becomes its own row.
func (s *store) UpsertModel(
	ctx context.Context, m *schema.Model,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return lifecycle.Outcome{}, NotLoadedError()
	}

	m.Name = schema.NormalizeName(m.Name)
	m.Market = schema.NormalizeMarket(m.Market)
	existing, ok := s.modelsByKey[modelKey(m.MakeID, m.Name, m.Market)]
	if ok {
		var filled []string
		if fillText(&existing.Body, m.Body, s.force) {
			filled = append(filled, "body")
		}
		if fillText(&existing.Segment, m.Segment, s.force) {
			filled = append(filled, "segment")
		}
		if len(filled) == 0 {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped,
				ID:     existing.ID,
			}, nil
		}
		_, err := s.operator.Pool().Exec(ctx,
			`UPDATE models SET body = $1, segment = $2,
				updated_at = now()
			WHERE id = $3`,
			existing.Body, existing.Segment, existing.ID)
		if err != nil {
			return lifecycle.Outcome{}, UpdateError("models", err)
		}
		return lifecycle.Outcome{
			Action:       lifecycle.ActionGapFilled,
			ID:           existing.ID,
			FilledFields: filled,
		}, nil
	}

	makeName := ""
	if mk := s.makeByID(m.MakeID); mk != nil {
		makeName = mk.Name
	}

	m.ID = s.nextModelID
	m.UUID = schema.ModelUUID(makeName, m.Name, m.Market)
	_, err := s.operator.Pool().Exec(ctx,
		`INSERT INTO models (id, uuid, make_id, name, market, body,
			segment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		m.ID, m.UUID, m.MakeID, m.Name, m.Market, m.Body, m.Segment)
	if err != nil {
		return lifecycle.Outcome{}, InsertError("models", err)
	}

	s.nextModelID++
	cp := *m
	s.indexModel(&cp)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: m.ID,
	}, nil
}

// UpsertGeneration inserts a generation or completes missing fields
// on the stored one. An end year before the start year is dropped,
// the run stays open instead of carrying an impossible range.
func (s *store) UpsertGeneration(
	ctx context.Context, g *schema.Generation,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return lifecycle.Outcome{}, NotLoadedError()
	}

	g.Name = schema.NormalizeName(g.Name)
	g.Code = schema.NormalizeCode(g.Code)
	if !schema.ValidYearRange(g.YearStart, g.YearEnd) {
		g.YearEnd = 0
	}
	existing, ok := s.gensByKey[genKey(g.ModelID, g.Name, g.YearStart)]
	if ok {
		var filled []string
		if fillText(&existing.Code, g.Code, s.force) {
			filled = append(filled, "code")
		}
		if schema.ValidYearRange(existing.YearStart, g.YearEnd) &&
			fillInt(&existing.YearEnd, g.YearEnd, s.force) {
			filled = append(filled, "year_end")
		}
		if len(filled) == 0 {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped,
				ID:     existing.ID,
			}, nil
		}
		_, err := s.operator.Pool().Exec(ctx,
			`UPDATE generations SET code = $1, year_end = $2,
				updated_at = now()
			WHERE id = $3`,
			existing.Code, existing.YearEnd, existing.ID)
		if err != nil {
			return lifecycle.Outcome{}, UpdateError("generations", err)
		}
		return lifecycle.Outcome{
			Action:       lifecycle.ActionGapFilled,
			ID:           existing.ID,
			FilledFields: filled,
		}, nil
	}

	makeName, modelName := s.modelLineage(g.ModelID)

	g.ID = s.nextGenID
	g.UUID = schema.GenerationUUID(
		makeName, modelName, g.Name, g.YearStart)
	_, err := s.operator.Pool().Exec(ctx,
		`INSERT INTO generations (id, uuid, model_id, name, code,
			year_start, year_end, facelift, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		g.ID, g.UUID, g.ModelID, g.Name, g.Code,
		g.YearStart, g.YearEnd, g.Facelift)
	if err != nil {
		return lifecycle.Outcome{}, InsertError("generations", err)
	}

	s.nextGenID++
	cp := *g
	s.indexGeneration(&cp)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: g.ID,
	}, nil
}

// UpsertVariant inserts a variant or completes missing fields on the
// stored one. Market is part of the identity like it is for models.
func (s *store) UpsertVariant(
	ctx context.Context, v *schema.Variant,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return lifecycle.Outcome{}, NotLoadedError()
	}

	v.Name = schema.NormalizeName(v.Name)
	v.Market = schema.NormalizeMarket(v.Market)
	if !schema.ValidYearRange(v.YearStart, v.YearEnd) {
		v.YearEnd = 0
	}
	existing, ok := s.varsByKey[variantKey(
		v.GenerationID, v.Name, v.Market)]
	if ok {
		filled := fillVariant(existing, v, s.force)
		if len(filled) == 0 {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped,
				ID:     existing.ID,
			}, nil
		}
		_, err := s.operator.Pool().Exec(ctx,
			`UPDATE variants SET engine_code = $1, engine_type = $2,
				displacement = $3, power_hp = $4, transmission = $5,
				drivetrain = $6, fuel_type = $7, trim_level = $8,
				year_start = $9, year_end = $10, updated_at = now()
			WHERE id = $11`,
			existing.EngineCode, existing.EngineType,
			existing.Displacement, existing.PowerHP,
			existing.Transmission, existing.Drivetrain,
			existing.FuelType, existing.TrimLevel,
			existing.YearStart, existing.YearEnd, existing.ID)
		if err != nil {
			return lifecycle.Outcome{}, UpdateError("variants", err)
		}
		return lifecycle.Outcome{
			Action:       lifecycle.ActionGapFilled,
			ID:           existing.ID,
			FilledFields: filled,
		}, nil
	}

	makeName, modelName, genName, genYear := s.generationLineage(
		v.GenerationID)

	v.ID = s.nextVarID
	v.UUID = schema.VariantUUID(
		makeName, modelName, genName, genYear, v.Name, v.Market)
	_, err := s.operator.Pool().Exec(ctx,
		`INSERT INTO variants (id, uuid, generation_id, name, market,
			engine_code, engine_type, displacement, power_hp,
			transmission, drivetrain, fuel_type, trim_level,
			year_start, year_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, now(), now())`,
		v.ID, v.UUID, v.GenerationID, v.Name, v.Market, v.EngineCode,
		v.EngineType, v.Displacement, v.PowerHP, v.Transmission,
		v.Drivetrain, v.FuelType, v.TrimLevel,
		v.YearStart, v.YearEnd)
	if err != nil {
		return lifecycle.Outcome{}, InsertError("variants", err)
	}

	s.nextVarID++
	cp := *v
	s.indexVariant(&cp)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: v.ID,
	}, nil
}

// modelLineage resolves the make and model names a generation hangs
// off, empty strings when a parent is unknown.
func (s *store) modelLineage(modelID int) (makeName, modelName string) {
	mdl := s.modelByID(modelID)
	if mdl == nil {
		return "", ""
	}
	modelName = mdl.Name
	if mk := s.makeByID(mdl.MakeID); mk != nil {
		makeName = mk.Name
	}
	return makeName, modelName
}

// generationLineage resolves the full ancestry of a variant.
func (s *store) generationLineage(
	genID int,
) (makeName, modelName, genName string, yearStart int) {
	g := s.genByID(genID)
	if g == nil {
		return "", "", "", 0
	}
	genName = g.Name
	yearStart = g.YearStart
	makeName, modelName = s.modelLineage(g.ModelID)
	return makeName, modelName, genName, yearStart
}

func (s *store) modelByID(id int) *schema.Model {
	for _, m := range s.modelsByKey {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *store) genByID(id int) *schema.Generation {
	for _, g := range s.gensByKey {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// fillText completes a missing text field. Returns whether the field
// changed.
func fillText(dst *string, src string, force bool) bool {
	if src == "" {
		return false
	}
	if *dst != "" && !force {
		return false
	}
	if *dst == src {
		return false
	}
	*dst = src
	return true
}

// fillInt completes a missing numeric field, zero counts as missing.
func fillInt(dst *int, src int, force bool) bool {
	if src == 0 {
		return false
	}
	if *dst != 0 && !force {
		return false
	}
	if *dst == src {
		return false
	}
	*dst = src
	return true
}

func fillVariant(dst, src *schema.Variant, force bool) []string {
	var filled []string
	fields := []struct {
		name string
		dst  *string
		src  string
	}{
		{"engine_code", &dst.EngineCode, src.EngineCode},
		{"engine_type", &dst.EngineType, src.EngineType},
		{"transmission", &dst.Transmission, src.Transmission},
		{"drivetrain", &dst.Drivetrain, src.Drivetrain},
		{"fuel_type", &dst.FuelType, src.FuelType},
		{"trim_level", &dst.TrimLevel, src.TrimLevel},
	}
	for _, f := range fields {
		if fillText(f.dst, f.src, force) {
			filled = append(filled, f.name)
		}
	}
	ints := []struct {
		name string
		dst  *int
		src  int
	}{
		{"displacement", &dst.Displacement, src.Displacement},
		{"power_hp", &dst.PowerHP, src.PowerHP},
		{"year_start", &dst.YearStart, src.YearStart},
	}
	for _, f := range ints {
		if fillInt(f.dst, f.src, force) {
			filled = append(filled, f.name)
		}
	}
	// An end year can only land after the stored start year.
	if schema.ValidYearRange(dst.YearStart, src.YearEnd) &&
		fillInt(&dst.YearEnd, src.YearEnd, force) {
		filled = append(filled, "year_end")
	}
	return filled
}
