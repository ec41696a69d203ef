package iostore

import (
	"context"

	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// UpsertDTC inserts a new trouble code or merges the incoming fields
// into the stored record's gaps. Rejects codes that do not match the
// OBD-II format.
func (s *store) UpsertDTC(
	ctx context.Context, d *schema.DTCCode,
) (lifecycle.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return lifecycle.Outcome{}, NotLoadedError()
	}

	d.Code = schema.NormalizeCode(d.Code)
	if !schema.ValidDTCCode(d.Code) {
		return lifecycle.Outcome{}, InvalidDTCError(d.Code)
	}
	d.Generic = schema.GenericDTCCode(d.Code)
	normalizeDTC(d)

	existing, ok := s.dtcByKey[dtcKey(d.Code, d.MakeID)]
	if ok {
		filled := mergeDTC(existing, d, s.force)
		if len(filled) == 0 {
			return lifecycle.Outcome{
				Action: lifecycle.ActionSkipped,
				ID:     existing.ID,
			}, nil
		}
		_, err := s.operator.Pool().Exec(ctx,
			`UPDATE dtc_codes SET description = $1,
				detailed_description = $2, system = $3,
				severity = $4, common_causes = $5, symptoms = $6,
				powertrain = $7, applicable_models = $8,
				applicable_years = $9, source = $10,
				updated_at = now()
			WHERE id = $11`,
			existing.Description, existing.DetailedDescription,
			existing.System, existing.Severity,
			existing.CommonCauses, existing.Symptoms,
			existing.Powertrain, existing.ApplicableModels,
			existing.ApplicableYears, existing.Source, existing.ID)
		if err != nil {
			return lifecycle.Outcome{}, UpdateError("dtc_codes", err)
		}
		return lifecycle.Outcome{
			Action:       lifecycle.ActionGapFilled,
			ID:           existing.ID,
			FilledFields: filled,
		}, nil
	}

	makeName := ""
	if d.MakeID != nil {
		if m := s.makeByID(*d.MakeID); m != nil {
			makeName = m.Name
		}
	}

	d.ID = s.nextDTCID
	d.UUID = schema.DTCUUID(d.Code, makeName)
	_, err := s.operator.Pool().Exec(ctx,
		`INSERT INTO dtc_codes (id, uuid, code, make_id,
			description, detailed_description, system, severity,
			common_causes, symptoms, powertrain, applicable_models,
			applicable_years, generic, source,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, now(), now())`,
		d.ID, d.UUID, d.Code, d.MakeID, d.Description,
		d.DetailedDescription, d.System, d.Severity,
		d.CommonCauses, d.Symptoms, d.Powertrain,
		d.ApplicableModels, d.ApplicableYears, d.Generic,
		d.Source)
	if err != nil {
		return lifecycle.Outcome{}, InsertError("dtc_codes", err)
	}

	s.nextDTCID++
	cp := *d
	s.indexDTC(&cp)
	return lifecycle.Outcome{
		Action: lifecycle.ActionInserted, ID: d.ID,
	}, nil
}

func (s *store) makeByID(id int) *schema.Make {
	for _, m := range s.makesByName {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// normalizeDTC canonicalizes severity and powertrain vocabulary and
// drops placeholder list values. Unknown vocabulary is cleared so it
// registers as a gap instead of polluting the table.
func normalizeDTC(d *schema.DTCCode) {
	if sev, ok := schema.NormalizeSeverity(d.Severity); ok {
		d.Severity = sev
	} else {
		d.Severity = ""
	}
	if pt, ok := schema.NormalizePowertrain(d.Powertrain); ok {
		d.Powertrain = pt
	} else {
		d.Powertrain = ""
	}
	if d.CommonCauses == "" || d.CommonCauses == "null" {
		d.CommonCauses = "[]"
	}
	if d.Symptoms == "" || d.Symptoms == "null" {
		d.Symptoms = "[]"
	}
}

// mergeDTC fills gaps on dst from src and returns the names of the
// fields that changed. Without force, existing informative values
// are kept.
func mergeDTC(dst, src *schema.DTCCode, force bool) []string {
	var filled []string
	missing := map[string]bool{}
	for _, f := range schema.MissingDTCFields(dst) {
		missing[f] = true
	}

	canFill := func(field string) bool {
		return force || missing[field]
	}

	if src.Description != "" &&
		canFill(schema.FieldDescription) &&
		dst.Description != src.Description {
		dst.Description = src.Description
		filled = append(filled, schema.FieldDescription)
	}
	if src.DetailedDescription != "" &&
		canFill(schema.FieldDetailedDescription) &&
		dst.DetailedDescription != src.DetailedDescription {
		// An incoming placeholder never replaces stored text.
		trial := *dst
		trial.DetailedDescription = src.DetailedDescription
		stillMissing := false
		for _, f := range schema.MissingDTCFields(&trial) {
			if f == schema.FieldDetailedDescription {
				stillMissing = true
			}
		}
		if force || !stillMissing {
			dst.DetailedDescription = src.DetailedDescription
			filled = append(filled, schema.FieldDetailedDescription)
		}
	}
	if src.System != "" && canFill(schema.FieldSystem) &&
		dst.System != src.System {
		dst.System = src.System
		filled = append(filled, schema.FieldSystem)
	}
	if src.Severity != "" && canFill(schema.FieldSeverity) &&
		dst.Severity != src.Severity {
		dst.Severity = src.Severity
		filled = append(filled, schema.FieldSeverity)
	}
	if src.CommonCauses != "" && src.CommonCauses != "[]" &&
		canFill(schema.FieldCommonCauses) &&
		dst.CommonCauses != src.CommonCauses {
		dst.CommonCauses = src.CommonCauses
		filled = append(filled, schema.FieldCommonCauses)
	}
	if src.Symptoms != "" && src.Symptoms != "[]" &&
		canFill(schema.FieldSymptoms) &&
		dst.Symptoms != src.Symptoms {
		dst.Symptoms = src.Symptoms
		filled = append(filled, schema.FieldSymptoms)
	}
	if src.Powertrain != "" && canFill(schema.FieldPowertrain) &&
		dst.Powertrain != src.Powertrain {
		dst.Powertrain = src.Powertrain
		filled = append(filled, schema.FieldPowertrain)
	}
	if src.ApplicableModels != "" && dst.ApplicableModels == "" {
		dst.ApplicableModels = src.ApplicableModels
		filled = append(filled, "applicable_models")
	}
	if src.ApplicableYears != "" && dst.ApplicableYears == "" {
		dst.ApplicableYears = src.ApplicableYears
		filled = append(filled, "applicable_years")
	}
	if src.Source != "" && dst.Source == "" {
		dst.Source = src.Source
		filled = append(filled, "source")
	}
	return filled
}
