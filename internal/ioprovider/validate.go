package ioprovider

import (
	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// decodePayload parses and validates raw model output against the
// shape a category promises. The returned value is one of the
// pkg/provider payload types, a slice for list categories.
func decodePayload(cat provider.Category, raw string) (any, error) {
	switch cat {
	case provider.CategoryMakes:
		var p provider.MakePayload
		if err := parseResponse(raw, &p); err != nil {
			return nil, provider.SchemaViolation(
				"cannot parse make payload: %v", err)
		}
		if p.Name == "" {
			return nil, provider.SchemaViolation(
				"make payload has no name")
		}
		return &p, nil

	case provider.CategoryModels:
		var ps []provider.ModelPayload
		if err := parseResponse(raw, &ps); err != nil {
			return nil, provider.SchemaViolation(
				"cannot parse models payload: %v", err)
		}
		named := ps[:0]
		for _, p := range ps {
			if p.Name != "" {
				named = append(named, p)
			}
		}
		if len(named) == 0 {
			return nil, provider.SchemaViolation(
				"models payload is empty")
		}
		return named, nil

	case provider.CategoryGenerations:
		var ps []provider.GenerationPayload
		if err := parseResponse(raw, &ps); err != nil {
			return nil, provider.SchemaViolation(
				"cannot parse generations payload: %v", err)
		}
		named := ps[:0]
		for _, p := range ps {
			if p.Name != "" {
				named = append(named, p)
			}
		}
		if len(named) == 0 {
			return nil, provider.SchemaViolation(
				"generations payload is empty")
		}
		return named, nil

	case provider.CategoryVariants:
		var ps []provider.VariantPayload
		if err := parseResponse(raw, &ps); err != nil {
			return nil, provider.SchemaViolation(
				"cannot parse variants payload: %v", err)
		}
		named := ps[:0]
		for _, p := range ps {
			if p.Name != "" {
				named = append(named, p)
			}
		}
		if len(named) == 0 {
			return nil, provider.SchemaViolation(
				"variants payload is empty")
		}
		return named, nil

	case provider.CategoryDTC, provider.CategoryGapFill:
		var ps []provider.DTCPayload
		if err := parseResponse(raw, &ps); err != nil {
			return nil, provider.SchemaViolation(
				"cannot parse trouble code payload: %v", err)
		}
		valid := ps[:0]
		for _, p := range ps {
			code := schema.NormalizeCode(p.Code)
			if !schema.ValidDTCCode(code) {
				continue
			}
			p.Code = code
			valid = append(valid, p)
		}
		if len(valid) == 0 {
			return nil, provider.SchemaViolation(
				"trouble code payload has no valid codes")
		}
		return valid, nil

	default:
		return nil, provider.SchemaViolation(
			"unknown category %q", cat)
	}
}
