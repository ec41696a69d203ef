package iogaps

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// gapFieldShapes pairs each gap field with its fragment of the JSON
// shape, in the order the shape lists them.
var gapFieldShapes = []struct {
	field string
	shape string
}{
	{schema.FieldDescription, `"description":"short description"`},
	{schema.FieldDetailedDescription,
		`"detailed_description":"detailed technical explanation ` +
			`of at least two sentences"`},
	{schema.FieldSystem,
		`"system":"Engine|Transmission|ABS|SRS|Body|Network|HVAC"`},
	{schema.FieldSeverity, `"severity":"Critical|High|Medium|Low"`},
	{schema.FieldCommonCauses, `"common_causes":["cause1","cause2"]`},
	{schema.FieldSymptoms, `"symptoms":["symptom1","symptom2"]`},
	{schema.FieldPowertrain,
		`"powertrain_type":"All|Gasoline|Diesel|Hybrid|EV"`},
}

// gapPrompt asks the backend for the fields the batch actually
// misses; fields every record already has are left out of the
// request. Known descriptions are included so the answer stays about
// the same fault, not a lookalike code.
func gapPrompt(scopeName string, batch []*schema.DTCCode) string {
	needed := map[string]bool{}
	for _, d := range batch {
		for _, f := range schema.MissingDTCFields(d) {
			needed[f] = true
		}
	}

	var names []string
	for _, fs := range gapFieldShapes {
		if needed[fs.field] {
			names = append(names, fs.field)
		}
	}

	var b strings.Builder

	subject := scopeName + " vehicles"
	if scopeName == "generic" {
		subject = "all OBD2 vehicles (generic codes)"
	}

	fmt.Fprintf(&b,
		"Complete the following diagnostic trouble codes for %s.\n",
		subject)
	fmt.Fprintf(&b,
		"For every code return only these fields: %s.\n\n",
		strings.Join(names, ", "))

	for _, d := range batch {
		if d.Description != "" {
			fmt.Fprintf(&b, "- %s (%s)\n", d.Code, d.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", d.Code)
		}
	}

	b.WriteString("\nReturn JSON array with one object per code:\n")
	b.WriteString(`[{"code":"P1xxx"`)
	for _, fs := range gapFieldShapes {
		if needed[fs.field] {
			b.WriteString(",")
			b.WriteString(fs.shape)
		}
	}
	b.WriteString(`}]`)

	return b.String()
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
