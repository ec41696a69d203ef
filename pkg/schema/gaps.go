package schema

import "strings"

// DTC field names used for gap detection and targeted enrichment.
const (
	FieldDescription         = "description"
	FieldDetailedDescription = "detailed_description"
	FieldSystem              = "system"
	FieldSeverity            = "severity"
	FieldCommonCauses        = "common_causes"
	FieldSymptoms            = "symptoms"
	FieldPowertrain          = "powertrain"
)

// minDetailedLen is the shortest detailed description considered
// informative. Anything shorter is a placeholder worth replacing.
const minDetailedLen = 50

// MissingDTCFields returns the names of fields that are absent or
// carry placeholder content, in a stable order. An empty result means
// the record is complete.
func MissingDTCFields(d *DTCCode) []string {
	var missing []string
	if emptyText(d.Description) {
		missing = append(missing, FieldDescription)
	}
	dd := strings.TrimSpace(d.DetailedDescription)
	if dd == "" || dd == strings.TrimSpace(d.Description) ||
		len(dd) < minDetailedLen {
		missing = append(missing, FieldDetailedDescription)
	}
	if emptyText(d.System) {
		missing = append(missing, FieldSystem)
	}
	if emptyText(d.Severity) {
		missing = append(missing, FieldSeverity)
	}
	if emptyList(d.CommonCauses) {
		missing = append(missing, FieldCommonCauses)
	}
	if emptyList(d.Symptoms) {
		missing = append(missing, FieldSymptoms)
	}
	if emptyText(d.Powertrain) {
		missing = append(missing, FieldPowertrain)
	}
	return missing
}

// CompleteDTC reports whether a record has no gaps left.
func CompleteDTC(d *DTCCode) bool {
	return len(MissingDTCFields(d)) == 0
}

func emptyText(s string) bool {
	return strings.TrimSpace(s) == ""
}

func emptyList(s string) bool {
	v := strings.TrimSpace(s)
	return v == "" || v == "[]" || v == "null"
}
