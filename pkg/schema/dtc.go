package schema

import (
	"regexp"
	"strings"
)

// dtcPattern matches OBD-II trouble codes: a system letter, a 0 or 1
// for generic versus manufacturer scope, then three hex digits.
var dtcPattern = regexp.MustCompile(`^[PBCU][0-9][0-9A-F]{3}$`)

// ValidDTCCode reports whether s is a well formed trouble code after
// normalization.
func ValidDTCCode(s string) bool {
	return dtcPattern.MatchString(NormalizeCode(s))
}

// GenericDTCCode reports whether the code's second character marks it
// as a generic, make independent code.
func GenericDTCCode(s string) bool {
	code := NormalizeCode(s)
	return ValidDTCCode(code) && code[1] == '0'
}

// Severity levels ordered from most to least urgent.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
	SeverityInfo     = "Info"
)

var severities = map[string]string{
	"critical": SeverityCritical,
	"high":     SeverityHigh,
	"severe":   SeverityHigh,
	"medium":   SeverityMedium,
	"moderate": SeverityMedium,
	"low":      SeverityLow,
	"minor":    SeverityLow,
	"info":     SeverityInfo,
}

// NormalizeSeverity maps free-form severity strings to the canonical
// vocabulary. Unknown input returns an empty string and false.
func NormalizeSeverity(s string) (string, bool) {
	sev, ok := severities[strings.ToLower(strings.TrimSpace(s))]
	return sev, ok
}

// Powertrain applicability values for trouble codes.
const (
	PowertrainAll      = "All"
	PowertrainGasoline = "Gasoline"
	PowertrainDiesel   = "Diesel"
	PowertrainHybrid   = "Hybrid"
	PowertrainEV       = "EV"
)

var powertrains = map[string]string{
	"all":      PowertrainAll,
	"any":      PowertrainAll,
	"gasoline": PowertrainGasoline,
	"petrol":   PowertrainGasoline,
	"gas":      PowertrainGasoline,
	"diesel":   PowertrainDiesel,
	"hybrid":   PowertrainHybrid,
	"phev":     PowertrainHybrid,
	"ev":       PowertrainEV,
	"electric": PowertrainEV,
	"bev":      PowertrainEV,
}

// NormalizePowertrain maps free-form powertrain strings to the
// canonical vocabulary. Combined values like "Gasoline/Diesel"
// collapse to All. Unknown input returns an empty string and false.
func NormalizePowertrain(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return PowertrainAll, true
	}
	if strings.ContainsAny(v, "/,&+") ||
		strings.Contains(v, " and ") {
		return PowertrainAll, true
	}
	pt, ok := powertrains[v]
	return pt, ok
}

// DTCSystems lists the vehicle systems trouble codes are grouped
// under when requesting and classifying them.
var DTCSystems = []string{
	"Engine",
	"Transmission",
	"Fuel System",
	"Emissions",
	"Electrical",
	"ABS/Brakes",
	"Airbag/SRS",
	"Body",
	"Network/Communication",
	"Hybrid/EV",
}
