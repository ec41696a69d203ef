package schema

import (
	"strconv"
	"strings"

	"github.com/gnames/gnuuid"
)

// NormalizeName collapses whitespace and canonicalizes casing so that
// names coming from different AI responses compare equal. The first
// letter of each word is upper-cased, acronyms of three letters or
// fewer are kept fully upper-cased.
func NormalizeName(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 3 && w == strings.ToUpper(w) {
			continue
		}
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeCode upper-cases and trims a DTC or platform code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MarketGlobal is the market value for rows that are not tied to a
// regional lineup.
const MarketGlobal = "Global"

// Markets is the closed vocabulary of market values models and
// variants carry.
var Markets = []string{MarketGlobal, "US", "EU", "Asia", "UK", "Australia"}

var marketAliases = map[string]string{
	"usa":            "US",
	"america":        "US",
	"north america":  "US",
	"europe":         "EU",
	"european":       "EU",
	"united kingdom": "UK",
	"great britain":  "UK",
	"gb":             "UK",
	"japan":          "Asia",
	"jdm":            "Asia",
	"oceania":        "Australia",
	"worldwide":      MarketGlobal,
	"international":  MarketGlobal,
}

// NormalizeMarket maps free-form market strings onto the Markets
// vocabulary. Empty and unrecognized values become Global.
func NormalizeMarket(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return MarketGlobal
	}
	for _, m := range Markets {
		if v == strings.ToLower(m) {
			return m
		}
	}
	if m, ok := marketAliases[v]; ok {
		return m
	}
	return MarketGlobal
}

// ValidYearRange reports whether a production year pair is
// consistent. A zero end means the run is still open and a zero
// start means the year is unknown.
func ValidYearRange(start, end int) bool {
	return start == 0 || end == 0 || end >= start
}

// ModelUUID derives the deterministic identifier of a model from its
// make, name and market.
func ModelUUID(makeName, modelName, market string) string {
	key := NormalizeName(makeName) + "|" + NormalizeName(modelName) +
		"|" + NormalizeMarket(market)
	return gnuuid.New(key).String()
}

// GenerationUUID derives the identifier of a generation from its
// model lineage, name and start year.
func GenerationUUID(makeName, modelName, genName string, yearStart int) string {
	key := NormalizeName(makeName) + "|" + NormalizeName(modelName) +
		"|" + NormalizeName(genName) + "|" + strconv.Itoa(yearStart)
	return gnuuid.New(key).String()
}

// VariantUUID derives the identifier of a variant from its generation
// lineage, variant name and market.
func VariantUUID(
	makeName, modelName, genName string,
	yearStart int,
	variantName, market string,
) string {
	key := NormalizeName(makeName) + "|" + NormalizeName(modelName) +
		"|" + NormalizeName(genName) + "|" + strconv.Itoa(yearStart) +
		"|" + NormalizeName(variantName) + "|" + NormalizeMarket(market)
	return gnuuid.New(key).String()
}

// DTCUUID derives the identifier of a trouble code. Generic codes use
// an empty make name, manufacturer codes include the make so the same
// code can exist once per manufacturer.
func DTCUUID(code, makeName string) string {
	key := "dtc|" + NormalizeCode(code) + "|" + NormalizeName(makeName)
	return gnuuid.New(key).String()
}
