package schema_test

import (
	"strings"
	"testing"

	"github.com/Aariz1001/carpulse-data/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		msg, in, out string
	}{
		{"lowercase", "toyota", "Toyota"},
		{"extra spaces", "  land   cruiser ", "Land Cruiser"},
		{"acronym kept", "BMW", "BMW"},
		{"mixed", "mercedes-benz", "Mercedes-benz"},
		{"short acronym word", "GR corolla", "GR Corolla"},
		{"shouting", "CAMRY", "Camry"},
	}
	for _, v := range tests {
		assert.Equal(t, v.out, schema.NormalizeName(v.in), v.msg)
	}
}

func TestValidDTCCode(t *testing.T) {
	tests := []struct {
		msg, code string
		valid     bool
	}{
		{"generic powertrain", "P0301", true},
		{"manufacturer powertrain", "P1604", true},
		{"body", "B0001", true},
		{"chassis", "C1234", true},
		{"network", "U0100", true},
		{"hex digits", "P0A1F", true},
		{"lowercase accepted", "p0301", true},
		{"padded", " P0301 ", true},
		{"wrong letter", "X0301", false},
		{"too short", "P030", false},
		{"too long", "P03011", false},
		{"hex in scope digit", "PA301", false},
		{"empty", "", false},
	}
	for _, v := range tests {
		assert.Equal(t, v.valid, schema.ValidDTCCode(v.code), v.msg)
	}
}

func TestGenericDTCCode(t *testing.T) {
	assert.True(t, schema.GenericDTCCode("P0301"))
	assert.False(t, schema.GenericDTCCode("P1604"))
	assert.False(t, schema.GenericDTCCode("bogus"))
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in, out string
		ok      bool
	}{
		{"Critical", schema.SeverityCritical, true},
		{"HIGH", schema.SeverityHigh, true},
		{"severe", schema.SeverityHigh, true},
		{"moderate", schema.SeverityMedium, true},
		{" low ", schema.SeverityLow, true},
		{"info", schema.SeverityInfo, true},
		{"catastrophic", "", false},
		{"", "", false},
	}
	for _, v := range tests {
		out, ok := schema.NormalizeSeverity(v.in)
		assert.Equal(t, v.ok, ok, v.in)
		assert.Equal(t, v.out, out, v.in)
	}
}

func TestNormalizePowertrain(t *testing.T) {
	tests := []struct {
		in, out string
		ok      bool
	}{
		{"All", schema.PowertrainAll, true},
		{"petrol", schema.PowertrainGasoline, true},
		{"Gasoline", schema.PowertrainGasoline, true},
		{"DIESEL", schema.PowertrainDiesel, true},
		{"PHEV", schema.PowertrainHybrid, true},
		{"electric", schema.PowertrainEV, true},
		{"BEV", schema.PowertrainEV, true},
		{"Gasoline/Diesel", schema.PowertrainAll, true},
		{"gas and diesel", schema.PowertrainAll, true},
		{"", schema.PowertrainAll, true},
		{"steam", "", false},
	}
	for _, v := range tests {
		out, ok := schema.NormalizePowertrain(v.in)
		assert.Equal(t, v.ok, ok, v.in)
		assert.Equal(t, v.out, out, v.in)
	}
}

func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"US", "US"},
		{"us", "US"},
		{"usa", "US"},
		{" Europe ", "EU"},
		{"united kingdom", "UK"},
		{"JDM", "Asia"},
		{"worldwide", "Global"},
		{"", "Global"},
		{"Mars", "Global"},
	}
	for _, v := range tests {
		assert.Equal(t, v.out, schema.NormalizeMarket(v.in), v.in)
	}
}

func TestValidYearRange(t *testing.T) {
	assert.True(t, schema.ValidYearRange(2017, 2023))
	assert.True(t, schema.ValidYearRange(2017, 2017))
	assert.True(t, schema.ValidYearRange(2017, 0), "open-ended run")
	assert.True(t, schema.ValidYearRange(0, 2023), "unknown start")
	assert.False(t, schema.ValidYearRange(2020, 2015))
}

func TestDeterministicUUIDs(t *testing.T) {
	// Same natural key yields the same identifier regardless of
	// casing and spacing.
	a := schema.ModelUUID("toyota", "camry", "us")
	b := schema.ModelUUID("Toyota", " Camry ", "US")
	assert.Equal(t, a, b)

	c := schema.ModelUUID("Toyota", "Corolla", "US")
	assert.NotEqual(t, a, c)

	// The same model sold in another market is its own row.
	d := schema.ModelUUID("Toyota", "Camry", "EU")
	assert.NotEqual(t, a, d)

	g1 := schema.GenerationUUID("Toyota", "Camry", "XV70", 2017)
	g2 := schema.GenerationUUID("Toyota", "Camry", "XV70", 2024)
	assert.NotEqual(t, g1, g2)

	// Generic and manufacturer scoped codes get distinct identities.
	d1 := schema.DTCUUID("P0301", "")
	d2 := schema.DTCUUID("P0301", "Toyota")
	assert.NotEqual(t, d1, d2)
	assert.Equal(t, d1, schema.DTCUUID("p0301", " "))
}

func TestMissingDTCFields(t *testing.T) {
	full := &schema.DTCCode{
		Code:        "P0301",
		Description: "Cylinder 1 Misfire Detected",
		DetailedDescription: "The engine control module detected " +
			"repeated misfires in cylinder 1 over two drive cycles.",
		System:       "Engine",
		Severity:     schema.SeverityHigh,
		CommonCauses: `["Worn spark plug","Failed ignition coil"]`,
		Symptoms:     `["Rough idle","Check engine light flashing"]`,
		Powertrain:   schema.PowertrainGasoline,
	}
	assert.Empty(t, schema.MissingDTCFields(full))
	assert.True(t, schema.CompleteDTC(full))

	sparse := &schema.DTCCode{Code: "P0302"}
	missing := schema.MissingDTCFields(sparse)
	assert.Equal(t, []string{
		schema.FieldDescription,
		schema.FieldDetailedDescription,
		schema.FieldSystem,
		schema.FieldSeverity,
		schema.FieldCommonCauses,
		schema.FieldSymptoms,
		schema.FieldPowertrain,
	}, missing)

	// A detailed description that just repeats the short one, or is
	// too short to be useful, still counts as missing.
	echo := &schema.DTCCode{
		Code:                "P0303",
		Description:         "Cylinder 3 Misfire Detected",
		DetailedDescription: "Cylinder 3 Misfire Detected",
		System:              "Engine",
		Severity:            schema.SeverityHigh,
		CommonCauses:        `["Spark plug"]`,
		Symptoms:            `["Rough idle"]`,
		Powertrain:          schema.PowertrainAll,
	}
	assert.Equal(t,
		[]string{schema.FieldDetailedDescription},
		schema.MissingDTCFields(echo))

	echo.DetailedDescription = strings.Repeat("x", 49)
	assert.Equal(t,
		[]string{schema.FieldDetailedDescription},
		schema.MissingDTCFields(echo))

	// Empty JSON arrays are placeholders, not content.
	listless := &schema.DTCCode{
		Code:        "P0304",
		Description: "Cylinder 4 Misfire Detected",
		DetailedDescription: "The engine control module detected " +
			"repeated misfires in cylinder 4 over two drive cycles.",
		System:       "Engine",
		Severity:     schema.SeverityHigh,
		CommonCauses: "[]",
		Symptoms:     "null",
		Powertrain:   schema.PowertrainAll,
	}
	assert.Equal(t,
		[]string{schema.FieldCommonCauses, schema.FieldSymptoms},
		schema.MissingDTCFields(listless))
}

func TestAllModels(t *testing.T) {
	models := schema.AllModels()
	assert.Len(t, models, 6)
	// Parents come before children so migration order is safe.
	assert.IsType(t, &schema.Make{}, models[0])
	assert.IsType(t, &schema.UsageRecord{}, models[5])
}
