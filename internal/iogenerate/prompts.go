package iogenerate

import (
	"fmt"
	"strings"
)

// Prompt builders. Each one names the exact JSON shape the response
// must take; the keys match the payload types the provider decodes
// into.

func makePrompt(makeName string) string {
	return fmt.Sprintf(
		`%s car manufacturer. Return JSON: `+
			`{"name":"%s","country":"","founded":0,"parent_company":null}`,
		makeName, makeName,
	)
}

func modelsPrompt(makeName, market string) string {
	scope := ""
	if market != "" && market != "Global" {
		scope = " in " + market
	}
	return fmt.Sprintf(
		`List all %s car models (2000-2025)%s. JSON array:
[{"name":"Model","body_type":"Sedan|SUV|Hatch","segment":"Compact|Mid|Full|Luxury","market":"%s"}]`,
		makeName, scope, market,
	)
}

func generationsPrompt(makeName, modelName string) string {
	return fmt.Sprintf(
		`List %s %s generations (2000-2025) with chassis codes. JSON array:
[{"name":"W205/G20/etc","start_year":2014,"end_year":2021,"facelift_year":null,"platform":""}]`,
		makeName, modelName,
	)
}

func variantsPrompt(makeName, modelName, genName, market string) string {
	scope := ""
	if market != "" && market != "Global" {
		scope = " in " + market
	}
	return fmt.Sprintf(
		`List %s %s %s engine variants%s. JSON array:
[{"name":"320i/2.5L/etc","engine_type":"gasoline|diesel|hybrid|ev","engine_code":"","displacement_cc":2000,"horsepower":200,"torque_nm":300,"transmission":"auto|manual","drive_type":"FWD|RWD|AWD","market":"%s"}]`,
		makeName, modelName, genName, scope, market,
	)
}

// batchFocus rotates the emphasis of general trouble code batches so
// repeated calls surface different code ranges.
var batchFocus = []string{
	"P1xxx manufacturer-specific powertrain codes",
	"P0xxx generic powertrain codes commonly seen",
	"B1xxx and B2xxx body control codes",
	"C1xxx chassis and ABS codes",
	"U1xxx and U0xxx network communication codes",
}

const dtcShape = `[{"code":"P1xxx","description":"short description",` +
	`"detailed_description":"detailed technical explanation",` +
	`"system":"Engine|Transmission|ABS|SRS|Body|Network|HVAC",` +
	`"severity":"Critical|High|Medium|Low",` +
	`"common_causes":["cause1","cause2"],` +
	`"symptoms":["symptom1","symptom2"],` +
	`"applicable_models":"All or specific",` +
	`"applicable_years":"1996+","powertrain_type":"All|Gasoline|Diesel|Hybrid|EV"}]`

func dtcBatchPrompt(makeName string, batch int) string {
	focus := batchFocus[(batch-1)%len(batchFocus)]
	return fmt.Sprintf(
		`List as many %s-specific OBD2 DTC codes as you know, focusing on %s.
Include at least 30-50 codes if possible. Be comprehensive.

Return JSON array:
%s`,
		makeName, focus, dtcShape,
	)
}

// systemCategory pairs a vehicle system with a hint describing what
// belongs to it.
type systemCategory struct {
	name string
	desc string
}

var systemCategories = []systemCategory{
	{"General", "manufacturer-specific P1xxx, B1xxx, C1xxx, U1xxx"},
	{"Engine", "engine management, fuel system, ignition, timing"},
	{"Transmission", "automatic transmission, CVT, DCT, gearbox"},
	{"Emissions", "catalytic converter, oxygen sensors, EGR, EVAP"},
	{"ABS/Stability", "ABS, traction control, stability control, wheel speed"},
	{"Airbag/SRS", "airbag, seatbelt, occupant detection, restraint"},
	{"Body/Comfort", "HVAC, lighting, windows, locks, comfort systems"},
	{"Network", "CAN bus, communication, module communication"},
}

func dtcSystemPrompt(makeName string, cat systemCategory) string {
	descHint := ""
	if cat.desc != "" {
		descHint = " (" + cat.desc + ")"
	}
	return fmt.Sprintf(
		`List ALL known %s DTC codes related to %s%s.
Include both manufacturer-specific (P1xxx, B1xxx, C1xxx, U1xxx) and commonly seen generic codes.
Be comprehensive - list 30-50 codes if possible.

Return JSON array:
%s`,
		makeName, cat.name, descHint, dtcShape,
	)
}

// powertrainHints steer powertrain batches toward the subsystems
// that actually throw codes on that drivetrain.
var powertrainHints = map[string]string{
	"Gasoline": "ignition coils, spark plugs, fuel injection, knock sensors, " +
		"catalytic converters, oxygen sensors",
	"Diesel": "glow plugs, DPF, EGR, turbo, injectors, fuel rail pressure, " +
		"AdBlue/DEF, NOx sensors",
	"Hybrid": "hybrid battery, inverter, motor generator, regenerative braking, " +
		"HV system, e-CVT, plug-in charging, onboard charger",
	"EV": "high voltage battery, BMS, electric motor, inverter, DC charging, " +
		"thermal management, range",
}

func dtcPowertrainPrompt(makeName, powertrain string) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"List ALL known %s %s-specific DTC codes.\n",
		makeName, powertrain)
	if hint, ok := powertrainHints[powertrain]; ok {
		fmt.Fprintf(&b, "Focus on: %s\n", hint)
	}
	fmt.Fprintf(&b,
		`Include P0Axx (hybrid/EV), P1xxx (manufacturer), and any relevant codes.
Be comprehensive - list 30-50 codes if possible.

Return JSON array:
%s`, dtcShape)
	return b.String()
}
