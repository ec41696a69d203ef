package ioimport

import (
	"strings"

	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// Scraped sources carry a code and a one line description, nothing
// more. These heuristics classify the rest from keywords, leaving
// the detailed fields as gaps for the enrichment pass.

type keywordClass struct {
	label    string
	keywords []string
}

var systemClasses = []keywordClass{
	{"Fuel System", []string{
		"fuel", "injector", "pump", "rail pressure", "lean", "rich"}},
	{"Ignition", []string{"ignition", "misfire", "spark", "coil"}},
	{"Emissions", []string{
		"catalyst", "catalytic", "o2", "oxygen", "evap", "egr",
		"emission", "nox", "dpf", "particulate"}},
	{"Transmission", []string{
		"transmission", "gear", "shift", "torque converter",
		"clutch", "tcm"}},
	{"Engine", []string{
		"engine", "cylinder", "crankshaft", "camshaft", "vvt",
		"timing", "knock", "compression"}},
	{"Cooling", []string{
		"coolant", "thermostat", "radiator", "temperature", "cooling"}},
	{"Intake/Exhaust", []string{
		"intake", "exhaust", "manifold", "throttle", "maf", "map",
		"turbo", "boost"}},
	{"Airbag/SRS", []string{"airbag", "restraint", "srs", "occupant"}},
	{"ABS/Brakes", []string{
		"abs", "brake", "wheel speed", "traction", "stability",
		"esp", "dsc"}},
	{"Steering", []string{"steering", "power steering", "eps"}},
	{"HVAC", []string{
		"hvac", "climate", "air condition", "a/c", "heater", "blower"}},
	{"Lighting", []string{"lamp", "light", "headlight", "bulb"}},
	{"Network/Communication", []string{
		"can", "bus", "communication", "network", "module"}},
	{"Hybrid/EV", []string{
		"hybrid", "hv battery", "inverter", "regenerat",
		"high voltage", "traction motor", "charging"}},
}

// detectSystem classifies a code by description keywords, falling
// back to the meaning of the code prefix.
func detectSystem(code, description string) string {
	desc := strings.ToLower(description)
	for _, c := range systemClasses {
		for _, kw := range c.keywords {
			if strings.Contains(desc, kw) {
				return c.label
			}
		}
	}

	switch {
	case strings.HasPrefix(code, "P"):
		return "Engine"
	case strings.HasPrefix(code, "B"):
		return "Body"
	case strings.HasPrefix(code, "C"):
		return "Chassis"
	case strings.HasPrefix(code, "U"):
		return "Network/Communication"
	}
	return "Engine"
}

func detectSeverity(description string) string {
	desc := strings.ToLower(description)

	critical := []string{
		"airbag", "restraint", "brake failure", "steering", "fuel leak"}
	for _, kw := range critical {
		if strings.Contains(desc, kw) {
			return schema.SeverityCritical
		}
	}

	high := []string{
		"misfire", "catalyst damage", "overheat", "transmission",
		"abs", "fuel system"}
	for _, kw := range high {
		if strings.Contains(desc, kw) {
			return schema.SeverityHigh
		}
	}

	low := []string{
		"intermittent", "lamp", "light", "sensor range", "hvac"}
	for _, kw := range low {
		if strings.Contains(desc, kw) {
			return schema.SeverityLow
		}
	}

	return schema.SeverityMedium
}

func detectPowertrain(description string) string {
	desc := strings.ToLower(description)

	diesel := []string{
		"glow plug", "dpf", "particulate", "egr", "adblue", "def",
		"urea", "nox", "turbo"}
	for _, kw := range diesel {
		if strings.Contains(desc, kw) {
			return schema.PowertrainDiesel
		}
	}

	ev := []string{
		"high voltage", "hv battery", "charging", "inverter",
		"traction motor", "dc/dc"}
	for _, kw := range ev {
		if strings.Contains(desc, kw) {
			return schema.PowertrainEV
		}
	}

	hybrid := []string{"hybrid", "regenerat", "motor generator",
		"mg1", "mg2"}
	for _, kw := range hybrid {
		if strings.Contains(desc, kw) {
			return schema.PowertrainHybrid
		}
	}

	gasoline := []string{
		"spark", "ignition coil", "knock sensor", "catalytic converter"}
	for _, kw := range gasoline {
		if strings.Contains(desc, kw) {
			return schema.PowertrainGasoline
		}
	}

	return schema.PowertrainAll
}
