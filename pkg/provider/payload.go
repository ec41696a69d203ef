package provider

// Wire payloads the backend is asked to produce, one shape per
// category. Fields mirror the JSON keys named in the prompts.

// MakePayload is the response shape for a make request.
type MakePayload struct {
	Name          string `json:"name"`
	Country       string `json:"country"`
	Founded       int    `json:"founded"`
	ParentCompany string `json:"parent_company"`
}

// ModelPayload is one element of a models response.
type ModelPayload struct {
	Name     string `json:"name"`
	BodyType string `json:"body_type"`
	Segment  string `json:"segment"`
	Market   string `json:"market"`
}

// GenerationPayload is one element of a generations response.
type GenerationPayload struct {
	Name         string `json:"name"`
	StartYear    int    `json:"start_year"`
	EndYear      int    `json:"end_year"`
	FaceliftYear int    `json:"facelift_year"`
	Platform     string `json:"platform"`
}

// VariantPayload is one element of a variants response.
type VariantPayload struct {
	Name           string `json:"name"`
	EngineType     string `json:"engine_type"`
	EngineCode     string `json:"engine_code"`
	DisplacementCC int    `json:"displacement_cc"`
	Horsepower     int    `json:"horsepower"`
	TorqueNM       int    `json:"torque_nm"`
	Transmission   string `json:"transmission"`
	DriveType      string `json:"drive_type"`
	Market         string `json:"market"`
}

// DTCPayload is one element of a trouble code response.
type DTCPayload struct {
	Code                string   `json:"code"`
	Description         string   `json:"description"`
	DetailedDescription string   `json:"detailed_description"`
	System              string   `json:"system"`
	Severity            string   `json:"severity"`
	CommonCauses        []string `json:"common_causes"`
	Symptoms            []string `json:"symptoms"`
	ApplicableModels    string   `json:"applicable_models"`
	ApplicableYears     string   `json:"applicable_years"`
	PowertrainType      string   `json:"powertrain_type"`
}
