package lifecycle

import "context"

// BuildResult sums up what a generation run did.
type BuildResult struct {
	MakesProcessed int
	MakesFailed    int
	Inserted       int
	Skipped        int
	GapsFilled     int
	Interrupted    bool
}

// Builder runs the generation pipeline for the selection configured
// on it: makes, their models, generations, variants and optionally
// trouble codes.
type Builder interface {
	Build(ctx context.Context) (*BuildResult, error)
}

// GapReport sums up a gap fill pass.
type GapReport struct {
	Scanned     int
	Incomplete  int
	Enriched    int
	Failed      int
	Interrupted bool

	// MissingByField counts gaps per field name before the pass.
	MissingByField map[string]int

	// CoverageGaps lists, per manufacturer, the powertrain types
	// of its catalog profile that no stored code covers.
	CoverageGaps map[string][]string
}

// GapFiller scans stored trouble codes for missing fields and asks
// the provider to complete them.
type GapFiller interface {
	Fill(ctx context.Context) (*GapReport, error)
}
