// Package lifecycle defines the interfaces between the command layer
// and the io implementations that do the actual work. Keeping them
// here lets the orchestration logic run against fakes in tests.
package lifecycle

import (
	"context"

	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// Action says what an upsert did to a record.
type Action int

const (
	// ActionInserted means a new row was written.
	ActionInserted Action = iota

	// ActionSkipped means an equivalent complete row already
	// existed and nothing was written.
	ActionSkipped

	// ActionGapFilled means the row existed with missing fields
	// and the incoming record completed some of them.
	ActionGapFilled

	// ActionReplaced means an existing row was overwritten
	// because the run forced regeneration.
	ActionReplaced
)

func (a Action) String() string {
	switch a {
	case ActionInserted:
		return "inserted"
	case ActionSkipped:
		return "skipped"
	case ActionGapFilled:
		return "gap-filled"
	case ActionReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Outcome reports the effect of one upsert.
type Outcome struct {
	Action Action

	// ID is the row's sequential identifier, set for every
	// action.
	ID int

	// FilledFields lists the fields completed by a gap fill.
	FilledFields []string
}

// Store writes generated records to the database, deduplicating
// against what is already there. Writes go out immediately so an
// interrupted run keeps everything stored before the interrupt.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load reads key indices and ID counters from the database.
	// Must be called once before any other method.
	Load(ctx context.Context) error

	// MakeByName finds a make by normalized name.
	MakeByName(name string) (*schema.Make, bool)

	// UpsertMake inserts or completes a make.
	UpsertMake(ctx context.Context, m *schema.Make) (Outcome, error)

	// ModelsByMake lists the known models of a make.
	ModelsByMake(makeID int) []*schema.Model

	// UpsertModel inserts or completes a model.
	UpsertModel(ctx context.Context, m *schema.Model) (Outcome, error)

	// GenerationsByModel lists the known generations of a model.
	GenerationsByModel(modelID int) []*schema.Generation

	// UpsertGeneration inserts or completes a generation.
	UpsertGeneration(
		ctx context.Context, g *schema.Generation,
	) (Outcome, error)

	// VariantsByGeneration lists the known variants of a
	// generation.
	VariantsByGeneration(generationID int) []*schema.Variant

	// UpsertVariant inserts or completes a variant.
	UpsertVariant(
		ctx context.Context, v *schema.Variant,
	) (Outcome, error)

	// DTCByCode finds a trouble code. A nil makeID addresses the
	// generic code table.
	DTCByCode(code string, makeID *int) (*schema.DTCCode, bool)

	// DTCPowertrainsForMake returns the distinct powertrain values
	// among a make's stored codes, or among generic codes when
	// makeID is nil.
	DTCPowertrainsForMake(makeID *int) []string

	// DTCCountForMake returns how many codes are stored for a
	// make, or how many generic codes exist when makeID is nil.
	DTCCountForMake(makeID *int) int

	// UpsertDTC inserts a new trouble code or merges the incoming
	// fields into the stored record's gaps. Existing non-empty
	// fields are never overwritten unless force is set on the
	// store.
	UpsertDTC(ctx context.Context, d *schema.DTCCode) (Outcome, error)

	// IncompleteDTCs returns stored codes with missing fields,
	// scoped to one make or to generic codes when makeID is nil.
	IncompleteDTCs(
		ctx context.Context, makeID *int,
	) ([]*schema.DTCCode, error)

	// SaveUsage persists priced call records for a run.
	SaveUsage(ctx context.Context, recs []*schema.UsageRecord) error
}
