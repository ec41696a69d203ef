// Package schema describes the vehicle reference database tables and
// provides helpers shared by schema creation and data population.
package schema

import (
	"time"

	"github.com/gnames/gnuuid"
	"gorm.io/gorm"
)

// Make is a vehicle manufacturer. Names are unique after
// normalization, so "toyota" and "Toyota" resolve to one row.
type Make struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	UUID      string `gorm:"type:uuid;uniqueIndex"`
	Name      string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Country   string `gorm:"type:varchar(100)"`
	Founded   int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KeyUUID returns the deterministic identifier derived from the
// make's natural key.
func (m Make) KeyUUID() string {
	return gnuuid.New(NormalizeName(m.Name)).String()
}

// Model is a vehicle model line belonging to a make. The same model
// name can exist once per market, so a US and an EU lineup stay
// separate rows.
type Model struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	UUID      string `gorm:"type:uuid;uniqueIndex"`
	MakeID    int    `gorm:"index;not null;uniqueIndex:idx_models_make_name"`
	Make      *Make  `gorm:"foreignKey:MakeID"`
	Name      string `gorm:"type:varchar(100);not null;uniqueIndex:idx_models_make_name"`
	Market    string `gorm:"type:varchar(20);not null;default:'Global';uniqueIndex:idx_models_make_name"`
	Body      string `gorm:"type:varchar(50)"`
	Segment   string `gorm:"type:varchar(50)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Generation is a production run of a model, bounded by years and
// usually known under a platform code like "XV70".
type Generation struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	UUID      string `gorm:"type:uuid;uniqueIndex"`
	ModelID   int    `gorm:"index;not null;uniqueIndex:idx_generations_model_name_year"`
	Model     *Model `gorm:"foreignKey:ModelID"`
	Name      string `gorm:"type:varchar(100);not null;uniqueIndex:idx_generations_model_name_year"`
	Code      string `gorm:"type:varchar(50)"`
	YearStart int    `gorm:"uniqueIndex:idx_generations_model_name_year"`
	YearEnd   int    `gorm:"default:0"`
	Facelift  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant is a concrete configuration of a generation: engine,
// transmission, drivetrain and trim.
type Variant struct {
	ID           int         `gorm:"primaryKey;autoIncrement:false"`
	UUID         string      `gorm:"type:uuid;uniqueIndex"`
	GenerationID int         `gorm:"index;not null;uniqueIndex:idx_variants_gen_name_market"`
	Generation   *Generation `gorm:"foreignKey:GenerationID"`
	Name         string      `gorm:"type:varchar(150);not null;uniqueIndex:idx_variants_gen_name_market"`
	Market       string      `gorm:"type:varchar(20);not null;default:'Global';uniqueIndex:idx_variants_gen_name_market"`
	EngineCode   string      `gorm:"type:varchar(50)"`
	EngineType   string      `gorm:"type:varchar(50)"`
	Displacement int
	PowerHP      int
	Transmission string `gorm:"type:varchar(50)"`
	Drivetrain   string `gorm:"type:varchar(20)"`
	FuelType     string `gorm:"type:varchar(30)"`
	TrimLevel    string `gorm:"type:varchar(50)"`
	YearStart    int
	YearEnd      int `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DTCCode is a diagnostic trouble code, either generic (applies to
// every make) or manufacturer specific. JSON list fields hold arrays
// serialized as text so that partial records can be detected and
// completed later.
type DTCCode struct {
	ID                  int    `gorm:"primaryKey;autoIncrement:false"`
	UUID                string `gorm:"type:uuid;uniqueIndex"`
	Code                string `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_dtc_code_make"`
	MakeID              *int   `gorm:"uniqueIndex:idx_dtc_code_make"`
	Make                *Make  `gorm:"foreignKey:MakeID"`
	Description         string `gorm:"type:text"`
	DetailedDescription string `gorm:"type:text"`
	System              string `gorm:"type:varchar(50)"`
	Severity            string `gorm:"type:varchar(20)"`
	CommonCauses        string `gorm:"type:text;default:'[]'"`
	Symptoms            string `gorm:"type:text;default:'[]'"`
	Powertrain          string `gorm:"type:varchar(20);default:'All'"`
	ApplicableModels    string `gorm:"type:varchar(200);not null;default:''"`
	ApplicableYears     string `gorm:"type:varchar(50);not null;default:''"`
	Generic             bool
	Source              string `gorm:"type:varchar(200)"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UsageRecord is one priced provider call. The rows add up to the
// spend of a run and survive interrupts, unlike the in-memory
// summary.
type UsageRecord struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            string `gorm:"type:uuid;index;not null"`
	Category         string `gorm:"type:varchar(20);index;not null"`
	Subject          string `gorm:"type:varchar(200)"`
	Model            string `gorm:"type:varchar(100)"`
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	SearchCount      int
	CostUSD          float64
	Estimated        bool
	Failed           bool
	CreatedAt        time.Time
}

// AllModels lists every table in dependency order, parents first.
func AllModels() []any {
	return []any{
		&Make{},
		&Model{},
		&Generation{},
		&Variant{},
		&DTCCode{},
		&UsageRecord{},
	}
}

// Migrate creates or updates all tables on the given connection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
