// Package ioexport writes a self-contained SQLite snapshot of the
// vehicle database, the artifact shipped to devices that read the
// data offline.
package ioexport

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/Aariz1001/carpulse-data/pkg/db"
)

// Report counts the rows the snapshot contains.
type Report struct {
	Makes       int
	Models      int
	Generations int
	Variants    int
	DTCCodes    int
}

// Exporter copies the relational data into an SQLite file.
type Exporter struct {
	op db.Operator
}

// New creates an Exporter on a connected database operator.
func New(op db.Operator) *Exporter {
	return &Exporter{op: op}
}

// Export writes the snapshot to path, replacing any existing file
// content. The whole snapshot is one transaction so a failed export
// never leaves a half-written file behind.
func (e *Exporter) Export(
	ctx context.Context, path string,
) (*Report, error) {
	out, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, CreateSnapshotError(path, err)
	}
	defer out.Close()

	if _, err = out.ExecContext(ctx, snapshotDDL); err != nil {
		return nil, CreateSnapshotError(path, err)
	}

	tx, err := out.BeginTx(ctx, nil)
	if err != nil {
		return nil, CreateSnapshotError(path, err)
	}
	defer tx.Rollback()

	rep := &Report{}
	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx) (int, error)
		dst  *int
	}{
		{"makes", e.copyMakes, &rep.Makes},
		{"models", e.copyModels, &rep.Models},
		{"generations", e.copyGenerations, &rep.Generations},
		{"variants", e.copyVariants, &rep.Variants},
		{"dtc_codes", e.copyDTCCodes, &rep.DTCCodes},
	}
	for _, step := range steps {
		n, err := step.fn(ctx, tx)
		if err != nil {
			return nil, WriteSnapshotError(step.name, err)
		}
		*step.dst = n
		slog.Info("table exported", "table", step.name, "rows", n)
	}

	if err = tx.Commit(); err != nil {
		return nil, WriteSnapshotError("commit", err)
	}
	return rep, nil
}

const snapshotDDL = `
DROP TABLE IF EXISTS dtc_codes;
DROP TABLE IF EXISTS variants;
DROP TABLE IF EXISTS generations;
DROP TABLE IF EXISTS models;
DROP TABLE IF EXISTS makes;

CREATE TABLE makes (
  id INTEGER PRIMARY KEY,
  uuid TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL UNIQUE,
  country TEXT,
  founded INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE models (
  id INTEGER PRIMARY KEY,
  uuid TEXT NOT NULL UNIQUE,
  make_id INTEGER NOT NULL REFERENCES makes(id),
  name TEXT NOT NULL,
  market TEXT NOT NULL DEFAULT 'Global',
  body TEXT,
  segment TEXT
);

CREATE TABLE generations (
  id INTEGER PRIMARY KEY,
  uuid TEXT NOT NULL UNIQUE,
  model_id INTEGER NOT NULL REFERENCES models(id),
  name TEXT NOT NULL,
  code TEXT,
  year_start INTEGER,
  year_end INTEGER,
  facelift INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE variants (
  id INTEGER PRIMARY KEY,
  uuid TEXT NOT NULL UNIQUE,
  generation_id INTEGER NOT NULL REFERENCES generations(id),
  name TEXT NOT NULL,
  market TEXT NOT NULL DEFAULT 'Global',
  engine_code TEXT,
  engine_type TEXT,
  displacement INTEGER,
  power_hp INTEGER,
  transmission TEXT,
  drivetrain TEXT,
  fuel_type TEXT,
  trim_level TEXT,
  year_start INTEGER,
  year_end INTEGER
);

CREATE TABLE dtc_codes (
  id INTEGER PRIMARY KEY,
  uuid TEXT NOT NULL UNIQUE,
  code TEXT NOT NULL,
  make_id INTEGER REFERENCES makes(id),
  description TEXT,
  detailed_description TEXT,
  system TEXT,
  severity TEXT,
  common_causes TEXT NOT NULL DEFAULT '[]',
  symptoms TEXT NOT NULL DEFAULT '[]',
  powertrain TEXT NOT NULL DEFAULT 'All',
  applicable_models TEXT,
  applicable_years TEXT,
  generic INTEGER NOT NULL DEFAULT 0,
  source TEXT
);

CREATE UNIQUE INDEX idx_models_make_name
  ON models(make_id, name, market);
CREATE UNIQUE INDEX idx_generations_model_name_year
  ON generations(model_id, name, year_start);
CREATE UNIQUE INDEX idx_variants_gen_name_market
  ON variants(generation_id, name, market);
CREATE UNIQUE INDEX idx_dtc_code_make ON dtc_codes(code, make_id);
CREATE INDEX idx_dtc_code ON dtc_codes(code);
`

func (e *Exporter) copyMakes(
	ctx context.Context, tx *sql.Tx,
) (int, error) {
	rows, err := e.op.Pool().Query(ctx,
		"SELECT id, uuid, name, country, founded FROM makes ORDER BY id")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id, founded int
		var uuid, name, country string
		err := rows.Scan(&id, &uuid, &name, &country, &founded)
		if err != nil {
			return n, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO makes (id, uuid, name, country, founded)
			 VALUES (?, ?, ?, ?, ?)`,
			id, uuid, name, country, founded)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func (e *Exporter) copyModels(
	ctx context.Context, tx *sql.Tx,
) (int, error) {
	rows, err := e.op.Pool().Query(ctx,
		`SELECT id, uuid, make_id, name, market, body, segment
		 FROM models ORDER BY id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id, makeID int
		var uuid, name, market, body, segment string
		err := rows.Scan(
			&id, &uuid, &makeID, &name, &market, &body, &segment)
		if err != nil {
			return n, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO models
			   (id, uuid, make_id, name, market, body, segment)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, uuid, makeID, name, market, body, segment)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func (e *Exporter) copyGenerations(
	ctx context.Context, tx *sql.Tx,
) (int, error) {
	rows, err := e.op.Pool().Query(ctx,
		`SELECT id, uuid, model_id, name, code, year_start, year_end,
		        facelift
		 FROM generations ORDER BY id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id, modelID, yearStart, yearEnd int
		var uuid, name, code string
		var facelift bool
		err := rows.Scan(&id, &uuid, &modelID, &name, &code,
			&yearStart, &yearEnd, &facelift)
		if err != nil {
			return n, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO generations
			   (id, uuid, model_id, name, code, year_start, year_end,
			    facelift)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, uuid, modelID, name, code, yearStart, yearEnd, facelift)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func (e *Exporter) copyVariants(
	ctx context.Context, tx *sql.Tx,
) (int, error) {
	rows, err := e.op.Pool().Query(ctx,
		`SELECT id, uuid, generation_id, name, market, engine_code,
		        engine_type, displacement, power_hp, transmission,
		        drivetrain, fuel_type, trim_level, year_start, year_end
		 FROM variants ORDER BY id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id, genID, displacement, powerHP, yearStart, yearEnd int
		var uuid, name, market, engineCode, engineType string
		var transmission, drivetrain, fuelType, trimLevel string
		err := rows.Scan(&id, &uuid, &genID, &name, &market,
			&engineCode, &engineType, &displacement, &powerHP,
			&transmission, &drivetrain, &fuelType, &trimLevel,
			&yearStart, &yearEnd)
		if err != nil {
			return n, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO variants
			   (id, uuid, generation_id, name, market, engine_code,
			    engine_type, displacement, power_hp, transmission,
			    drivetrain, fuel_type, trim_level, year_start,
			    year_end)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, uuid, genID, name, market, engineCode, engineType,
			displacement, powerHP, transmission, drivetrain,
			fuelType, trimLevel, yearStart, yearEnd)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func (e *Exporter) copyDTCCodes(
	ctx context.Context, tx *sql.Tx,
) (int, error) {
	rows, err := e.op.Pool().Query(ctx,
		`SELECT id, uuid, code, make_id, description,
		        detailed_description, system, severity, common_causes,
		        symptoms, powertrain, applicable_models,
		        applicable_years, generic, source
		 FROM dtc_codes ORDER BY id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id int
		var makeID *int
		var uuid, code, description, detailed string
		var system, severity, causes, symptoms, powertrain string
		var applicableModels, applicableYears, source string
		var generic bool
		err := rows.Scan(&id, &uuid, &code, &makeID, &description,
			&detailed, &system, &severity, &causes, &symptoms,
			&powertrain, &applicableModels, &applicableYears,
			&generic, &source)
		if err != nil {
			return n, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dtc_codes
			   (id, uuid, code, make_id, description,
			    detailed_description, system, severity, common_causes,
			    symptoms, powertrain, applicable_models,
			    applicable_years, generic, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, uuid, code, makeID, description, detailed, system,
			severity, causes, symptoms, powertrain,
			applicableModels, applicableYears, generic, source)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}
