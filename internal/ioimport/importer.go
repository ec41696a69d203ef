// Package ioimport loads scraped trouble code CSV files into the
// store. Scraped rows carry only a code and description, so system,
// severity and powertrain are classified heuristically and the
// detailed fields stay open for the enrichment pass.
package ioimport

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
)

// Report sums up one import.
type Report struct {
	Rows        int
	Imported    int
	GapsFilled  int
	Skipped     int
	Invalid     int
	UnknownMake int
}

// Importer reads scraped CSV files into the store.
type Importer struct {
	store lifecycle.Store
}

// New creates an Importer on a loaded store.
func New(store lifecycle.Store) *Importer {
	return &Importer{store: store}
}

// ImportFile imports one CSV file.
func (im *Importer) ImportFile(
	ctx context.Context, path string,
) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, OpenFileError(path, err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads CSV rows with a header line. Recognized columns are
// code, description, source_url, manufacturer and scraped_at; the
// column order does not matter and unknown columns are ignored.
func (im *Importer) Import(
	ctx context.Context, r io.Reader,
) (*Report, error) {
	if err := im.store.Load(ctx); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, ReadCSVError(err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	for {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}

		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, ReadCSVError(err)
		}
		rep.Rows++

		im.importRow(ctx, cols, row, rep)
	}

	slog.Info("import finished",
		"rows", rep.Rows, "imported", rep.Imported,
		"skipped", rep.Skipped, "invalid", rep.Invalid,
		"unknown_make", rep.UnknownMake)
	return rep, nil
}

type columns struct {
	code, description, sourceURL, manufacturer int
}

func columnIndex(header []string) (columns, error) {
	cols := columns{code: -1, description: -1,
		sourceURL: -1, manufacturer: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "code":
			cols.code = i
		case "description":
			cols.description = i
		case "source_url":
			cols.sourceURL = i
		case "manufacturer":
			cols.manufacturer = i
		}
	}
	if cols.code < 0 || cols.description < 0 {
		return cols, MissingColumnsError()
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (im *Importer) importRow(
	ctx context.Context, cols columns, row []string, rep *Report,
) {
	code := schema.NormalizeCode(field(row, cols.code))
	description := field(row, cols.description)

	if !schema.ValidDTCCode(code) || description == "" {
		rep.Invalid++
		return
	}

	makeID, ok := im.resolveMake(field(row, cols.manufacturer))
	if !ok {
		rep.UnknownMake++
		return
	}

	d := &schema.DTCCode{
		Code:        code,
		MakeID:      makeID,
		Description: description,
		System:      detectSystem(code, description),
		Severity:    detectSeverity(description),
		Powertrain:  detectPowertrain(description),
		Source:      field(row, cols.sourceURL),
	}

	out, err := im.store.UpsertDTC(ctx, d)
	if err != nil {
		slog.Warn("row rejected", "code", code, "error", err)
		rep.Invalid++
		return
	}
	switch out.Action {
	case lifecycle.ActionInserted:
		rep.Imported++
	case lifecycle.ActionGapFilled:
		rep.GapsFilled++
	default:
		rep.Skipped++
	}
}

// resolveMake maps the CSV's manufacturer value to a stored make.
// "generic" and an empty value address the generic pool; a named
// make that is not in the database fails the row instead of guessing.
func (im *Importer) resolveMake(manufacturer string) (*int, bool) {
	if manufacturer == "" ||
		strings.EqualFold(manufacturer, "generic") {
		return nil, true
	}
	mk, ok := im.store.MakeByName(schema.NormalizeName(manufacturer))
	if !ok {
		return nil, false
	}
	id := mk.ID
	return &id, true
}
