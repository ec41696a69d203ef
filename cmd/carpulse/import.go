/*
Copyright © 2025 CarPulse Data Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Aariz1001/carpulse-data/internal/iodb"
	"github.com/Aariz1001/carpulse-data/internal/ioimport"
	"github.com/Aariz1001/carpulse-data/internal/iostore"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import scraped trouble-code candidates from CSV",
		Long: `Import diagnostic trouble codes collected by the web scraper.
The CSV needs at least the code and description columns; source_url
and manufacturer are optional. Codes that fail the OBD2 pattern are
rejected, the rest get their system, severity and powertrain
classified from description keywords. Known codes are only gap
filled, never overwritten.

Example:
  carpulse import scraped_codes.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runImport(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	return cmd
}

func runImport(path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	op := iodb.New(cfg.Database)
	if err := op.Connect(ctx); err != nil {
		return err
	}
	defer op.Close()

	store := iostore.New(op)
	imp := ioimport.New(store)

	rep, err := imp.ImportFile(ctx, path)
	if err != nil {
		return err
	}

	gn.Info(
		"Rows: <em>%d</em> read, <em>%d</em> imported, "+
			"<em>%d</em> gap-filled, <em>%d</em> duplicates, "+
			"<em>%d</em> invalid, <em>%d</em> unknown makes",
		rep.Rows, rep.Imported, rep.GapsFilled,
		rep.Skipped, rep.Invalid, rep.UnknownMake,
	)
	return nil
}
