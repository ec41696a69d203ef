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
	"github.com/Aariz1001/carpulse-data/internal/ioexport"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a single-file SQLite snapshot",
		Long: `Export all vehicle and trouble-code tables into one SQLite file
for downstream packaging. The database itself is only read.

Examples:
  carpulse export
  carpulse export --output /tmp/carpulse.sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runExport(output)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "carpulse.sqlite",
		"path of the SQLite snapshot file")

	return cmd
}

func runExport(path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	op := iodb.New(cfg.Database)
	if err := op.Connect(ctx); err != nil {
		return err
	}
	defer op.Close()

	exp := ioexport.New(op)
	rep, err := exp.Export(ctx, path)
	if err != nil {
		return err
	}

	gn.Info(
		"Snapshot <em>%s</em>: <em>%d</em> makes, <em>%d</em> models, "+
			"<em>%d</em> generations, <em>%d</em> variants, "+
			"<em>%d</em> trouble codes",
		path, rep.Makes, rep.Models, rep.Generations,
		rep.Variants, rep.DTCCodes,
	)
	return nil
}
