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
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/Aariz1001/carpulse-data/internal/iodb"
	"github.com/Aariz1001/carpulse-data/internal/iogaps"
	"github.com/Aariz1001/carpulse-data/internal/iogenerate"
	"github.com/Aariz1001/carpulse-data/internal/ioprovider"
	"github.com/Aariz1001/carpulse-data/internal/iostore"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/costs"
	"github.com/Aariz1001/carpulse-data/pkg/limiter"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getGapsCmd() *cobra.Command {
	var (
		makes   []string
		country string
		jobs    int
	)

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Complete trouble-code records with missing fields",
		Long: `Scan stored diagnostic trouble codes for missing fields such as
symptoms, causes or the detailed description, and ask the provider
to fill them in. Fields that already have a value are never
overwritten. Manufacturers are processed concurrently, bounded by
--jobs.

Examples:
  carpulse gaps
  carpulse gaps --makes Toyota --jobs 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runGaps(makes, country, jobs)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&makes, "makes", "k", nil,
		"comma-separated manufacturer names to scan")
	cmd.Flags().StringVarP(&country, "country", "c", "",
		"scan all manufacturers of a catalog country")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0,
		"number of manufacturers processed in parallel")

	return cmd
}

func runGaps(makes []string, country string, jobs int) error {
	if cfg.Provider.APIKey == "" {
		return ioprovider.MissingAPIKeyError()
	}

	runtimeOpts := []config.Option{
		config.OptGenerateMakes(makes),
		config.OptGenerateCountry(country),
	}
	if jobs > 0 {
		runtimeOpts = append(runtimeOpts, config.OptJobsNumber(jobs))
	}
	cfg.Update(runtimeOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	op := iodb.New(cfg.Database)
	if err = op.Connect(ctx); err != nil {
		return err
	}
	defer op.Close()

	store := iostore.New(op)
	gen := ioprovider.New(cfg.Provider)
	lim := limiter.New(limiterPolicy())
	tracker := costs.NewTracker(cfg.Provider.Model)

	filler := iogaps.New(cfg, cat, store, gen, lim, tracker)

	rep, fillErr := filler.Fill(ctx)

	fmt.Println(tracker.Summary().Report())

	if rep != nil {
		gn.Info(
			"Trouble codes: <em>%d</em> scanned, <em>%d</em> incomplete, "+
				"<em>%d</em> enriched, <em>%d</em> failed",
			rep.Scanned, rep.Incomplete, rep.Enriched, rep.Failed,
		)
		names := make([]string, 0, len(rep.CoverageGaps))
		for name := range rep.CoverageGaps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			gn.Warn(
				"<em>%s</em> has no codes for powertrains: <em>%s</em>",
				name, strings.Join(rep.CoverageGaps[name], ", "),
			)
		}
	}

	switch {
	case fillErr != nil:
		return fillErr
	case rep.Interrupted:
		return iogenerate.InterruptedError()
	}

	return nil
}
