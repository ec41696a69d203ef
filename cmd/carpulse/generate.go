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

	"github.com/Aariz1001/carpulse-data/internal/iodb"
	"github.com/Aariz1001/carpulse-data/internal/iofs"
	"github.com/Aariz1001/carpulse-data/internal/iogenerate"
	"github.com/Aariz1001/carpulse-data/internal/ioprovider"
	"github.com/Aariz1001/carpulse-data/internal/iostore"
	"github.com/Aariz1001/carpulse-data/pkg/catalog"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/Aariz1001/carpulse-data/pkg/costs"
	"github.com/Aariz1001/carpulse-data/pkg/limiter"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getGenerateCmd() *cobra.Command {
	var (
		makes   []string
		country string
		all     bool
		market  string
		dtc     bool
		dtcOnly bool
		expand  bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate vehicle data with an LLM",
		Long: `Generate the vehicle hierarchy: makes, models, generations and
engine variants, and optionally diagnostic trouble codes. The data
comes from an LLM via the OpenRouter API, validated and repaired
before anything is stored. Existing records are kept as they are
unless --force is given, so interrupted runs pick up where they
stopped.

A Ctrl-C finishes the call in flight, saves the usage records and
exits; nothing already stored is lost.

Examples:
  carpulse generate --makes Toyota,Honda --dtc
  carpulse generate --country Germany --market EU
  carpulse generate --all --dtc-only --expand`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runGenerate(makes, country, all, market,
				dtc, dtcOnly, expand, force)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&makes, "makes", "k", nil,
		"comma-separated manufacturer names to process")
	cmd.Flags().StringVarP(&country, "country", "c", "",
		"process all manufacturers of a catalog country")
	cmd.Flags().BoolVarP(&all, "all", "a", false,
		"process every manufacturer in the catalog")
	cmd.Flags().StringVarP(&market, "market", "m", "",
		"market scope for model queries: Global, US, EU, Asia, UK, Australia")
	cmd.Flags().BoolVarP(&dtc, "dtc", "d", false,
		"also fetch diagnostic trouble codes")
	cmd.Flags().BoolVar(&dtcOnly, "dtc-only", false,
		"skip the vehicle hierarchy, fetch trouble codes only")
	cmd.Flags().BoolVarP(&expand, "expand", "e", false,
		"fetch trouble codes even for makes that already have some")
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"regenerate records that already exist")

	return cmd
}

func runGenerate(
	makes []string, country string, all bool, market string,
	dtc, dtcOnly, expand, force bool,
) error {
	if len(makes) == 0 && country == "" && !all {
		return iogenerate.SelectionError()
	}
	if cfg.Provider.APIKey == "" {
		return ioprovider.MissingAPIKeyError()
	}

	runtimeOpts := []config.Option{
		config.OptGenerateMakes(makes),
		config.OptGenerateCountry(country),
		config.OptGenerateAll(all),
		config.OptGenerateFetchDTC(dtc || dtcOnly),
		config.OptGenerateDTCOnly(dtcOnly),
		config.OptGenerateExpand(expand),
		config.OptGenerateForce(force),
	}
	if market != "" {
		runtimeOpts = append(runtimeOpts, config.OptGenerateMarket(market))
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

	store := iostore.New(op, iostore.OptForce(cfg.Generate.Force))
	gen := ioprovider.New(cfg.Provider)
	lim := limiter.New(limiterPolicy())
	tracker := costs.NewTracker(cfg.Provider.Model)

	builder := iogenerate.New(cfg, cat, store, gen, lim, tracker)

	gn.Info("Generating with model <em>%s</em>", cfg.Provider.Model)

	res, buildErr := builder.Build(ctx)

	fmt.Println(tracker.Summary().Report())

	if res != nil {
		gn.Info(
			"Manufacturers: <em>%d</em> processed, <em>%d</em> failed. "+
				"Records: <em>%d</em> inserted, <em>%d</em> skipped, "+
				"<em>%d</em> gap-filled",
			res.MakesProcessed, res.MakesFailed,
			res.Inserted, res.Skipped, res.GapsFilled,
		)
	}

	switch {
	case buildErr != nil:
		return buildErr
	case res.Interrupted:
		return iogenerate.InterruptedError()
	case res.MakesProcessed == 0 && res.MakesFailed > 0:
		return iogenerate.AllMakesFailedError(res.MakesFailed)
	}

	return nil
}

// loadCatalog reads the manufacturer catalog, preferring the user's
// copy under the config directory.
func loadCatalog() (*catalog.Catalog, error) {
	data, err := iofs.ReadCatalog(homeDir)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Parse(data)
	if err != nil {
		return nil, iogenerate.CatalogError(err)
	}
	return cat, nil
}

func limiterPolicy() limiter.Policy {
	return limiter.Policy{
		CallsPerSecond: cfg.Limiter.CallsPerSecond,
		BackoffBase:    cfg.Limiter.BackoffBase,
		BackoffMax:     cfg.Limiter.BackoffMax,
		MaxAttempts:    cfg.Limiter.MaxAttempts,
	}
}
