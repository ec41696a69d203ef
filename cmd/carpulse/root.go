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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Aariz1001/carpulse-data/internal/iofs"
	"github.com/Aariz1001/carpulse-data/internal/iologger"
	app "github.com/Aariz1001/carpulse-data/pkg"
	"github.com/Aariz1001/carpulse-data/pkg/config"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "carpulse",
		Short:   "CarPulse builds a vehicle and trouble-code database",
		Long: `CarPulse manages the lifecycle of a vehicle reference database:
makes, models, generations, engine variants and diagnostic trouble
codes (DTCs). The data itself is produced by a large language model
reached through the OpenRouter API, one JSON batch at a time, with
every request rate limited and its dollar cost tracked.

The tool provides five main phases:
  - create:   create or migrate the PostgreSQL schema
  - generate: build the vehicle hierarchy and trouble codes
  - gaps:     complete trouble-code records with missing fields
  - import:   load scraped trouble-code candidates from CSV
  - export:   write a single-file SQLite snapshot

Configuration lives in ~/.config/carpulse/config.yaml and can be
overridden with CARPULSE_* environment variables, for example
CARPULSE_DATABASE_HOST. The OpenRouter key is read from the
OPENROUTER_API_KEY environment variable only.`,
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "carpulse version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.Flags().BoolP("version", "V", false, "version for carpulse")

	rootCmd.AddCommand(getCreateCmd())
	rootCmd.AddCommand(getGenerateCmd())
	rootCmd.AddCommand(getGapsCmd())
	rootCmd.AddCommand(getImportCmd())
	rootCmd.AddCommand(getExportCmd())
	rootCmd.AddCommand(getVersionCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults.
	// Will be reconfigured later with user's config settings.
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureCatalogFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info(
		"Configuration files are available at <em>%s</em>",
		config.ConfigDir(homeDir),
	)

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// The API key never touches config.yaml.
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.Update([]config.Option{config.OptProviderAPIKey(key)})
	}

	// Reconfigure logging with user's settings now that HomeDir is known
	if err = reconfigureLogging(cfg); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir))

	return nil
}

// reconfigureLogging reinitializes the logger with the loaded
// configuration, preserving the lines written during bootstrap.
func reconfigureLogging(cfg *config.Config) error {
	logDir := config.LogDir(cfg.HomeDir)
	return iologger.Init(logDir, cfg.Log, true)
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables
	// are allowed. These match the fields covered by
	// config.ToOptions(), which is the persistent configuration that
	// can live in config.yaml. OPENROUTER_API_KEY is handled
	// separately in bootstrap.
	v.SetEnvPrefix("CARPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.database", "DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	// Provider configuration
	v.BindEnv("provider.model", "PROVIDER_MODEL")
	v.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	v.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")

	// Rate limiter configuration
	v.BindEnv("limiter.calls_per_second", "LIMITER_CALLS_PER_SECOND")
	v.BindEnv("limiter.backoff_base", "LIMITER_BACKOFF_BASE")
	v.BindEnv("limiter.backoff_max", "LIMITER_BACKOFF_MAX")
	v.BindEnv("limiter.max_attempts", "LIMITER_MAX_ATTEMPTS")

	// Generation configuration
	v.BindEnv("generate.market", "GENERATE_MARKET")

	// Log configuration
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("log.destination", "LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "JOBS_NUMBER")

	v.AutomaticEnv()
}
