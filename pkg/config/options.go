package config

import (
	"strings"
	"time"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the PostgreSQL database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database User", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the PostgreSQL database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptDatabaseSSLMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Database.SSLMode", s) {
			c.Database.SSLMode = s
		}
	}
}

// OptProviderModel sets the OpenRouter model identifier.
func OptProviderModel(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Provider Model", s) {
			c.Provider.Model = s
		}
	}
}

// OptProviderBaseURL sets the OpenRouter API root.
func OptProviderBaseURL(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/")
	return func(c *Config) {
		if isValidString("Provider BaseURL", s) {
			c.Provider.BaseURL = s
		}
	}
}

// OptProviderAPIKey sets the provider API key.
// Runtime-only field - not in ToOptions().
func OptProviderAPIKey(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		// The key may legitimately be absent; the fatal check
		// happens just before the first provider call.
		if s != "" {
			c.Provider.APIKey = s
		}
	}
}

// OptProviderTimeout sets the transport-level timeout of a single
// completion call.
func OptProviderTimeout(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Provider Timeout", d) {
			c.Provider.Timeout = d
		}
	}
}

// OptLimiterCallsPerSecond sets the sustained outgoing call rate.
func OptLimiterCallsPerSecond(f float64) Option {
	return func(c *Config) {
		if f > 0 {
			c.Limiter.CallsPerSecond = f
		}
	}
}

// OptLimiterBackoffBase sets the first throttle penalty delay.
func OptLimiterBackoffBase(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Limiter BackoffBase", d) {
			c.Limiter.BackoffBase = d
		}
	}
}

// OptLimiterBackoffMax caps the doubled throttle penalty delay.
func OptLimiterBackoffMax(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Limiter BackoffMax", d) {
			c.Limiter.BackoffMax = d
		}
	}
}

// OptLimiterMaxAttempts bounds consecutive penalties and retries.
func OptLimiterMaxAttempts(i int) Option {
	return func(c *Config) {
		if isValidInt("Limiter MaxAttempts", i) {
			c.Limiter.MaxAttempts = i
		}
	}
}

// OptGenerateMakes sets the explicit manufacturer selection.
// Runtime-only field - not in ToOptions().
func OptGenerateMakes(ss []string) Option {
	return func(c *Config) {
		if len(ss) > 0 {
			c.Generate.Makes = ss
		}
	}
}

// OptGenerateCountry selects all catalog manufacturers of a country.
// Runtime-only field - not in ToOptions().
func OptGenerateCountry(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if s != "" {
			c.Generate.Country = s
		}
	}
}

// OptGenerateAll selects the full catalog.
// Runtime-only field - not in ToOptions().
func OptGenerateAll(b bool) Option {
	return func(c *Config) {
		c.Generate.All = b
	}
}

// OptGenerateMarket sets the target market.
// Valid values: Global, US, EU, Asia, UK, Australia.
func OptGenerateMarket(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidEnum("Generate.Market", s) {
			c.Generate.Market = s
		}
	}
}

// OptGenerateFetchDTC appends a DTC pass per make.
// Runtime-only field - not in ToOptions().
func OptGenerateFetchDTC(b bool) Option {
	return func(c *Config) {
		c.Generate.FetchDTC = b
	}
}

// OptGenerateDTCOnly skips the vehicle hierarchy.
// Runtime-only field - not in ToOptions().
func OptGenerateDTCOnly(b bool) Option {
	return func(c *Config) {
		c.Generate.DTCOnly = b
	}
}

// OptGenerateExpand adds more DTC codes to covered makes.
// Runtime-only field - not in ToOptions().
func OptGenerateExpand(b bool) Option {
	return func(c *Config) {
		c.Generate.Expand = b
	}
}

// OptGenerateForce disables the skip checks for existing branches.
// Runtime-only field - not in ToOptions().
func OptGenerateForce(b bool) Option {
	return func(c *Config) {
		c.Generate.Force = b
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers for
// bounded-parallel gap enrichment. Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log
// locations. Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
