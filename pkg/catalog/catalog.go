// Package catalog provides configuration and validation for the
// vehicle catalog.
//
// The catalog.yaml file lists the manufacturers known to the
// pipeline, grouped by country, the powertrain types each make sells,
// and known web sources for scraped trouble code pages. A default
// catalog ships embedded with the binary and a user copy in the
// config directory can extend or replace it.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog represents the complete catalog.yaml configuration file.
type Catalog struct {
	// MakesByCountry groups manufacturer names under their country
	// of origin.
	MakesByCountry map[string][]string `yaml:"makes_by_country"`

	// Powertrains lists the powertrain types each make commonly
	// offers. Makes missing from the map fall back to
	// DefaultPowertrains.
	Powertrains map[string][]string `yaml:"powertrains"`

	// DefaultPowertrains applies to makes without an explicit
	// powertrain profile.
	DefaultPowertrains []string `yaml:"default_powertrains"`

	// ScrapeSources maps lower-cased make names to known web pages
	// carrying trouble code tables.
	ScrapeSources map[string][]string `yaml:"scrape_sources"`
}

// Parse reads a catalog from YAML bytes and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cannot parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog for structural errors and applies
// defaults.
func (c *Catalog) Validate() error {
	if len(c.MakesByCountry) == 0 {
		return fmt.Errorf("no manufacturers specified in catalog")
	}
	for country, makes := range c.MakesByCountry {
		if len(makes) == 0 {
			return fmt.Errorf("country %q lists no manufacturers", country)
		}
	}
	if len(c.DefaultPowertrains) == 0 {
		c.DefaultPowertrains = []string{"Gasoline"}
	}
	return nil
}

// Countries returns the known countries in alphabetical order.
func (c *Catalog) Countries() []string {
	res := make([]string, 0, len(c.MakesByCountry))
	for country := range c.MakesByCountry {
		res = append(res, country)
	}
	sort.Strings(res)
	return res
}

// AllMakes returns every manufacturer, ordered by country name and
// then by the order makes appear within the country. The order is
// stable so repeated runs process makes in the same sequence.
func (c *Catalog) AllMakes() []string {
	var res []string
	for _, country := range c.Countries() {
		res = append(res, c.MakesByCountry[country]...)
	}
	return res
}

// MakesForCountry returns the manufacturers of one country. Country
// matching ignores case.
func (c *Catalog) MakesForCountry(country string) ([]string, error) {
	for name, makes := range c.MakesByCountry {
		if strings.EqualFold(name, country) {
			return makes, nil
		}
	}
	return nil, fmt.Errorf(
		"unknown country %q, available: %s",
		country, strings.Join(c.Countries(), ", "),
	)
}

// CountryOfMake returns the country a make belongs to, or an empty
// string when the make is not in the catalog.
func (c *Catalog) CountryOfMake(makeName string) string {
	for country, makes := range c.MakesByCountry {
		for _, m := range makes {
			if strings.EqualFold(m, makeName) {
				return country
			}
		}
	}
	return ""
}

// PowertrainsForMake returns the powertrain profile of a make,
// falling back to the default profile for unknown makes.
func (c *Catalog) PowertrainsForMake(makeName string) []string {
	for name, pts := range c.Powertrains {
		if strings.EqualFold(name, makeName) {
			return pts
		}
	}
	return c.DefaultPowertrains
}

// SourcesForMake returns the known scrape URLs for a make.
func (c *Catalog) SourcesForMake(makeName string) []string {
	return c.ScrapeSources[strings.ToLower(strings.TrimSpace(makeName))]
}
