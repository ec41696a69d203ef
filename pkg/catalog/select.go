package catalog

import (
	"fmt"
	"strings"
)

// Selection describes which manufacturers a run should cover.
type Selection struct {
	// Makes lists explicit manufacturer names. Takes precedence
	// over Country and All.
	Makes []string

	// Country restricts the run to one country of origin.
	Country string

	// All selects every manufacturer in the catalog.
	All bool
}

// Resolve expands a selection into an ordered list of manufacturer
// names. Explicit names are checked against the catalog and corrected
// to their canonical spelling, unknown names are rejected.
func (c *Catalog) Resolve(sel Selection) ([]string, error) {
	switch {
	case len(sel.Makes) > 0:
		res := make([]string, 0, len(sel.Makes))
		for _, name := range sel.Makes {
			canonical, ok := c.canonicalMake(name)
			if !ok {
				return nil, fmt.Errorf(
					"unknown manufacturer %q", name,
				)
			}
			res = append(res, canonical)
		}
		return res, nil
	case sel.Country != "":
		return c.MakesForCountry(sel.Country)
	case sel.All:
		return c.AllMakes(), nil
	default:
		return nil, fmt.Errorf(
			"no manufacturers selected, use explicit names, " +
				"a country, or the all flag",
		)
	}
}

func (c *Catalog) canonicalMake(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, makes := range c.MakesByCountry {
		for _, m := range makes {
			if strings.EqualFold(m, name) {
				return m, true
			}
		}
	}
	return "", false
}
