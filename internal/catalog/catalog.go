// Package catalog loads the auction baseline, the players and teams the
// auction starts from and returns to on reset, from a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jensholdgaard/franchise-auction/internal/ledger"
)

// Load reads and validates a catalog file. A team without a remaining
// budget starts with its full initial budget.
func Load(path string, rules ledger.Rules) (ledger.Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return ledger.Catalog{}, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data, rules)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte, rules ledger.Rules) (ledger.Catalog, error) {
	var cat ledger.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return ledger.Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	for i := range cat.Bidders {
		if cat.Bidders[i].RemainingBudget == 0 {
			cat.Bidders[i].RemainingBudget = cat.Bidders[i].InitialBudget
		}
	}
	if err := Validate(cat, rules); err != nil {
		return ledger.Catalog{}, fmt.Errorf("validating catalog: %w", err)
	}
	return cat, nil
}

// Validate checks that cat is a usable starting point: unique ids, known
// categories, prices and purses above the minimums, no sales and full
// purses. Every problem found is reported.
func Validate(cat ledger.Catalog, rules ledger.Rules) error {
	var errs []error

	lotIDs := make(map[string]bool, len(cat.Lots))
	for i, l := range cat.Lots {
		where := fmt.Sprintf("lots[%d]", i)
		switch {
		case l.ID == "":
			errs = append(errs, fmt.Errorf("%s: id is required", where))
		case lotIDs[l.ID]:
			errs = append(errs, fmt.Errorf("%s: duplicate id %q", where, l.ID))
		}
		lotIDs[l.ID] = true
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		}
		if l.FloorPrice < max(rules.MinFloorPrice, 1) {
			errs = append(errs, fmt.Errorf("%s: base price %d is below %d", where, l.FloorPrice, max(rules.MinFloorPrice, 1)))
		}
		if !l.Category.Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown category %q", where, l.Category))
		}
		if l.Sold || l.SoldTo != "" || l.SoldAmount != 0 {
			errs = append(errs, fmt.Errorf("%s: a baseline player cannot be sold", where))
		}
	}

	bidderIDs := make(map[string]bool, len(cat.Bidders))
	for i, b := range cat.Bidders {
		where := fmt.Sprintf("bidders[%d]", i)
		switch {
		case b.ID == "":
			errs = append(errs, fmt.Errorf("%s: id is required", where))
		case bidderIDs[b.ID]:
			errs = append(errs, fmt.Errorf("%s: duplicate id %q", where, b.ID))
		}
		bidderIDs[b.ID] = true
		if strings.TrimSpace(b.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		}
		if b.InitialBudget < max(rules.MinBudget, 1) {
			errs = append(errs, fmt.Errorf("%s: initial purse %d is below %d", where, b.InitialBudget, max(rules.MinBudget, 1)))
		}
		if b.RemainingBudget != b.InitialBudget {
			errs = append(errs, fmt.Errorf("%s: remaining budget %d differs from initial %d", where, b.RemainingBudget, b.InitialBudget))
		}
		if len(b.Roster) > 0 {
			errs = append(errs, fmt.Errorf("%s: a baseline team cannot own players", where))
		}
	}

	return errors.Join(errs...)
}
