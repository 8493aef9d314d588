// Package ledger holds the auction catalog: lots on offer and the bidders
// that buy them. Financial and ownership fields change only through the
// Store's methods, which enforce the catalog invariants.
package ledger

import (
	"maps"
	"slices"
)

// Category is the closed set of lot categories.
type Category string

const (
	Batsman      Category = "batsman"
	Bowler       Category = "bowler"
	AllRounder   Category = "all-rounder"
	WicketKeeper Category = "wicket-keeper"
	Captain      Category = "captain"
)

// Categories lists every valid Category.
var Categories = []Category{Batsman, Bowler, AllRounder, WicketKeeper, Captain}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Lot is a player offered in the auction.
//
// A sold lot always carries SoldTo and a SoldAmount of at least FloorPrice.
// SoldTo == "" and SoldAmount == 0 mean absent.
type Lot struct {
	ID         string             `yaml:"id" json:"id"`
	Name       string             `yaml:"name" json:"name"`
	FloorPrice int                `yaml:"floor_price" json:"floor_price"`
	Category   Category           `yaml:"category" json:"category"`
	ImageURL   string             `yaml:"image_url,omitempty" json:"image_url,omitempty"`
	Skills     []string           `yaml:"skills,omitempty" json:"skills,omitempty"`
	Stats      map[string]float64 `yaml:"stats,omitempty" json:"stats,omitempty"`

	Sold       bool   `yaml:"sold" json:"sold"`
	SoldTo     string `yaml:"sold_to,omitempty" json:"sold_to,omitempty"`
	SoldAmount int    `yaml:"sold_amount,omitempty" json:"sold_amount,omitempty"`
}

// Clone returns a deep copy of l.
func (l Lot) Clone() Lot {
	l.Skills = slices.Clone(l.Skills)
	l.Stats = maps.Clone(l.Stats)
	return l
}

// Bidder is a team with a budget and the lots it has won.
type Bidder struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	LogoURL         string `yaml:"logo_url,omitempty" json:"logo_url,omitempty"`
	Color           string `yaml:"color,omitempty" json:"color,omitempty"`
	InitialBudget   int    `yaml:"initial_budget" json:"initial_budget"`
	RemainingBudget int    `yaml:"remaining_budget" json:"remaining_budget"`
	Roster          []Lot  `yaml:"roster,omitempty" json:"roster"`
}

// Clone returns a deep copy of b.
func (b Bidder) Clone() Bidder {
	roster := make([]Lot, len(b.Roster))
	for i, l := range b.Roster {
		roster[i] = l.Clone()
	}
	b.Roster = roster
	return b
}

// Spent is the part of the initial budget already paid out.
func (b Bidder) Spent() int {
	return b.InitialBudget - b.RemainingBudget
}

// Catalog is a full set of lots and bidders, used as the reset baseline.
type Catalog struct {
	Lots    []Lot    `yaml:"lots" json:"lots"`
	Bidders []Bidder `yaml:"bidders" json:"bidders"`
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	out := Catalog{
		Lots:    make([]Lot, len(c.Lots)),
		Bidders: make([]Bidder, len(c.Bidders)),
	}
	for i, l := range c.Lots {
		out.Lots[i] = l.Clone()
	}
	for i, b := range c.Bidders {
		out.Bidders[i] = b.Clone()
	}
	return out
}

// Rules are the creation thresholds for catalog entries.
type Rules struct {
	MinFloorPrice int
	MinBudget     int
}

// DefaultRules are the minimums enforced on new players and teams.
func DefaultRules() Rules {
	return Rules{MinFloorPrice: 500, MinBudget: 10000}
}

// Pin is the part of the auction cursor the Store guards against: the lot
// on the block and its current top bidder.
type Pin struct {
	LotID      string
	BidderID   string
	InProgress bool
}

func (p Pin) holdsLot(id string) bool    { return p.InProgress && p.LotID == id }
func (p Pin) holdsBidder(id string) bool { return p.InProgress && p.BidderID != "" && p.BidderID == id }
