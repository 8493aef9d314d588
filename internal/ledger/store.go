package ledger

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jensholdgaard/franchise-auction/internal/reject"
)

// Store owns the mutable catalog. It is not safe for concurrent use; the
// auction engine serialises access.
type Store struct {
	rules    Rules
	baseline Catalog
	lots     []Lot
	bidders  []Bidder
}

// NewStore returns a Store seeded with a copy of baseline.
func NewStore(baseline Catalog, rules Rules) *Store {
	s := &Store{rules: rules, baseline: baseline.Clone()}
	s.Restore()
	return s
}

// Restore replaces the catalog with the baseline.
func (s *Store) Restore() {
	c := s.baseline.Clone()
	s.lots = c.Lots
	s.bidders = c.Bidders
}

// Rules returns the creation thresholds.
func (s *Store) Rules() Rules { return s.rules }

// Lot returns a copy of the lot with the given id.
func (s *Store) Lot(id string) (Lot, bool) {
	i := s.lotIndex(id)
	if i < 0 {
		return Lot{}, false
	}
	return s.lots[i].Clone(), true
}

// Bidder returns a copy of the bidder with the given id.
func (s *Store) Bidder(id string) (Bidder, bool) {
	i := s.bidderIndex(id)
	if i < 0 {
		return Bidder{}, false
	}
	return s.bidders[i].Clone(), true
}

// Lots returns copies of all lots in catalog order.
func (s *Store) Lots() []Lot {
	out := make([]Lot, len(s.lots))
	for i, l := range s.lots {
		out[i] = l.Clone()
	}
	return out
}

// Bidders returns copies of all bidders in catalog order.
func (s *Store) Bidders() []Bidder {
	out := make([]Bidder, len(s.bidders))
	for i, b := range s.bidders {
		out[i] = b.Clone()
	}
	return out
}

// LotName resolves a lot's display name.
func (s *Store) LotName(id string) (string, bool) {
	if i := s.lotIndex(id); i >= 0 {
		return s.lots[i].Name, true
	}
	return "", false
}

// BidderName resolves a bidder's display name.
func (s *Store) BidderName(id string) (string, bool) {
	if i := s.bidderIndex(id); i >= 0 {
		return s.bidders[i].Name, true
	}
	return "", false
}

// AddLot adds a new unsold lot. An empty ID is replaced by a fresh uuid.
func (s *Store) AddLot(l Lot) (Lot, error) {
	if err := s.validateLot(l); err != nil {
		return Lot{}, err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if s.lotIndex(l.ID) >= 0 {
		return Lot{}, reject.Newf(reject.ConstraintViolation, "lot %q already exists", l.ID)
	}
	l = l.Clone()
	l.Sold, l.SoldTo, l.SoldAmount = false, "", 0
	s.lots = append(s.lots, l)
	return l.Clone(), nil
}

// UpdateLot replaces a lot's descriptive fields. Sale fields are kept, and a
// sold lot's copy in its owner's roster is refreshed too.
func (s *Store) UpdateLot(l Lot, pin Pin) (Lot, error) {
	i := s.lotIndex(l.ID)
	if i < 0 {
		return Lot{}, reject.Newf(reject.NotFound, "lot %q not found", l.ID)
	}
	if pin.holdsLot(l.ID) {
		return Lot{}, reject.New(reject.ConstraintViolation, "cannot update a player during an active auction")
	}
	if err := s.validateLot(l); err != nil {
		return Lot{}, err
	}
	cur := s.lots[i]
	if cur.Sold && l.FloorPrice > cur.SoldAmount {
		return Lot{}, reject.Newf(reject.ConstraintViolation,
			"floor price %d exceeds the sold amount %d", l.FloorPrice, cur.SoldAmount)
	}

	l = l.Clone()
	l.Sold, l.SoldTo, l.SoldAmount = cur.Sold, cur.SoldTo, cur.SoldAmount
	s.lots[i] = l

	if l.Sold {
		if b := s.bidderIndex(l.SoldTo); b >= 0 {
			for r := range s.bidders[b].Roster {
				if s.bidders[b].Roster[r].ID == l.ID {
					s.bidders[b].Roster[r] = l.Clone()
				}
			}
		}
	}
	return l.Clone(), nil
}

// DeleteLot removes an unsold lot that is not on the block.
func (s *Store) DeleteLot(id string, pin Pin) error {
	i := s.lotIndex(id)
	if i < 0 {
		return reject.Newf(reject.NotFound, "lot %q not found", id)
	}
	if pin.holdsLot(id) {
		return reject.New(reject.ConstraintViolation, "cannot delete a player during an active auction")
	}
	if s.lots[i].Sold {
		return reject.New(reject.ConstraintViolation, "cannot delete a player who has been sold")
	}
	s.lots = slices.Delete(s.lots, i, i+1)
	return nil
}

// AddBidder adds a bidder with a full budget and an empty roster.
func (s *Store) AddBidder(b Bidder) (Bidder, error) {
	if err := s.validateBidder(b); err != nil {
		return Bidder{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if s.bidderIndex(b.ID) >= 0 {
		return Bidder{}, reject.Newf(reject.ConstraintViolation, "team %q already exists", b.ID)
	}
	b.RemainingBudget = b.InitialBudget
	b.Roster = nil
	s.bidders = append(s.bidders, b)
	return b.Clone(), nil
}

// UpdateBidder replaces a bidder's name, branding and initial budget. What the
// bidder already spent stays spent, so the remaining budget follows the new
// initial budget.
func (s *Store) UpdateBidder(b Bidder, pin Pin) (Bidder, error) {
	i := s.bidderIndex(b.ID)
	if i < 0 {
		return Bidder{}, reject.Newf(reject.NotFound, "team %q not found", b.ID)
	}
	if pin.holdsBidder(b.ID) {
		return Bidder{}, reject.New(reject.ConstraintViolation, "cannot update a team during an active auction")
	}
	if err := s.validateBidder(b); err != nil {
		return Bidder{}, err
	}
	cur := s.bidders[i]
	spent := cur.Spent()
	if b.InitialBudget < spent {
		return Bidder{}, reject.Newf(reject.ConstraintViolation,
			"initial budget %d is below the %d already spent", b.InitialBudget, spent)
	}

	cur.Name = b.Name
	cur.LogoURL = b.LogoURL
	cur.Color = b.Color
	cur.InitialBudget = b.InitialBudget
	cur.RemainingBudget = b.InitialBudget - spent
	s.bidders[i] = cur
	return cur.Clone(), nil
}

// DeleteBidder removes a bidder that owns no lots and is not the top bidder.
func (s *Store) DeleteBidder(id string, pin Pin) error {
	i := s.bidderIndex(id)
	if i < 0 {
		return reject.Newf(reject.NotFound, "team %q not found", id)
	}
	if pin.holdsBidder(id) {
		return reject.New(reject.ConstraintViolation, "cannot delete a team during an active auction")
	}
	if len(s.bidders[i].Roster) > 0 {
		return reject.New(reject.ConstraintViolation, "cannot delete a team that has players")
	}
	s.bidders = slices.Delete(s.bidders, i, i+1)
	return nil
}

// SellLot moves a lot into a bidder's roster and charges the bidder.
// Nothing changes unless every check passes.
func (s *Store) SellLot(lotID, bidderID string, amount int) error {
	li := s.lotIndex(lotID)
	if li < 0 {
		return reject.Newf(reject.NotFound, "lot %q not found", lotID)
	}
	bi := s.bidderIndex(bidderID)
	if bi < 0 {
		return reject.Newf(reject.NotFound, "team %q not found", bidderID)
	}
	lot, bidder := &s.lots[li], &s.bidders[bi]
	switch {
	case lot.Sold:
		return reject.Newf(reject.InvalidState, "%s has already been sold", lot.Name)
	case amount < lot.FloorPrice:
		return reject.Newf(reject.InvalidState, "amount %d is below the floor price %d", amount, lot.FloorPrice)
	case bidder.RemainingBudget < amount:
		return reject.Newf(reject.InsufficientFunds, "%s doesn't have enough funds", bidder.Name)
	}

	lot.Sold, lot.SoldTo, lot.SoldAmount = true, bidderID, amount
	bidder.RemainingBudget -= amount
	bidder.Roster = append(bidder.Roster, lot.Clone())
	return nil
}

// RevertSale undoes SellLot: the bidder is refunded, the lot leaves the
// roster and its sale fields are cleared.
func (s *Store) RevertSale(lotID, bidderID string, amount int) error {
	bi := s.bidderIndex(bidderID)
	if bi < 0 {
		return reject.Newf(reject.NotFound, "team %q not found", bidderID)
	}
	bidder := &s.bidders[bi]
	r := slices.IndexFunc(bidder.Roster, func(l Lot) bool { return l.ID == lotID })
	if r < 0 {
		return reject.Newf(reject.InvalidState, "%s does not own lot %q", bidder.Name, lotID)
	}
	if bidder.RemainingBudget+amount > bidder.InitialBudget {
		return reject.Newf(reject.InvalidState, "refund of %d would exceed the initial budget of %s", amount, bidder.Name)
	}

	bidder.RemainingBudget += amount
	bidder.Roster = slices.Delete(bidder.Roster, r, r+1)
	if li := s.lotIndex(lotID); li >= 0 {
		lot := &s.lots[li]
		lot.Sold, lot.SoldTo, lot.SoldAmount = false, "", 0
	}
	return nil
}

// ClearSale marks a lot unsold and drops any sale fields. A lot that no
// longer exists has nothing to clear.
func (s *Store) ClearSale(lotID string) error {
	li := s.lotIndex(lotID)
	if li < 0 {
		return nil
	}
	lot := &s.lots[li]
	if lot.Sold {
		return reject.Newf(reject.InvalidState, "%s has already been sold", lot.Name)
	}
	lot.SoldTo, lot.SoldAmount = "", 0
	return nil
}

func (s *Store) validateLot(l Lot) error {
	switch {
	case strings.TrimSpace(l.Name) == "":
		return reject.New(reject.Invalid, "name is required")
	case l.FloorPrice <= 0 || l.FloorPrice < s.rules.MinFloorPrice:
		return reject.Newf(reject.Invalid, "base price must be at least %d", max(s.rules.MinFloorPrice, 1))
	case !l.Category.Valid():
		return reject.Newf(reject.Invalid, "unknown category %q", l.Category)
	}
	return nil
}

func (s *Store) validateBidder(b Bidder) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return reject.New(reject.Invalid, "team name is required")
	case b.InitialBudget <= 0 || b.InitialBudget < s.rules.MinBudget:
		return reject.Newf(reject.Invalid, "initial purse must be at least %d", max(s.rules.MinBudget, 1))
	}
	return nil
}

func (s *Store) lotIndex(id string) int {
	return slices.IndexFunc(s.lots, func(l Lot) bool { return l.ID == id })
}

func (s *Store) bidderIndex(id string) int {
	return slices.IndexFunc(s.bidders, func(b Bidder) bool { return b.ID == id })
}
