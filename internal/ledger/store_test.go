package ledger_test

import (
	"errors"
	"testing"

	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/reject"
)

func testCatalog() ledger.Catalog {
	return ledger.Catalog{
		Lots: []ledger.Lot{
			{ID: "p1", Name: "Virat Kohli", FloorPrice: 2000, Category: ledger.Batsman, Skills: []string{"cover drive"}},
			{ID: "p2", Name: "Jasprit Bumrah", FloorPrice: 1500, Category: ledger.Bowler},
		},
		Bidders: []ledger.Bidder{
			{ID: "t1", Name: "Mumbai Indians", InitialBudget: 100000, RemainingBudget: 100000},
			{ID: "t2", Name: "Chennai Super Kings", InitialBudget: 80000, RemainingBudget: 80000},
		},
	}
}

func newStore() *ledger.Store {
	return ledger.NewStore(testCatalog(), ledger.DefaultRules())
}

func TestStore_SellAndRevert(t *testing.T) {
	s := newStore()

	if err := s.SellLot("p1", "t1", 2500); err != nil {
		t.Fatalf("SellLot() error = %v", err)
	}
	lot, _ := s.Lot("p1")
	if !lot.Sold || lot.SoldTo != "t1" || lot.SoldAmount != 2500 {
		t.Errorf("lot after sale = %+v", lot)
	}
	team, _ := s.Bidder("t1")
	if team.RemainingBudget != 97500 {
		t.Errorf("RemainingBudget = %d, want 97500", team.RemainingBudget)
	}
	if len(team.Roster) != 1 || team.Roster[0].ID != "p1" || !team.Roster[0].Sold {
		t.Errorf("Roster = %+v, want sold copy of p1", team.Roster)
	}

	if err := s.RevertSale("p1", "t1", 2500); err != nil {
		t.Fatalf("RevertSale() error = %v", err)
	}
	lot, _ = s.Lot("p1")
	if lot.Sold || lot.SoldTo != "" || lot.SoldAmount != 0 {
		t.Errorf("lot after revert = %+v, want cleared sale fields", lot)
	}
	team, _ = s.Bidder("t1")
	if team.RemainingBudget != 100000 || len(team.Roster) != 0 {
		t.Errorf("team after revert = %+v", team)
	}
}

func TestStore_SellLot_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		lot    string
		bidder string
		amount int
		want   reject.Kind
	}{
		{"unknown lot", "nope", "t1", 2000, reject.NotFound},
		{"unknown bidder", "p1", "nope", 2000, reject.NotFound},
		{"below floor", "p1", "t1", 1999, reject.InvalidState},
		{"over budget", "p1", "t2", 90000, reject.InsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			before := s.Bidders()

			err := s.SellLot(tt.lot, tt.bidder, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SellLot() error = %v, want kind %s", err, tt.want)
			}
			after := s.Bidders()
			for i := range before {
				if before[i].RemainingBudget != after[i].RemainingBudget || len(after[i].Roster) != 0 {
					t.Errorf("bidder %s changed on rejected sale", after[i].ID)
				}
			}
		})
	}
}

func TestStore_SellLot_AlreadySold(t *testing.T) {
	s := newStore()
	if err := s.SellLot("p1", "t1", 2000); err != nil {
		t.Fatal(err)
	}
	if err := s.SellLot("p1", "t2", 2500); !errors.Is(err, reject.InvalidState) {
		t.Errorf("second SellLot() error = %v, want InvalidState", err)
	}
}

func TestStore_DeleteLot(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *ledger.Store)
		id      string
		pin     ledger.Pin
		wantErr error
	}{
		{name: "idle unsold lot", id: "p2"},
		{name: "unknown lot", id: "zz", wantErr: reject.NotFound},
		{
			name:    "lot on the block",
			id:      "p1",
			pin:     ledger.Pin{LotID: "p1", InProgress: true},
			wantErr: reject.ConstraintViolation,
		},
		{
			name:  "lot pinned but auction resolved",
			id:    "p1",
			pin:   ledger.Pin{LotID: "p1", InProgress: false},
			setup: func(*ledger.Store) {},
		},
		{
			name:    "sold lot",
			id:      "p1",
			setup:   func(s *ledger.Store) { _ = s.SellLot("p1", "t1", 2000) },
			wantErr: reject.ConstraintViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			if tt.setup != nil {
				tt.setup(s)
			}
			err := s.DeleteLot(tt.id, tt.pin)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DeleteLot() error = %v", err)
				}
				if _, ok := s.Lot(tt.id); ok {
					t.Error("lot still present after delete")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteLot() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_DeleteBidder(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *ledger.Store)
		id      string
		pin     ledger.Pin
		wantErr error
	}{
		{name: "empty idle team", id: "t2"},
		{name: "unknown team", id: "t9", wantErr: reject.NotFound},
		{
			name:    "team with a player",
			id:      "t1",
			setup:   func(s *ledger.Store) { _ = s.SellLot("p1", "t1", 2000) },
			wantErr: reject.ConstraintViolation,
		},
		{
			name:    "top bidder of running auction",
			id:      "t2",
			pin:     ledger.Pin{LotID: "p1", BidderID: "t2", InProgress: true},
			wantErr: reject.ConstraintViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			if tt.setup != nil {
				tt.setup(s)
			}
			err := s.DeleteBidder(tt.id, tt.pin)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DeleteBidder() error = %v", err)
				}
				if _, ok := s.Bidder(tt.id); ok {
					t.Error("team still present after delete")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteBidder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_AddLot(t *testing.T) {
	tests := []struct {
		name string
		lot  ledger.Lot
		want error
	}{
		{"valid", ledger.Lot{ID: "p3", Name: "Rashid Khan", FloorPrice: 1000, Category: ledger.AllRounder}, nil},
		{"generated id", ledger.Lot{Name: "MS Dhoni", FloorPrice: 3000, Category: ledger.WicketKeeper}, nil},
		{"duplicate id", ledger.Lot{ID: "p1", Name: "Dup", FloorPrice: 1000, Category: ledger.Bowler}, reject.ConstraintViolation},
		{"missing name", ledger.Lot{ID: "p4", FloorPrice: 1000, Category: ledger.Bowler}, reject.Invalid},
		{"floor below minimum", ledger.Lot{ID: "p5", Name: "Cheap", FloorPrice: 499, Category: ledger.Bowler}, reject.Invalid},
		{"unknown category", ledger.Lot{ID: "p6", Name: "Umpire", FloorPrice: 1000, Category: "umpire"}, reject.Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			got, err := s.AddLot(tt.lot)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("AddLot() error = %v, want %v", err, tt.want)
				}
				if len(s.Lots()) != 2 {
					t.Errorf("catalog changed on rejected add")
				}
				return
			}
			if err != nil {
				t.Fatalf("AddLot() error = %v", err)
			}
			if got.ID == "" {
				t.Error("expected an id to be assigned")
			}
			if got.Sold {
				t.Error("new lot must start unsold")
			}
		})
	}
}

func TestStore_AddLot_IgnoresSaleFields(t *testing.T) {
	s := newStore()
	got, err := s.AddLot(ledger.Lot{
		ID: "p3", Name: "Smuggled", FloorPrice: 1000, Category: ledger.Captain,
		Sold: true, SoldTo: "t1", SoldAmount: 5000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Sold || got.SoldTo != "" || got.SoldAmount != 0 {
		t.Errorf("AddLot() = %+v, want sale fields cleared", got)
	}
}

func TestStore_UpdateLot(t *testing.T) {
	s := newStore()
	if err := s.SellLot("p1", "t1", 2500); err != nil {
		t.Fatal(err)
	}

	upd := ledger.Lot{ID: "p1", Name: "King Kohli", FloorPrice: 2000, Category: ledger.Captain}
	got, err := s.UpdateLot(upd, ledger.Pin{})
	if err != nil {
		t.Fatalf("UpdateLot() error = %v", err)
	}
	if !got.Sold || got.SoldTo != "t1" || got.SoldAmount != 2500 {
		t.Errorf("sale fields not preserved: %+v", got)
	}
	team, _ := s.Bidder("t1")
	if team.Roster[0].Name != "King Kohli" {
		t.Errorf("roster copy name = %q, want refreshed name", team.Roster[0].Name)
	}

	upd.FloorPrice = 3000
	if _, err := s.UpdateLot(upd, ledger.Pin{}); !errors.Is(err, reject.ConstraintViolation) {
		t.Errorf("raising floor above sold amount error = %v, want ConstraintViolation", err)
	}

	if _, err := s.UpdateLot(ledger.Lot{ID: "p2", Name: "B", FloorPrice: 1500, Category: ledger.Bowler},
		ledger.Pin{LotID: "p2", InProgress: true}); !errors.Is(err, reject.ConstraintViolation) {
		t.Errorf("updating lot on the block error = %v, want ConstraintViolation", err)
	}
	if _, err := s.UpdateLot(ledger.Lot{ID: "zz", Name: "B", FloorPrice: 1500, Category: ledger.Bowler},
		ledger.Pin{}); !errors.Is(err, reject.NotFound) {
		t.Errorf("updating unknown lot error = %v, want NotFound", err)
	}
}

func TestStore_UpdateBidder_KeepsSpend(t *testing.T) {
	s := newStore()
	if err := s.SellLot("p1", "t1", 30000); err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateBidder(ledger.Bidder{ID: "t1", Name: "MI", InitialBudget: 120000}, ledger.Pin{})
	if err != nil {
		t.Fatalf("UpdateBidder() error = %v", err)
	}
	if got.RemainingBudget != 90000 {
		t.Errorf("RemainingBudget = %d, want 90000", got.RemainingBudget)
	}
	if len(got.Roster) != 1 {
		t.Errorf("roster lost on update")
	}

	if _, err := s.UpdateBidder(ledger.Bidder{ID: "t1", Name: "MI", InitialBudget: 20000}, ledger.Pin{}); !errors.Is(err, reject.ConstraintViolation) {
		t.Errorf("budget below spend error = %v, want ConstraintViolation", err)
	}
	if _, err := s.UpdateBidder(ledger.Bidder{ID: "t2", Name: "CSK", InitialBudget: 9999}, ledger.Pin{}); !errors.Is(err, reject.Invalid) {
		t.Errorf("budget below minimum error = %v, want Invalid", err)
	}
	if _, err := s.UpdateBidder(ledger.Bidder{ID: "t2", Name: "CSK", InitialBudget: 50000},
		ledger.Pin{LotID: "p2", BidderID: "t2", InProgress: true}); !errors.Is(err, reject.ConstraintViolation) {
		t.Errorf("updating top bidder error = %v, want ConstraintViolation", err)
	}
}

func TestStore_AddBidder(t *testing.T) {
	s := newStore()
	got, err := s.AddBidder(ledger.Bidder{Name: "Gujarat Titans", InitialBudget: 50000, RemainingBudget: 1})
	if err != nil {
		t.Fatalf("AddBidder() error = %v", err)
	}
	if got.RemainingBudget != 50000 {
		t.Errorf("RemainingBudget = %d, want full budget", got.RemainingBudget)
	}
	if _, err := s.AddBidder(ledger.Bidder{ID: "t1", Name: "Dup", InitialBudget: 50000}); !errors.Is(err, reject.ConstraintViolation) {
		t.Errorf("duplicate id error = %v, want ConstraintViolation", err)
	}
	if _, err := s.AddBidder(ledger.Bidder{Name: "Poor", InitialBudget: 5000}); !errors.Is(err, reject.Invalid) {
		t.Errorf("small budget error = %v, want Invalid", err)
	}
}

func TestStore_ClearSale(t *testing.T) {
	s := newStore()
	if err := s.ClearSale("p2"); err != nil {
		t.Errorf("ClearSale(unsold) error = %v", err)
	}
	if err := s.ClearSale("missing"); err != nil {
		t.Errorf("ClearSale(missing) error = %v, want nil", err)
	}
	_ = s.SellLot("p1", "t1", 2000)
	if err := s.ClearSale("p1"); !errors.Is(err, reject.InvalidState) {
		t.Errorf("ClearSale(sold) error = %v, want InvalidState", err)
	}
}

func TestStore_Restore(t *testing.T) {
	s := newStore()
	_ = s.SellLot("p1", "t1", 2000)
	_ = s.DeleteLot("p2", ledger.Pin{})
	_, _ = s.AddBidder(ledger.Bidder{ID: "t3", Name: "RCB", InitialBudget: 20000})

	s.Restore()

	if got := len(s.Lots()); got != 2 {
		t.Errorf("lots after restore = %d, want 2", got)
	}
	if got := len(s.Bidders()); got != 2 {
		t.Errorf("bidders after restore = %d, want 2", got)
	}
	if lot, _ := s.Lot("p1"); lot.Sold {
		t.Error("p1 still sold after restore")
	}
	if team, _ := s.Bidder("t1"); team.RemainingBudget != 100000 {
		t.Errorf("t1 budget after restore = %d", team.RemainingBudget)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := newStore()
	lot, _ := s.Lot("p1")
	lot.Skills[0] = "mutated"
	lot.Name = "mutated"

	again, _ := s.Lot("p1")
	if again.Name != "Virat Kohli" || again.Skills[0] != "cover drive" {
		t.Errorf("store exposed internal state: %+v", again)
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range ledger.Categories {
		if !c.Valid() {
			t.Errorf("%q.Valid() = false", c)
		}
	}
	if ledger.Category("coach").Valid() {
		t.Error(`"coach".Valid() = true`)
	}
}
