package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/franchise-auction/internal/api"
	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/history"
	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/store"
	"github.com/jensholdgaard/franchise-auction/internal/store/memstore"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	journal *memstore.Journal
}

func newServer(t *testing.T, isLeader func() bool) *testServer {
	t.Helper()
	clk := clock.Mock{T: time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)}
	logger := slog.New(slog.DiscardHandler)
	journal := memstore.NewJournal(50, clk)

	cat := ledger.Catalog{
		Lots: []ledger.Lot{
			{ID: "p1", Name: "Virat Kohli", FloorPrice: 2000, Category: ledger.Batsman},
			{ID: "p2", Name: "Jasprit Bumrah", FloorPrice: 1500, Category: ledger.Bowler},
		},
		Bidders: []ledger.Bidder{
			{ID: "t1", Name: "Mumbai Indians", InitialBudget: 100000, RemainingBudget: 100000},
			{ID: "t2", Name: "Chennai Super Kings", InitialBudget: 2000, RemainingBudget: 2000},
		},
	}
	engine, err := auction.New(cat, auction.DefaultSettings(),
		store.JournalSink{Repo: journal, Logger: logger},
		logger, noop.NewTracerProvider(), metricnoop.NewMeterProvider(), clk)
	if err != nil {
		t.Fatalf("auction.New() error = %v", err)
	}

	h := api.NewHandler(engine, journal, logger, isLeader)
	return &testServer{t: t, handler: api.NewRouter(h, api.Options{AllowedOrigins: []string{"http://localhost:5173"}}), journal: journal}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAuctionFlow(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodPost, "/api/auction/start", api.ActionRequest{LotID: "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", rec.Code, rec.Body)
	}
	view := decode[api.AuctionResponse](t, rec)
	if view.CurrentLot == nil || view.CurrentLot.ID != "p1" || view.NextBid != 2000 {
		t.Errorf("after start = %+v", view)
	}

	rec = s.do(http.MethodPost, "/api/auction/bid", api.ActionRequest{BidderID: "t1"})
	view = decode[api.AuctionResponse](t, rec)
	if view.Cursor.TopBidAmount != 2000 || view.TopBidder != "Mumbai Indians" || view.NextBid != 2500 {
		t.Errorf("after bid = %+v", view)
	}

	rec = s.do(http.MethodPost, "/api/auction/sell", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sell: status %d, body %s", rec.Code, rec.Body)
	}

	rec = s.do(http.MethodGet, "/api/history", nil)
	events := decode[[]history.Event](t, rec)
	if len(events) != 2 || events[0].Action != history.Sold || events[0].BidderName != "Mumbai Indians" {
		t.Errorf("history = %+v", events)
	}

	rec = s.do(http.MethodGet, "/api/standings", nil)
	standings := decode[[]auction.Standing](t, rec)
	if standings[0].Spent != 2000 || standings[0].RosterSize != 1 {
		t.Errorf("standings = %+v", standings)
	}

	rec = s.do(http.MethodPost, "/api/auction/undo", nil)
	view = decode[api.AuctionResponse](t, rec)
	if !view.Cursor.InProgress || view.Cursor.ActiveLotID != "p1" || view.Cursor.TopBidAmount != 0 {
		t.Errorf("after undo = %+v", view.Cursor)
	}

	rec = s.do(http.MethodGet, "/api/journal?limit=2", nil)
	notices := decode[[]notify.Notice](t, rec)
	if len(notices) != 2 || notices[0].Title != "Action Undone" || notices[1].Title != "Player Sold" {
		t.Errorf("journal = %+v", notices)
	}
}

func TestRejectionStatus(t *testing.T) {
	tests := []struct {
		name     string
		setup    []string
		method   string
		path     string
		body     any
		wantCode int
		wantKind string
	}{
		{name: "unknown lot", method: http.MethodPost, path: "/api/auction/start", body: api.ActionRequest{LotID: "nope"}, wantCode: http.StatusNotFound, wantKind: "not_found"},
		{name: "sell without bid", setup: []string{"start"}, method: http.MethodPost, path: "/api/auction/sell", wantCode: http.StatusConflict, wantKind: "invalid_state"},
		{name: "insufficient funds", setup: []string{"start", "bid-t1"}, method: http.MethodPost, path: "/api/auction/bid", body: api.ActionRequest{BidderID: "t2"}, wantCode: http.StatusUnprocessableEntity, wantKind: "insufficient_funds"},
		{name: "already top bidder", setup: []string{"start", "bid-t1"}, method: http.MethodPost, path: "/api/auction/bid", body: api.ActionRequest{BidderID: "t1"}, wantCode: http.StatusConflict, wantKind: "already_top_bidder"},
		{name: "nothing to undo", method: http.MethodPost, path: "/api/auction/undo", wantCode: http.StatusConflict, wantKind: "empty_history"},
		{name: "invalid lot", method: http.MethodPost, path: "/api/lots", body: ledger.Lot{Name: "Cheap", FloorPrice: 10, Category: ledger.Bowler}, wantCode: http.StatusBadRequest, wantKind: "invalid"},
		{name: "delete lot on block", setup: []string{"start"}, method: http.MethodDelete, path: "/api/lots/p1", wantCode: http.StatusConflict, wantKind: "constraint_violation"},
		{name: "unknown action", method: http.MethodPost, path: "/api/auction/pass", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, nil)
			for _, step := range tt.setup {
				var rec *httptest.ResponseRecorder
				switch step {
				case "start":
					rec = s.do(http.MethodPost, "/api/auction/start", api.ActionRequest{LotID: "p1"})
				case "bid-t1":
					rec = s.do(http.MethodPost, "/api/auction/bid", api.ActionRequest{BidderID: "t1"})
				}
				if rec.Code != http.StatusOK {
					t.Fatalf("setup %s: status %d", step, rec.Code)
				}
			}

			rec := s.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantKind != "" {
				if got := decode[api.ErrorResponse](t, rec); got.Kind != tt.wantKind {
					t.Errorf("kind = %q, want %q", got.Kind, tt.wantKind)
				}
			}
		})
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodPost, "/api/bidders", ledger.Bidder{Name: "Kolkata Knight Riders", InitialBudget: 50000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bidder: status %d, body %s", rec.Code, rec.Body)
	}
	kkr := decode[ledger.Bidder](t, rec)
	if kkr.ID == "" || kkr.RemainingBudget != 50000 {
		t.Errorf("created bidder = %+v", kkr)
	}

	rec = s.do(http.MethodPut, "/api/bidders/"+kkr.ID, ledger.Bidder{Name: "KKR", InitialBudget: 60000})
	if got := decode[ledger.Bidder](t, rec); got.Name != "KKR" || got.RemainingBudget != 60000 {
		t.Errorf("updated bidder = %+v", got)
	}

	rec = s.do(http.MethodPut, "/api/lots/p2", ledger.Lot{Name: "J. Bumrah", FloorPrice: 1800, Category: ledger.Bowler})
	if got := decode[ledger.Lot](t, rec); got.ID != "p2" || got.FloorPrice != 1800 {
		t.Errorf("updated lot = %+v", got)
	}

	if rec := s.do(http.MethodDelete, "/api/lots/p2", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete lot: status %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/api/bidders/"+kkr.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete bidder: status %d", rec.Code)
	}

	lots := decode[[]ledger.Lot](t, s.do(http.MethodGet, "/api/lots", nil))
	bidders := decode[[]ledger.Bidder](t, s.do(http.MethodGet, "/api/bidders", nil))
	if len(lots) != 1 || len(bidders) != 2 {
		t.Errorf("got %d lots and %d bidders, want 1 and 2", len(lots), len(bidders))
	}

	if rec := s.do(http.MethodPost, "/api/lots", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("create lot without body: status %d", rec.Code)
	}
}

func TestFollowerServesOnlyJournal(t *testing.T) {
	s := newServer(t, func() bool { return false })

	tests := []struct {
		method   string
		path     string
		body     any
		wantCode int
	}{
		{http.MethodPost, "/api/auction/start", api.ActionRequest{LotID: "p1"}, http.StatusServiceUnavailable},
		{http.MethodPost, "/api/lots", ledger.Lot{Name: "Rinku Singh", FloorPrice: 1000, Category: ledger.Batsman}, http.StatusServiceUnavailable},
		{http.MethodDelete, "/api/bidders/t1", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/auction", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/history", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/standings", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/lots", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/bidders", nil, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/journal", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := s.do(tt.method, tt.path, tt.body); rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestJournal_BadLimit(t *testing.T) {
	s := newServer(t, nil)
	if rec := s.do(http.MethodGet, "/api/journal?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type brokenJournal struct{}

func (brokenJournal) Record(context.Context, notify.Notice) error { return nil }
func (brokenJournal) Recent(context.Context, int) ([]notify.Notice, error) {
	return nil, errors.New("connection reset")
}

func TestJournal_StoreError(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	engine, err := auction.New(ledger.Catalog{}, auction.DefaultSettings(), nil, logger,
		noop.NewTracerProvider(), metricnoop.NewMeterProvider(), clock.Real{})
	if err != nil {
		t.Fatal(err)
	}
	router := api.NewRouter(api.NewHandler(engine, brokenJournal{}, logger, nil), api.Options{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestCORS(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/auction", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
