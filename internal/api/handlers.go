package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/history"
	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/reject"
	"github.com/jensholdgaard/franchise-auction/internal/store"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"
)

// defaultJournalLimit caps GET /api/journal without a limit parameter.
const defaultJournalLimit = 100

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	engine   *auction.Engine
	journal  store.JournalRepository
	logger   *slog.Logger
	isLeader func() bool
}

// NewHandler creates a handler. isLeader may be nil, meaning this replica
// always accepts commands.
func NewHandler(engine *auction.Engine, journal store.JournalRepository, logger *slog.Logger, isLeader func() bool) *Handler {
	return &Handler{engine: engine, journal: journal, logger: logger, isLeader: isLeader}
}

// AuctionResponse is the live view of the block.
type AuctionResponse struct {
	auction.View
	Increment int    `json:"increment"`
	Currency  string `json:"currency"`
}

// ActionRequest carries the target of start and bid.
type ActionRequest struct {
	LotID    string `json:"lot_id,omitempty"`
	BidderID string `json:"bidder_id,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// GetAuction handles GET /api/auction.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.auctionView())
}

func (h *Handler) auctionView() AuctionResponse {
	settings := h.engine.Settings()
	return AuctionResponse{
		View:      h.engine.View(),
		Increment: settings.Increment,
		Currency:  settings.Currency,
	}
}

// PostAction handles POST /api/auction/{action}. It answers with the
// auction view after the command.
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	// sell, unsold, next, undo and reset take no body.
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	name := chi.URLParam(r, "action")
	target := req.LotID
	if name == "bid" {
		target = req.BidderID
	}
	in, err := auction.ParseIntent(name, target)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown auction action", err)
		return
	}
	if err := h.engine.Dispatch(r.Context(), in); err != nil {
		writeReject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.auctionView())
}

// ListHistory handles GET /api/history, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	events := slices.Collect(h.engine.History())
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListStandings handles GET /api/standings.
func (h *Handler) ListStandings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Standings())
}

// ListJournal handles GET /api/journal?limit=N.
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}
	notices, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		telemetry.LogWithTrace(r.Context(), h.logger).ErrorContext(r.Context(), "listing journal", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read journal", err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}

// ListLots handles GET /api/lots.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Lots())
}

// CreateLot handles POST /api/lots.
func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var lot ledger.Lot
	if err := json.NewDecoder(r.Body).Decode(&lot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	added, err := h.engine.AddLot(r.Context(), lot)
	if err != nil {
		writeReject(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateLot handles PUT /api/lots/{id}.
func (h *Handler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	var lot ledger.Lot
	if err := json.NewDecoder(r.Body).Decode(&lot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	lot.ID = chi.URLParam(r, "id")
	updated, err := h.engine.UpdateLot(r.Context(), lot)
	if err != nil {
		writeReject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteLot handles DELETE /api/lots/{id}.
func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteLot(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeReject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBidders handles GET /api/bidders.
func (h *Handler) ListBidders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Bidders())
}

// CreateBidder handles POST /api/bidders.
func (h *Handler) CreateBidder(w http.ResponseWriter, r *http.Request) {
	var b ledger.Bidder
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	added, err := h.engine.AddBidder(r.Context(), b)
	if err != nil {
		writeReject(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateBidder handles PUT /api/bidders/{id}.
func (h *Handler) UpdateBidder(w http.ResponseWriter, r *http.Request) {
	var b ledger.Bidder
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	b.ID = chi.URLParam(r, "id")
	updated, err := h.engine.UpdateBidder(r.Context(), b)
	if err != nil {
		writeReject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteBidder handles DELETE /api/bidders/{id}.
func (h *Handler) DeleteBidder(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteBidder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeReject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		telemetry.LogWithTrace(r.Context(), h.logger).DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// statusFor maps a rejection kind to an HTTP status.
func statusFor(kind reject.Kind) int {
	switch kind {
	case reject.NotFound:
		return http.StatusNotFound
	case reject.Invalid:
		return http.StatusBadRequest
	case reject.InsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func writeReject(w http.ResponseWriter, err error) {
	kind, ok := reject.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, statusFor(kind), ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
