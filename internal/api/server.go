package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/book"
	"github.com/rickgao/outcome-exchange/internal/config"
	"github.com/rickgao/outcome-exchange/internal/engine"
	"github.com/rickgao/outcome-exchange/internal/model"
	"github.com/rickgao/outcome-exchange/internal/store"
)

const defaultListLimit = 50

// Server is the trading HTTP API.
type Server struct {
	cfg    config.APIConfig
	engine *engine.Engine
	store  store.Store
	logger *slog.Logger

	srv *http.Server
}

// NewServer creates the API server. Writes go through eng; reads hit st.
func NewServer(cfg config.APIConfig, eng *engine.Engine, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		engine: eng,
		store:  st,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orders", s.handleSubmitOrder)
	mux.HandleFunc("POST /v1/markets", s.handleCreateMarket)
	mux.HandleFunc("GET /v1/markets", s.handleListMarkets)
	mux.HandleFunc("GET /v1/markets/{id}", s.handleGetMarket)
	mux.HandleFunc("GET /v1/markets/{id}/book", s.handleGetBook)
	mux.HandleFunc("GET /v1/markets/{id}/trades", s.handleListTrades)
	mux.HandleFunc("GET /v1/positions", s.handleListPositions)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	s.logger.Info("api server listening", "addr", s.srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	marketID, err := uuid.Parse(body.MarketID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market_id")
		return
	}
	quantity, err := decimal.NewFromString(body.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	result, err := s.engine.SubmitOrder(r.Context(), engine.SubmitRequest{
		MarketID: marketID,
		Side:     model.Side(body.Side),
		Action:   model.Action(body.Action),
		Type:     model.OrderType(body.Type),
		Price:    body.Price,
		Quantity: quantity,
		Owner:    body.Owner,
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	resp := submitOrderResponse{
		Trades:    make([]tradeJSON, 0, len(result.Trades)),
		Remaining: result.Remaining.String(),
	}
	for _, t := range result.Trades {
		resp.Trades = append(resp.Trades, toTradeJSON(t))
	}
	if result.Rested != nil {
		o := toOrderJSON(*result.Rested)
		resp.Rested = &o
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case engine.IsRetriable(err):
		writeError(w, http.StatusServiceUnavailable, "temporary storage failure, retry the submission")
	default:
		s.logger.Error("order submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var body createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	market := model.Market{
		ID:             uuid.New(),
		Title:          body.Title,
		Category:       body.Category,
		Status:         "active",
		YesProbability: 50,
		Volume:         decimal.Zero,
	}
	if err := s.store.CreateMarket(r.Context(), &market); err != nil {
		s.logger.Error("market creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toMarketJSON(market))
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context(), defaultListLimit)
	if err != nil {
		s.logger.Error("market listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]marketJSON, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarketJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	market, found, err := s.store.GetMarket(r.Context(), id)
	if err != nil {
		s.logger.Error("market lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	writeJSON(w, http.StatusOK, toMarketJSON(market))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	side, err := model.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}

	bids, err := s.store.ListOpenOrders(r.Context(), id, side, model.ActionBuy)
	if err != nil {
		s.logger.Error("book read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	asks, err := s.store.ListOpenOrders(r.Context(), id, side, model.ActionSell)
	if err != nil {
		s.logger.Error("book read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summary := book.Summarize(bids, asks)
	resp := bookJSON{
		MarketID: id.String(),
		Side:     string(side),
		// A seller consumes bids best-first and a buyer consumes asks
		// best-first, which is exactly the display order.
		Bids:        toLevels(book.Build(bids, model.ActionSell)),
		Asks:        toLevels(book.Build(asks, model.ActionBuy)),
		BestBid:     summary.BestBid,
		BestAsk:     summary.BestAsk,
		Spread:      summary.Spread(),
		Probability: summary.MidProbability(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trades, err := s.store.ListTrades(r.Context(), id, defaultListLimit)
	if err != nil {
		s.logger.Error("trade listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}
	positions, err := s.store.ListPositions(r.Context(), owner)
	if err != nil {
		s.logger.Error("position listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]positionJSON, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func toLevels(v book.View) []levelJSON {
	levels := v.Levels()
	out := make([]levelJSON, 0, len(levels))
	for _, lv := range levels {
		shares := decimal.Zero
		for _, o := range lv.Orders {
			shares = shares.Add(o.Remaining())
		}
		out = append(out, levelJSON{Price: lv.Price, Shares: shares.String()})
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
