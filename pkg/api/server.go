// Package api is the transport and notification layer in front of the
// matching engine: REST submission/cancel/read endpoints plus a
// WebSocket hub pushing trades and depth snapshots to subscribers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tradecore-io/matchd/params"
	"github.com/tradecore-io/matchd/pkg/core"
	"github.com/tradecore-io/matchd/pkg/core/engine"
	"github.com/tradecore-io/matchd/pkg/util"
)

// Server handles REST API and WebSocket connections.
type Server struct {
	engine   *engine.Engine
	cfg      params.Config
	router   *mux.Router
	hub      *Hub
	validate *validator.Validate
	log      *zap.SugaredLogger
	clock    util.Clock
}

// NewServer creates an API server in front of an engine. The server
// never mutates the book directly; every order goes through
// engine.Submit with a freshly generated id and timestamp.
func NewServer(eng *engine.Engine, cfg params.Config, logger *zap.SugaredLogger) *Server {
	s := &Server{
		engine:   eng,
		cfg:      cfg,
		router:   mux.NewRouter(),
		validate: validator.New(),
		log:      logger,
		clock:    util.RealClock{},
	}
	s.hub = NewHub(logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order entry
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	// Market data
	api.HandleFunc("/markets/{symbol}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/markets/{symbol}/trades", s.handleGetTrades).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wired http.Handler (CORS included).
// Exposed for tests via httptest.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub, the periodic book broadcaster, and the HTTP
// server. Blocks until the listener fails or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()
	go s.runBookBroadcaster(ctx)

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("api_server_starting", "addr", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}
	if req.Symbol != s.engine.Symbol() {
		respondError(w, http.StatusBadRequest, "unknown symbol", req.Symbol)
		return
	}

	side, err := core.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}

	order := &core.Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      side,
		Type:      core.OrderType(req.Type),
		Price:     req.Price,
		Qty:       req.Quantity,
		CreatedAt: s.clock.Now().UnixMilli(),
	}

	trades, err := s.engine.Submit(order)
	if err != nil {
		if errors.Is(err, core.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, "invalid order", err.Error())
			return
		}
		s.log.Errorw("submit_failed", "order_id", order.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "submit failed", "")
		return
	}

	s.log.Infow("order_submitted",
		"order_id", order.ID,
		"type", order.Type,
		"side", order.Side.String(),
		"qty", req.Quantity,
		"trades", len(trades))

	if trades == nil {
		trades = []core.Trade{}
	}
	respondJSON(w, SubmitOrderResponse{OrderID: order.ID, Trades: trades})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "missing orderId", err.Error())
		return
	}

	found := s.engine.Cancel(req.OrderID)
	s.log.Infow("order_cancel", "order_id", req.OrderID, "found", found)
	respondJSON(w, CancelOrderResponse{Status: "ok", OrderID: req.OrderID, Found: found})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol != s.engine.Symbol() {
		respondError(w, http.StatusNotFound, "unknown symbol", symbol)
		return
	}

	depth := s.cfg.Market.DepthLimit
	if d := r.URL.Query().Get("depth"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n < depth {
			depth = n
		}
	}

	bids, asks := s.engine.Depth(depth)
	respondJSON(w, OrderbookSnapshot{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: s.clock.Now().UnixMilli(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol != s.engine.Symbol() {
		respondError(w, http.StatusNotFound, "unknown symbol", symbol)
		return
	}

	since := 0
	if q := r.URL.Query().Get("since"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n >= 0 {
			since = n
		}
	}

	trades := s.engine.TradesSince(since)
	if trades == nil {
		trades = []core.Trade{}
	}
	respondJSON(w, TradesResponse{
		Symbol: symbol,
		Since:  since,
		Next:   since + len(trades),
		Trades: trades,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok", "symbol": s.engine.Symbol()})
}

// ==============================
// Broadcast
// ==============================

// BroadcastTrade pushes one executed trade to trades:<symbol>
// subscribers. Wired to the engine's OnTrade hook.
func (s *Server) BroadcastTrade(t core.Trade) {
	s.hub.BroadcastToChannel("trades:"+t.Symbol, TradeUpdate{Type: "trade", Trade: t})
}

// runBookBroadcaster pushes periodic depth snapshots to
// orderbook:<symbol> subscribers. Best-effort: each push reflects some
// book state no older than the last completed submission.
func (s *Server) runBookBroadcaster(ctx context.Context) {
	symbol := s.engine.Symbol()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.cfg.Node.BookBroadcastInterval):
			bids, asks := s.engine.Depth(s.cfg.Market.DepthLimit)
			s.hub.BroadcastToChannel("orderbook:"+symbol, OrderbookUpdate{
				Type:      "orderbook",
				Symbol:    symbol,
				Bids:      bids,
				Asks:      asks,
				Timestamp: s.clock.Now().UnixMilli(),
			})
		}
	}
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errStr string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errStr,
		Message: message,
	})
}
