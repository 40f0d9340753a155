package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/engine"
)

// Server exposes the engine's public trading and read API over REST plus a
// WebSocket feed. It holds no market state: after each tick the driver calls
// BroadcastTick and clients otherwise poll.
type Server struct {
	eng    *engine.Engine
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(eng *engine.Engine, log *zap.SugaredLogger) *Server {
	s := &Server{
		eng:    eng,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market reads.
	api.HandleFunc("/snapshot", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/orderbook", s.handleGetOrderBook).Methods("GET")
	api.HandleFunc("/top", s.handleGetTopOfBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/news", s.handleGetNews).Methods("GET")

	// Players and trading.
	api.HandleFunc("/players", s.handleRegisterPlayer).Methods("POST")
	api.HandleFunc("/players/{id}/orders", s.handleGetPlayerOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrders).Methods("POST")

	// Simulation controls.
	api.HandleFunc("/news", s.handlePushNews).Methods("POST")
	api.HandleFunc("/mode", s.handleSetMode).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.eng.GetSnapshot())
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.eng.GetOrderBookView(queryInt(r, "depth", 10)))
}

func (s *Server) handleGetTopOfBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.eng.GetTopOfBook(queryInt(r, "depth", 1)))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	windowMs := int64(queryInt(r, "window_ms", 60_000))
	respondJSON(w, s.eng.GetRecentTrades(windowMs))
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	lookbackMs := int64(queryInt(r, "lookback_ms", 300_000))
	respondJSON(w, s.eng.GetNewsEvents(lookbackMs))
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req RegisterPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "missing name", "")
		return
	}
	respondJSON(w, s.eng.RegisterPlayer(req.Name))
}

func (s *Server) handleGetPlayerOrders(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	respondJSON(w, s.eng.GetPlayerOrders(id))
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	typ, err := engine.ParseOrderType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order type", err.Error())
		return
	}
	side, err := engine.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}

	result := s.eng.SubmitOrder(req.PlayerID, engine.OrderSpec{
		Type:     typ,
		Side:     side,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	respondJSON(w, result)
}

func (s *Server) handleCancelOrders(w http.ResponseWriter, r *http.Request) {
	var req CancelOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	respondJSON(w, s.eng.CancelOrders(req.PlayerID, req.Ids))
}

func (s *Server) handlePushNews(w http.ResponseWriter, r *http.Request) {
	var req PushNewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	respondJSON(w, s.eng.PushNews(req.Delta, req.Text))
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mode", err.Error())
		return
	}
	s.eng.SetPriceMode(mode)
	respondJSON(w, map[string]string{"mode": mode.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// BroadcastTick pushes the per-tick snapshot, book view and fresh trades to
// subscribed WebSocket clients. The driver calls this after every StepTick.
func (s *Server) BroadcastTick(snap engine.EngineSnapshot, tickMs int64) {
	s.hub.BroadcastToChannel("ticks", snap)
	s.hub.BroadcastToChannel("orderbook", s.eng.GetOrderBookView(10))
	if trades := s.eng.GetRecentTrades(tickMs); len(trades) > 0 {
		s.hub.BroadcastToChannel("trades", trades)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: detail})
}
