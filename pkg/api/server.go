package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/app/marketplace"
	"github.com/silverbars/marketplace/pkg/metrics"
	"github.com/silverbars/marketplace/pkg/util"
)

type Config struct {
	AllowedOrigins []string
}

// Server handles REST API and WebSocket connections
type Server struct {
	app     *marketplace.App
	router  *mux.Router
	hub     *Hub
	cors    *cors.Cors
	metrics *metrics.Metrics
	clock   util.Clock
	logger  *zap.SugaredLogger
}

// NewServer wires routes for app. m may be nil, in which case /metrics is not served.
func NewServer(app *marketplace.App, cfg Config, m *metrics.Metrics, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	s := &Server{
		app:     app,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		metrics: m,
		clock:   util.RealClock{},
		logger:  logger,
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestID, logRequests(s.logger))

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleRegisterOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleGetLiveOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/summary/{side}", s.handleGetSummary).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler is the CORS-wrapped router, ready for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(s.router)
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) handleRegisterOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}

	o := s.app.NewOrder(req.UserID, req.PricePerKg, req.QuantityKg, side)
	if err := s.app.RegisterOrder(o); err != nil {
		respondAppError(w, "order rejected", err)
		return
	}
	respondJSONStatus(w, http.StatusCreated, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.CancelOrderByID(id); err != nil {
		respondAppError(w, "cancel failed", err)
		return
	}
	respondJSON(w, CancelOrderResponse{Status: "cancelled", OrderID: id})
}

func (s *Server) handleGetLiveOrders(w http.ResponseWriter, r *http.Request) {
	side, err := orderbook.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	orders, err := s.app.GetLiveOrders(side)
	if err != nil {
		respondAppError(w, "live orders unavailable", err)
		return
	}
	respondJSON(w, LiveOrdersResponse{Side: side.String(), Orders: orders})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	side, err := orderbook.ParseSide(mux.Vars(r)["side"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	rows, err := s.app.GetSummary(side)
	if err != nil {
		respondAppError(w, "summary unavailable", err)
		return
	}
	respondJSON(w, SummaryResponse{
		Side:      side.String(),
		Rows:      rows,
		Timestamp: s.clock.Now().UnixMilli(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// BroadcastSummary pushes the current summary of side to its subscribers.
// Pass it as the app's OnChange hook.
func (s *Server) BroadcastSummary(side orderbook.Side) {
	channel := summaryChannel(side)
	if !s.hub.HasSubscribers(channel) {
		return
	}
	rows, err := s.app.GetSummary(side)
	if err != nil {
		s.logger.Warnw("summary_broadcast_failed", "side", side, "err", err)
		return
	}
	s.hub.BroadcastToChannel(channel, SummaryUpdate{
		Type:      "summary",
		Side:      side.String(),
		Rows:      rows,
		Timestamp: s.clock.Now().UnixMilli(),
	})
}

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSONStatus(w, status, ErrorResponse{Error: error, Message: message})
}

// respondAppError sends validation failures as 400 and everything else as 500.
func respondAppError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	if isValidationError(err) {
		status = http.StatusBadRequest
	}
	respondError(w, status, msg, err.Error())
}

func isValidationError(err error) bool {
	for _, target := range []error{
		orderbook.ErrMissingID,
		orderbook.ErrMissingUser,
		orderbook.ErrUnknownSide,
		orderbook.ErrInvalidPrice,
		orderbook.ErrInvalidQuantity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
