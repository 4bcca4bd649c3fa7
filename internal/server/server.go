package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/phh"
)

// Server exposes a Manager over HTTP and WebSocket.
type Server struct {
	manager  *Manager
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	router   chi.Router

	actionRate  rate.Limit
	actionBurst int

	mu          sync.Mutex
	connections map[*Connection]bool
}

// NewServer creates a server for manager. actionRate and actionBurst
// bound the messages each websocket may send; a zero rate disables the
// limit.
func NewServer(manager *Manager, actionRate float64, actionBurst int, logger zerolog.Logger) *Server {
	s := &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.With().Str("component", "server").Logger(),
		actionRate:  rate.Limit(actionRate),
		actionBurst: actionBurst,
		connections: make(map[*Connection]bool),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.handleListTables)
		r.Post("/", s.handleCreateTable)
		r.Route("/{tableID}", func(r chi.Router) {
			r.Get("/", s.handleGetTable)
			r.Delete("/", s.handleDeleteTable)
			r.Post("/seats", s.handleSitDown)
			r.Post("/reservations", s.handleReserve)
			r.Post("/leave", s.handleLeave)
			r.Post("/start", s.handleStart)
			r.Post("/advance", s.handleAdvance)
			r.Post("/actions", s.handleAction)
			r.Post("/force-fold", s.handleForceFold)
			r.Get("/valid-actions", s.handleValidActions)
			r.Get("/hands/{hand}", s.handleHandHistory)
			r.Get("/phh", s.handleExportHand)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every websocket connection.
func (s *Server) Stop() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close() // Ignore close errors during shutdown
	}
}

// ConnectionCount returns the number of open websocket connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	var limiter *rate.Limiter
	if s.actionRate > 0 {
		limiter = rate.NewLimiter(s.actionRate, max(s.actionBurst, 1))
	}
	client := NewConnection(conn, s.manager, limiter, s.logger)
	client.onClose = func(c *Connection) {
		s.mu.Lock()
		delete(s.connections, c)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info().Int("total", total).Msg("Client disconnected")
	}

	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info().Int("total", total).Msg("Client connected")

	client.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.ListTables())
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var spec TableSpec
	if !decode(w, r, &spec) {
		return
	}
	spec.applyDefaults()
	cfg, err := spec.GameConfig()
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.manager.CreateTable(r.Context(), spec.Name, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.PublicSnapshot(chi.URLParam(r, "tableID"), r.URL.Query().Get("viewer"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeleteTable(r.Context(), chi.URLParam(r, "tableID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type seatRequest struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat,omitempty"`
	BuyIn    int    `json:"buy_in"`
	TTL      string `json:"ttl,omitempty"`
}

func (s *Server) handleSitDown(w http.ResponseWriter, r *http.Request) {
	var req seatRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.manager.SitDown(r.Context(), chi.URLParam(r, "tableID"), req.PlayerID, req.Seat, req.BuyIn)
	respond(w, snap, req.PlayerID, err)
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req seatRequest
	if !decode(w, r, &req) {
		return
	}
	var ttl time.Duration
	if req.TTL != "" {
		var err error
		if ttl, err = time.ParseDuration(req.TTL); err != nil {
			writeError(w, err)
			return
		}
	}
	snap, err := s.manager.ReserveSeat(r.Context(), chi.URLParam(r, "tableID"), req.Seat, req.PlayerID, ttl)
	respond(w, snap, req.PlayerID, err)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req seatRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.manager.Leave(r.Context(), chi.URLParam(r, "tableID"), req.PlayerID)
	respond(w, snap, req.PlayerID, err)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.StartHand(r.Context(), chi.URLParam(r, "tableID"))
	respond(w, snap, r.URL.Query().Get("viewer"), err)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Advance(r.Context(), chi.URLParam(r, "tableID"))
	respond(w, snap, r.URL.Query().Get("viewer"), err)
}

type actionRequest struct {
	PlayerID string `json:"player_id"`
	Action   string `json:"action"`
	Amount   int    `json:"amount,omitempty"`
}

// ActionResponse is the result of an applied action.
type ActionResponse struct {
	Record game.ActionRecord `json:"record"`
	Table  game.Snapshot     `json:"table"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	action, err := game.ParseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, snap, err := s.manager.Act(r.Context(), chi.URLParam(r, "tableID"), req.PlayerID, action, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Record: rec, Table: snap.Redact(req.PlayerID)})
}

func (s *Server) handleForceFold(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	rec, snap, err := s.manager.ForceFold(r.Context(), chi.URLParam(r, "tableID"), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Record: rec, Table: snap.Redact("")})
}

func (s *Server) handleValidActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.manager.ValidActions(chi.URLParam(r, "tableID"), r.URL.Query().Get("player"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleHandHistory(w http.ResponseWriter, r *http.Request) {
	hand, err := strconv.Atoi(chi.URLParam(r, "hand"))
	if err != nil {
		writeError(w, errors.New("hand must be a number"))
		return
	}
	records, err := s.manager.HandHistory(r.Context(), chi.URLParam(r, "tableID"), hand)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []game.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleExportHand writes the table's last finished hand as PHH. Hole
// cards not shown down stay hidden.
func (s *Server) handleExportHand(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	snap, err := s.manager.PublicSnapshot(tableID, "")
	if err != nil {
		writeError(w, err)
		return
	}
	hh, err := phh.FromHand(tableID, snap.Config.MaxSeats, snap.Hand)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/toml")
	if err := phh.Encode(w, hh); err != nil {
		s.logger.Warn().Err(err).Str("table", tableID).Msg("Failed to write hand history")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorData{Code: CodeBadRequest, Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respond writes snap redacted for viewer, or err.
func respond(w http.ResponseWriter, snap game.Snapshot, viewer string, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Redact(viewer))
}
