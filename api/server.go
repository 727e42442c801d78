package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/command"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
	"github.com/wricardo/mcp-training/autoreplace/game/session"
	"github.com/wricardo/mcp-training/autoreplace/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.ReplaceService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(svc service.ReplaceService, hub *websocket.Hub) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Replace dialogs
	api.HandleFunc("/sessions/{id}/dialogs/{category}", s.handleOpenDialog).Methods("POST")
	api.HandleFunc("/sessions/{id}/dialogs/{category}", s.handleGetView).Methods("GET")
	api.HandleFunc("/sessions/{id}/dialogs/{category}", s.handleCloseDialog).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/dialogs/{category}/actions", s.handleDispatch).Methods("POST")

	// World
	api.HandleFunc("/sessions/{id}/engines", s.handleListEngines).Methods("GET")
	api.HandleFunc("/sessions/{id}/engines/{engine}/introduce", s.handleIntroduce).Methods("POST")
	api.HandleFunc("/sessions/{id}/engines/{engine}/retire", s.handleRetire).Methods("POST")
	api.HandleFunc("/sessions/{id}/fleet/buy", s.handleBuy).Methods("POST")
	api.HandleFunc("/sessions/{id}/fleet/sell", s.handleSell).Methods("POST")

	// Simulation
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Scenarios
	api.HandleFunc("/scenarios", s.handleListScenarios).Methods("GET")
	api.HandleFunc("/scenarios", s.handleCreateScenario).Methods("POST")
	api.HandleFunc("/scenarios/{name}", s.handleGetScenario).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, service.ErrDialogNotOpen),
		errors.Is(err, service.ErrScenarioNotFound),
		errors.Is(err, catalog.ErrUnknownEngine),
		errors.Is(err, catalog.ErrUnknownGroup):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrRailTypeUnavailable),
		errors.Is(err, service.ErrInvalidScenario),
		errors.Is(err, command.ErrInvalidCount):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptional decodes a JSON body that may be absent
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func categoryVar(r *http.Request) (catalog.Category, error) {
	cat, err := catalog.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrInvalidCategory, err)
	}
	return cat, nil
}

func engineVar(r *http.Request) (catalog.EngineID, error) {
	n, err := strconv.ParseUint(mux.Vars(r)["engine"], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid engine id %q", catalog.ErrUnknownEngine, mux.Vars(r)["engine"])
	}
	return catalog.EngineID(n), nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id,omitempty"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.ScenarioID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < total {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Dialog Handlers

func (s *Server) handleOpenDialog(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	cat, err := categoryVar(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req struct {
		Group *catalog.GroupID `json:"group,omitempty"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	group := catalog.DefaultGroup
	if req.Group != nil {
		group = *req.Group
	}

	view, err := s.service.OpenDialog(r.Context(), sessionID, cat, group)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastView(sessionID, cat, view)
	}
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	cat, err := categoryVar(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	view, err := s.service.GetView(r.Context(), mux.Vars(r)["id"], cat)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	cat, err := categoryVar(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var action service.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Dispatch(r.Context(), sessionID, cat, action)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("session", sessionID).
		Stringer("category", cat).
		Str("action", action.Type).
		Bool("changed", result.Changed).
		Msg("dialog action")

	if s.hub != nil && result.Changed {
		s.hub.BroadcastView(sessionID, cat, result.View)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCloseDialog(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	cat, err := categoryVar(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.service.CloseDialog(r.Context(), sessionID, cat); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastClosed(sessionID, cat)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s dialog closed", cat),
	})
}

// World Handlers

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("category")
	if name == "" {
		name = catalog.Train.String()
	}
	cat, err := catalog.ParseCategory(name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	engines, err := s.service.ListEngines(r.Context(), mux.Vars(r)["id"], cat)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": cat,
		"count":    len(engines),
		"engines":  engines,
	})
}

type fleetRequest struct {
	Group  *catalog.GroupID `json:"group,omitempty"`
	Engine catalog.EngineID `json:"engine"`
	Count  int              `json:"count"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleFleet(w, r, s.service.BuyVehicles)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleFleet(w, r, s.service.SellVehicles)
}

type fleetFunc func(ctx context.Context, sessionID string, group catalog.GroupID, engine catalog.EngineID, count int) (*service.FleetResult, error)

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request, apply fleetFunc) {
	sessionID := mux.Vars(r)["id"]

	var req fleetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	group := catalog.DefaultGroup
	if req.Group != nil {
		group = *req.Group
	}

	result, err := apply(r.Context(), sessionID, group, req.Engine, req.Count)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastDialogs(r.Context(), sessionID, websocket.EventFleetUpdate, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleIntroduce(w http.ResponseWriter, r *http.Request) {
	s.handleBuildable(w, r, s.service.IntroduceEngine)
}

func (s *Server) handleRetire(w http.ResponseWriter, r *http.Request) {
	s.handleBuildable(w, r, s.service.RetireEngine)
}

type buildableFunc func(ctx context.Context, sessionID string, engine catalog.EngineID) (*catalog.EngineModel, error)

func (s *Server) handleBuildable(w http.ResponseWriter, r *http.Request, apply buildableFunc) {
	sessionID := mux.Vars(r)["id"]
	engine, err := engineVar(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	model, err := apply(r.Context(), sessionID, engine)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastDialogs(r.Context(), sessionID, websocket.EventFleetUpdate, model)
	respondJSON(w, http.StatusOK, model)
}

// Simulation Handlers

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Tick(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Executed+result.Rejected > 0 {
		s.broadcastDialogs(r.Context(), sessionID, websocket.EventTick, result)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l < len(history.Entries) {
		history.Entries = history.Entries[len(history.Entries)-l:]
	}
	respondJSON(w, http.StatusOK, history)
}

// BroadcastTick pushes the outcome of a background tick to the session's clients
func (s *Server) BroadcastTick(ctx context.Context, result *service.TickResult) {
	s.broadcastDialogs(ctx, result.SessionID, websocket.EventTick, result)
}

// broadcastDialogs sends an event followed by a redraw of every open dialog
// of the session
func (s *Server) broadcastDialogs(ctx context.Context, sessionID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(sessionID, event, data)

	info, err := s.service.GetSession(ctx, sessionID)
	if err != nil {
		return
	}
	for _, cat := range info.OpenDialogs {
		view, err := s.service.GetView(ctx, sessionID, cat)
		if err != nil {
			continue
		}
		s.hub.BroadcastView(sessionID, cat, view)
	}
}

// Scenario Handlers

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.service.ListScenarios(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := s.service.LoadScenario(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scenario)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
		catalog.Scenario
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := req.ScenarioID
	if id == "" {
		id = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(req.Name)), " ", "_")
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "Scenario name is required")
		return
	}

	if err := s.service.SaveScenario(r.Context(), id, &req.Scenario); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Scenario saved successfully",
		"scenario_id": id,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusNotImplemented)
		return
	}
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
