// Package api provides the read-only HTTP API of the strategy manager.
//
// Endpoints:
//
//	GET /api/v1/status                       - Service health check
//	GET /api/v1/farm-strategies              - Registered farm strategy names
//	GET /api/v1/farm-strategies/{name}       - One farm strategy
//	GET /api/v1/harvest-strategies           - Registered harvest strategy names
//	GET /api/v1/harvest-strategies/{name}    - One harvest strategy
//	GET /api/v1/collectors                   - Registered collector names
//	GET /api/v1/collectors/{name}            - One collector
//	GET /api/v1/groups                       - Strategy group names
//	GET /api/v1/groups/{name}                - One group (exist=false when absent)
//	GET /api/v1/groups/{name}/executions     - Persisted executions of a group
//	GET /api/v1/events                       - Events emitted since start
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/algomatic/strategy-manager/internal/repository"
	"github.com/algomatic/strategy-manager/internal/service"
	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/manager"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ExecutionHistory lists persisted executions.
type ExecutionHistory interface {
	ListByGroup(ctx context.Context, groupName string, limit int) ([]repository.ExecutionRow, error)
}

// Server holds dependencies for the API handlers.
type Server struct {
	Service *service.Service
	History ExecutionHistory
	Checks  map[string]HealthCheck
	Version string
	Logger  *slog.Logger

	startTime time.Time
}

// NewServer creates a new API server.
func NewServer(svc *service.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Service:   svc,
		Checks:    map[string]HealthCheck{},
		Version:   version,
		Logger:    logger,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/status", s.HandleStatus)
	mux.HandleFunc("GET /api/v1/farm-strategies", s.HandleListFarmStrategies)
	mux.HandleFunc("GET /api/v1/farm-strategies/{name}", s.HandleGetFarmStrategy)
	mux.HandleFunc("GET /api/v1/harvest-strategies", s.HandleListHarvestStrategies)
	mux.HandleFunc("GET /api/v1/harvest-strategies/{name}", s.HandleGetHarvestStrategy)
	mux.HandleFunc("GET /api/v1/collectors", s.HandleListCollectors)
	mux.HandleFunc("GET /api/v1/collectors/{name}", s.HandleGetCollector)
	mux.HandleFunc("GET /api/v1/groups", s.HandleListGroups)
	mux.HandleFunc("GET /api/v1/groups/{name}", s.HandleGetGroup)
	mux.HandleFunc("GET /api/v1/groups/{name}/executions", s.HandleListExecutions)
	mux.HandleFunc("GET /api/v1/events", s.HandleListEvents)
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

type statusResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Version       string            `json:"version"`
	Dependencies  map[string]string `json:"dependencies"`
}

type namesResponse struct {
	Names []string `json:"names"`
	Total int      `json:"total"`
}

type entryResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Found   bool   `json:"found"`
}

type groupResponse struct {
	GroupName       string   `json:"group_name"`
	FarmStrategies  []string `json:"farm_strategies"`
	HarvestStrategy string   `json:"harvest_strategy"`
	Collector       string   `json:"collector"`
	Vault           string   `json:"vault"`
	Exist           bool     `json:"exist"`
}

type eventItem struct {
	Event     string `json:"event"`
	GroupName string `json:"group_name"`
	Amount    string `json:"amount"`
	Vault     string `json:"vault"`
}

type eventsResponse struct {
	Events []eventItem `json:"events"`
	Total  int         `json:"total"`
}

type executionItem struct {
	ID         int64  `json:"id"`
	Amount     string `json:"amount"`
	Vault      string `json:"vault"`
	RecordedAt string `json:"recorded_at"`
}

type executionsResponse struct {
	GroupName  string          `json:"group_name"`
	Executions []executionItem `json:"executions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// HandleStatus handles GET /api/v1/status. A failing dependency degrades
// the status but still answers 200.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Version:       s.Version,
		Dependencies:  make(map[string]string, len(s.Checks)),
	}
	for name, check := range s.Checks {
		if err := check(r.Context()); err != nil {
			resp.Dependencies[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

func names(list []string) namesResponse {
	if list == nil {
		list = []string{}
	}
	return namesResponse{Names: list, Total: len(list)}
}

// HandleListFarmStrategies handles GET /api/v1/farm-strategies.
func (s *Server) HandleListFarmStrategies(w http.ResponseWriter, r *http.Request) {
	farms, _, _, _ := s.Service.Names()
	writeJSON(w, http.StatusOK, names(farms))
}

// HandleListHarvestStrategies handles GET /api/v1/harvest-strategies.
func (s *Server) HandleListHarvestStrategies(w http.ResponseWriter, r *http.Request) {
	_, harvests, _, _ := s.Service.Names()
	writeJSON(w, http.StatusOK, names(harvests))
}

// HandleListCollectors handles GET /api/v1/collectors.
func (s *Server) HandleListCollectors(w http.ResponseWriter, r *http.Request) {
	_, _, collectors, _ := s.Service.Names()
	writeJSON(w, http.StatusOK, names(collectors))
}

// HandleListGroups handles GET /api/v1/groups.
func (s *Server) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	_, _, _, groups := s.Service.Names()
	writeJSON(w, http.StatusOK, names(groups))
}

func (s *Server) writeEntry(w http.ResponseWriter, name string, addr types.Address, found bool) {
	resp := entryResponse{Name: name, Address: addr.String(), Found: found}
	if !found {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetFarmStrategy handles GET /api/v1/farm-strategies/{name}.
func (s *Server) HandleGetFarmStrategy(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	addr, ok := s.Service.FarmStrategy(name)
	s.writeEntry(w, name, addr, ok)
}

// HandleGetHarvestStrategy handles GET /api/v1/harvest-strategies/{name}.
func (s *Server) HandleGetHarvestStrategy(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	addr, ok := s.Service.HarvestStrategy(name)
	s.writeEntry(w, name, addr, ok)
}

// HandleGetCollector handles GET /api/v1/collectors/{name}.
func (s *Server) HandleGetCollector(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	addr, ok := s.Service.Collector(name)
	s.writeEntry(w, name, addr, ok)
}

// HandleGetGroup handles GET /api/v1/groups/{name}. An absent group
// answers 200 with the zero record so callers can branch on exist.
func (s *Server) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildGroup(s.Service.StrategiesGroup(r.PathValue("name"))))
}

// HandleListExecutions handles GET /api/v1/groups/{name}/executions.
func (s *Server) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "execution history is not configured"})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	name := r.PathValue("name")
	rows, err := s.History.ListByGroup(r.Context(), name, limit)
	if err != nil {
		s.Logger.Error("Listing executions failed", "group", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing executions failed"})
		return
	}

	resp := executionsResponse{GroupName: name, Executions: make([]executionItem, 0, len(rows))}
	for _, row := range rows {
		resp.Executions = append(resp.Executions, executionItem{
			ID:         row.ID,
			Amount:     row.Amount,
			Vault:      row.Vault,
			RecordedAt: row.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListEvents handles GET /api/v1/events. The optional group query
// parameter filters by group name.
func (s *Server) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")

	items := []eventItem{}
	for _, rec := range s.Service.Events() {
		ev, ok := rec.(events.ExecuteStrategy)
		if !ok {
			continue
		}
		if group != "" && ev.GroupName != group {
			continue
		}
		items = append(items, eventItem{
			Event:     ev.EventName(),
			GroupName: ev.GroupName,
			Amount:    ev.Amount.String(),
			Vault:     ev.Vault.String(),
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: items, Total: len(items)})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

func buildGroup(g manager.StrategyGroup) groupResponse {
	farms := make([]string, 0, len(g.FarmStrategies))
	for _, addr := range g.FarmStrategyAddresses() {
		farms = append(farms, addr.String())
	}
	resp := groupResponse{
		GroupName:      g.Name,
		FarmStrategies: farms,
		Vault:          g.Vault.String(),
		Exist:          g.Exists,
	}
	if g.HarvestStrategy != nil {
		resp.HarvestStrategy = g.HarvestStrategy.Address().String()
	}
	if g.Collector != nil {
		resp.Collector = g.Collector.Address().String()
	}
	return resp
}
