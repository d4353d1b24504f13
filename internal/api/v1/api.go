// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vmunix/prunarr/internal/engine"
	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

// Server is the v1 API server.
type Server struct {
	rules      *rules.Store
	queue      *queue.Store
	engine     *engine.Engine
	sweeper    *engine.Sweeper
	guard      *protection.Calculator
	protStore  *protection.Store
	redownload *protection.RedownloadScheduler
	eventLog   *events.EventLog

	version string
}

// Deps carries the server's collaborators. Protection and redownload are
// optional; their endpoints return 503 when absent.
type Deps struct {
	Rules      *rules.Store
	Queue      *queue.Store
	Engine     *engine.Engine
	Sweeper    *engine.Sweeper
	Guard      *protection.Calculator
	ProtStore  *protection.Store
	Redownload *protection.RedownloadScheduler
	EventLog   *events.EventLog
	Version    string
}

// New creates a new v1 API server.
func New(deps Deps) *Server {
	return &Server{
		rules:      deps.Rules,
		queue:      deps.Queue,
		engine:     deps.Engine,
		sweeper:    deps.Sweeper,
		guard:      deps.Guard,
		protStore:  deps.ProtStore,
		redownload: deps.Redownload,
		eventLog:   deps.EventLog,
		version:    deps.Version,
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Rules
	mux.HandleFunc("GET /api/v1/rules", s.listRules)
	mux.HandleFunc("GET /api/v1/rules/{id}", s.getRule)
	mux.HandleFunc("POST /api/v1/rules", s.addRule)
	mux.HandleFunc("PUT /api/v1/rules/{id}", s.updateRule)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", s.deleteRule)
	mux.HandleFunc("POST /api/v1/rules/{id}/preview", s.previewRule)
	mux.HandleFunc("POST /api/v1/rules/{id}/run", s.runRule)
	mux.HandleFunc("POST /api/v1/rules/run", s.runAllRules)

	// Runs
	mux.HandleFunc("GET /api/v1/runs/{run_id}", s.getRun)
	mux.HandleFunc("DELETE /api/v1/runs/{run_id}", s.clearRun)

	// Queue
	mux.HandleFunc("GET /api/v1/queue", s.listQueue)
	mux.HandleFunc("GET /api/v1/queue/{id}", s.getQueueItem)
	mux.HandleFunc("POST /api/v1/queue/{id}/save", s.saveQueueItem)
	mux.HandleFunc("POST /api/v1/queue/{id}/delete-now", s.deleteNowQueueItem)
	mux.HandleFunc("POST /api/v1/queue/{id}/extend", s.extendQueueItem)
	mux.HandleFunc("POST /api/v1/queue/sweep", s.triggerSweep)

	// Protection
	mux.HandleFunc("GET /api/v1/protection", s.requireProtection(s.listProtection))
	mux.HandleFunc("GET /api/v1/protection/{show_id}", s.requireProtection(s.getProtection))
	mux.HandleFunc("POST /api/v1/protection/run", s.requireProtection(s.runProtection))
	mux.HandleFunc("GET /api/v1/protection/tasks", s.requireProtection(s.listTasks))
	mux.HandleFunc("POST /api/v1/protection/redownload/run", s.requireRedownload(s.runRedownload))

	// Events & system
	mux.HandleFunc("GET /api/v1/events", s.listEvents)
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request, name string) (int64, error) {
	idStr := r.PathValue(name)
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryString extracts an optional string from query string.
func queryString(r *http.Request, name string) *string {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	return &val
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    s.version,
		"protection": s.guard != nil,
		"redownload": s.redownload != nil,
	})
}
