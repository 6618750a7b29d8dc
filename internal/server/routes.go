package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (live run events)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Runs
	mux.HandleFunc("/api/runs", s.handleRunsCollection) // GET (list), POST (trigger)
	mux.HandleFunc("/api/runs/", s.app.RunsHandler.RunRoutesHandler)

	// API routes - Scenarios
	mux.HandleFunc("/api/scenarios", s.app.ScenarioHandler.ListScenariosHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	return mux
}

// handleRunsCollection routes GET and POST on /api/runs
func (s *Server) handleRunsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.RunsHandler.ListRunsHandler(w, r)
	case http.MethodPost:
		s.app.RunsHandler.TriggerRunsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
