package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workflows", c.WithRequestID(c.handleCreateDefinition))
	mux.HandleFunc("GET /api/workflows", c.WithRequestID(c.handleListDefinitions))
	mux.HandleFunc("GET /api/workflows/{id}", c.WithRequestID(c.handleGetDefinition))
}

func (c *InstancesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/instances", c.WithRequestID(c.handleStartInstance))
	mux.HandleFunc("GET /api/instances", c.WithRequestID(c.handleListInstances))
	mux.HandleFunc("GET /api/instances/{id}", c.WithRequestID(c.handleGetInstance))
	mux.HandleFunc("POST /api/instances/{id}/actions", c.WithRequestID(c.handleExecuteAction))
}

// RegisterHealthRoute exposes a liveness probe.
func RegisterHealthRoute(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
