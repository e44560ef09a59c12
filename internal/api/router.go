package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Device-facing poll protocol. Nodes carry no credentials;
		// these routes are identified by serial/device ID alone and
		// never expose secrets beyond the node's own configuration.
		r.Route("/iot", func(r chi.Router) {
			r.Post("/announce", s.handleAnnounce)
			r.Get("/status", s.handleDeviceStatus)
			r.Get("/config/{deviceID}", s.handleFetchConfig)
			r.Post("/readings", s.handlePostReadings)
		})

		// Operator routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Discovery listing
			r.Route("/discovery", func(r chi.Router) {
				r.Get("/", s.handleListDiscovery)
				r.With(s.adminOnlyMiddleware).Post("/reset", s.handleResetDiscovery)
			})

			// Paired device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/pair", s.handlePairDevice)

				r.Route("/{deviceID}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Patch("/", s.handleUpdateDevice)
					r.Delete("/", s.handleUnpairDevice)
					r.Get("/config", s.handleGetConfig)
					r.Patch("/config", s.handleUpdateConfig)
					r.Post("/config/force-update", s.handleForceConfigUpdate)
				})
			})

			// User account management (admin only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.adminOnlyMiddleware)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			// Password change for the authenticated user
			r.Post("/auth/password", s.handleChangePassword)

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
