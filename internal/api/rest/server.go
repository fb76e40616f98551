// Package rest exposes the card pipeline over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/service"
)

// Server is the REST API server.
type Server struct {
	server  *http.Server
	handler *Handler
}

// NewServer creates the REST server and its route table.
func NewServer(port string, cards *service.CardService, templateIDs []string, defaultTemplate string, logger zerolog.Logger) *Server {
	handler := NewHandler(cards, templateIDs, defaultTemplate, logger)

	router := mux.NewRouter()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/cards/{nickname}", handler.GetCard).Methods("GET")
	api.HandleFunc("/templates", handler.ListTemplates).Methods("GET")

	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Start starts the REST server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
