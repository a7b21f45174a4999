package server

import (
	"context"
	"errors"
	"net/http"
)

// Server bundles the hub and its HTTP surface.
type Server struct {
	hub  *Hub
	http *http.Server
}

// New builds a server for cfg persisting through messages.
func New(cfg *Config, messages MessageStore) *Server {
	hub := NewHub(cfg, messages)
	handler := SetupRoutes(NewHandlers(hub))
	return &Server{
		hub:  hub,
		http: CreateServer(hub.cfg.Port, handler),
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the hub and serves HTTP until Shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	return StartServer(s.http)
}

// Shutdown stops accepting requests, then closes every connection and
// flushes pending message writes.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := ShutdownServer(ctx, s.http)
	hubErr := s.hub.Shutdown(ctx)
	return errors.Join(httpErr, hubErr)
}
