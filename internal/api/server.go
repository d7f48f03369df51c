// Package api exposes the collection over an HTTP JSON surface.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"zvecd/internal/collection"
	"zvecd/internal/config"
	"zvecd/internal/store"
)

// Server wires the HTTP surface to the store service.
type Server struct {
	cfg     *config.Config
	manager *collection.Manager
	service *store.Service
}

// New initializes the collection handle and returns a ready Server.
// An initialization failure is fatal: the caller must not serve traffic.
func New(cfg *config.Config) (*Server, error) {
	manager := collection.NewManager()
	if err := manager.Initialize(collection.Spec{
		StorageLocation: cfg.StorageLocation(),
		Name:            cfg.Collection.Name,
		Dimension:       cfg.Collection.Dimension,
	}); err != nil {
		return nil, err
	}

	return &Server{
		cfg:     cfg,
		manager: manager,
		service: store.NewService(manager),
	}, nil
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /collection/info", s.handleInfo)
	mux.HandleFunc("POST /documents", s.handleInsert)
	mux.HandleFunc("POST /documents/batch", s.handleBatchInsert)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDelete)
	mux.HandleFunc("DELETE /collection", s.handleClear)

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// closes the collection handle.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.manager.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown did not complete cleanly: %v", err)
	}

	return s.manager.Shutdown()
}
