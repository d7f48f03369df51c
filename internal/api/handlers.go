package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"zvecd/internal/collection"
	"zvecd/internal/store"
	"zvecd/internal/version"
)

// Error kinds reported to clients alongside an HTTP status.
const (
	kindBadRequest        = "BadRequest"
	kindNotInitialized    = "NotInitialized"
	kindDimensionMismatch = "DimensionMismatch"
	kindInvalidArgument   = "InvalidArgument"
	kindEngineError       = "EngineError"
)

type apiError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// handleRoot handles GET /
// Response: service banner with name, version and probe paths.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "zvecd vector database API",
		"version": version.Info(),
		"health":  "/health",
	})
}

// handleHealth handles GET /health
// Always returns 200 while the process is up; count-read failures
// degrade to a zero count inside the service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Health(r.Context()))
}

// handleInfo handles GET /collection/info
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Info(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleInsert handles POST /documents
// Request: {"id": "optional", "vector": [...], "metadata": {...}}
// Response: {"id": ..., "status": "inserted"}
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req store.DocumentInsert
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, kindBadRequest, "invalid JSON: "+err.Error())
		return
	}

	id, err := s.service.Insert(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "inserted",
	})
}

// handleBatchInsert handles POST /documents/batch
// Request: {"documents": [{"id": ..., "vector": [...], "metadata": ...}, ...]}
// Response: the itemized batch outcome; always 200 when the collection
// is present, even when some documents were rejected.
func (s *Server) handleBatchInsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []store.DocumentInsert `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, kindBadRequest, "invalid JSON: "+err.Error())
		return
	}

	outcome, err := s.service.BatchInsert(r.Context(), req.Documents)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// handleSearch handles POST /search
// Request: {"vector": [...], "top_k": 10, "filter": {...}}
// Response: ranked results array, empty when nothing is stored.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vector []float32      `json:"vector"`
		TopK   *int           `json:"top_k,omitempty"`
		Filter map[string]any `json:"filter,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, kindBadRequest, "invalid JSON: "+err.Error())
		return
	}

	topK := 10
	if req.TopK != nil {
		topK = *req.TopK
	}

	results, err := s.service.Search(r.Context(), req.Vector, topK, req.Filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleDelete handles DELETE /documents/{id}
// Response: {"id": ..., "status": "deleted"}. Deleting an unknown id is
// indistinguishable from deleting an existing one.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, kindBadRequest, "id is required")
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "deleted",
	})
}

// handleClear handles DELETE /collection
// Destroys every document and recreates the collection empty with the
// same name and dimension.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "cleared",
		"collection": s.manager.Spec().Name,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// writeJSONError writes a structured JSON error response.
func writeJSONError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, map[string]apiError{
		"error": {Kind: kind, Detail: detail},
	})
}

// writeStoreError maps a service error to its HTTP status and
// machine-readable kind.
func writeStoreError(w http.ResponseWriter, err error) {
	var dimErr *store.DimensionMismatchError
	var argErr *store.InvalidArgumentError
	var engErr *store.EngineError

	switch {
	case errors.Is(err, collection.ErrNotInitialized):
		writeJSONError(w, http.StatusServiceUnavailable, kindNotInitialized, "collection not initialized")
	case errors.As(err, &dimErr):
		writeJSONError(w, http.StatusBadRequest, kindDimensionMismatch, dimErr.Error())
	case errors.As(err, &argErr):
		writeJSONError(w, http.StatusBadRequest, kindInvalidArgument, argErr.Error())
	case errors.As(err, &engErr):
		log.Printf("[API] Engine error: %v", engErr)
		writeJSONError(w, http.StatusInternalServerError, kindEngineError, engErr.Error())
	default:
		log.Printf("[API] Unexpected error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, kindEngineError, err.Error())
	}
}
