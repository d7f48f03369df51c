// Package store implements the document mutation, query and status
// contracts against the shared collection handle.
package store

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"zvecd/internal/collection"
	"zvecd/internal/zvec"
)

// Search top_k bounds. The upper bound exists to bound engine work and
// response size, not an engine limitation.
const (
	MinTopK = 1
	MaxTopK = 1000
)

// Service exposes document operations over the manager-owned handle.
// Each call resolves the current handle once and operates against that
// snapshot under the manager's shared lock.
type Service struct {
	manager *collection.Manager
}

// NewService creates a Service bound to the given manager.
func NewService(m *collection.Manager) *Service {
	return &Service{manager: m}
}

func engineDoc(id string, doc DocumentInsert) zvec.Doc {
	return zvec.Doc{
		ID:       id,
		Vectors:  map[string][]float32{collection.VectorField: doc.Vector},
		Metadata: doc.Metadata,
	}
}

// Insert stores one document and returns its id, generating one when the
// caller supplied none. A supplied id colliding with a stored document
// overwrites it (engine upsert semantics). Fails atomically: either the
// document becomes queryable or nothing is written.
func (s *Service) Insert(ctx context.Context, doc DocumentInsert) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := s.manager.View(func(c *zvec.Collection) error {
		if err := ValidateVector(doc.Vector, c.Schema().Vector.Dimension); err != nil {
			return err
		}
		if err := c.Insert(ctx, []zvec.Doc{engineDoc(id, doc)}); err != nil {
			return &EngineError{Op: "insert", Err: err}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// BatchInsert processes documents in input order, each validated and
// inserted independently. One document's failure is recorded at its
// original index and never aborts or rolls back the others. The only
// whole-batch error is ErrNotInitialized.
func (s *Service) BatchInsert(ctx context.Context, docs []DocumentInsert) (BatchOutcome, error) {
	outcome := BatchOutcome{InsertedIDs: []string{}}
	err := s.manager.View(func(c *zvec.Collection) error {
		dim := c.Schema().Vector.Dimension
		for i, doc := range docs {
			if err := ValidateVector(doc.Vector, dim); err != nil {
				outcome.Errors = append(outcome.Errors, BatchError{Index: i, Reason: err.Error()})
				continue
			}

			id := doc.ID
			if id == "" {
				id = uuid.NewString()
			}

			if err := c.Insert(ctx, []zvec.Doc{engineDoc(id, doc)}); err != nil {
				outcome.Errors = append(outcome.Errors, BatchError{Index: i, Reason: err.Error()})
				continue
			}
			outcome.InsertedIDs = append(outcome.InsertedIDs, id)
		}
		return nil
	})
	if err != nil {
		return BatchOutcome{}, err
	}

	outcome.InsertedCount = len(outcome.InsertedIDs)
	return outcome, nil
}

// Delete removes a document by id. The engine's delete is idempotent, so
// a nonexistent id is not distinguished from an existing one.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.manager.View(func(c *zvec.Collection) error {
		if err := c.Delete(ctx, []string{id}); err != nil {
			return &EngineError{Op: "delete", Err: err}
		}
		return nil
	})
}

// Clear destroys every document and leaves an empty collection with
// identical name and dimension. Delegates to the manager's exclusive
// reset.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.manager.Reset(); err != nil {
		if errors.Is(err, collection.ErrNotInitialized) {
			return err
		}
		return &EngineError{Op: "reset", Err: err}
	}
	return nil
}

// Search returns the topK most similar stored documents, ranked as the
// engine ranks them (similarity descending). filter, when non-nil, is
// passed through opaquely as a metadata predicate. An empty collection
// yields an empty result, never an error.
func (s *Service) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]SearchResult, error) {
	if topK < MinTopK || topK > MaxTopK {
		return nil, &InvalidArgumentError{
			Reason: "top_k must be between 1 and 1000",
		}
	}

	var results []SearchResult
	err := s.manager.View(func(c *zvec.Collection) error {
		if err := ValidateVector(vector, c.Schema().Vector.Dimension); err != nil {
			return err
		}
		hits, err := c.Query(ctx, zvec.VectorQuery{
			FieldName: collection.VectorField,
			Vector:    vector,
			Filter:    filter,
		}, topK)
		if err != nil {
			return &EngineError{Op: "query", Err: err}
		}

		results = make([]SearchResult, len(hits))
		for i, h := range hits {
			results[i] = SearchResult{ID: h.ID, Score: h.Score, Metadata: h.Metadata}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Health reports liveness. It never fails: a count-read error is logged
// and degrades to a zero count rather than propagating, since liveness
// probes must stay best-effort.
func (s *Service) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{Status: "healthy"}

	if !s.manager.Present() {
		h.Status = "unhealthy"
		return h
	}

	spec := s.manager.Spec()
	h.CollectionPresent = true
	h.Collection = spec.Name
	h.Dimension = spec.Dimension
	h.DocumentCount = s.bestEffortCount(ctx)
	return h
}

// Info describes the live collection, or fails with ErrNotInitialized
// when no handle is current. Count reads degrade like Health's.
func (s *Service) Info(ctx context.Context) (CollectionInfo, error) {
	if !s.manager.Present() {
		return CollectionInfo{}, collection.ErrNotInitialized
	}

	spec := s.manager.Spec()
	return CollectionInfo{
		Name:          spec.Name,
		Dimension:     spec.Dimension,
		DocumentCount: s.bestEffortCount(ctx),
		DataPath:      spec.StorageLocation,
	}, nil
}

func (s *Service) bestEffortCount(ctx context.Context) int {
	var count int
	err := s.manager.View(func(c *zvec.Collection) error {
		n, err := c.Count(ctx)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		log.Printf("[Store] Count read failed, reporting 0: %v", err)
		return 0
	}
	return count
}
