// Package collection owns the single live collection handle for the
// process: open on startup, atomic destroy-and-recreate on clear, close
// on shutdown. Every other layer reaches the engine through the Manager.
package collection

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"zvecd/internal/zvec"
)

// VectorField is the name of the collection's single vector field.
const VectorField = "embedding"

// ErrNotInitialized is returned when an operation needs the collection
// handle and none is current. After a successful startup this indicates
// the handle was closed unexpectedly, so callers log it loudly.
var ErrNotInitialized = errors.New("collection: not initialized")

// InitializationError reports a failed open-on-startup. It is fatal: the
// process must not serve traffic without a handle.
type InitializationError struct {
	Location string
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("collection: initialize at %s: %v", e.Location, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// Spec fixes the collection identity for the process lifetime.
type Spec struct {
	StorageLocation string
	Name            string
	Dimension       int
}

func (s Spec) schema() zvec.CollectionSchema {
	return zvec.CollectionSchema{
		Name: s.Name,
		Vector: zvec.VectorSchema{
			FieldName: VectorField,
			DType:     zvec.VectorFP32,
			Dimension: s.Dimension,
		},
	}
}

// Manager guards the shared mutable handle. Reads take the shared lock
// for the duration of their handle access; Reset holds the exclusive
// lock across close, destroy, recreate and publish so no request can
// observe a closed-but-not-replaced state.
type Manager struct {
	spec   Spec
	handle *zvec.Collection
	mu     sync.RWMutex
}

// NewManager returns a Manager with no current handle.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize opens the store at spec.StorageLocation, creating it when
// absent. Idempotent at process start; repeat calls with a live handle
// are rejected.
func (m *Manager) Initialize(spec Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return nil
	}

	h, err := zvec.CreateAndOpen(spec.StorageLocation, spec.schema())
	if err != nil {
		return &InitializationError{Location: spec.StorageLocation, Err: err}
	}

	m.spec = spec
	m.handle = h
	log.Printf("[Collection] Initialized %q (dimension %d) at %s", spec.Name, spec.Dimension, spec.StorageLocation)
	return nil
}

// Spec returns the collection identity fixed at Initialize.
func (m *Manager) Spec() Spec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spec
}

// Present reports whether a handle is current. Never blocks on a reset
// longer than the lock handoff itself.
func (m *Manager) Present() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil
}

// View runs fn against the current handle under the shared lock, so the
// handle cannot be swapped out or closed for the duration of fn. Returns
// ErrNotInitialized when no handle is current.
func (m *Manager) View(fn func(*zvec.Collection) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.handle == nil {
		log.Printf("[Collection] Operation attempted with no current handle")
		return ErrNotInitialized
	}
	return fn(m.handle)
}

// Reset closes the current handle, discards the underlying store, and
// publishes a freshly created empty one with the same spec. Destructive
// and irreversible. Exclusive with all other handle access: requests in
// flight finished before the lock was granted, and requests arriving
// after completion see only the new, empty handle.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return ErrNotInitialized
	}

	if err := m.handle.Close(); err != nil {
		return fmt.Errorf("collection: close before reset: %w", err)
	}
	m.handle = nil

	if err := zvec.Destroy(m.spec.StorageLocation); err != nil {
		return fmt.Errorf("collection: discard store: %w", err)
	}

	h, err := zvec.CreateAndOpen(m.spec.StorageLocation, m.spec.schema())
	if err != nil {
		// The old handle is gone and no new one could be created; every
		// subsequent request fails with ErrNotInitialized until restart.
		log.Printf("[Collection] ERROR: reset left no current handle: %v", err)
		return fmt.Errorf("collection: recreate store: %w", err)
	}

	m.handle = h
	log.Printf("[Collection] Reset %q: all documents destroyed", m.spec.Name)
	return nil
}

// Shutdown closes the current handle if present. Safe to call when
// absent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	log.Printf("[Collection] Closed %q", m.spec.Name)
	return err
}
