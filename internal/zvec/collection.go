package zvec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"zvecd/internal/mathutil"
)

// Collection is a live handle to a single on-disk vector store. All
// methods are safe for concurrent use; once Close returns, every
// subsequent call fails with ErrClosed.
type Collection struct {
	db     *sql.DB
	path   string
	schema CollectionSchema

	// Resident copy of the store. SQLite is the source of truth; writes
	// go to the database first, then to this map. Queries scan the map.
	docs map[string]storedDoc

	closed bool
	mu     sync.RWMutex
}

type storedDoc struct {
	embedding []float32
	metadata  map[string]any
}

// CreateAndOpen opens the store at path, creating it if absent. When the
// store already exists, its recorded schema must agree with the requested
// one; disagreement fails with ErrSchemaMismatch.
func CreateAndOpen(path string, schema CollectionSchema) (*Collection, error) {
	if schema.Vector.Dimension <= 0 {
		return nil, WrapError("CreateAndOpen", fmt.Errorf("dimension must be positive, got %d", schema.Vector.Dimension))
	}
	if schema.Vector.DType == "" {
		schema.Vector.DType = VectorFP32
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, WrapError("CreateAndOpen", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, WrapError("CreateAndOpen", err)
	}

	c := &Collection{
		db:     db,
		path:   path,
		schema: schema,
		docs:   make(map[string]storedDoc),
	}

	if err := c.init(); err != nil {
		db.Close()
		return nil, WrapError("CreateAndOpen", err)
	}
	if err := c.loadAll(); err != nil {
		db.Close()
		return nil, WrapError("CreateAndOpen", err)
	}

	return c, nil
}

func (c *Collection) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := c.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	ddl := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS docs (
			id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			metadata TEXT
		);
	`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return c.verifyOrRecordSchema()
}

// verifyOrRecordSchema records the collection schema on first open and
// checks it on every subsequent open.
func (c *Collection) verifyOrRecordSchema() error {
	var stored string
	err := c.db.QueryRow(`SELECT value FROM meta WHERE key = 'dimension'`).Scan(&stored)
	if err == sql.ErrNoRows {
		entries := map[string]string{
			"name":         c.schema.Name,
			"vector_field": c.schema.Vector.FieldName,
			"dtype":        string(c.schema.Vector.DType),
			"dimension":    strconv.Itoa(c.schema.Vector.Dimension),
		}
		for k, v := range entries {
			if _, err := c.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
				return err
			}
		}
		return nil
	}
	if err != nil {
		return err
	}

	dim, err := strconv.Atoi(stored)
	if err != nil {
		return ErrStorageCorrupt
	}
	if dim != c.schema.Vector.Dimension {
		return fmt.Errorf("%w: have dimension %d, want %d", ErrSchemaMismatch, dim, c.schema.Vector.Dimension)
	}

	var name string
	if err := c.db.QueryRow(`SELECT value FROM meta WHERE key = 'name'`).Scan(&name); err == nil && name != c.schema.Name {
		return fmt.Errorf("%w: have name %q, want %q", ErrSchemaMismatch, name, c.schema.Name)
	}
	return nil
}

func (c *Collection) loadAll() error {
	rows, err := c.db.Query(`SELECT id, embedding, metadata FROM docs`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var embBytes []byte
		var metaJSON sql.NullString

		if err := rows.Scan(&id, &embBytes, &metaJSON); err != nil {
			return err
		}

		d := storedDoc{embedding: decodeFloat32Slice(embBytes)}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &d.metadata); err != nil {
				return ErrStorageCorrupt
			}
		}
		c.docs[id] = d
	}

	return rows.Err()
}

// Schema returns the collection schema.
func (c *Collection) Schema() CollectionSchema {
	return c.schema
}

// Insert stores documents with upsert-by-id semantics. Each document must
// carry the schema's vector field with the schema's dimension.
func (c *Collection) Insert(ctx context.Context, docs []Doc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return WrapError("Insert", ErrClosed)
	}

	for _, d := range docs {
		emb, ok := d.Vectors[c.schema.Vector.FieldName]
		if !ok {
			return WrapError("Insert", fmt.Errorf("%w: document %q has no field %q", ErrUnknownField, d.ID, c.schema.Vector.FieldName))
		}
		if len(emb) != c.schema.Vector.Dimension {
			return WrapError("Insert", fmt.Errorf("%w: expected %d, got %d", ErrDimMismatch, c.schema.Vector.Dimension, len(emb)))
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError("Insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO docs (id, embedding, metadata) VALUES (?, ?, ?)`)
	if err != nil {
		return WrapError("Insert", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		emb := d.Vectors[c.schema.Vector.FieldName]
		var metaJSON []byte
		if d.Metadata != nil {
			metaJSON, err = json.Marshal(d.Metadata)
			if err != nil {
				return WrapError("Insert", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, d.ID, encodeFloat32Slice(emb), metaJSON); err != nil {
			return WrapError("Insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return WrapError("Insert", err)
	}

	for _, d := range docs {
		c.docs[d.ID] = storedDoc{
			embedding: d.Vectors[c.schema.Vector.FieldName],
			metadata:  d.Metadata,
		}
	}
	return nil
}

// Delete removes documents by id. Unknown ids are ignored.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return WrapError("Delete", ErrClosed)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError("Delete", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM docs WHERE id = ?`)
	if err != nil {
		return WrapError("Delete", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return WrapError("Delete", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return WrapError("Delete", err)
	}

	for _, id := range ids {
		delete(c.docs, id)
	}
	return nil
}

// Query returns the topK documents most similar to q.Vector, ranked by
// cosine similarity descending. A nil result with nil error means the
// collection holds no matching documents.
func (c *Collection) Query(ctx context.Context, q VectorQuery, topK int) ([]Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, WrapError("Query", ErrClosed)
	}
	if q.FieldName != c.schema.Vector.FieldName {
		return nil, WrapError("Query", fmt.Errorf("%w: %q", ErrUnknownField, q.FieldName))
	}
	if len(q.Vector) != c.schema.Vector.Dimension {
		return nil, WrapError("Query", fmt.Errorf("%w: expected %d, got %d", ErrDimMismatch, c.schema.Vector.Dimension, len(q.Vector)))
	}
	if topK <= 0 {
		return nil, WrapError("Query", fmt.Errorf("topK must be positive, got %d", topK))
	}

	hits := make([]Hit, 0, topK)
	for id, d := range c.docs {
		if err := ctx.Err(); err != nil {
			return nil, WrapError("Query", err)
		}
		if !matchesFilter(d.metadata, q.Filter) {
			continue
		}
		hits = append(hits, Hit{
			ID:       id,
			Score:    mathutil.CosineSimilarity(q.Vector, d.embedding),
			Metadata: d.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// matchesFilter reports whether metadata contains every filter key with an
// equal value. Both sides originate from JSON, so plain deep equality over
// the decoded representation is sufficient.
func matchesFilter(metadata, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, WrapError("Count", ErrClosed)
	}
	return len(c.docs), nil
}

// Close releases the underlying database. Safe to call more than once.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.docs = nil
	return c.db.Close()
}

// Destroy removes the store files at path, including SQLite WAL sidecars.
// Missing files are not an error. The collection at path must be closed.
func Destroy(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return WrapError("Destroy", err)
		}
	}
	return nil
}

// encodeFloat32Slice converts []float32 to []byte.
func encodeFloat32Slice(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32Slice converts []byte to []float32.
func decodeFloat32Slice(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
