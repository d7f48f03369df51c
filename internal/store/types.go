package store

// DocumentInsert is a candidate document. ID is optional; one is
// generated when absent. Metadata is opaque to this layer.
type DocumentInsert struct {
	ID       string         `json:"id,omitempty"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResult is one ranked query match.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchError attributes a rejected or failed batch document to its
// position in the input sequence.
type BatchError struct {
	Index  int    `json:"index"`
	Reason string `json:"error"`
}

// BatchOutcome itemizes a batch insert: inserted ids in input order of
// the successes, and per-index errors for the rest. No rollback across
// documents.
type BatchOutcome struct {
	InsertedCount int          `json:"inserted_count"`
	InsertedIDs   []string     `json:"inserted_ids"`
	Errors        []BatchError `json:"errors,omitempty"`
}

// HealthStatus is the liveness report. Count reads never fail outward;
// they degrade to zero.
type HealthStatus struct {
	Status            string `json:"status"`
	CollectionPresent bool   `json:"collection_present"`
	Collection        string `json:"collection,omitempty"`
	DocumentCount     int    `json:"document_count"`
	Dimension         int    `json:"dimension,omitempty"`
}

// CollectionInfo describes the live collection.
type CollectionInfo struct {
	Name          string `json:"name"`
	Dimension     int    `json:"dimension"`
	DocumentCount int    `json:"document_count"`
	DataPath      string `json:"data_path"`
}
