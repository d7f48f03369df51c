package zvec

// DataType identifies the element type of a vector field.
type DataType string

// VectorFP32 is the only supported vector element type.
const VectorFP32 DataType = "fp32"

// VectorSchema describes a single vector field of a collection.
type VectorSchema struct {
	FieldName string
	DType     DataType
	Dimension int
}

// CollectionSchema describes a collection: a name and one vector field.
type CollectionSchema struct {
	Name   string
	Vector VectorSchema
}

// Doc is a record to insert. Vectors maps field name to embedding.
// Insert has upsert semantics: a Doc sharing an id with a stored record
// replaces it.
type Doc struct {
	ID       string
	Vectors  map[string][]float32
	Metadata map[string]any
}

// VectorQuery is a nearest-neighbor query against one vector field.
// Filter, when non-nil, restricts hits to documents whose metadata
// contains every key with an equal value.
type VectorQuery struct {
	FieldName string
	Vector    []float32
	Filter    map[string]any
}

// Hit is a single query match. Score is cosine similarity; higher is
// more similar.
type Hit struct {
	ID       string
	Score    float32
	Metadata map[string]any
}
