package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zvecd/internal/collection"
)

func newTestService(t *testing.T, dim int) *Service {
	t.Helper()
	m := collection.NewManager()
	require.NoError(t, m.Initialize(collection.Spec{
		StorageLocation: filepath.Join(t.TempDir(), "default.db"),
		Name:            "default",
		Dimension:       dim,
	}))
	t.Cleanup(func() { m.Shutdown() })
	return NewService(m)
}

func newUninitializedService() *Service {
	return NewService(collection.NewManager())
}

func TestInsert_GeneratesID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	id, err := svc.Insert(ctx, DocumentInsert{Vector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DocumentCount)
}

func TestInsert_ThenSearchFindsIt(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	id, err := svc.Insert(ctx, DocumentInsert{Vector: []float32{0.2, 0.4, 0.6, 0.8}})
	require.NoError(t, err)

	results, err := svc.Search(ctx, []float32{0.2, 0.4, 0.6, 0.8}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
}

func TestInsert_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	_, err := svc.Insert(ctx, DocumentInsert{Vector: []float32{1, 0}})
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)

	// No document was written.
	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DocumentCount)
}

func TestInsert_NotInitialized(t *testing.T) {
	svc := newUninitializedService()
	_, err := svc.Insert(context.Background(), DocumentInsert{Vector: []float32{1, 0}})
	require.ErrorIs(t, err, collection.ErrNotInitialized)
}

func TestInsert_SuppliedIDOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 2)

	_, err := svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{1, 0}})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{0, 1}})
	require.NoError(t, err)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DocumentCount)
}

func TestBatchInsert_PartialFailure(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 2)

	docs := []DocumentInsert{
		{ID: "ok-0", Vector: []float32{1, 0}},
		{ID: "bad-1", Vector: []float32{1, 0, 0}}, // wrong dimension
		{ID: "ok-2", Vector: []float32{0, 1}},
		{ID: "bad-3", Vector: []float32{1}}, // wrong dimension
		{ID: "ok-4", Vector: []float32{1, 1}},
	}

	outcome, err := svc.BatchInsert(ctx, docs)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.InsertedCount)
	assert.Equal(t, []string{"ok-0", "ok-2", "ok-4"}, outcome.InsertedIDs)

	require.Len(t, outcome.Errors, 2)
	assert.Equal(t, 1, outcome.Errors[0].Index)
	assert.Equal(t, 3, outcome.Errors[1].Index)
	assert.Contains(t, outcome.Errors[0].Reason, "dimension mismatch")

	// The valid documents really were written.
	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.DocumentCount)
}

func TestBatchInsert_GeneratesMissingIDs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 2)

	outcome, err := svc.BatchInsert(ctx, []DocumentInsert{
		{Vector: []float32{1, 0}},
		{Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.InsertedCount)
	require.Len(t, outcome.InsertedIDs, 2)
	assert.NotEmpty(t, outcome.InsertedIDs[0])
	assert.NotEqual(t, outcome.InsertedIDs[0], outcome.InsertedIDs[1])
	assert.Empty(t, outcome.Errors)
}

func TestBatchInsert_NotInitialized(t *testing.T) {
	svc := newUninitializedService()
	_, err := svc.BatchInsert(context.Background(), []DocumentInsert{
		{Vector: []float32{1, 0}},
	})
	require.ErrorIs(t, err, collection.ErrNotInitialized)
}

func TestDelete_RemovesDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	_, err := svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, DocumentInsert{ID: "b", Vector: []float32{0, 1, 0, 0}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "a"))

	results, err := svc.Search(ctx, []float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DocumentCount)

	// Deleting a nonexistent id is indistinguishable from success.
	require.NoError(t, svc.Delete(ctx, "missing"))
}

func TestClear_EmptiesAndKeepsDimension(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	_, err := svc.Insert(ctx, DocumentInsert{Vector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DocumentCount)
	assert.Equal(t, 4, info.Dimension)

	// The fresh collection accepts writes again.
	_, err = svc.Insert(ctx, DocumentInsert{Vector: []float32{0, 1, 0, 0}})
	require.NoError(t, err)
}

func TestClear_NotInitialized(t *testing.T) {
	svc := newUninitializedService()
	require.ErrorIs(t, svc.Clear(context.Background()), collection.ErrNotInitialized)
}

func TestSearch_TopKBounds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 2)

	for _, topK := range []int{0, -1, 1001} {
		_, err := svc.Search(ctx, []float32{1, 0}, topK, nil)
		var argErr *InvalidArgumentError
		require.ErrorAs(t, err, &argErr, "top_k=%d", topK)
	}

	// top_k = 1000 with fewer stored documents returns what is stored.
	_, err := svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{1, 0}})
	require.NoError(t, err)
	results, err := svc.Search(ctx, []float32{1, 0}, 1000, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	svc := newTestService(t, 4)
	_, err := svc.Search(context.Background(), []float32{1, 0}, 5, nil)
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
}

func TestSearch_EmptyCollection(t *testing.T) {
	svc := newTestService(t, 2)
	results, err := svc.Search(context.Background(), []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FilterPassThrough(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 2)

	_, err := svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "go"}})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, DocumentInsert{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "py"}})
	require.NoError(t, err)

	results, err := svc.Search(ctx, []float32{1, 0}, 10, map[string]any{"lang": "py"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

// Concrete end-to-end ranking scenario at dimension 4.
func TestSearch_RankingScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	_, err := svc.Insert(ctx, DocumentInsert{ID: "a", Vector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, DocumentInsert{ID: "b", Vector: []float32{0, 1, 0, 0}})
	require.NoError(t, err)

	results, err := svc.Search(ctx, []float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	require.NoError(t, svc.Delete(ctx, "a"))

	results, err = svc.Search(ctx, []float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestHealth_Initialized(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 4)

	_, err := svc.Insert(ctx, DocumentInsert{Vector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)

	h := svc.Health(ctx)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.CollectionPresent)
	assert.Equal(t, "default", h.Collection)
	assert.Equal(t, 1, h.DocumentCount)
	assert.Equal(t, 4, h.Dimension)
}

func TestHealth_NeverFails(t *testing.T) {
	h := newUninitializedService().Health(context.Background())
	assert.Equal(t, "unhealthy", h.Status)
	assert.False(t, h.CollectionPresent)
	assert.Equal(t, 0, h.DocumentCount)
	assert.Zero(t, h.Dimension)
}

func TestInfo_NotInitialized(t *testing.T) {
	_, err := newUninitializedService().Info(context.Background())
	require.ErrorIs(t, err, collection.ErrNotInitialized)
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector([]float32{1, 2, 3}, 3))
	assert.Error(t, ValidateVector([]float32{1, 2}, 3))
	assert.Error(t, ValidateVector(nil, 1))
	assert.NoError(t, ValidateVector(nil, 0))
}
