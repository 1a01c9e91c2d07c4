//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/testutil"
)

func newTestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func insertDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, id, sessionID string, createdAt time.Time) *domain.Document {
	t.Helper()

	doc := &domain.Document{
		ID:        id,
		SessionID: sessionID,
		Filename:  id + ".pdf",
		PageCount: 3,
		Status:    domain.DocumentStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}

// unitVector returns a 1536-dim unit vector along the given axis, handy
// for making cosine similarity between test chunks exactly 0 or 1.
func unitVector(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func testChunk(id, docID, sessionID string, idx int, embedding []float32) domain.DocumentChunk {
	return domain.DocumentChunk{
		ID:          id,
		DocumentID:  docID,
		SessionID:   sessionID,
		ChunkIndex:  idx,
		Content:     "content of " + id,
		PageNumbers: []int{idx + 1},
		CharStart:   idx * 100,
		CharEnd:     idx*100 + 80,
		TokenCount:  20,
		Embedding:   embedding,
	}
}
