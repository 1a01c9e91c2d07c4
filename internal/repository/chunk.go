package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// storeHint is appended to vector index errors so an unreachable backing
// store tells the operator how to bring one up locally.
const storeHint = "start Postgres with: docker compose up -d"

// ChunkRepository is the vector index: it stores chunk embeddings with
// payload metadata and serves filtered cosine-similarity search.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// UpsertChunks inserts or updates document chunks and returns the number
// written. Every chunk must carry an embedding.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	for _, c := range chunks {
		if c.Embedding == nil {
			return 0, domain.NewVectorIndexError("chunk "+c.ID+" has no embedding", nil)
		}
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, session_id, chunk_index, content, page_numbers, char_start, char_end, token_count, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				page_numbers = EXCLUDED.page_numbers,
				char_start = EXCLUDED.char_start,
				char_end = EXCLUDED.char_end,
				token_count = EXCLUDED.token_count,
				embedding = EXCLUDED.embedding`,
			c.ID,
			c.DocumentID,
			c.SessionID,
			c.ChunkIndex,
			c.Content,
			c.PageNumbers,
			c.CharStart,
			c.CharEnd,
			c.TokenCount,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return 0, domain.NewVectorIndexError("failed to upsert chunks; "+storeHint, err)
		}
	}

	return len(chunks), nil
}

// Search ranks chunks by cosine similarity against the query vector,
// restricted to one session's chunks, keeping only results at or above
// minScore, best first, at most topK.
func (r *ChunkRepository) Search(ctx context.Context, queryVector []float32, sessionID string, topK int, minScore float32) ([]*domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(queryVector)

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, page_numbers,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE session_id = $2
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, sessionID, minScore, topK,
	)
	if err != nil {
		return nil, domain.NewVectorIndexError("failed to search vector index; "+storeHint, err)
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0, topK)
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.Content, &res.PageNumbers, &res.Score); err != nil {
			return nil, domain.NewVectorIndexError("failed to scan search result", err)
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewVectorIndexError("failed to read search results; "+storeHint, err)
	}

	return results, nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return domain.NewVectorIndexError("failed to delete chunks for document "+documentID, err)
	}
	return nil
}

// CountBySession returns the number of indexed chunks for a session.
func (r *ChunkRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE session_id = $1`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, domain.NewVectorIndexError("failed to count chunks; "+storeHint, err)
	}
	return count, nil
}
