package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// DefaultEmbeddingBatchSize caps texts per embedding API call.
const DefaultEmbeddingBatchSize = 100

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService turns chunk text and queries into vectors, batching
// chunk requests to amortize network overhead.
type EmbeddingService struct {
	client    EmbeddingClient
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient) *EmbeddingService {
	return NewEmbeddingServiceWithBatchSize(client, DefaultEmbeddingBatchSize)
}

func NewEmbeddingServiceWithBatchSize(client EmbeddingClient, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingService{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedChunks assigns an embedding to every chunk, issuing batched API
// calls. Chunk order is preserved; the returned slice is the input slice
// with embeddings populated.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.DocumentChunk) ([]domain.DocumentChunk, error) {
	if len(chunks) == 0 {
		return nil, domain.NewEmbeddingError("cannot embed empty list of chunks", nil)
	}

	total := len(chunks)
	batches := (total + s.batchSize - 1) / s.batchSize

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embeddings, err := s.client.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return nil, domain.NewEmbeddingError(
				fmt.Sprintf("batch %d/%d failed", start/s.batchSize+1, batches), err)
		}
		if len(embeddings) != len(batch) {
			return nil, domain.NewEmbeddingError(
				fmt.Sprintf("batch %d/%d returned %d embeddings for %d texts",
					start/s.batchSize+1, batches, len(embeddings), len(batch)), nil)
		}

		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}
	}

	log.Printf("embedded %d chunks in %d batches", total, batches)
	return chunks, nil
}

// EmbedQuery embeds a single query string.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	embeddings, err := s.client.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, domain.NewEmbeddingError("failed to embed query", err)
	}
	if len(embeddings) != 1 {
		return nil, domain.NewEmbeddingError(
			fmt.Sprintf("expected 1 embedding, got %d", len(embeddings)), nil)
	}
	return embeddings[0], nil
}
