package service

import (
	"context"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
)

// DocumentRepositoryInterface defines document persistence operations.
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
	ListBySessionWithCursor(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// ChunkRepositoryInterface defines the vector index operations.
type ChunkRepositoryInterface interface {
	UpsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error)
	Search(ctx context.Context, queryVector []float32, sessionID string, topK int, minScore float32) ([]*domain.SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// IngestJobRepositoryInterface defines ingest job persistence operations.
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
	GetPendingJobs(ctx context.Context) ([]*domain.IngestJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// TxRepositories exposes repositories bound to one transaction.
type TxRepositories interface {
	Documents() DocumentRepositoryInterface
	Chunks() ChunkRepositoryInterface
	IngestJobs() IngestJobRepositoryInterface
}

// TxRunnerInterface runs a function within a database transaction.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
