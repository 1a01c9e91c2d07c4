package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// ChunkEmbedder embeds a batch of chunks in place.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []domain.DocumentChunk) ([]domain.DocumentChunk, error)
}

// DocumentArchive persists extracted document payloads so async workers
// can pick them up after the upload request has returned.
type DocumentArchive interface {
	PutDocument(ctx context.Context, doc *domain.ExtractedDocument) error
	GetDocument(ctx context.Context, documentID string) (*domain.ExtractedDocument, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// IngestService owns the document lifecycle: registration, the
// chunk -> embed -> upsert pipeline, listing and deletion.
type IngestService struct {
	chunker  *Chunker
	embedder ChunkEmbedder
	docs     DocumentRepositoryInterface
	chunks   ChunkRepositoryInterface
	jobs     IngestJobRepositoryInterface
	txRunner TxRunnerInterface
	// archive is nil when no object store is configured; registration
	// then indexes synchronously instead of enqueueing a job.
	archive DocumentArchive
}

func NewIngestService(
	chunker *Chunker,
	embedder ChunkEmbedder,
	docs DocumentRepositoryInterface,
	chunks ChunkRepositoryInterface,
	jobs IngestJobRepositoryInterface,
	txRunner TxRunnerInterface,
	archive DocumentArchive,
) *IngestService {
	return &IngestService{
		chunker:  chunker,
		embedder: embedder,
		docs:     docs,
		chunks:   chunks,
		jobs:     jobs,
		txRunner: txRunner,
		archive:  archive,
	}
}

// Register accepts an extracted document, records it as pending and either
// enqueues an ingest job (object store configured) or indexes it inline.
func (s *IngestService) Register(ctx context.Context, extracted *domain.ExtractedDocument) (*domain.Document, error) {
	if extracted != nil && extracted.ID == "" {
		extracted.ID = uuid.NewString()
	}
	if err := domain.ValidateExtractedDocument(extracted); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        extracted.ID,
		SessionID: extracted.SessionID,
		Filename:  extracted.Filename,
		PageCount: extracted.PageCount,
		Status:    domain.DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.archive == nil {
		if err := s.docs.Create(ctx, doc); err != nil {
			return nil, err
		}
		result, err := s.Index(ctx, extracted)
		if err != nil {
			return nil, err
		}
		doc.Status = domain.DocumentStatusIndexed
		doc.ChunkCount = result.ChunksIndexed
		return doc, nil
	}

	if err := s.archive.PutDocument(ctx, extracted); err != nil {
		return nil, fmt.Errorf("failed to archive document: %w", err)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		job := &domain.IngestJob{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Status:     domain.IngestJobStatusPending,
			CreatedAt:  now,
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("registered document %s (%d pages) for session %s", doc.ID, doc.PageCount, doc.SessionID)
	return doc, nil
}

// Index runs the full pipeline for one document and records the outcome
// on the document row. A pipeline failure marks the document failed and
// still returns the error so callers can schedule a retry.
func (s *IngestService) Index(ctx context.Context, extracted *domain.ExtractedDocument) (*domain.IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.index", telemetry.SpanAttributes{
		SessionID:  extracted.SessionID,
		DocumentID: extracted.ID,
		Operation:  "document_index",
	})
	defer span.End()

	start := time.Now()

	chunks, err := s.index(ctx, extracted)
	if err != nil {
		span.SetError(err)
		if updateErr := s.docs.UpdateStatus(ctx, extracted.ID, domain.DocumentStatusFailed, 0, err.Error()); updateErr != nil {
			log.Printf("failed to mark document %s failed: %v", extracted.ID, updateErr)
		}
		return &domain.IngestResult{
			DocumentID:     extracted.ID,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		}, err
	}

	if err := s.docs.UpdateStatus(ctx, extracted.ID, domain.DocumentStatusIndexed, len(chunks), ""); err != nil {
		return nil, err
	}

	log.Printf("indexed document %s: %d chunks in %s", extracted.ID, len(chunks), time.Since(start).Round(time.Millisecond))
	return &domain.IngestResult{
		Success:        true,
		DocumentID:     extracted.ID,
		ChunksCreated:  len(chunks),
		ChunksIndexed:  len(chunks),
		ProcessingTime: time.Since(start),
	}, nil
}

func (s *IngestService) index(ctx context.Context, extracted *domain.ExtractedDocument) ([]domain.DocumentChunk, error) {
	chunks, err := s.chunker.Chunk(extracted)
	if err != nil {
		return nil, err
	}

	chunks, err = s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	count, err := s.chunks.UpsertChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if count != len(chunks) {
		return nil, domain.NewVectorIndexError(
			fmt.Sprintf("upserted %d of %d chunks", count, len(chunks)), nil)
	}
	return chunks, nil
}

// IndexByID loads an archived document and indexes it. Used by the async
// ingest worker.
func (s *IngestService) IndexByID(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	if s.archive == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInternal, "no document archive configured")
	}
	extracted, err := s.archive.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load archived document %s: %w", documentID, err)
	}
	return s.Index(ctx, extracted)
}

// GetDocument returns one document by ID.
func (s *IngestService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// ListDocuments returns a session's documents, newest first, with cursor
// pagination.
func (s *IngestService) ListDocuments(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	return s.docs.ListBySessionWithCursor(ctx, sessionID, cursor, limit)
}

// Delete removes a document and all its chunks in one transaction, then
// drops the archived payload. Losing the archive copy after the database
// delete is tolerable, so archive errors are only logged.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
		return repos.Documents().Delete(ctx, documentID)
	})
	if err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.DeleteDocument(ctx, documentID); err != nil {
			log.Printf("failed to delete archived payload for %s: %v", documentID, err)
		}
	}
	return nil
}
