package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// MaxRetries bounds how many times a failed ingest job is reattempted
// before being marked failed for good.
const MaxRetries = 3

// IngestJobRepository claims and updates ingest jobs.
type IngestJobRepository interface {
	GetPendingJobs(ctx context.Context) ([]*domain.IngestJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentIndexer runs the chunk, embed and upsert pipeline for one
// registered document.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) (*domain.IngestResult, error)
}

// IngestWorker processes pending document ingest jobs.
type IngestWorker struct {
	repo    IngestJobRepository
	indexer DocumentIndexer
}

func NewIngestWorker(repo IngestJobRepository, indexer DocumentIndexer) *IngestWorker {
	return &IngestWorker{
		repo:    repo,
		indexer: indexer,
	}
}

// ProcessJobs implements the JobProcessor interface. Individual job
// failures are logged and retried; they never abort the batch.
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending ingest jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("error processing ingest job %s: %v", job.ID, err)
		}
	}
	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("processing ingest job %s for document %s", job.ID, job.DocumentID)

	result, err := w.indexer.IndexByID(ctx, job.DocumentID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("ingest job %s completed: %d chunks indexed", job.ID, result.ChunksIndexed)
	return nil
}

// handleJobFailure reschedules the job until MaxRetries is reached, then
// marks it failed.
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("ingest job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("ingest job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureError(ctx, fmt.Errorf("ingest job %s permanently failed for document %s: %w", job.ID, job.DocumentID, jobErr))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("ingest job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	return nil
}
