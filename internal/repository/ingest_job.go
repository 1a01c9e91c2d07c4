package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IngestJobRepository struct {
	db dbtx
}

func NewIngestJobRepository(pool *pgxpool.Pool) *IngestJobRepository {
	return &IngestJobRepository{db: pool}
}

func NewIngestJobRepositoryWithTx(tx dbtx) *IngestJobRepository {
	return &IngestJobRepository{db: tx}
}

func (r *IngestJobRepository) Create(ctx context.Context, job *domain.IngestJob) error {
	if err := domain.ValidateIngestJob(job); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingest_jobs (id, document_id, status, retries, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.DocumentID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt,
	)
	return err
}

// GetPendingJobs claims pending jobs for processing. SKIP LOCKED keeps
// concurrent workers from claiming the same job twice.
func (r *IngestJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.IngestJob, error) {
	rows, err := r.db.Query(ctx,
		`UPDATE ingest_jobs SET status = 'processing'
		 WHERE id IN (
			SELECT id FROM ingest_jobs
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT 10
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, document_id, status, retries, error, created_at, processed_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.IngestJob
	for rows.Next() {
		var j domain.IngestJob
		var errMsg *string
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.Status, &j.Retries, &errMsg, &j.CreatedAt, &j.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			j.Error = *errMsg
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *IngestJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error {
	processedAt := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE ingest_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, jobID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIngestJobNotFound
	}
	return nil
}

func (r *IngestJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingest_jobs SET retries = retries + 1 WHERE id = $1`, jobID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIngestJobNotFound
	}
	return nil
}
