package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
)

type MockIngestJobRepo struct {
	mock.Mock
}

func (m *MockIngestJobRepo) GetPendingJobs(ctx context.Context) ([]*domain.IngestJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestJob), args.Error(1)
}

func (m *MockIngestJobRepo) UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error {
	return m.Called(ctx, jobID, status, errMsg).Error(0)
}

func (m *MockIngestJobRepo) IncrementRetries(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

type MockDocumentIndexer struct {
	mock.Mock
}

func (m *MockDocumentIndexer) IndexByID(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestResult), args.Error(1)
}

func pendingJob(id, docID string, retries int32) *domain.IngestJob {
	return &domain.IngestJob{
		ID:         id,
		DocumentID: docID,
		Status:     domain.IngestJobStatusPending,
		Retries:    retries,
	}
}

func TestIngestWorker_ProcessJobs_Success(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestJob{pendingJob("job-1", "doc-1", 0)}, nil).Once()
	indexer.On("IndexByID", mock.Anything, "doc-1").
		Return(&domain.IngestResult{Success: true, DocumentID: "doc-1", ChunksIndexed: 12}, nil).Once()
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestJobStatusCompleted, "").
		Return(nil).Once()

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	indexer.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.IngestJob{}, nil).Once()

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	indexer.AssertNotCalled(t, "IndexByID")
}

func TestIngestWorker_ProcessJobs_FetchFailure(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).Return(nil, errors.New("connection lost")).Once()

	err := worker.ProcessJobs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending ingest jobs")
}

func TestIngestWorker_ProcessJobs_FailureReschedules(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestJob{pendingJob("job-1", "doc-1", 0)}, nil).Once()
	indexer.On("IndexByID", mock.Anything, "doc-1").
		Return(nil, errors.New("embedding service down")).Once()
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil).Once()
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestJobStatusPending,
		"retry 1: embedding service down").Return(nil).Once()

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_MaxRetriesMarksFailed(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestJob{pendingJob("job-1", "doc-1", MaxRetries-1)}, nil).Once()
	indexer.On("IndexByID", mock.Anything, "doc-1").
		Return(nil, errors.New("embedding service down")).Once()
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil).Once()
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestJobStatusFailed,
		"max retries exceeded: embedding service down").Return(nil).Once()

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_OneFailureDoesNotAbortBatch(t *testing.T) {
	repo := new(MockIngestJobRepo)
	indexer := new(MockDocumentIndexer)
	worker := NewIngestWorker(repo, indexer)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestJob{
			pendingJob("job-1", "doc-1", 0),
			pendingJob("job-2", "doc-2", 0),
		}, nil).Once()
	indexer.On("IndexByID", mock.Anything, "doc-1").
		Return(nil, errors.New("boom")).Once()
	repo.On("IncrementRetries", mock.Anything, "job-1").
		Return(errors.New("connection lost")).Once()
	indexer.On("IndexByID", mock.Anything, "doc-2").
		Return(&domain.IngestResult{Success: true, ChunksIndexed: 3}, nil).Once()
	repo.On("UpdateJobStatus", mock.Anything, "job-2", domain.IngestJobStatusCompleted, "").
		Return(nil).Once()

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	indexer.AssertExpectations(t)
}

type countingProcessor struct {
	calls atomic.Int64
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return nil
}

func TestWorker_StartRunsImmediatePassAndPolls(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 20*time.Millisecond)

	go worker.Start(context.Background())

	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
}

func TestWorker_StopTerminatesLoop(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, time.Hour)

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	// Give the immediate pass time to run before stopping.
	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	worker.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
