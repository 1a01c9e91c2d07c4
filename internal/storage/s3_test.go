//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/testutil"
)

func newTestArchive(ctx context.Context, t *testing.T) *S3Client {
	t.Helper()

	container := testutil.NewMinIOContainer(ctx, t)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     container.AccessKey,
		SecretAccessKey: container.SecretKey,
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	return client
}

func TestS3ClientIntegration_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestArchive(ctx, t)

	doc := &domain.ExtractedDocument{
		ID:        uuid.NewString(),
		SessionID: "session-1",
		Filename:  "q3-earnings.pdf",
		Text:      "Revenue increased 12% year over year.\fOperating margin held at 21%.",
		PageCount: 2,
		PageOffsets: []domain.PageOffset{
			{Start: 0, End: 37},
			{Start: 38, End: 67},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, client.PutDocument(ctx, doc))

	loaded, err := client.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, loaded.ID)
	assert.Equal(t, doc.SessionID, loaded.SessionID)
	assert.Equal(t, doc.Filename, loaded.Filename)
	assert.Equal(t, doc.Text, loaded.Text)
	assert.Equal(t, doc.PageCount, loaded.PageCount)
	assert.Equal(t, doc.PageOffsets, loaded.PageOffsets)

	require.NoError(t, client.DeleteDocument(ctx, doc.ID))

	_, err = client.GetDocument(ctx, doc.ID)
	assert.Error(t, err)
}

func TestS3ClientIntegration_OverwriteReplacesPayload(t *testing.T) {
	ctx := context.Background()
	client := newTestArchive(ctx, t)

	doc := &domain.ExtractedDocument{
		ID:        uuid.NewString(),
		SessionID: "session-1",
		Filename:  "annual-report.pdf",
		Text:      "first version",
		PageCount: 1,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, client.PutDocument(ctx, doc))

	doc.Text = "second version"
	require.NoError(t, client.PutDocument(ctx, doc))

	loaded, err := client.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "second version", loaded.Text)
}

func TestS3ClientIntegration_GetMissingDocument(t *testing.T) {
	ctx := context.Background()
	client := newTestArchive(ctx, t)

	_, err := client.GetDocument(ctx, "does-not-exist")
	assert.Error(t, err)
}

func TestS3ClientIntegration_EnsureBucketIdempotent(t *testing.T) {
	ctx := context.Background()
	client := newTestArchive(ctx, t)

	// Bucket already exists from setup; a second call must not fail.
	require.NoError(t, client.EnsureBucket(ctx))
}
