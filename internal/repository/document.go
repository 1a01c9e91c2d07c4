package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, session_id, filename, page_count, status, chunk_count, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.SessionID, d.Filename, d.PageCount, d.Status, d.ChunkCount, nullableString(d.Error), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var errMsg *string
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, filename, page_count, status, chunk_count, error, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.SessionID, &d.Filename, &d.PageCount, &d.Status, &d.ChunkCount, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if errMsg != nil {
		d.Error = *errMsg
	}
	return &d, nil
}

// UpdateStatus records the outcome of an ingest pass.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, error = $3, updated_at = $4 WHERE id = $5`,
		status, chunkCount, nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ListBySessionWithCursor returns one page of a session's documents,
// newest first, with a cursor for the next page.
func (r *DocumentRepository) ListBySessionWithCursor(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, session_id, filename, page_count, status, chunk_count, error, created_at, updated_at
			 FROM documents
			 WHERE session_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			sessionID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, session_id, filename, page_count, status, chunk_count, error, created_at, updated_at
			 FROM documents
			 WHERE session_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			sessionID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if hasMore {
		next = pagination.CreateNextCursor(items, limit,
			func(d *domain.Document) string { return d.ID },
			func(d *domain.Document) time.Time { return d.CreatedAt },
		)
	}

	return &pagination.PageResult[*domain.Document]{
		Items:   items,
		Cursor:  next,
		HasMore: hasMore,
	}, nil
}

// CountBySession returns the number of documents tagged with a session.
func (r *DocumentRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE session_id = $1`, sessionID,
	).Scan(&count)
	return count, err
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var items []*domain.Document
	for rows.Next() {
		var d domain.Document
		var errMsg *string
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Filename, &d.PageCount, &d.Status, &d.ChunkCount, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			d.Error = *errMsg
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
