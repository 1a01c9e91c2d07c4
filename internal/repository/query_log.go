package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores query logs for evaluation and tuning.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	agentsJSON, _ := json.Marshal(entry.AgentCalls)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO query_logs (session_id, question, query_type, agent_calls, chunks_retrieved, success, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.SessionID,
		entry.Question,
		nullableString(entry.QueryType),
		agentsJSON,
		entry.ChunksRetrieved,
		entry.Success,
		entry.DurationMS,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
