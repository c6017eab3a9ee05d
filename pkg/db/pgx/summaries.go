package pgdb

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

const upsertSummary = `
INSERT INTO summaries (summary_id, period_key, content, sources, entity_ids, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (summary_id) DO UPDATE SET
    period_key = EXCLUDED.period_key,
    content = EXCLUDED.content,
    sources = EXCLUDED.sources,
    entity_ids = EXCLUDED.entity_ids,
    embedding = EXCLUDED.embedding
`

type UpsertSummaryParams struct {
	SummaryID string
	PeriodKey string
	Content   string
	Sources   []string
	EntityIds []string
	Embedding pgvector.Vector
}

func (q *Queries) UpsertSummary(ctx context.Context, arg UpsertSummaryParams) error {
	_, err := q.db.Exec(ctx, upsertSummary,
		arg.SummaryID,
		arg.PeriodKey,
		arg.Content,
		arg.Sources,
		arg.EntityIds,
		arg.Embedding,
	)
	return err
}

const findSimilarSummaries = `
SELECT summary_id, period_key, content, sources, entity_ids,
       embedding <-> $1 AS distance
FROM summaries
ORDER BY embedding <-> $1
LIMIT $2
`

type FindSimilarSummariesRow struct {
	SummaryID string
	PeriodKey string
	Content   string
	Sources   []string
	EntityIds []string
	Distance  float64
}

func (q *Queries) FindSimilarSummaries(ctx context.Context, embedding pgvector.Vector, limit int32) ([]FindSimilarSummariesRow, error) {
	rows, err := q.db.Query(ctx, findSimilarSummaries, embedding, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FindSimilarSummariesRow
	for rows.Next() {
		var r FindSimilarSummariesRow
		if err := rows.Scan(
			&r.SummaryID,
			&r.PeriodKey,
			&r.Content,
			&r.Sources,
			&r.EntityIds,
			&r.Distance,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
