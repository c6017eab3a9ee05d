package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/common"
	pgdb "github.com/loomworks/loom/backend/pkg/db/pgx"
	"github.com/loomworks/loom/backend/pkg/store"
)

// UpsertSummary stores one periodic summary alongside its embedding.
func (s *ContextDBStorage) UpsertSummary(ctx context.Context, summary common.Summary, embedding []float32) error {
	err := s.queries.UpsertSummary(ctx, pgdb.UpsertSummaryParams{
		SummaryID: summary.ID,
		PeriodKey: summary.PeriodKey,
		Content:   util.SanitizePostgresText(summary.Content),
		Sources:   summary.Sources,
		EntityIds: summary.EntityIDs,
		Embedding: pgvector.NewVector(embedding),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert summary %s: %w", summary.ID, err)
	}
	return nil
}

// QuerySummaries returns the k nearest summaries under L2 distance.
func (s *ContextDBStorage) QuerySummaries(ctx context.Context, embedding []float32, k int) ([]store.SummaryMatch, error) {
	rows, err := s.queries.FindSimilarSummaries(ctx, pgvector.NewVector(embedding), int32(k))
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}

	matches := make([]store.SummaryMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, store.SummaryMatch{
			Summary: common.Summary{
				ID:        r.SummaryID,
				PeriodKey: r.PeriodKey,
				Content:   r.Content,
				Sources:   r.Sources,
				EntityIDs: r.EntityIds,
			},
			Distance: r.Distance,
		})
	}
	return matches, nil
}
