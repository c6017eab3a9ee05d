package pgx

import (
	"context"
	"fmt"

	"github.com/loomworks/loom/backend/pkg/common"
	pgdb "github.com/loomworks/loom/backend/pkg/db/pgx"
	"github.com/loomworks/loom/backend/pkg/store"
)

// connectionBatchSize bounds how many edges one transaction upserts.
const connectionBatchSize = 500

// PutConnections persists each edge as two directed rows with swapped
// endpoints inside one transaction, so a lookup by either endpoint finds the
// edge. Re-inserting an existing pair overwrites type, confidence, and
// reason.
func (s *ContextDBStorage) PutConnections(ctx context.Context, edges []common.Connection) error {
	if len(edges) == 0 {
		return nil
	}

	// large rebuilds commit in windows so a single transaction never holds
	// the whole edge set
	return store.ChunkRange(len(edges), connectionBatchSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin connection transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		qtx := s.queries.WithTx(tx)
		for _, e := range edges[start:end] {
			forward := pgdb.UpsertConnectionParams{
				SourceEntityID:  e.SourceID,
				SourceType:      e.SourceType,
				TargetEntityID:  e.TargetID,
				TargetType:      e.TargetType,
				ConnectionType:  e.ConnectionType,
				ConfidenceScore: e.Confidence,
				MatchReason:     e.MatchReason,
			}
			if err := qtx.UpsertConnection(ctx, forward); err != nil {
				return fmt.Errorf("failed to upsert connection %s -> %s: %w", e.SourceID, e.TargetID, err)
			}

			reverse := pgdb.UpsertConnectionParams{
				SourceEntityID:  e.TargetID,
				SourceType:      e.TargetType,
				TargetEntityID:  e.SourceID,
				TargetType:      e.SourceType,
				ConnectionType:  e.ConnectionType,
				ConfidenceScore: e.Confidence,
				MatchReason:     e.MatchReason,
			}
			if err := qtx.UpsertConnection(ctx, reverse); err != nil {
				return fmt.Errorf("failed to upsert connection %s -> %s: %w", e.TargetID, e.SourceID, err)
			}
		}

		return tx.Commit(ctx)
	})
}

// GetConnections returns the entity's neighbors grouped by the target's
// source type, ordered by descending confidence within each group. Unknown
// entities yield an empty map, not an error.
func (s *ContextDBStorage) GetConnections(
	ctx context.Context,
	entityID string,
	filter store.ConnectionFilter,
) (map[string][]store.Neighbor, error) {
	rows, err := s.queries.GetConnections(ctx, pgdb.GetConnectionsParams{
		SourceEntityID: entityID,
		MinConfidence:  filter.MinConfidence,
		TargetType:     filter.TargetType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get connections for %s: %w", entityID, err)
	}

	grouped := make(map[string][]store.Neighbor)
	for _, r := range rows {
		grouped[r.TargetType] = append(grouped[r.TargetType], store.Neighbor{
			EntityID:       r.TargetEntityID,
			TargetType:     r.TargetType,
			EntityType:     r.EntityType,
			ConnectionType: r.ConnectionType,
			Confidence:     r.ConfidenceScore,
			MatchReason:    r.MatchReason,
			Title:          r.Title,
			Preview:        r.ContentPreview,
		})
	}
	return grouped, nil
}

// Stats summarizes the persisted edge set.
func (s *ContextDBStorage) Stats(ctx context.Context) (*store.ConnectionStats, error) {
	total, err := s.queries.CountConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count connections: %w", err)
	}

	typeRows, err := s.queries.GetConnectionTypeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count connection types: %w", err)
	}
	byType := make(map[string]int64, len(typeRows))
	for _, r := range typeRows {
		byType[r.ConnectionType] = r.Cnt
	}

	pairRows, err := s.queries.GetConnectionPairCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count connection pairs: %w", err)
	}
	byPair := make(map[string]int64, len(pairRows))
	for _, r := range pairRows {
		byPair[r.Pair] = r.Cnt
	}

	topRows, err := s.queries.GetTopConnectedEntities(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to rank connected entities: %w", err)
	}
	top := make([]store.EntityDegree, 0, len(topRows))
	for _, r := range topRows {
		top = append(top, store.EntityDegree{
			EntityID:    r.SourceEntityID,
			Connections: r.Cnt,
		})
	}

	return &store.ConnectionStats{
		TotalRows:    total,
		ByType:       byType,
		BySourcePair: byPair,
		TopConnected: top,
	}, nil
}
