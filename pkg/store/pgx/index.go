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

// UpsertEntity stores the full entity record alongside its embedding.
func (s *ContextDBStorage) UpsertEntity(ctx context.Context, entity common.Entity, embedding []float32) error {
	err := s.queries.UpsertEntityDocument(ctx, pgdb.UpsertEntityDocumentParams{
		EntityID:   entity.ID,
		Source:     string(entity.Source),
		EntityType: entity.Type,
		Title:      util.SanitizePostgresText(entity.Title),
		Content:    util.SanitizePostgresText(entity.Content),
		Refs:       joinRefs(entity.ExtractedRefs),
		Ts:         entity.Timestamp,
		Embedding:  pgvector.NewVector(embedding),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity document %s: %w", entity.ID, err)
	}
	return nil
}

// GetAllEntities returns every indexed entity record with its full content.
func (s *ContextDBStorage) GetAllEntities(ctx context.Context) ([]common.Entity, error) {
	docs, err := s.queries.GetAllEntityDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity documents: %w", err)
	}

	entities := make([]common.Entity, 0, len(docs))
	for _, d := range docs {
		entities = append(entities, common.Entity{
			ID:             d.EntityID,
			Source:         common.SourceKind(d.Source),
			Type:           d.EntityType,
			Title:          d.Title,
			Content:        d.Content,
			ContentPreview: util.TruncateRunes(d.Content, common.PreviewLimit),
			Timestamp:      d.Ts,
			ExtractedRefs:  splitRefs(d.Refs),
		})
	}
	return entities, nil
}

// QuerySimilar returns the k nearest entity documents under L2 distance,
// skipping anything the exclude filter names.
func (s *ContextDBStorage) QuerySimilar(
	ctx context.Context,
	embedding []float32,
	k int,
	exclude store.ExcludeFilter,
) ([]store.EntityMatch, error) {
	rows, err := s.queries.FindSimilarEntityDocuments(ctx, pgdb.FindSimilarEntityDocumentsParams{
		Embedding:       pgvector.NewVector(embedding),
		ExcludeEntityID: exclude.EntityID,
		ExcludeSource:   string(exclude.Source),
		Limit:           int32(k),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query similar entities: %w", err)
	}

	matches := make([]store.EntityMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, store.EntityMatch{
			Entity: common.Entity{
				ID:             r.EntityID,
				Source:         common.SourceKind(r.Source),
				Type:           r.EntityType,
				Title:          r.Title,
				Content:        r.Content,
				ContentPreview: util.TruncateRunes(r.Content, common.PreviewLimit),
				Timestamp:      r.Ts,
				ExtractedRefs:  splitRefs(r.Refs),
			},
			Distance: r.Distance,
		})
	}
	return matches, nil
}
