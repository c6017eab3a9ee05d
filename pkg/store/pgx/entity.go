package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/common"
	pgdb "github.com/loomworks/loom/backend/pkg/db/pgx"
	"github.com/loomworks/loom/backend/pkg/store"
)

// refsSeparator joins extracted refs into a single text column; refs are
// uppercase ticket keys so a comma never appears inside one.
const refsSeparator = ","

func joinRefs(refs []string) string {
	return strings.Join(refs, refsSeparator)
}

func splitRefs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, refsSeparator)
}

// UpsertMetadata writes the queryable projection of each entity in a single
// transaction. A repeated ID overwrites the previous row.
func (s *ContextDBStorage) UpsertMetadata(ctx context.Context, entities []common.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin metadata transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)
	for _, e := range entities {
		preview := e.ContentPreview
		if preview == "" {
			preview = util.TruncateRunes(e.Content, common.PreviewLimit)
		}
		err := qtx.UpsertEntityMetadata(ctx, pgdb.UpsertEntityMetadataParams{
			EntityID:       e.ID,
			Source:         string(e.Source),
			EntityType:     e.Type,
			Title:          util.SanitizePostgresText(e.Title),
			ContentPreview: util.SanitizePostgresText(preview),
			Refs:           joinRefs(e.ExtractedRefs),
			Ts:             e.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert metadata for %s: %w", e.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetEntity returns the cached metadata projection for one entity. Content is
// not stored in the projection, so the returned entity carries only the
// preview.
func (s *ContextDBStorage) GetEntity(ctx context.Context, entityID string) (*common.Entity, error) {
	m, err := s.queries.GetEntityMetadata(ctx, entityID)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity %s: %w", entityID, err)
	}

	return &common.Entity{
		ID:             m.EntityID,
		Source:         common.SourceKind(m.Source),
		Type:           m.EntityType,
		Title:          m.Title,
		ContentPreview: m.ContentPreview,
		Timestamp:      m.Ts,
		ExtractedRefs:  splitRefs(m.Refs),
	}, nil
}

// ListTickets returns every ticket entity with its directed connection count,
// most connected first.
func (s *ContextDBStorage) ListTickets(ctx context.Context) ([]store.TicketOverview, error) {
	rows, err := s.queries.ListTicketsWithConnectionCounts(ctx, string(common.SourceTicket))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]store.TicketOverview, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, store.TicketOverview{
			EntityID:    r.EntityID,
			Title:       r.Title,
			Refs:        r.Refs,
			Connections: r.ConnectionCount,
		})
	}
	return tickets, nil
}
