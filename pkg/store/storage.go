package store

import (
	"context"
	"errors"

	"github.com/loomworks/loom/backend/pkg/common"
)

// ErrNotFound reports that a requested record does not exist. It is distinct
// from transport or database failures; callers at the HTTP boundary translate
// it into their own not-found signaling.
var ErrNotFound = errors.New("record not found")

// ConnectionFilter narrows a neighbor lookup. Zero value means no filtering.
type ConnectionFilter struct {
	TargetType    string
	MinConfidence float64
}

// Neighbor is one connection row joined with the target's cached metadata.
// Title and Preview are empty when the target has no metadata record.
type Neighbor struct {
	EntityID       string  `json:"entity_id"`
	TargetType     string  `json:"target_type"`
	EntityType     string  `json:"type"`
	ConnectionType string  `json:"connection_type"`
	Confidence     float64 `json:"confidence"`
	MatchReason    string  `json:"match_reason"`
	Title          string  `json:"title"`
	Preview        string  `json:"preview"`
}

// ConnectionStats summarizes the persisted edge set after a rebuild.
type ConnectionStats struct {
	TotalRows    int64            `json:"total_rows"`
	ByType       map[string]int64 `json:"by_type"`
	BySourcePair map[string]int64 `json:"by_source_pair"`
	TopConnected []EntityDegree   `json:"top_connected"`
}

// EntityDegree pairs an entity ID with its directed connection count.
type EntityDegree struct {
	EntityID    string `json:"entity_id"`
	Connections int64  `json:"connections"`
}

// TicketOverview is a ticket entity with its connection count, for listings.
type TicketOverview struct {
	EntityID    string `json:"entity_id"`
	Title       string `json:"title"`
	Refs        string `json:"refs"`
	Connections int64  `json:"connection_count"`
}

// ConnectionStore persists the bidirectional entity relationship graph.
//
// PutConnections upserts each edge in both directions; re-inserting an
// existing (source, target) pair overwrites type, confidence, and reason.
// GetConnections returns neighbors grouped by target source type, ordered by
// descending confidence within each group, and an empty map (not an error)
// for an entity with no connections or an unknown entity.
type ConnectionStore interface {
	PutConnections(ctx context.Context, edges []common.Connection) error
	GetConnections(ctx context.Context, entityID string, filter ConnectionFilter) (map[string][]Neighbor, error)
	Stats(ctx context.Context) (*ConnectionStats, error)
}

// EntityStore is the queryable metadata projection of entity records, built
// as a side effect of each connection rebuild. GetEntity returns ErrNotFound
// for unknown IDs.
type EntityStore interface {
	UpsertMetadata(ctx context.Context, entities []common.Entity) error
	GetEntity(ctx context.Context, entityID string) (*common.Entity, error)
	ListTickets(ctx context.Context) ([]TicketOverview, error)
}

// ExcludeFilter removes matches from a similarity query. Either field may be
// empty to disable that exclusion.
type ExcludeFilter struct {
	EntityID string
	Source   common.SourceKind
}

// EntityMatch is a similarity search hit over the entity document index.
type EntityMatch struct {
	Entity   common.Entity
	Distance float64
}

// VectorIndex stores full entity records alongside their embeddings and
// serves nearest-neighbor queries under L2 distance.
type VectorIndex interface {
	UpsertEntity(ctx context.Context, entity common.Entity, embedding []float32) error
	GetAllEntities(ctx context.Context) ([]common.Entity, error)
	QuerySimilar(ctx context.Context, embedding []float32, k int, exclude ExcludeFilter) ([]EntityMatch, error)
}

// SummaryMatch is a similarity search hit over the periodic summary index.
type SummaryMatch struct {
	Summary  common.Summary
	Distance float64
}

// SummaryIndex stores periodic summary documents and serves nearest-neighbor
// queries over their embeddings.
type SummaryIndex interface {
	UpsertSummary(ctx context.Context, summary common.Summary, embedding []float32) error
	QuerySummaries(ctx context.Context, embedding []float32, k int) ([]SummaryMatch, error)
}
