// Package graph derives, persists, and traverses the entity connection
// graph. The Builder computes the edge set in batch; the Traverser serves
// depth-bounded expansions at query time; the Searcher composes summary
// vector search with traversal.
package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/ai"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/logger"
	"github.com/loomworks/loom/backend/pkg/refs"
	"github.com/loomworks/loom/backend/pkg/store"
)

const (
	defaultSimilarityThreshold = 1.2
	defaultMinConfidence       = 0.5
	defaultSimilarityTopK      = 10
	defaultRefConfidence       = 0.90
	defaultMaxParallel         = 4
)

// BuilderConfig tunes the connection passes. Zero values fall back to the
// defaults above.
type BuilderConfig struct {
	// SimilarityThreshold is the maximum L2 distance a neighbor may have to
	// qualify as a semantic match.
	SimilarityThreshold float64
	// MinConfidence floors the similarity pass; edges scoring below it are
	// dropped.
	MinConfidence float64
	// SimilarityTopK is how many nearest neighbors to request per anchor.
	SimilarityTopK int
	// RefConfidence is the fixed score assigned to reference-derived edges.
	RefConfidence float64
	// MaxParallel bounds concurrent embed+query calls in the similarity pass.
	MaxParallel int
}

func (c BuilderConfig) withDefaults() BuilderConfig {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = defaultMinConfidence
	}
	if c.SimilarityTopK <= 0 {
		c.SimilarityTopK = defaultSimilarityTopK
	}
	if c.RefConfidence <= 0 {
		c.RefConfidence = defaultRefConfidence
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = defaultMaxParallel
	}
	return c
}

// RebuildStats reports what one batch run produced.
type RebuildStats struct {
	Entities        int   `json:"entities"`
	ReferenceEdges  int   `json:"reference_edges"`
	SimilarityEdges int   `json:"similarity_edges"`
	MeetingEdges    int   `json:"meeting_edges"`
	TotalEdges      int   `json:"total_edges"`
	Degraded        bool  `json:"degraded"`
	DurationMs      int64 `json:"duration_ms"`
}

// Builder computes the full edge set across the indexed entity corpus and
// persists it. Rebuilds are idempotent; edges are upserted, never appended.
type Builder struct {
	index       store.VectorIndex
	entities    store.EntityStore
	connections store.ConnectionStore
	aiClient    ai.ContextAIClient
	cfg         BuilderConfig
}

func NewBuilder(
	index store.VectorIndex,
	entities store.EntityStore,
	connections store.ConnectionStore,
	aiClient ai.ContextAIClient,
	cfg BuilderConfig,
) *Builder {
	return &Builder{
		index:       index,
		entities:    entities,
		connections: connections,
		aiClient:    aiClient,
		cfg:         cfg.withDefaults(),
	}
}

// pairKey identifies an unordered entity pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// entityRefs returns the entity's canonicalized references: those supplied by
// the producer plus any found in its content, first occurrence order, deduped.
func entityRefs(e common.Entity) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range e.ExtractedRefs {
		canon, ok := refs.Canonical(r)
		if !ok || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	for _, canon := range refs.Extract(e.Content) {
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out
}

// ticketKey derives the canonical reference a ticket entity owns. Entity IDs
// encode the source kind as a prefix before the first underscore; the
// remainder is the ticket key.
func ticketKey(e common.Entity) (string, bool) {
	id := e.ID
	if i := strings.IndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return refs.Canonical(id)
}

// Rebuild recomputes the whole connection graph from the entity index. It
// runs three passes in order, each skipping pairs an earlier pass connected,
// then persists the metadata projection and the edge set. A failing vector
// query degrades the similarity pass only.
func (b *Builder) Rebuild(ctx context.Context) (*RebuildStats, error) {
	start := time.Now()

	entities, err := b.index.GetAllEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities for rebuild: %w", err)
	}
	logger.Info("rebuilding connections", "entities", len(entities))

	for i := range entities {
		entities[i].ExtractedRefs = entityRefs(entities[i])
	}

	stats := &RebuildStats{Entities: len(entities)}
	seen := make(map[string]bool)

	refEdges := b.referencePass(entities, seen)
	stats.ReferenceEdges = len(refEdges)

	simEdges, degraded := b.similarityPass(ctx, entities, seen)
	stats.SimilarityEdges = len(simEdges)
	stats.Degraded = degraded

	meetingEdges := b.meetingPass(entities, seen)
	stats.MeetingEdges = len(meetingEdges)

	edges := make([]common.Connection, 0, len(refEdges)+len(simEdges)+len(meetingEdges))
	edges = append(edges, refEdges...)
	edges = append(edges, simEdges...)
	edges = append(edges, meetingEdges...)
	stats.TotalEdges = len(edges)

	if err := b.entities.UpsertMetadata(ctx, entities); err != nil {
		return nil, fmt.Errorf("failed to persist entity metadata: %w", err)
	}
	if err := b.connections.PutConnections(ctx, edges); err != nil {
		return nil, fmt.Errorf("failed to persist connections: %w", err)
	}

	stats.DurationMs = time.Since(start).Milliseconds()
	logger.Info("connection rebuild finished",
		"reference", stats.ReferenceEdges,
		"similarity", stats.SimilarityEdges,
		"meeting", stats.MeetingEdges,
		"degraded", stats.Degraded,
		"duration_ms", stats.DurationMs,
	)
	return stats, nil
}

// referencePass connects each canonical ticket entity to every other entity
// that mentions the same reference. Co-mentioners without a canonical owner
// are not connected to each other; the reference graph stays star-shaped
// around ticket entities.
func (b *Builder) referencePass(entities []common.Entity, seen map[string]bool) []common.Connection {
	canonical := make(map[string]*common.Entity)
	mentions := make(map[string][]*common.Entity)

	for i := range entities {
		e := &entities[i]
		if e.Source == common.SourceTicket {
			if key, ok := ticketKey(*e); ok {
				canonical[key] = e
			}
		}
		if e.Source == common.SourceMeeting {
			// meetings get their own pass
			continue
		}
		for _, r := range e.ExtractedRefs {
			mentions[r] = append(mentions[r], e)
		}
	}

	var edges []common.Connection
	for ref, owner := range canonical {
		for _, m := range mentions[ref] {
			if m.ID == owner.ID {
				continue
			}
			key := pairKey(owner.ID, m.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, common.Connection{
				SourceID:       owner.ID,
				SourceType:     string(owner.Source),
				TargetID:       m.ID,
				TargetType:     string(m.Source),
				ConnectionType: common.ConnectionReferenceMatch,
				Confidence:     b.cfg.RefConfidence,
				MatchReason:    fmt.Sprintf("shared reference %s", ref),
			})
		}
	}
	return edges
}

// similarityPass embeds every ticket entity and connects it to its nearest
// cross-source neighbors. Anchors are embedded in one batch, then queried in
// parallel; the seen set and result slice are the only shared state. A
// failing vector query marks the run degraded and skips that anchor, it
// never aborts the batch.
func (b *Builder) similarityPass(
	ctx context.Context,
	entities []common.Entity,
	seen map[string]bool,
) ([]common.Connection, bool) {
	var anchors []common.Entity
	for _, e := range entities {
		if e.Source == common.SourceTicket && strings.TrimSpace(e.Content) != "" {
			anchors = append(anchors, e)
		}
	}
	if len(anchors) == 0 {
		return nil, false
	}

	inputs := make([][]byte, len(anchors))
	for i, a := range anchors {
		inputs[i] = []byte(a.Content)
	}
	embeddings, err := ai.GenerateEmbeddings(ctx, b.aiClient, inputs)
	if err != nil {
		logger.Warn("anchor embedding failed, similarity pass degraded", "error", err)
		return nil, true
	}

	var (
		mu       sync.Mutex
		edges    []common.Connection
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.MaxParallel)

	for i := range anchors {
		e := anchors[i]
		emb := embeddings[i]
		g.Go(func() error {
			matches, err := util.RetryWithContext(gctx, 3, func(ctx context.Context) ([]store.EntityMatch, error) {
				return b.index.QuerySimilar(ctx, emb, b.cfg.SimilarityTopK, store.ExcludeFilter{
					EntityID: e.ID,
					Source:   e.Source,
				})
			})
			if err != nil {
				logger.Warn("vector query failed, similarity pass degraded", "entity", e.ID, "error", err)
				mu.Lock()
				degraded = true
				mu.Unlock()
				return nil
			}

			for _, m := range matches {
				if m.Entity.ID == e.ID || m.Entity.Source == e.Source {
					continue
				}
				if m.Distance > b.cfg.SimilarityThreshold {
					continue
				}
				confidence := 1 - m.Distance/2
				if confidence < 0 {
					confidence = 0
				}
				if confidence < b.cfg.MinConfidence {
					continue
				}

				key := pairKey(e.ID, m.Entity.ID)
				mu.Lock()
				if seen[key] {
					mu.Unlock()
					continue
				}
				seen[key] = true
				edges = append(edges, common.Connection{
					SourceID:       e.ID,
					SourceType:     string(e.Source),
					TargetID:       m.Entity.ID,
					TargetType:     string(m.Entity.Source),
					ConnectionType: common.ConnectionSemanticSimilarity,
					Confidence:     confidence,
					MatchReason:    fmt.Sprintf("embedding distance %.3f", m.Distance),
				})
				mu.Unlock()
			}
			return nil
		})
	}

	// workers never return errors, they record degradation instead
	_ = g.Wait()
	return edges, degraded
}

// meetingPass connects meeting entities to the canonical ticket entities of
// the references their transcripts mention.
func (b *Builder) meetingPass(entities []common.Entity, seen map[string]bool) []common.Connection {
	canonical := make(map[string]*common.Entity)
	for i := range entities {
		e := &entities[i]
		if e.Source != common.SourceTicket {
			continue
		}
		if key, ok := ticketKey(*e); ok {
			canonical[key] = e
		}
	}

	var edges []common.Connection
	for i := range entities {
		e := &entities[i]
		if e.Source != common.SourceMeeting {
			continue
		}
		for _, ref := range e.ExtractedRefs {
			owner, ok := canonical[ref]
			if !ok || owner.ID == e.ID {
				continue
			}
			key := pairKey(e.ID, owner.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, common.Connection{
				SourceID:       e.ID,
				SourceType:     string(e.Source),
				TargetID:       owner.ID,
				TargetType:     string(owner.Source),
				ConnectionType: common.ConnectionMeetingReferenceMatch,
				Confidence:     b.cfg.RefConfidence,
				MatchReason:    fmt.Sprintf("meeting mentions %s", ref),
			})
		}
	}
	return edges
}
