package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/store"
)

// Traverser performs breadth-limited expansions over the connection store.
// It is read-only and safe for concurrent use across queries.
type Traverser struct {
	entities    store.EntityStore
	connections store.ConnectionStore
}

func NewTraverser(entities store.EntityStore, connections store.ConnectionStore) *Traverser {
	return &Traverser{entities: entities, connections: connections}
}

// BuildConnectionGraph expands breadth-first from seedIDs up to maxDepth
// hops. Nodes are deduplicated by ID, edges by unordered pair. Seeds without
// a metadata record are skipped silently. At the final depth level, edges are
// added only toward entities already in the graph, so seeds sharing a direct
// edge stay connected even at depth 0.
func (t *Traverser) BuildConnectionGraph(ctx context.Context, seedIDs []string, maxDepth int) (*common.ConnectionGraph, error) {
	graph := &common.ConnectionGraph{
		Nodes: []common.GraphNode{},
		Edges: []common.GraphEdge{},
	}
	if len(seedIDs) == 0 || maxDepth < 0 {
		return graph, nil
	}

	visited := make(map[string]bool)
	seenEdges := make(map[string]bool)
	frontier := seedIDs

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true

			entity, err := t.entities.GetEntity(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("failed to resolve graph node %s: %w", id, err)
			}
			graph.Nodes = append(graph.Nodes, common.GraphNode{
				ID:      entity.ID,
				Source:  entity.Source,
				Type:    entity.Type,
				Title:   entity.Title,
				Preview: entity.ContentPreview,
			})

			grouped, err := t.connections.GetConnections(ctx, id, store.ConnectionFilter{})
			if err != nil {
				return nil, fmt.Errorf("failed to expand graph node %s: %w", id, err)
			}
			for _, neighbors := range grouped {
				for _, n := range neighbors {
					if depth == maxDepth && !visited[n.EntityID] {
						continue
					}
					key := pairKey(id, n.EntityID)
					if !seenEdges[key] {
						seenEdges[key] = true
						graph.Edges = append(graph.Edges, common.GraphEdge{
							Source:         id,
							Target:         n.EntityID,
							ConnectionType: n.ConnectionType,
							Confidence:     n.Confidence,
							MatchReason:    n.MatchReason,
						})
					}
					if depth < maxDepth && !visited[n.EntityID] {
						next = append(next, n.EntityID)
					}
				}
			}
		}
		frontier = next
	}
	return graph, nil
}
