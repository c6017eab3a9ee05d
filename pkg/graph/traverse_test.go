package graph

import (
	"context"
	"testing"

	"github.com/loomworks/loom/backend/pkg/common"
)

// seedGraph builds a memStore with metadata for the given IDs and the given
// undirected edges already persisted.
func seedGraph(t *testing.T, ids []string, edges []common.Connection) *memStore {
	t.Helper()
	s := newMemStore()
	entities := make([]common.Entity, 0, len(ids))
	for _, id := range ids {
		entities = append(entities, common.Entity{
			ID:     id,
			Source: common.SourceTicket,
			Type:   "issue",
			Title:  id,
		})
	}
	if err := s.UpsertMetadata(context.Background(), entities); err != nil {
		t.Fatalf("UpsertMetadata() error = %v", err)
	}
	if err := s.PutConnections(context.Background(), edges); err != nil {
		t.Fatalf("PutConnections() error = %v", err)
	}
	return s
}

func edge(a, b string) common.Connection {
	return common.Connection{
		SourceID:       a,
		SourceType:     "jira",
		TargetID:       b,
		TargetType:     "jira",
		ConnectionType: common.ConnectionReferenceMatch,
		Confidence:     0.9,
	}
}

func nodeIDs(g *common.ConnectionGraph) map[string]bool {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	return ids
}

func TestTraversalDepthZeroSingleSeed(t *testing.T) {
	s := seedGraph(t, []string{"A", "B", "C", "D"}, []common.Connection{
		edge("A", "B"), edge("A", "C"), edge("A", "D"),
	})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A"}, 0)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "A" {
		t.Errorf("Nodes = %v, want only A", g.Nodes)
	}
	if len(g.Edges) != 0 {
		t.Errorf("Edges = %v, want none at depth 0", g.Edges)
	}
}

func TestTraversalDepthZeroConnectedSeeds(t *testing.T) {
	s := seedGraph(t, []string{"A", "B", "C"}, []common.Connection{
		edge("A", "B"), edge("B", "C"),
	})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A", "B"}, 0)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("got %d nodes, want 2", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("got %d edges, want the direct A-B edge only", len(g.Edges))
	}
	e := g.Edges[0]
	if pairKey(e.Source, e.Target) != pairKey("A", "B") {
		t.Errorf("edge = %v, want A-B", e)
	}
}

func TestTraversalDepthBound(t *testing.T) {
	s := seedGraph(t, []string{"A", "B", "C", "D"}, []common.Connection{
		edge("A", "B"), edge("B", "C"), edge("C", "D"),
	})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A"}, 1)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	ids := nodeIDs(g)
	if !ids["A"] || !ids["B"] {
		t.Errorf("Nodes = %v, want A and B", g.Nodes)
	}
	if ids["C"] || ids["D"] {
		t.Errorf("Nodes = %v, contains entity beyond depth 1", g.Nodes)
	}
}

func TestTraversalTerminatesOnCycle(t *testing.T) {
	s := seedGraph(t, []string{"A", "B", "C"}, []common.Connection{
		edge("A", "B"), edge("B", "C"), edge("C", "A"),
	})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A"}, 10)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("got %d nodes, want 3", len(g.Nodes))
	}
	if len(g.Edges) != 3 {
		t.Errorf("got %d edges, want 3", len(g.Edges))
	}
}

func TestTraversalEdgeDedup(t *testing.T) {
	s := seedGraph(t, []string{"A", "B"}, []common.Connection{edge("A", "B")})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A", "B"}, 2)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	seen := make(map[string]int)
	for _, e := range g.Edges {
		seen[pairKey(e.Source, e.Target)]++
	}
	for pair, count := range seen {
		if count > 1 {
			t.Errorf("pair %s appears %d times", pair, count)
		}
	}
	if len(g.Edges) != 1 {
		t.Errorf("got %d edges, want 1", len(g.Edges))
	}
}

func TestTraversalUnknownSeed(t *testing.T) {
	s := seedGraph(t, nil, nil)
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"ghost"}, 2)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("got %d nodes, %d edges, want empty graph", len(g.Nodes), len(g.Edges))
	}
}

func TestTraversalDanglingNeighbor(t *testing.T) {
	// B has a connection row but no metadata record; the edge survives, the
	// node does not.
	s := seedGraph(t, []string{"A"}, []common.Connection{edge("A", "B")})
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), []string{"A"}, 2)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "A" {
		t.Errorf("Nodes = %v, want only A", g.Nodes)
	}
	if len(g.Edges) != 1 {
		t.Errorf("got %d edges, want the dangling A-B edge", len(g.Edges))
	}
}

func TestTraversalNoSeeds(t *testing.T) {
	s := seedGraph(t, []string{"A"}, nil)
	tr := NewTraverser(s, s)

	g, err := tr.BuildConnectionGraph(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("BuildConnectionGraph() error = %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("got %d nodes, %d edges, want empty graph", len(g.Nodes), len(g.Edges))
	}
}
