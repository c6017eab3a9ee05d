package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/store"
)

func TestSearchWithGraphNoMatches(t *testing.T) {
	s := newMemStore()
	searcher := NewSearcher(s, &fakeAI{}, NewTraverser(s, s))

	g, err := searcher.SearchWithGraph(context.Background(), "topic with no matches", 3, 1)
	if err != nil {
		t.Fatalf("SearchWithGraph() error = %v", err)
	}
	if len(g.RootSummaryIDs) != 0 {
		t.Errorf("RootSummaryIDs = %v, want empty", g.RootSummaryIDs)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("got %d nodes, %d edges, want empty graph", len(g.Nodes), len(g.Edges))
	}
}

func TestSearchWithGraph(t *testing.T) {
	s := seedGraph(t, []string{"A", "B", "C"}, []common.Connection{
		edge("A", "B"), edge("B", "C"),
	})
	s.summaryMatches = []store.SummaryMatch{
		{
			Summary: common.Summary{
				ID:        "summary_w1",
				PeriodKey: "2026-W30",
				EntityIDs: []string{"A", "B"},
			},
			Distance: 0.3,
		},
		{
			Summary: common.Summary{
				ID:        "summary_w2",
				PeriodKey: "2026-W31",
				EntityIDs: []string{"B", "C"},
			},
			Distance: 0.5,
		},
	}
	searcher := NewSearcher(s, &fakeAI{}, NewTraverser(s, s))

	g, err := searcher.SearchWithGraph(context.Background(), "what happened with the rollout", 5, 0)
	if err != nil {
		t.Fatalf("SearchWithGraph() error = %v", err)
	}
	if !reflect.DeepEqual(g.RootSummaryIDs, []string{"summary_w1", "summary_w2"}) {
		t.Errorf("RootSummaryIDs = %v, want both summaries in rank order", g.RootSummaryIDs)
	}

	// seeds are the deduped union A, B, C; at depth 0 both direct edges
	// between seeds appear
	ids := nodeIDs(g)
	for _, want := range []string{"A", "B", "C"} {
		if !ids[want] {
			t.Errorf("Nodes missing %s: %v", want, g.Nodes)
		}
	}
	if len(g.Edges) != 2 {
		t.Errorf("got %d edges, want A-B and B-C", len(g.Edges))
	}
}

func TestSearchWithGraphTopK(t *testing.T) {
	s := seedGraph(t, []string{"A", "B"}, nil)
	s.summaryMatches = []store.SummaryMatch{
		{Summary: common.Summary{ID: "summary_w1", EntityIDs: []string{"A"}}},
		{Summary: common.Summary{ID: "summary_w2", EntityIDs: []string{"B"}}},
	}
	searcher := NewSearcher(s, &fakeAI{}, NewTraverser(s, s))

	g, err := searcher.SearchWithGraph(context.Background(), "rollout", 1, 0)
	if err != nil {
		t.Fatalf("SearchWithGraph() error = %v", err)
	}
	if !reflect.DeepEqual(g.RootSummaryIDs, []string{"summary_w1"}) {
		t.Errorf("RootSummaryIDs = %v, want only the top summary", g.RootSummaryIDs)
	}
	ids := nodeIDs(g)
	if !ids["A"] || ids["B"] {
		t.Errorf("Nodes = %v, want only A", g.Nodes)
	}
}
