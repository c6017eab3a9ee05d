package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/loom/backend/pkg/ai"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/store"
)

const defaultQueryBudget = 15 * time.Second

// Searcher is the retrieval orchestrator: it resolves a natural-language
// query to periodic summaries via the vector index, then expands the
// summaries' entities through the connection graph.
type Searcher struct {
	summaries store.SummaryIndex
	aiClient  ai.ContextAIClient
	traverser *Traverser

	// queryBudget bounds the embed and vector query wall clock; traversal
	// runs under the caller's context only.
	queryBudget time.Duration
}

func NewSearcher(summaries store.SummaryIndex, aiClient ai.ContextAIClient, traverser *Traverser) *Searcher {
	return &Searcher{
		summaries:   summaries,
		aiClient:    aiClient,
		traverser:   traverser,
		queryBudget: defaultQueryBudget,
	}
}

// SearchWithGraph answers a query with the connection graph around its most
// relevant summaries. Zero summary matches yield an empty graph, not an
// error.
func (s *Searcher) SearchWithGraph(ctx context.Context, query string, topK, depth int) (*common.ConnectionGraph, error) {
	qctx, cancel := context.WithTimeout(ctx, s.queryBudget)
	defer cancel()

	emb, err := s.aiClient.GenerateEmbedding(qctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.summaries.QuerySummaries(qctx, emb, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}

	var rootIDs, seeds []string
	for _, m := range matches {
		rootIDs = append(rootIDs, m.Summary.ID)
		seeds = append(seeds, m.Summary.EntityIDs...)
	}
	seeds = store.DedupeStrings(seeds)

	graph, err := s.traverser.BuildConnectionGraph(ctx, seeds, depth)
	if err != nil {
		return nil, err
	}
	graph.RootSummaryIDs = rootIDs
	return graph, nil
}
