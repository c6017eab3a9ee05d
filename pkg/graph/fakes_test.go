package graph

import (
	"context"
	"sort"

	"github.com/loomworks/loom/backend/pkg/ai"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/store"
)

// fakeAI returns canned embeddings keyed by input text; unknown inputs get a
// zero vector.
type fakeAI struct {
	embeddings map[string][]float32
}

func (f *fakeAI) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	if v, ok := f.embeddings[string(input)]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (f *fakeAI) GenerateCompletion(_ context.Context, _ string, _ ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (f *fakeAI) ResetMetrics()               {}
func (f *fakeAI) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// memStore is an in-memory implementation of the store interfaces, with the
// same directed-row and upsert semantics as the real one.
type memStore struct {
	meta map[string]common.Entity
	docs []common.Entity
	rows map[string]map[string]common.Connection

	queryFn    func(embedding []float32, k int, exclude store.ExcludeFilter) ([]store.EntityMatch, error)
	queryCalls int

	summaryMatches []store.SummaryMatch
}

func newMemStore(docs ...common.Entity) *memStore {
	return &memStore{
		meta: make(map[string]common.Entity),
		docs: docs,
		rows: make(map[string]map[string]common.Connection),
	}
}

func (s *memStore) UpsertMetadata(_ context.Context, entities []common.Entity) error {
	for _, e := range entities {
		s.meta[e.ID] = e
	}
	return nil
}

func (s *memStore) GetEntity(_ context.Context, entityID string) (*common.Entity, error) {
	e, ok := s.meta[entityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *memStore) ListTickets(_ context.Context) ([]store.TicketOverview, error) {
	return nil, nil
}

func (s *memStore) PutConnections(_ context.Context, edges []common.Connection) error {
	put := func(c common.Connection) {
		if s.rows[c.SourceID] == nil {
			s.rows[c.SourceID] = make(map[string]common.Connection)
		}
		s.rows[c.SourceID][c.TargetID] = c
	}
	for _, e := range edges {
		put(e)
		put(common.Connection{
			SourceID:       e.TargetID,
			SourceType:     e.TargetType,
			TargetID:       e.SourceID,
			TargetType:     e.SourceType,
			ConnectionType: e.ConnectionType,
			Confidence:     e.Confidence,
			MatchReason:    e.MatchReason,
		})
	}
	return nil
}

func (s *memStore) GetConnections(
	_ context.Context,
	entityID string,
	filter store.ConnectionFilter,
) (map[string][]store.Neighbor, error) {
	grouped := make(map[string][]store.Neighbor)
	for _, c := range s.rows[entityID] {
		if c.Confidence < filter.MinConfidence {
			continue
		}
		if filter.TargetType != "" && c.TargetType != filter.TargetType {
			continue
		}
		n := store.Neighbor{
			EntityID:       c.TargetID,
			TargetType:     c.TargetType,
			ConnectionType: c.ConnectionType,
			Confidence:     c.Confidence,
			MatchReason:    c.MatchReason,
		}
		if m, ok := s.meta[c.TargetID]; ok {
			n.EntityType = m.Type
			n.Title = m.Title
			n.Preview = m.ContentPreview
		}
		grouped[c.TargetType] = append(grouped[c.TargetType], n)
	}
	for _, neighbors := range grouped {
		sort.Slice(neighbors, func(i, j int) bool {
			if neighbors[i].Confidence != neighbors[j].Confidence {
				return neighbors[i].Confidence > neighbors[j].Confidence
			}
			return neighbors[i].EntityID < neighbors[j].EntityID
		})
	}
	return grouped, nil
}

func (s *memStore) Stats(_ context.Context) (*store.ConnectionStats, error) {
	var total int64
	for _, targets := range s.rows {
		total += int64(len(targets))
	}
	return &store.ConnectionStats{TotalRows: total}, nil
}

func (s *memStore) UpsertEntity(_ context.Context, entity common.Entity, _ []float32) error {
	s.docs = append(s.docs, entity)
	return nil
}

func (s *memStore) GetAllEntities(_ context.Context) ([]common.Entity, error) {
	return append([]common.Entity(nil), s.docs...), nil
}

func (s *memStore) QuerySimilar(
	_ context.Context,
	embedding []float32,
	k int,
	exclude store.ExcludeFilter,
) ([]store.EntityMatch, error) {
	s.queryCalls++
	if s.queryFn == nil {
		return nil, nil
	}
	return s.queryFn(embedding, k, exclude)
}

func (s *memStore) UpsertSummary(_ context.Context, _ common.Summary, _ []float32) error {
	return nil
}

func (s *memStore) QuerySummaries(_ context.Context, _ []float32, k int) ([]store.SummaryMatch, error) {
	if k < len(s.summaryMatches) {
		return s.summaryMatches[:k], nil
	}
	return s.summaryMatches, nil
}

// neighborFor returns the neighbor entry for target in source's connection
// map, or nil.
func neighborFor(grouped map[string][]store.Neighbor, target string) *store.Neighbor {
	for _, neighbors := range grouped {
		for i := range neighbors {
			if neighbors[i].EntityID == target {
				return &neighbors[i]
			}
		}
	}
	return nil
}
