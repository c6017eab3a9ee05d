package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/store"
)

func ticketEntity(id, key, content string) common.Entity {
	return common.Entity{
		ID:      id,
		Source:  common.SourceTicket,
		Type:    "issue",
		Title:   key,
		Content: content,
	}
}

func TestRebuildReferenceMatch(t *testing.T) {
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		common.Entity{
			ID:      "slack_T1",
			Source:  common.SourceSlack,
			Type:    "thread",
			Content: "following up on ENG-1",
		},
	)
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	stats, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if stats.ReferenceEdges != 1 {
		t.Fatalf("ReferenceEdges = %d, want 1", stats.ReferenceEdges)
	}

	grouped, err := s.GetConnections(context.Background(), "jira_ENG-1", store.ConnectionFilter{})
	if err != nil {
		t.Fatalf("GetConnections() error = %v", err)
	}
	n := neighborFor(grouped, "slack_T1")
	if n == nil {
		t.Fatal("jira_ENG-1 has no connection to slack_T1")
	}
	if n.ConnectionType != common.ConnectionReferenceMatch {
		t.Errorf("ConnectionType = %q, want %q", n.ConnectionType, common.ConnectionReferenceMatch)
	}
	if n.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", n.Confidence)
	}
}

func TestRebuildSymmetry(t *testing.T) {
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		common.Entity{ID: "slack_T1", Source: common.SourceSlack, Content: "see ENG-1"},
	)
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})
	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	forward, _ := s.GetConnections(context.Background(), "jira_ENG-1", store.ConnectionFilter{})
	reverse, _ := s.GetConnections(context.Background(), "slack_T1", store.ConnectionFilter{})
	fn := neighborFor(forward, "slack_T1")
	rn := neighborFor(reverse, "jira_ENG-1")
	if fn == nil || rn == nil {
		t.Fatalf("connection missing in one direction: forward=%v reverse=%v", fn, rn)
	}
	if fn.Confidence != rn.Confidence || fn.ConnectionType != rn.ConnectionType {
		t.Errorf("asymmetric edge: forward=(%q, %v) reverse=(%q, %v)",
			fn.ConnectionType, fn.Confidence, rn.ConnectionType, rn.Confidence)
	}
}

func TestRebuildSimilarityConfidence(t *testing.T) {
	doc := common.Entity{
		ID:      "doc_42",
		Source:  common.SourceDocument,
		Type:    "page",
		Content: "database timeout runbook",
	}
	s := newMemStore(
		ticketEntity("jira_ENG-2", "ENG-2", "database timeouts in production"),
		doc,
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return []store.EntityMatch{{Entity: doc, Distance: 0.4}}, nil
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	stats, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if stats.SimilarityEdges != 1 {
		t.Fatalf("SimilarityEdges = %d, want 1", stats.SimilarityEdges)
	}

	grouped, _ := s.GetConnections(context.Background(), "jira_ENG-2", store.ConnectionFilter{})
	n := neighborFor(grouped, "doc_42")
	if n == nil {
		t.Fatal("jira_ENG-2 has no connection to doc_42")
	}
	if n.ConnectionType != common.ConnectionSemanticSimilarity {
		t.Errorf("ConnectionType = %q, want %q", n.ConnectionType, common.ConnectionSemanticSimilarity)
	}
	if n.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", n.Confidence)
	}
}

func TestRebuildSimilarityThresholds(t *testing.T) {
	far := common.Entity{ID: "doc_far", Source: common.SourceDocument, Content: "unrelated"}
	weak := common.Entity{ID: "doc_weak", Source: common.SourceDocument, Content: "barely related"}
	sameSource := ticketEntity("jira_OPS-9", "OPS-9", "other ticket")
	s := newMemStore(
		ticketEntity("jira_ENG-2", "ENG-2", "database timeouts"),
		far, weak, sameSource,
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return []store.EntityMatch{
			{Entity: sameSource, Distance: 0.1},
			{Entity: weak, Distance: 1.1},
			{Entity: far, Distance: 1.5},
		}, nil
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	stats, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	// same-source excluded, 1.1 falls below the 0.5 confidence floor,
	// 1.5 exceeds the distance threshold
	if stats.SimilarityEdges != 0 {
		t.Errorf("SimilarityEdges = %d, want 0", stats.SimilarityEdges)
	}
}

func TestRebuildReferencePrecedence(t *testing.T) {
	thread := common.Entity{
		ID:      "slack_T1",
		Source:  common.SourceSlack,
		Content: "following up on ENG-1",
	}
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		thread,
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return []store.EntityMatch{{Entity: thread, Distance: 0.4}}, nil
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	grouped, _ := s.GetConnections(context.Background(), "jira_ENG-1", store.ConnectionFilter{})
	n := neighborFor(grouped, "slack_T1")
	if n == nil {
		t.Fatal("jira_ENG-1 has no connection to slack_T1")
	}
	if n.ConnectionType != common.ConnectionReferenceMatch {
		t.Errorf("ConnectionType = %q, want %q", n.ConnectionType, common.ConnectionReferenceMatch)
	}
	if n.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", n.Confidence)
	}
}

func TestRebuildMeetingPass(t *testing.T) {
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		common.Entity{
			ID:      "meeting_M1",
			Source:  common.SourceMeeting,
			Type:    "standup",
			Content: "we discussed ENG-1 and the rollout",
		},
	)
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	stats, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if stats.MeetingEdges != 1 {
		t.Fatalf("MeetingEdges = %d, want 1", stats.MeetingEdges)
	}

	grouped, _ := s.GetConnections(context.Background(), "meeting_M1", store.ConnectionFilter{})
	n := neighborFor(grouped, "jira_ENG-1")
	if n == nil {
		t.Fatal("meeting_M1 has no connection to jira_ENG-1")
	}
	if n.ConnectionType != common.ConnectionMeetingReferenceMatch {
		t.Errorf("ConnectionType = %q, want %q", n.ConnectionType, common.ConnectionMeetingReferenceMatch)
	}
}

func TestRebuildIdempotent(t *testing.T) {
	doc := common.Entity{ID: "doc_42", Source: common.SourceDocument, Content: "runbook"}
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		common.Entity{ID: "slack_T1", Source: common.SourceSlack, Content: "see ENG-1"},
		doc,
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return []store.EntityMatch{{Entity: doc, Distance: 0.4}}, nil
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("first Rebuild() error = %v", err)
	}
	first := make(map[string]map[string]common.Connection, len(s.rows))
	for src, targets := range s.rows {
		first[src] = make(map[string]common.Connection, len(targets))
		for tgt, c := range targets {
			first[src][tgt] = c
		}
	}

	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}
	if !reflect.DeepEqual(first, s.rows) {
		t.Errorf("edge set changed across identical rebuilds:\nfirst:  %v\nsecond: %v", first, s.rows)
	}
}

func TestRebuildInvariants(t *testing.T) {
	doc := common.Entity{ID: "doc_42", Source: common.SourceDocument, Content: "runbook for ENG-1"}
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow, see also OPS-3"),
		ticketEntity("jira_OPS-3", "OPS-3", "Rotate credentials"),
		common.Entity{ID: "slack_T1", Source: common.SourceSlack, Content: "see ENG-1 and OPS-3"},
		common.Entity{ID: "meeting_M1", Source: common.SourceMeeting, Content: "covered ENG-1"},
		doc,
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return []store.EntityMatch{{Entity: doc, Distance: 0.9}}, nil
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	for src, targets := range s.rows {
		for tgt, c := range targets {
			if src == tgt {
				t.Errorf("self-loop stored for %s", src)
			}
			if c.Confidence < 0 || c.Confidence > 1 {
				t.Errorf("confidence out of bounds for %s -> %s: %v", src, tgt, c.Confidence)
			}
			if s.rows[tgt][src].Confidence != c.Confidence {
				t.Errorf("asymmetric confidence for %s <-> %s", src, tgt)
			}
		}
	}
}

func TestRebuildDegradedVectorIndex(t *testing.T) {
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", "Fix the login flow"),
		common.Entity{ID: "slack_T1", Source: common.SourceSlack, Content: "see ENG-1"},
	)
	s.queryFn = func(_ []float32, _ int, _ store.ExcludeFilter) ([]store.EntityMatch, error) {
		return nil, errors.New("index unavailable")
	}
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	stats, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v, want degraded success", err)
	}
	if !stats.Degraded {
		t.Error("Degraded = false, want true")
	}
	if stats.ReferenceEdges != 1 {
		t.Errorf("ReferenceEdges = %d, want 1 despite index failure", stats.ReferenceEdges)
	}
}

func TestRebuildSkipsBlankContentAnchor(t *testing.T) {
	s := newMemStore(
		ticketEntity("jira_ENG-1", "ENG-1", ""),
		ticketEntity("jira_ENG-2", "ENG-2", "real content"),
	)
	b := NewBuilder(s, s, s, &fakeAI{}, BuilderConfig{})

	if _, err := b.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if s.queryCalls != 1 {
		t.Errorf("queryCalls = %d, want 1 (blank-content anchor skipped)", s.queryCalls)
	}
}

func TestEntityRefs(t *testing.T) {
	e := common.Entity{
		Content:       "ENG-007 blocks OPS-2, see ENG-7 again",
		ExtractedRefs: []string{"eng-7", "QA-12"},
	}
	got := entityRefs(e)
	want := []string{"ENG-7", "QA-12", "OPS-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entityRefs() = %v, want %v", got, want)
	}
}

func TestTicketKey(t *testing.T) {
	tests := []struct {
		id     string
		want   string
		wantOk bool
	}{
		{"jira_ENG-1", "ENG-1", true},
		{"jira_ENG-007", "ENG-7", true},
		{"jira_not-a-key", "", false},
		{"ENG-3", "ENG-3", true},
	}
	for _, tt := range tests {
		got, ok := ticketKey(common.Entity{ID: tt.id, Source: common.SourceTicket})
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("ticketKey(%q) = (%q, %v), want (%q, %v)", tt.id, got, ok, tt.want, tt.wantOk)
		}
	}
}
