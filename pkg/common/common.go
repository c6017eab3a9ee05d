package common

// SourceKind identifies which upstream system produced an entity.
// The ingestion pipeline assigns exactly one kind per record and encodes
// it in the entity ID prefix for human debuggability; code must dispatch
// on the Source field, never on the ID string.
type SourceKind string

const (
	SourceSlack    SourceKind = "slack"
	SourceDocument SourceKind = "document"
	SourcePR       SourceKind = "pr"
	SourceTicket   SourceKind = "jira"
	SourceMeeting  SourceKind = "meeting"
)

// KnownSourceKinds lists every source kind the platform ingests.
var KnownSourceKinds = []SourceKind{
	SourceSlack,
	SourceDocument,
	SourcePR,
	SourceTicket,
	SourceMeeting,
}

// IsKnownSource reports whether s is one of the fixed source kinds.
func IsKnownSource(s SourceKind) bool {
	for _, k := range KnownSourceKinds {
		if k == s {
			return true
		}
	}
	return false
}

// PreviewLimit bounds the length of ContentPreview in runes.
const PreviewLimit = 500

// Entity is one ingested organizational record: a chat thread, document,
// pull request, ticket, or meeting transcript. Entities are created once
// by the ingestion pipeline and never mutated here; the connection layer
// only reads them and derives edges.
//
// ID is the join key across the entity document index, the metadata cache,
// and the connection store. All three must agree on it.
type Entity struct {
	ID             string     `json:"id"`
	Source         SourceKind `json:"source"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	ContentPreview string     `json:"content_preview"`
	Timestamp      string     `json:"timestamp,omitempty"`
	ExtractedRefs  []string   `json:"extracted_refs,omitempty"`
}

// Connection types, in discovery-pass order. A pair connected by an earlier
// pass is never reconnected by a later one.
const (
	ConnectionReferenceMatch        = "reference-match"
	ConnectionSemanticSimilarity    = "semantic-similarity"
	ConnectionMeetingReferenceMatch = "meeting-reference-match"
)

// Connection is a directed, confidence-scored relation between two entity
// IDs. Connections are conceptually undirected: the store persists each
// discovered edge as two directed rows with swapped endpoints so a single
// lookup by source ID returns all neighbors.
type Connection struct {
	SourceID       string  `json:"source_entity_id"`
	SourceType     string  `json:"source_type"`
	TargetID       string  `json:"target_entity_id"`
	TargetType     string  `json:"target_type"`
	ConnectionType string  `json:"connection_type"`
	Confidence     float64 `json:"confidence_score"`
	MatchReason    string  `json:"match_reason"`
}

// GraphNode is an entity as it appears in a traversal result.
type GraphNode struct {
	ID      string     `json:"id"`
	Source  SourceKind `json:"source"`
	Type    string     `json:"type"`
	Title   string     `json:"title"`
	Preview string     `json:"preview"`
}

// GraphEdge is one undirected edge in a traversal result. Source/Target
// record the direction the edge was first discovered from; consumers must
// treat the pair as unordered.
type GraphEdge struct {
	Source         string  `json:"source"`
	Target         string  `json:"target"`
	ConnectionType string  `json:"connection_type"`
	Confidence     float64 `json:"confidence"`
	MatchReason    string  `json:"match_reason"`
}

// ConnectionGraph is the transient result of a breadth-limited traversal:
// nodes deduplicated by ID, edges deduplicated by unordered pair. It is
// never persisted.
type ConnectionGraph struct {
	RootSummaryIDs []string    `json:"root_summary_ids,omitempty"`
	Nodes          []GraphNode `json:"nodes"`
	Edges          []GraphEdge `json:"edges"`
}

// Summary is a periodic digest document produced by the (external)
// summarization pipeline. EntityIDs lists the constituent entities; the
// retrieval orchestrator uses them as traversal seeds.
type Summary struct {
	ID        string   `json:"summary_id"`
	PeriodKey string   `json:"period_key"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources"`
	EntityIDs []string `json:"entity_ids"`
}
