package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/ai"
	"github.com/loomworks/loom/backend/pkg/graph"
	"github.com/loomworks/loom/backend/pkg/logger"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

// QueueRebuildMsg is the payload published to the rebuild queue. The
// correlation ID ties worker log lines back to the API request that asked
// for the rebuild.
type QueueRebuildMsg struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

// ProcessRebuildMessage runs one full connection rebuild. Returning an error
// sends the message to the retry queue.
func ProcessRebuildMessage(
	ctx context.Context,
	aiClient ai.ContextAIClient,
	pgConn *pgxpool.Pool,
	msgBody string,
) error {
	var data QueueRebuildMsg
	if err := json.Unmarshal([]byte(msgBody), &data); err != nil {
		return fmt.Errorf("failed to parse rebuild message: %w", err)
	}

	logger.Info("[Queue] Starting connection rebuild", "correlation_id", data.CorrelationID)

	storage := storepgx.NewContextDBStorageWithConnection(pgConn)
	builder := graph.NewBuilder(storage, storage, storage, aiClient, graph.BuilderConfig{
		SimilarityThreshold: util.GetEnvNumeric("GRAPH_SIMILARITY_THRESHOLD", 1.2),
		MinConfidence:       util.GetEnvNumeric("GRAPH_MIN_CONFIDENCE", 0.5),
		SimilarityTopK:      int(util.GetEnvNumeric("GRAPH_SIMILARITY_TOP_K", 10)),
		MaxParallel:         int(util.GetEnvNumeric("GRAPH_REBUILD_PARALLEL", 4)),
	})

	stats, err := builder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	logger.Info("[Queue] Connection rebuild done",
		"correlation_id", data.CorrelationID,
		"entities", stats.Entities,
		"edges", stats.TotalEdges,
		"degraded", stats.Degraded,
	)
	return nil
}
