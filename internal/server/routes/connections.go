package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/loomworks/loom/backend/internal/queue"
	"github.com/loomworks/loom/backend/internal/server/middleware"
	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/logger"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

// RebuildConnectionsHandler enqueues a full connection rebuild for the
// worker. The rebuild runs asynchronously; the response carries a
// correlation ID for tracking it in worker logs.
func RebuildConnectionsHandler(c echo.Context) error {
	type rebuildParams struct {
		RequestedBy string `json:"requested_by"`
	}

	type rebuildResponse struct {
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id"`
	}

	params := new(rebuildParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	msg := queue.QueueRebuildMsg{
		Message:       "Rebuild connection graph",
		CorrelationID: correlationID,
		RequestedBy:   params.RequestedBy,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	ch := c.(*middleware.AppContext).App.Queue
	publish := func(context.Context) error {
		return queue.PublishFIFO(ch, queue.RebuildQueue, msgBytes)
	}
	if err := util.RetryErrWithContext(c.Request().Context(), 3, publish); err != nil {
		logger.Error("Failed to publish rebuild job", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to enqueue rebuild"})
	}

	return c.JSON(http.StatusAccepted, rebuildResponse{
		Message:       "Rebuild enqueued",
		CorrelationID: correlationID,
	})
}

func GetConnectionStatsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	stats, err := storage.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, stats)
}
