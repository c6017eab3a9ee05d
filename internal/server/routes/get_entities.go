package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomworks/loom/backend/internal/server/middleware"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/graph"
	"github.com/loomworks/loom/backend/pkg/store"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

func GetEntityHandler(c echo.Context) error {
	type getEntityParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getEntityResponse struct {
		Entity      *common.Entity              `json:"entity"`
		Connections map[string][]store.Neighbor `json:"connections"`
	}

	params := new(getEntityParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	entity, err := storage.GetEntity(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Entity not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	connections, err := storage.GetConnections(ctx, params.ID, store.ConnectionFilter{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, getEntityResponse{
		Entity:      entity,
		Connections: connections,
	})
}

func GetEntityConnectionsHandler(c echo.Context) error {
	type getConnectionsParams struct {
		ID            string  `param:"id" validate:"required"`
		TargetType    string  `query:"target_type"`
		MinConfidence float64 `query:"min_confidence" validate:"gte=0,lte=1"`
	}

	params := new(getConnectionsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	connections, err := storage.GetConnections(ctx, params.ID, store.ConnectionFilter{
		TargetType:    params.TargetType,
		MinConfidence: params.MinConfidence,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, connections)
}

func GetEntityGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		ID    string `param:"id" validate:"required"`
		Depth int    `query:"depth" validate:"gte=0,lte=5"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.Depth == 0 {
		params.Depth = 1
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	traverser := graph.NewTraverser(storage, storage)
	result, err := traverser.BuildConnectionGraph(ctx, []string{params.ID}, params.Depth)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, result)
}
