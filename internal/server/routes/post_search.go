package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomworks/loom/backend/internal/server/middleware"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/graph"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

func SearchHandler(c echo.Context) error {
	type searchParams struct {
		Query string `json:"query" validate:"required"`
		TopK  int    `json:"top_k" validate:"gte=0,lte=50"`
		Depth int    `json:"depth" validate:"gte=0,lte=5"`
	}

	params := new(searchParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.TopK == 0 {
		params.TopK = 5
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := storepgx.NewContextDBStorageWithConnection(app.DBConn)

	searcher := graph.NewSearcher(storage, app.AiClient, graph.NewTraverser(storage, storage))
	result, err := searcher.SearchWithGraph(ctx, params.Query, params.TopK, params.Depth)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Search failed"})
	}

	return c.JSON(http.StatusOK, result)
}

func SearchSummariesHandler(c echo.Context) error {
	type searchSummariesParams struct {
		Query string `json:"query" validate:"required"`
		TopK  int    `json:"top_k" validate:"gte=0,lte=50"`
	}

	type summaryHit struct {
		common.Summary
		Distance float64 `json:"distance"`
	}

	params := new(searchSummariesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.TopK == 0 {
		params.TopK = 5
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := storepgx.NewContextDBStorageWithConnection(app.DBConn)

	emb, err := app.AiClient.GenerateEmbedding(ctx, []byte(params.Query))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Embedding failed"})
	}

	matches, err := storage.QuerySummaries(ctx, emb, params.TopK)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Search failed"})
	}

	hits := make([]summaryHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, summaryHit{Summary: m.Summary, Distance: m.Distance})
	}
	return c.JSON(http.StatusOK, hits)
}
