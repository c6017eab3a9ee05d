package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/loomworks/loom/backend/internal/server/middleware"
	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/refs"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

// CreateEntityHandler is the ingestion collaborator's write path: it embeds
// the entity content and upserts the record into the entity index and the
// metadata projection. Parsing raw exports stays with the producer.
func CreateEntityHandler(c echo.Context) error {
	type createEntityParams struct {
		ID            string   `json:"id" validate:"required"`
		Source        string   `json:"source" validate:"required"`
		Type          string   `json:"type"`
		Title         string   `json:"title"`
		Content       string   `json:"content" validate:"required"`
		Timestamp     string   `json:"timestamp"`
		ExtractedRefs []string `json:"extracted_refs"`
	}

	params := new(createEntityParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if !common.IsKnownSource(common.SourceKind(params.Source)) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown source kind"})
	}

	entity := common.Entity{
		ID:             params.ID,
		Source:         common.SourceKind(params.Source),
		Type:           params.Type,
		Title:          params.Title,
		Content:        params.Content,
		ContentPreview: util.TruncateRunes(params.Content, common.PreviewLimit),
		Timestamp:      params.Timestamp,
	}
	for _, r := range params.ExtractedRefs {
		if canon, ok := refs.Canonical(r); ok {
			entity.ExtractedRefs = append(entity.ExtractedRefs, canon)
		}
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := storepgx.NewContextDBStorageWithConnection(app.DBConn)

	emb, err := app.AiClient.GenerateEmbedding(ctx, []byte(entity.Content))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Embedding failed"})
	}

	if err := storage.UpsertEntity(ctx, entity, emb); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if err := storage.UpsertMetadata(ctx, []common.Entity{entity}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"id": entity.ID})
}

func CreateSummaryHandler(c echo.Context) error {
	type createSummaryParams struct {
		SummaryID string   `json:"summary_id"`
		PeriodKey string   `json:"period_key" validate:"required"`
		Content   string   `json:"content" validate:"required"`
		Sources   []string `json:"sources"`
		EntityIDs []string `json:"entity_ids"`
	}

	params := new(createSummaryParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	if params.SummaryID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		params.SummaryID = "summary_" + id
	}

	summary := common.Summary{
		ID:        params.SummaryID,
		PeriodKey: params.PeriodKey,
		Content:   params.Content,
		Sources:   params.Sources,
		EntityIDs: params.EntityIDs,
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := storepgx.NewContextDBStorageWithConnection(app.DBConn)

	emb, err := app.AiClient.GenerateEmbedding(ctx, []byte(summary.Content))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Embedding failed"})
	}

	if err := storage.UpsertSummary(ctx, summary, emb); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"summary_id": summary.ID})
}
