package routes

import (
	"errors"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/loomworks/loom/backend/internal/server/middleware"
	"github.com/loomworks/loom/backend/pkg/common"
	"github.com/loomworks/loom/backend/pkg/refs"
	"github.com/loomworks/loom/backend/pkg/store"
	storepgx "github.com/loomworks/loom/backend/pkg/store/pgx"
)

func GetTicketsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	tickets, err := storage.ListTickets(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if tickets == nil {
		tickets = []store.TicketOverview{}
	}
	return c.JSON(http.StatusOK, tickets)
}

// GetTicketContextHandler returns a ticket entity with its grouped
// connections plus a timeline: the connected entities that carry a timestamp,
// oldest first.
func GetTicketContextHandler(c echo.Context) error {
	type getTicketContextParams struct {
		Key string `param:"key" validate:"required"`
	}

	type timelineEvent struct {
		EntityID  string            `json:"entity_id"`
		Source    common.SourceKind `json:"source"`
		Title     string            `json:"title"`
		Preview   string            `json:"preview"`
		Timestamp string            `json:"timestamp"`
	}

	type getTicketContextResponse struct {
		Ticket      *common.Entity              `json:"ticket"`
		Connections map[string][]store.Neighbor `json:"connections"`
		Timeline    []timelineEvent             `json:"timeline"`
	}

	params := new(getTicketContextParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	key, ok := refs.Canonical(params.Key)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ticket key"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := storepgx.NewContextDBStorageWithConnection(conn)

	entityID := "jira_" + key
	ticket, err := storage.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	connections, err := storage.GetConnections(ctx, entityID, store.ConnectionFilter{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	timeline := make([]timelineEvent, 0)
	for _, neighbors := range connections {
		for _, n := range neighbors {
			related, err := storage.GetEntity(ctx, n.EntityID)
			if err != nil || related.Timestamp == "" {
				continue
			}
			timeline = append(timeline, timelineEvent{
				EntityID:  related.ID,
				Source:    related.Source,
				Title:     related.Title,
				Preview:   related.ContentPreview,
				Timestamp: related.Timestamp,
			})
		}
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	})

	return c.JSON(http.StatusOK, getTicketContextResponse{
		Ticket:      ticket,
		Connections: connections,
		Timeline:    timeline,
	})
}
