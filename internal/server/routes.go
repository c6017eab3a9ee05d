package server

import (
	"github.com/labstack/echo/v4"

	"github.com/loomworks/loom/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Entity routes
	apiRoutes.GET("/entities/:id", routes.GetEntityHandler)
	apiRoutes.GET("/entities/:id/connections", routes.GetEntityConnectionsHandler)
	apiRoutes.GET("/entities/:id/graph", routes.GetEntityGraphHandler)
	apiRoutes.POST("/entities", routes.CreateEntityHandler)

	// Search routes
	apiRoutes.POST("/search", routes.SearchHandler)
	apiRoutes.POST("/search/summaries", routes.SearchSummariesHandler)

	// Ticket routes
	apiRoutes.GET("/tickets", routes.GetTicketsHandler)
	apiRoutes.GET("/tickets/:key/context", routes.GetTicketContextHandler)

	// Connection graph routes
	apiRoutes.POST("/connections/rebuild", routes.RebuildConnectionsHandler)
	apiRoutes.GET("/connections/stats", routes.GetConnectionStatsHandler)

	// Summary routes
	apiRoutes.POST("/summaries", routes.CreateSummaryHandler)
}
