package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/loomworks/loom/backend/pkg/ai"
)

// App bundles the process-wide dependencies handlers need. Everything in it
// is constructed once at startup and shared across requests.
type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	AiClient ai.ContextAIClient
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	aiClient ai.ContextAIClient,
) echo.MiddlewareFunc {
	app := &App{
		DBConn:   db,
		Queue:    queue,
		AiClient: aiClient,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
