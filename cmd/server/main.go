package main

import (
	"github.com/loomworks/loom/backend/internal/server"
	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/logger"
	"github.com/loomworks/loom/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
