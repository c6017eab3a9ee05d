package aiclient

import (
	"github.com/loomworks/loom/backend/internal/util"
	"github.com/loomworks/loom/backend/pkg/ai"
	oai "github.com/loomworks/loom/backend/pkg/ai/ollama"
	gai "github.com/loomworks/loom/backend/pkg/ai/openai"
	"github.com/loomworks/loom/backend/pkg/logger"
)

// NewAIClientFromEnv constructs the embedding/completion client selected by
// AI_ADAPTER. Both processes call this once at startup and pass the client
// down by interface.
func NewAIClientFromEnv() ai.ContextAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewContextOllamaClient(oai.NewContextOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewContextOpenAIClient(gai.NewContextOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
	}
}
