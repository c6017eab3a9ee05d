package ai

import "context"

// GenerateOptions holds configuration for text generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics contains accumulated usage metrics from AI model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// ContextAIClient is the platform's contract with its two opaque AI
// collaborators: a deterministic embedding function and a text-generation
// call. Embeddings for identical input must be identical across calls, and
// vectors must be comparable under L2 distance; the distance-to-confidence
// conversion in the connection builder depends on it.
type ContextAIClient interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// EmbeddingBatcher is an optional fast path for clients that can embed
// multiple inputs in a single request.
type EmbeddingBatcher interface {
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// GenerateEmbeddings embeds a batch of inputs, using the client's batch
// endpoint when available and falling back to sequential single calls.
func GenerateEmbeddings(ctx context.Context, client ContextAIClient, inputs [][]byte) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if b, ok := client.(EmbeddingBatcher); ok {
		return b.GenerateEmbeddings(ctx, inputs)
	}

	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		emb, err := client.GenerateEmbedding(ctx, in)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
