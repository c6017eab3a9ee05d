package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/loomworks/loom/backend/pkg/ai"
)

// GenerateCompletion generates a text completion for the given prompt using
// the configured chat model.
func (c *ContextOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := &ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.2,
	}
	for _, opt := range opts {
		opt(options)
	}

	if c.ChatClient == nil {
		return "", fmt.Errorf("chat client is not configured")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+1)
	for _, sys := range options.SystemPrompts {
		messages = append(messages, openai.SystemMessage(sys))
	}
	messages = append(messages, openai.UserMessage(prompt))

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(rCtx, openai.ChatCompletionNewParams{
		Model:       options.Model,
		Messages:    messages,
		Temperature: openai.Float(options.Temperature),
	})
	if err != nil {
		return "", err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("completion response contains no choices")
	}
	return response.Choices[0].Message.Content, nil
}
