package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/learnlab/internal/llm/prompts"
	"github.com/pavelanni/learnlab/internal/model"
)

const systemPrompt = "You are a rigorous and patient teaching assistant."

// Client wraps an OpenAI-compatible API client. A nil *Client is valid and
// produces local lessons only.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
	lang    string
}

// New creates a new LLM client. It returns nil when baseURL is empty.
func New(baseURL, apiKey, modelName, variant, lang string) (*Client, error) {
	if baseURL == "" {
		return nil, nil
	}
	if err := prompts.Load(prompts.FS); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant %q", variant)
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
		lang:    lang,
	}, nil
}

// Ping checks that the endpoint answers a model listing.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// GenerateLesson asks the model to explain a topic and returns the theory text.
func (c *Client) GenerateLesson(ctx context.Context, module, topicTitle string, topicOrd int) (string, error) {
	prompt, err := prompts.BuildLessonPrompt(c.variant, prompts.LessonData{
		Module:     module,
		TopicTitle: topicTitle,
		TopicOrd:   topicOrd,
		Lang:       c.lang,
	})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM lesson", "module", module, "topic", topicTitle, "chars", len(text))
	if text == "" {
		return "", fmt.Errorf("LLM returned an empty lesson")
	}
	return text, nil
}

// Lesson builds the lesson for a topic. The structure always comes from
// LocalLesson; when the client is configured and the call succeeds the theory
// is replaced by the generated text.
func (c *Client) Lesson(ctx context.Context, module string, topicOrd int, topicTitle string) model.TopicContent {
	lesson := LocalLesson(module, topicOrd, topicTitle)
	if c == nil {
		return lesson
	}
	text, err := c.GenerateLesson(ctx, module, topicTitle, topicOrd)
	if err != nil {
		slog.Warn("lesson generation failed, using local lesson", "module", module, "topic", topicTitle, "error", err)
		return lesson
	}
	lesson.Theory = text
	return lesson
}
